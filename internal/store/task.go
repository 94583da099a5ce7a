package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mikanbako/pocketquest/internal/approval"
	"github.com/mikanbako/pocketquest/internal/model"
	"github.com/mikanbako/pocketquest/internal/rate"
)

// ErrTaskReferenced is returned when deleting a task that still has
// completions, in any status, pointing at it.
var ErrTaskReferenced = errors.New("task has completions and cannot be deleted")

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskCols = `id, family_id, title, description, points, category, difficulty, assigned_to, created_by, created_at`

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var assignedTo sql.NullInt64

	err := scanner.Scan(&t.ID, &t.FamilyID, &t.Title, &t.Description, &t.Points, &t.Category, &t.Difficulty, &assignedTo, &t.CreatedBy, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	if assignedTo.Valid {
		t.AssignedTo = &assignedTo.Int64
	}
	return &t, nil
}

func (s *TaskStore) Create(familyID int64, title, description string, points int, category string, difficulty model.Difficulty, assignedTo *int64, createdBy int64) (*model.Task, error) {
	var assigned sql.NullInt64
	if assignedTo != nil {
		assigned = sql.NullInt64{Int64: *assignedTo, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (family_id, title, description, points, category, difficulty, assigned_to, created_by) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		familyID, title, description, points, category, difficulty, assigned, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// List returns the family's tasks, newest first.
func (s *TaskStore) List(familyID int64) ([]model.Task, error) {
	rows, err := s.db.Query(`SELECT `+taskCols+` FROM tasks WHERE family_id = ? ORDER BY created_at DESC, id DESC`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Delete removes a task. Tasks with any completion referencing them cannot
// be deleted; that would orphan awarded points. The guard and the delete
// are one statement so a submission cannot slip in between them.
func (s *TaskStore) Delete(id int64) error {
	result, err := s.db.Exec(
		`DELETE FROM tasks
		 WHERE id = ? AND NOT EXISTS (SELECT 1 FROM task_completions WHERE task_id = ?)`,
		id, id,
	)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		var count int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM task_completions WHERE task_id = ?`, id).Scan(&count); err != nil {
			return fmt.Errorf("count completions: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("task %d: %w", id, ErrTaskReferenced)
		}
	}
	return nil
}

// --- Completion methods ---

const completionCols = `id, task_id, child_id, status, submitted_at, approved_at, comments`

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.TaskCompletion, error) {
	var c model.TaskCompletion
	var approvedAt sql.NullTime

	err := scanner.Scan(&c.ID, &c.TaskID, &c.ChildID, &c.Status, &c.SubmittedAt, &approvedAt, &c.Comments)
	if err != nil {
		return nil, err
	}

	if approvedAt.Valid {
		t := approvedAt.Time
		c.ApprovedAt = &t
	}
	return &c, nil
}

// Submit creates a new PENDING completion for the child.
func (s *TaskStore) Submit(taskID, childID int64, comments string) (*model.TaskCompletion, error) {
	result, err := s.db.Exec(
		`INSERT INTO task_completions (task_id, child_id, comments) VALUES (?, ?, ?)`,
		taskID, childID, comments,
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetCompletion(id)
}

func (s *TaskStore) GetCompletion(id int64) (*model.TaskCompletion, error) {
	row := s.db.QueryRow(`SELECT `+completionCols+` FROM task_completions WHERE id = ?`, id)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

// ListCompletions returns every completion in the family, newest first,
// optionally limited to one status.
func (s *TaskStore) ListCompletions(familyID int64, status model.CompletionStatus) ([]model.TaskCompletion, error) {
	query := `SELECT c.id, c.task_id, c.child_id, c.status, c.submitted_at, c.approved_at, c.comments
		FROM task_completions c
		JOIN tasks t ON t.id = c.task_id
		WHERE t.family_id = ?`
	args := []any{familyID}
	if status != "" {
		query += ` AND c.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY c.submitted_at DESC, c.id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.TaskCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

// ListCompletionsByChild returns a child's completions, newest first.
func (s *TaskStore) ListCompletionsByChild(childID int64) ([]model.TaskCompletion, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM task_completions WHERE child_id = ? ORDER BY submitted_at DESC, id DESC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions by child: %w", err)
	}
	defer rows.Close()

	var completions []model.TaskCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

// CompletionCounts tallies a child's approved completions, total and per
// task category, for performance-based rate rules.
func (s *TaskStore) CompletionCounts(childID int64) (rate.CompletionCounts, error) {
	counts := rate.CompletionCounts{ByCategory: make(map[string]int)}

	rows, err := s.db.Query(
		`SELECT t.category, COUNT(*)
		 FROM task_completions c
		 JOIN tasks t ON t.id = c.task_id
		 WHERE c.child_id = ? AND c.status = 'APPROVED'
		 GROUP BY t.category`,
		childID,
	)
	if err != nil {
		return counts, fmt.Errorf("count completions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return counts, fmt.Errorf("scan count: %w", err)
		}
		counts.ByCategory[category] = n
		counts.Total += n
	}
	return counts, rows.Err()
}

// Approve flips a pending completion to APPROVED and appends the EARNED
// transaction in one database transaction. The UNIQUE completion_id column
// and the status guard in the UPDATE together guarantee a completion is
// credited at most once.
func (s *TaskStore) Approve(completionID int64, award int, description string, now time.Time) (*model.TaskCompletion, *model.PointTransaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+completionCols+` FROM task_completions WHERE id = ?`, completionID)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get completion: %w", err)
	}

	approved, err := approval.Approve(*c, now)
	if err != nil {
		return nil, nil, err
	}

	result, err := tx.Exec(
		`UPDATE task_completions SET status = ?, approved_at = ? WHERE id = ? AND status = ?`,
		approved.Status, now, completionID, model.CompletionPending,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("update completion: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, nil, fmt.Errorf("completion %d: %w", completionID, approval.ErrInvalidTransition)
	}

	result, err = tx.Exec(
		`INSERT INTO point_transactions (reference, user_id, type, amount, description, completion_id) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), c.ChildID, model.TransactionEarned, award, description, completionID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert earned transaction: %w", err)
	}
	txID, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("last insert id: %w", err)
	}

	txRow := tx.QueryRow(`SELECT `+transactionCols+` FROM point_transactions WHERE id = ?`, txID)
	earned, err := scanTransaction(txRow)
	if err != nil {
		return nil, nil, fmt.Errorf("get earned transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return &approved, earned, nil
}

// Reject flips a pending completion to REJECTED. No ledger effect; the
// child may resubmit. The approval timestamp stays unset.
func (s *TaskStore) Reject(completionID int64) (*model.TaskCompletion, error) {
	c, err := s.GetCompletion(completionID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	rejected, err := approval.Reject(*c)
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(
		`UPDATE task_completions SET status = ? WHERE id = ? AND status = ?`,
		rejected.Status, completionID, model.CompletionPending,
	)
	if err != nil {
		return nil, fmt.Errorf("update completion: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("completion %d: %w", completionID, approval.ErrInvalidTransition)
	}
	return &rejected, nil
}
