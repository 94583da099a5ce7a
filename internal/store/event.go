package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mikanbako/pocketquest/internal/approval"
	"github.com/mikanbako/pocketquest/internal/model"
)

// ErrEventReferenced is returned when deleting an event that already has
// submitted results.
var ErrEventReferenced = errors.New("event has results and cannot be deleted")

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventCols = `id, family_id, title, description, category, event_type, points_config, assigned_to, created_by, due_date, created_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	var config string
	var assignedTo sql.NullInt64
	var dueDate sql.NullTime

	err := scanner.Scan(&e.ID, &e.FamilyID, &e.Title, &e.Description, &e.Category, &e.EventType, &config, &assignedTo, &e.CreatedBy, &dueDate, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(config), &e.PointsConfig); err != nil {
		return nil, fmt.Errorf("decode points config: %w", err)
	}
	if assignedTo.Valid {
		e.AssignedTo = &assignedTo.Int64
	}
	if dueDate.Valid {
		d := dueDate.Time
		e.DueDate = &d
	}
	return &e, nil
}

// Create persists an event. Callers validate with event.Validate first.
func (s *EventStore) Create(e model.Event) (*model.Event, error) {
	config, err := json.Marshal(e.PointsConfig)
	if err != nil {
		return nil, fmt.Errorf("encode points config: %w", err)
	}
	var assigned sql.NullInt64
	if e.AssignedTo != nil {
		assigned = sql.NullInt64{Int64: *e.AssignedTo, Valid: true}
	}
	var due sql.NullTime
	if e.DueDate != nil {
		due = sql.NullTime{Time: *e.DueDate, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO events (family_id, title, description, category, event_type, points_config, assigned_to, created_by, due_date) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.FamilyID, e.Title, e.Description, e.Category, e.EventType, string(config), assigned, e.CreatedBy, due,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *EventStore) GetByID(id int64) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *EventStore) List(familyID int64) ([]model.Event, error) {
	rows, err := s.db.Query(`SELECT `+eventCols+` FROM events WHERE family_id = ? ORDER BY created_at DESC, id DESC`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// ApprovedEventIDs returns the family's event IDs that have at least one
// approved result, used to mark events done in listings.
func (s *EventStore) ApprovedEventIDs(familyID int64) (map[int64]bool, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT r.event_id
		 FROM event_results r
		 JOIN events e ON e.id = r.event_id
		 WHERE e.family_id = ? AND r.status = ?`,
		familyID, model.CompletionApproved,
	)
	if err != nil {
		return nil, fmt.Errorf("list approved event ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan event id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// Delete removes an event unless any result references it. The guard and
// the delete are one statement so a submission cannot slip in between them.
func (s *EventStore) Delete(id int64) error {
	result, err := s.db.Exec(
		`DELETE FROM events
		 WHERE id = ? AND NOT EXISTS (SELECT 1 FROM event_results WHERE event_id = ?)`,
		id, id,
	)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		var count int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM event_results WHERE event_id = ?`, id).Scan(&count); err != nil {
			return fmt.Errorf("count results: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("event %d: %w", id, ErrEventReferenced)
		}
	}
	return nil
}

// --- Result methods ---

const resultCols = `id, event_id, child_id, result_type, score, evaluation, earned_points, bonus_earned, status, submitted_at, approved_at, comments`

func scanResult(scanner interface{ Scan(...any) error }) (*model.EventResult, error) {
	var r model.EventResult
	var score sql.NullInt64
	var bonus int
	var approvedAt sql.NullTime

	err := scanner.Scan(&r.ID, &r.EventID, &r.ChildID, &r.ResultType, &score, &r.Evaluation, &r.EarnedPoints, &bonus, &r.Status, &r.SubmittedAt, &approvedAt, &r.Comments)
	if err != nil {
		return nil, err
	}

	if score.Valid {
		v := int(score.Int64)
		r.Score = &v
	}
	r.BonusEarned = bonus != 0
	if approvedAt.Valid {
		t := approvedAt.Time
		r.ApprovedAt = &t
	}
	return &r, nil
}

// SubmitResult records a child's one-time result with its resolved points.
func (s *EventStore) SubmitResult(r model.EventResult) (*model.EventResult, error) {
	var score sql.NullInt64
	if r.Score != nil {
		score = sql.NullInt64{Int64: int64(*r.Score), Valid: true}
	}
	var bonus int
	if r.BonusEarned {
		bonus = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO event_results (event_id, child_id, result_type, score, evaluation, earned_points, bonus_earned, comments) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.EventID, r.ChildID, r.ResultType, score, r.Evaluation, r.EarnedPoints, bonus, r.Comments,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event result: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetResult(id)
}

func (s *EventStore) GetResult(id int64) (*model.EventResult, error) {
	row := s.db.QueryRow(`SELECT `+resultCols+` FROM event_results WHERE id = ?`, id)
	r, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event result: %w", err)
	}
	return r, nil
}

// ListResults returns results for an event, newest first.
func (s *EventStore) ListResults(eventID int64) ([]model.EventResult, error) {
	rows, err := s.db.Query(
		`SELECT `+resultCols+` FROM event_results WHERE event_id = ? ORDER BY submitted_at DESC, id DESC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list event results: %w", err)
	}
	defer rows.Close()

	var results []model.EventResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event result: %w", err)
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

// ListResultsByChild returns a child's results, newest first.
func (s *EventStore) ListResultsByChild(childID int64) ([]model.EventResult, error) {
	rows, err := s.db.Query(
		`SELECT `+resultCols+` FROM event_results WHERE child_id = ? ORDER BY submitted_at DESC, id DESC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list results by child: %w", err)
	}
	defer rows.Close()

	var results []model.EventResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event result: %w", err)
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

// ApproveResult flips a pending result to APPROVED and appends the EARNED
// transaction for its resolved points, in one database transaction.
func (s *EventStore) ApproveResult(resultID int64, description string, now time.Time) (*model.EventResult, *model.PointTransaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+resultCols+` FROM event_results WHERE id = ?`, resultID)
	r, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get event result: %w", err)
	}

	if r.Status != model.CompletionPending {
		return nil, nil, fmt.Errorf("event result %d is %s: %w", resultID, r.Status, approval.ErrInvalidTransition)
	}

	result, err := tx.Exec(
		`UPDATE event_results SET status = ?, approved_at = ? WHERE id = ? AND status = ?`,
		model.CompletionApproved, now, resultID, model.CompletionPending,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("update event result: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, nil, fmt.Errorf("event result %d: %w", resultID, approval.ErrInvalidTransition)
	}

	result, err = tx.Exec(
		`INSERT INTO point_transactions (reference, user_id, type, amount, description) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), r.ChildID, model.TransactionEarned, r.EarnedPoints, description,
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

	r.Status = model.CompletionApproved
	r.ApprovedAt = &now
	return r, earned, nil
}

// RejectResult flips a pending result to REJECTED. No ledger effect, and
// the approval timestamp stays unset.
func (s *EventStore) RejectResult(resultID int64) (*model.EventResult, error) {
	result, err := s.db.Exec(
		`UPDATE event_results SET status = ? WHERE id = ? AND status = ?`,
		model.CompletionRejected, resultID, model.CompletionPending,
	)
	if err != nil {
		return nil, fmt.Errorf("update event result: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("event result %d: %w", resultID, approval.ErrInvalidTransition)
	}
	return s.GetResult(resultID)
}
