package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mikanbako/pocketquest/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userCols = `id, family_id, name, email, role, age, birth_date, created_at`

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var age sql.NullInt64
	var birthDate sql.NullTime

	err := scanner.Scan(&u.ID, &u.FamilyID, &u.Name, &u.Email, &u.Role, &age, &birthDate, &u.CreatedAt)
	if err != nil {
		return nil, err
	}

	if age.Valid {
		a := int(age.Int64)
		u.Age = &a
	}
	if birthDate.Valid {
		b := birthDate.Time
		u.BirthDate = &b
	}
	return &u, nil
}

// CreateFamily creates a family and its first parent account in one
// transaction.
func (s *UserStore) CreateFamily(familyName, parentName, email, passwordHash string) (*model.Family, *model.User, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`INSERT INTO families (name) VALUES (?)`, familyName)
	if err != nil {
		return nil, nil, fmt.Errorf("insert family: %w", err)
	}
	familyID, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("last insert id: %w", err)
	}

	result, err = tx.Exec(
		`INSERT INTO users (family_id, name, email, password_hash, role) VALUES (?, ?, ?, ?, ?)`,
		familyID, parentName, email, passwordHash, model.RoleParent,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("insert parent: %w", err)
	}
	userID, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}

	family, err := s.GetFamily(familyID)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.GetByID(userID)
	if err != nil {
		return nil, nil, err
	}
	return family, user, nil
}

// CreateChild adds a child account to an existing family. Exactly one of
// age and birthDate may be nil; birth date takes precedence at evaluation
// time when both are present.
func (s *UserStore) CreateChild(familyID int64, name, email, passwordHash string, age *int, birthDate *time.Time) (*model.User, error) {
	var ageVal sql.NullInt64
	if age != nil {
		ageVal = sql.NullInt64{Int64: int64(*age), Valid: true}
	}
	var birthVal sql.NullTime
	if birthDate != nil {
		birthVal = sql.NullTime{Time: *birthDate, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO users (family_id, name, email, password_hash, role, age, birth_date) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		familyID, name, email, passwordHash, model.RoleChild, ageVal, birthVal,
	)
	if err != nil {
		return nil, fmt.Errorf("insert child: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetFamily(id int64) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT id, name, created_at FROM families WHERE id = ?`, id)
	var f model.Family
	err := row.Scan(&f.ID, &f.Name, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return &f, nil
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// PasswordHash returns the stored bcrypt hash for an email, or "" when the
// account does not exist.
func (s *UserStore) PasswordHash(email string) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT password_hash FROM users WHERE email = ?`, email).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get password hash: %w", err)
	}
	return hash, nil
}

// ListChildren returns the family's children ordered by name.
func (s *UserStore) ListChildren(familyID int64) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userCols+` FROM users WHERE family_id = ? AND role = ? ORDER BY name ASC`,
		familyID, model.RoleChild,
	)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ListParents returns the family's parent accounts.
func (s *UserStore) ListParents(familyID int64) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userCols+` FROM users WHERE family_id = ? AND role = ? ORDER BY name ASC`,
		familyID, model.RoleParent,
	)
	if err != nil {
		return nil, fmt.Errorf("list parents: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan parent: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
