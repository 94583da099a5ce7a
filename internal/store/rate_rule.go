package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mikanbako/pocketquest/internal/model"
)

type RateRuleStore struct {
	db *sql.DB
}

func NewRateRuleStore(db *sql.DB) *RateRuleStore {
	return &RateRuleStore{db: db}
}

const ruleCols = `id, family_id, name, type, priority, conditions, multiplier, bonus_points, is_active, description, created_at`

func scanRule(scanner interface{ Scan(...any) error }) (*model.RateRule, error) {
	var r model.RateRule
	var conditions string
	var active int

	err := scanner.Scan(&r.ID, &r.FamilyID, &r.Name, &r.Type, &r.Priority, &conditions, &r.Multiplier, &r.BonusPoints, &active, &r.Description, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(conditions), &r.Conditions); err != nil {
		return nil, fmt.Errorf("decode conditions: %w", err)
	}
	r.IsActive = active != 0
	return &r, nil
}

// Create persists a rule. Callers validate with rate.ValidateRule first;
// the store does not re-check.
func (s *RateRuleStore) Create(r model.RateRule) (*model.RateRule, error) {
	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return nil, fmt.Errorf("encode conditions: %w", err)
	}
	var active int
	if r.IsActive {
		active = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO rate_rules (family_id, name, type, priority, conditions, multiplier, bonus_points, is_active, description) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.FamilyID, r.Name, r.Type, r.Priority, string(conditions), r.Multiplier, r.BonusPoints, active, r.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert rate rule: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RateRuleStore) GetByID(id int64) (*model.RateRule, error) {
	row := s.db.QueryRow(`SELECT `+ruleCols+` FROM rate_rules WHERE id = ?`, id)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rate rule: %w", err)
	}
	return r, nil
}

// List returns all of the family's rules in evaluation order.
func (s *RateRuleStore) List(familyID int64) ([]model.RateRule, error) {
	return s.list(familyID, false)
}

// ListActive returns only active rules, in evaluation order.
func (s *RateRuleStore) ListActive(familyID int64) ([]model.RateRule, error) {
	return s.list(familyID, true)
}

func (s *RateRuleStore) list(familyID int64, activeOnly bool) ([]model.RateRule, error) {
	query := `SELECT ` + ruleCols + ` FROM rate_rules WHERE family_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY priority ASC, id ASC`

	rows, err := s.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("list rate rules: %w", err)
	}
	defer rows.Close()

	var rules []model.RateRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rate rule: %w", err)
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

// Toggle flips a rule's active flag and returns the updated rule.
func (s *RateRuleStore) Toggle(id int64) (*model.RateRule, error) {
	_, err := s.db.Exec(`UPDATE rate_rules SET is_active = 1 - is_active WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("toggle rate rule: %w", err)
	}
	return s.GetByID(id)
}

func (s *RateRuleStore) Delete(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM rate_rules WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete rate rule: %w", err)
	}
	return nil
}
