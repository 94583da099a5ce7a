package store

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/mikanbako/pocketquest/internal/model"
)

const (
	keyPointsPerUnit   = "exchange_points_per_unit"
	keyMinimumExchange = "exchange_minimum"

	defaultPointsPerUnit   = 10
	defaultMinimumExchange = 100
)

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) get(familyID int64, key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE family_id = ? AND key = ?`, familyID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) set(familyID int64, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (family_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (family_id, key) DO UPDATE SET value = excluded.value`,
		familyID, key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// ExchangeRate returns the family's exchange configuration, falling back
// to defaults for unset keys.
func (s *SettingsStore) ExchangeRate(familyID int64) (model.ExchangeRate, error) {
	rate := model.ExchangeRate{
		PointsPerUnit:   defaultPointsPerUnit,
		MinimumExchange: defaultMinimumExchange,
	}

	if v, err := s.get(familyID, keyPointsPerUnit); err != nil {
		return rate, err
	} else if v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return rate, fmt.Errorf("parse %s: %w", keyPointsPerUnit, err)
		}
		rate.PointsPerUnit = n
	}

	if v, err := s.get(familyID, keyMinimumExchange); err != nil {
		return rate, err
	} else if v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return rate, fmt.Errorf("parse %s: %w", keyMinimumExchange, err)
		}
		rate.MinimumExchange = n
	}

	return rate, nil
}

// SetExchangeRate stores the family's exchange configuration.
func (s *SettingsStore) SetExchangeRate(familyID int64, rate model.ExchangeRate) error {
	if rate.PointsPerUnit <= 0 {
		return fmt.Errorf("points_per_unit must be positive, got %d", rate.PointsPerUnit)
	}
	if rate.MinimumExchange <= 0 {
		return fmt.Errorf("minimum_exchange must be positive, got %d", rate.MinimumExchange)
	}

	if err := s.set(familyID, keyPointsPerUnit, strconv.Itoa(rate.PointsPerUnit)); err != nil {
		return err
	}
	return s.set(familyID, keyMinimumExchange, strconv.Itoa(rate.MinimumExchange))
}
