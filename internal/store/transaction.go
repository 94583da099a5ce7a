package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mikanbako/pocketquest/internal/exchange"
	"github.com/mikanbako/pocketquest/internal/model"
)

// TransactionStore owns the append-only point ledger. Rows are only ever
// inserted; balance questions are answered by summing over the log.
type TransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

const transactionCols = `id, reference, user_id, type, amount, description, created_at`

func scanTransaction(scanner interface{ Scan(...any) error }) (*model.PointTransaction, error) {
	var t model.PointTransaction
	err := scanner.Scan(&t.ID, &t.Reference, &t.UserID, &t.Type, &t.Amount, &t.Description, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Append adds a transaction to the end of the log, assigning a unique
// reference and timestamp. No domain validation happens here; amount
// legality is the caller's responsibility.
func (s *TransactionStore) Append(userID int64, typ model.TransactionType, amount int, description string) (*model.PointTransaction, error) {
	result, err := s.db.Exec(
		`INSERT INTO point_transactions (reference, user_id, type, amount, description) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, typ, amount, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TransactionStore) GetByID(id int64) (*model.PointTransaction, error) {
	row := s.db.QueryRow(`SELECT `+transactionCols+` FROM point_transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// ListByUser returns a user's transactions in insertion order.
func (s *TransactionStore) ListByUser(userID int64) ([]model.PointTransaction, error) {
	rows, err := s.db.Query(
		`SELECT `+transactionCols+` FROM point_transactions WHERE user_id = ? ORDER BY id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.PointTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// Balance derives a user's spendable balance from the log.
func (s *TransactionStore) Balance(userID int64) (int, error) {
	var balance int
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(CASE type
			WHEN 'EARNED' THEN amount
			WHEN 'EXCHANGED' THEN -amount
			ELSE 0 END), 0)
		 FROM point_transactions WHERE user_id = ?`,
		userID,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("sum balance: %w", err)
	}
	return balance, nil
}

// Balances returns every child's ledger totals, highest balance first.
func (s *TransactionStore) Balances(familyID int64) ([]model.PointBalance, error) {
	rows, err := s.db.Query(
		`SELECT u.id, u.name,
			COALESCE(SUM(CASE t.type WHEN 'EARNED' THEN t.amount ELSE 0 END), 0),
			COALESCE(SUM(CASE t.type WHEN 'EXCHANGED' THEN t.amount ELSE 0 END), 0),
			COALESCE(SUM(CASE t.type WHEN 'INVESTMENT' THEN t.amount ELSE 0 END), 0)
		 FROM users u
		 LEFT JOIN point_transactions t ON t.user_id = u.id
		 WHERE u.family_id = ? AND u.role = 'CHILD'
		 GROUP BY u.id, u.name
		 ORDER BY 3 - 4 DESC, u.name ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var balances []model.PointBalance
	for rows.Next() {
		var b model.PointBalance
		if err := rows.Scan(&b.UserID, &b.UserName, &b.Earned, &b.Exchanged, &b.Invested); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		b.Balance = b.Earned - b.Exchanged
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// Exchange validates the request against the live balance and appends the
// EXCHANGED transaction inside a single database transaction, so two
// concurrent exchanges can never overdraw the same child.
func (s *TransactionStore) Exchange(userID int64, requested int, rate model.ExchangeRate) (*exchange.Result, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var balance int
	err = tx.QueryRow(
		`SELECT COALESCE(SUM(CASE type
			WHEN 'EARNED' THEN amount
			WHEN 'EXCHANGED' THEN -amount
			ELSE 0 END), 0)
		 FROM point_transactions WHERE user_id = ?`,
		userID,
	).Scan(&balance)
	if err != nil {
		return nil, fmt.Errorf("sum balance: %w", err)
	}

	quote, err := exchange.NewQuote(requested, rate, balance)
	if err != nil {
		return nil, err
	}

	result, err := tx.Exec(
		`INSERT INTO point_transactions (reference, user_id, type, amount, description) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, model.TransactionExchanged, quote.Points, quote.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert exchange: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := tx.QueryRow(`SELECT `+transactionCols+` FROM point_transactions WHERE id = ?`, id)
	appended, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("get exchange: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &exchange.Result{
		Transaction:    *appended,
		CurrencyAmount: quote.CurrencyAmount,
		NewBalance:     balance - quote.Points,
	}, nil
}
