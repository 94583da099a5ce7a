package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/mikanbako/pocketquest/internal/database"
	"github.com/mikanbako/pocketquest/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedFamily creates a family with one parent and one child and returns
// their records.
func seedFamily(t *testing.T, db *sql.DB) (*model.Family, *model.User, *model.User) {
	t.Helper()
	us := NewUserStore(db)

	family, parent, err := us.CreateFamily("Tanaka", "Yuko", "yuko@example.com", "hash")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}

	age := 8
	child, err := us.CreateChild(family.ID, "Kenta", "kenta@example.com", "hash", &age, nil)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	return family, parent, child
}

func seedTask(t *testing.T, db *sql.DB, familyID, createdBy int64, points int, category string) *model.Task {
	t.Helper()
	ts := NewTaskStore(db)
	task, err := ts.Create(familyID, "Wash dishes", "", points, category, model.DifficultyEasy, nil, createdBy)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func earn(t *testing.T, db *sql.DB, userID int64, amount int) {
	t.Helper()
	if _, err := NewTransactionStore(db).Append(userID, model.TransactionEarned, amount, "seed"); err != nil {
		t.Fatalf("append earned: %v", err)
	}
}

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
