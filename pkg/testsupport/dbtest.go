package testsupport

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/goliatone/go-contractor/internal/storage"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// SQLiteMemoryDSN returns a DSN for a private, shared-cache in-memory
// database so parallel tests never see each other's tables.
func SQLiteMemoryDSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", uuid.NewString())
}

func NewSQLiteMemoryDB() (*sql.DB, error) {
	return sql.Open("sqlite3", SQLiteMemoryDSN())
}

// NewBunDB opens an in-memory SQLite database with the full schema applied.
func NewBunDB(tb testing.TB) *bun.DB {
	tb.Helper()
	sqlDB, err := NewSQLiteMemoryDB()
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	db.SetMaxOpenConns(1)
	tb.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(context.Background(), db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}
