package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Domain errors reported by the store. Handlers map these to HTTP status
// codes; they are distinct from cache-layer failures, which never surface.
var (
	ErrNotFound            = errors.New("not found")
	ErrSlugTaken           = errors.New("slug already exists")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// Open connects to the SQLite database behind bun.
func Open(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Migrate creates all tables. Safe to call on every startup.
func Migrate(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*Resume)(nil),
		(*User)(nil),
		(*CreditTransaction)(nil),
		(*AIInteraction)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

// isUniqueViolation recognizes SQLite's unique-constraint error across both
// the cgo and pure-Go drivers behind sqliteshim.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
