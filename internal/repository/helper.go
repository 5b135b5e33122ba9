package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// ParseTime parses a date string in "2006-01-02", RFC3339 or SQLite's
// CURRENT_TIMESTAMP format.
func ParseTime(str string) (time.Time, error) {
	for _, layout := range []string{dateLayout, time.RFC3339Nano, time.DateTime} {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse date: %q", str)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func nullString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func nullTime(n sql.NullString) (*time.Time, error) {
	if !n.Valid || n.String == "" {
		return nil, nil
	}
	t, err := ParseTime(n.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func sqlFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func sqlString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
