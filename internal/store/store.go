// Package store persists hunt documents as JSONB rows in SQLite, one table
// per model, with the lookup keys copied into indexed columns.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campushunt/treasurehunt/internal/hunt"
)

// Fixed width so created_at columns sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// DocStore implements hunt.Store.
type DocStore struct {
	db *sql.DB
	// SQLite has one writer. Read-modify-write transactions are serialized
	// here so they never upgrade from a stale read snapshot.
	writeMu sync.Mutex
	now     func() time.Time
}

func New(db *sql.DB) *DocStore {
	return &DocStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used for createdAt and updatedAt.
func (s *DocStore) WithClock(now func() time.Time) *DocStore {
	s.now = now
	return s
}

var _ hunt.Store = (*DocStore)(nil)

func newID() string {
	return uuid.NewString()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// mapErr translates driver errors into hunt error kinds.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return hunt.ErrNotFound
	case strings.Contains(err.Error(), "UNIQUE"):
		return fmt.Errorf("%w: %v", hunt.ErrConflict, err)
	}
	return err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// getDoc decodes the first row's data column into dest.
func getDoc(ctx context.Context, q querier, dest any, query string, args ...any) error {
	var data string
	if err := q.QueryRowContext(ctx, query, args...).Scan(&data); err != nil {
		return mapErr(err)
	}
	return json.Unmarshal([]byte(data), dest)
}

// listDocs decodes every row's data column. Rows are materialized before
// returning so callers can issue further queries.
func listDocs[T any](ctx context.Context, q querier, query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []T{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var doc T
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *DocStore) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func (s *DocStore) del(ctx context.Context, table, id string) error {
	return s.modify(ctx, func(tx *sql.Tx) error {
		return deleteRow(ctx, tx, table, id)
	})
}

func deleteRow(ctx context.Context, q querier, table, id string) error {
	result, err := q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return hunt.ErrNotFound
	}
	return nil
}

// modify runs fn inside a write transaction. Every write goes through here.
func (s *DocStore) modify(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
