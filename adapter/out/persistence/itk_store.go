// Package persistence provides PostgreSQL adapters for the pipeline's
// outbound repository ports.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"itk_server/core/domain"
	"itk_server/core/port/out"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
)

type ctxKey int

const txKey ctxKey = iota

// Store wraps the sqlx handle and carries transactions through context so a
// webhook's effect application commits exactly once.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// RunInTx implements out.TxRunner. Nested calls join the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// ext returns the active transaction if the context carries one, otherwise
// the base connection.
func (s *Store) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey).(*sqlx.Tx); ok {
		return tx
	}
	return s.db
}

// notFound maps sql.ErrNoRows onto the port-level sentinel.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return out.ErrNotFound
	}
	return err
}

// decodeEvents unmarshals a JSONB event cache. Malformed rows decode to nil
// rather than failing the read.
func decodeEvents(raw []byte) []domain.Event {
	if len(raw) == 0 {
		return nil
	}
	var events []domain.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil
	}
	return events
}

// encodeEvents marshals an event list for a JSONB column. A nil list encodes
// as an empty array so the column stays non-null.
func encodeEvents(events []domain.Event) ([]byte, error) {
	if events == nil {
		events = []domain.Event{}
	}
	return json.Marshal(events)
}
