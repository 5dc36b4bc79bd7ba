package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/campushunt/treasurehunt/internal/hunt"
)

func putRound(ctx context.Context, q querier, r hunt.Round) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO rounds (id, round_number, qr_id, data) VALUES (?, ?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET
			round_number = excluded.round_number,
			qr_id = excluded.qr_id,
			data = excluded.data`,
		r.ID, r.RoundNumber, r.QRID, string(data),
	)
	return mapErr(err)
}

func (s *DocStore) CreateRound(ctx context.Context, r hunt.Round) (hunt.Round, error) {
	now := s.now()
	r.ID = newID()
	r.CreatedAt = now
	r.UpdatedAt = now
	err := s.modify(ctx, func(tx *sql.Tx) error {
		return putRound(ctx, tx, r)
	})
	if err != nil {
		return hunt.Round{}, err
	}
	return r, nil
}

func (s *DocStore) Round(ctx context.Context, id string) (hunt.Round, error) {
	var r hunt.Round
	err := getDoc(ctx, s.db, &r, `SELECT json(data) FROM rounds WHERE id = ?`, id)
	return r, err
}

func (s *DocStore) RoundByNumber(ctx context.Context, n int) (hunt.Round, error) {
	var r hunt.Round
	err := getDoc(ctx, s.db, &r, `SELECT json(data) FROM rounds WHERE round_number = ?`, n)
	return r, err
}

// NextRound returns the round with the smallest number above after. Gaps in
// numbering are skipped.
func (s *DocStore) NextRound(ctx context.Context, after int) (hunt.Round, error) {
	var r hunt.Round
	err := getDoc(ctx, s.db, &r,
		`SELECT json(data) FROM rounds WHERE round_number > ? ORDER BY round_number LIMIT 1`, after,
	)
	return r, err
}

func (s *DocStore) Rounds(ctx context.Context) ([]hunt.Round, error) {
	return listDocs[hunt.Round](ctx, s.db, `SELECT json(data) FROM rounds ORDER BY round_number`)
}

func (s *DocStore) RoundExists(ctx context.Context, n int) (bool, error) {
	count, err := s.count(ctx, `SELECT COUNT(*) FROM rounds WHERE round_number = ?`, n)
	return count > 0, err
}

func (s *DocStore) CountRounds(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM rounds`)
}

func (s *DocStore) ModifyRound(ctx context.Context, id string, fn func(*hunt.Round) error) (hunt.Round, error) {
	var r hunt.Round
	err := s.modify(ctx, func(tx *sql.Tx) error {
		if err := getDoc(ctx, tx, &r, `SELECT json(data) FROM rounds WHERE id = ?`, id); err != nil {
			return err
		}
		if err := fn(&r); err != nil {
			return err
		}
		r.ID = id
		r.UpdatedAt = s.now()
		return putRound(ctx, tx, r)
	})
	if err != nil {
		return hunt.Round{}, err
	}
	return r, nil
}

func (s *DocStore) DeleteRound(ctx context.Context, id string) error {
	return s.del(ctx, "rounds", id)
}
