package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/campushunt/treasurehunt/internal/hunt"
)

func putHintRequest(ctx context.Context, q querier, h hunt.HintRequest) error {
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO hint_requests (id, team_id, round_number, status, created_at, data)
		 VALUES (?, ?, ?, ?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			data = excluded.data`,
		h.ID, h.TeamID, h.RoundNumber, string(h.Status), formatTime(h.CreatedAt), string(data),
	)
	return mapErr(err)
}

// CreateHintRequest fails with hunt.ErrConflict when the team already has a
// pending request for the round.
func (s *DocStore) CreateHintRequest(ctx context.Context, h hunt.HintRequest) (hunt.HintRequest, error) {
	h.ID = newID()
	h.CreatedAt = s.now()
	if h.RequestedAt.IsZero() {
		h.RequestedAt = h.CreatedAt
	}
	err := s.modify(ctx, func(tx *sql.Tx) error {
		return putHintRequest(ctx, tx, h)
	})
	if err != nil {
		return hunt.HintRequest{}, err
	}
	return h, nil
}

func (s *DocStore) HintRequest(ctx context.Context, id string) (hunt.HintRequest, error) {
	var h hunt.HintRequest
	err := getDoc(ctx, s.db, &h, `SELECT json(data) FROM hint_requests WHERE id = ?`, id)
	return h, err
}

func (s *DocStore) LatestHintRequest(ctx context.Context, teamID string, roundNumber int) (hunt.HintRequest, error) {
	var h hunt.HintRequest
	err := getDoc(ctx, s.db, &h,
		`SELECT json(data) FROM hint_requests
		 WHERE team_id = ? AND round_number = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		teamID, roundNumber,
	)
	return h, err
}

func (s *DocStore) HasPendingHintRequest(ctx context.Context, teamID string, roundNumber int) (bool, error) {
	n, err := s.count(ctx,
		`SELECT COUNT(*) FROM hint_requests WHERE team_id = ? AND round_number = ? AND status = ?`,
		teamID, roundNumber, string(hunt.HintPending),
	)
	return n > 0, err
}

// HintRequests returns matching requests, newest first.
func (s *DocStore) HintRequests(ctx context.Context, f hunt.HintFilter) ([]hunt.HintRequest, error) {
	var where []string
	var args []any
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.RoundNumber > 0 {
		where = append(where, "round_number = ?")
		args = append(args, f.RoundNumber)
	}

	query := `SELECT json(data) FROM hint_requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	return listDocs[hunt.HintRequest](ctx, s.db, query, args...)
}

func (s *DocStore) ModifyHintRequest(ctx context.Context, id string, fn func(*hunt.HintRequest) error) (hunt.HintRequest, error) {
	var h hunt.HintRequest
	err := s.modify(ctx, func(tx *sql.Tx) error {
		if err := getDoc(ctx, tx, &h, `SELECT json(data) FROM hint_requests WHERE id = ?`, id); err != nil {
			return err
		}
		if err := fn(&h); err != nil {
			return err
		}
		h.ID = id
		return putHintRequest(ctx, tx, h)
	})
	if err != nil {
		return hunt.HintRequest{}, err
	}
	return h, nil
}
