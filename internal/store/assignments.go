package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/campushunt/treasurehunt/internal/hunt"
)

func (s *DocStore) CreateAssignment(ctx context.Context, a hunt.ClueAssignment) (hunt.ClueAssignment, error) {
	a.ID = newID()
	a.CreatedAt = s.now()
	if a.TeamIDs == nil {
		a.TeamIDs = []string{}
	}
	data, err := json.Marshal(a)
	if err != nil {
		return hunt.ClueAssignment{}, err
	}

	err = s.modify(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO clue_assignments (id, round_number, unlock_code, qr_id, created_at, data)
			 VALUES (?, ?, ?, ?, ?, jsonb(?))`,
			a.ID, a.RoundNumber, a.UnlockCode, a.QRID, formatTime(a.CreatedAt), string(data),
		)
		return mapErr(err)
	})
	if err != nil {
		return hunt.ClueAssignment{}, err
	}
	return a, nil
}

func (s *DocStore) Assignment(ctx context.Context, id string) (hunt.ClueAssignment, error) {
	var a hunt.ClueAssignment
	err := getDoc(ctx, s.db, &a, `SELECT json(data) FROM clue_assignments WHERE id = ?`, id)
	return a, err
}

// AssignmentFor returns the earliest assignment for roundNumber that binds
// teamID.
func (s *DocStore) AssignmentFor(ctx context.Context, roundNumber int, teamID string) (hunt.ClueAssignment, error) {
	list, err := listDocs[hunt.ClueAssignment](ctx, s.db,
		`SELECT json(data) FROM clue_assignments WHERE round_number = ? ORDER BY created_at, rowid`,
		roundNumber,
	)
	if err != nil {
		return hunt.ClueAssignment{}, err
	}
	for _, a := range list {
		if a.HasTeam(teamID) {
			return a, nil
		}
	}
	return hunt.ClueAssignment{}, hunt.ErrNotFound
}

// AssignmentByQR returns the assignment with qrID if it binds teamID.
func (s *DocStore) AssignmentByQR(ctx context.Context, qrID, teamID string) (hunt.ClueAssignment, error) {
	var a hunt.ClueAssignment
	err := getDoc(ctx, s.db, &a, `SELECT json(data) FROM clue_assignments WHERE qr_id = ?`, qrID)
	if err != nil {
		return hunt.ClueAssignment{}, err
	}
	if !a.HasTeam(teamID) {
		return hunt.ClueAssignment{}, hunt.ErrNotFound
	}
	return a, nil
}

func (s *DocStore) AssignmentCodeExists(ctx context.Context, code string) (bool, error) {
	n, err := s.count(ctx,
		`SELECT COUNT(*) FROM clue_assignments WHERE unlock_code = ?`, hunt.NormalizeCode(code),
	)
	return n > 0, err
}

// Assignments returns every assignment ordered by round number, then
// creation time.
func (s *DocStore) Assignments(ctx context.Context) ([]hunt.ClueAssignment, error) {
	return listDocs[hunt.ClueAssignment](ctx, s.db,
		`SELECT json(data) FROM clue_assignments ORDER BY round_number, created_at, rowid`,
	)
}

func (s *DocStore) DeleteAssignment(ctx context.Context, id string) error {
	return s.del(ctx, "clue_assignments", id)
}
