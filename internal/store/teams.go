package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/campushunt/treasurehunt/internal/hunt"
)

const teamColumns = `json(data), password_hash`

// The password hash lives in its own column so it never ends up in a
// serialized team.
func scanTeam(row interface{ Scan(...any) error }) (hunt.Team, error) {
	var data, hash string
	if err := row.Scan(&data, &hash); err != nil {
		return hunt.Team{}, mapErr(err)
	}
	var t hunt.Team
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return hunt.Team{}, err
	}
	t.PasswordHash = hash
	return t, nil
}

func getTeam(ctx context.Context, q querier, where string, args ...any) (hunt.Team, error) {
	row := q.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams `+where, args...)
	return scanTeam(row)
}

func listTeams(ctx context.Context, q querier, where string, args ...any) ([]hunt.Team, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+teamColumns+` FROM teams `+where+` ORDER BY created_at DESC, rowid DESC`, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := []hunt.Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func putTeam(ctx context.Context, q querier, t hunt.Team) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	var email any
	if t.Email != "" {
		email = t.Email
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO teams (id, start_code, email, password_hash, status, round_number, created_at, data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET
			start_code = excluded.start_code,
			email = excluded.email,
			password_hash = excluded.password_hash,
			status = excluded.status,
			round_number = excluded.round_number,
			data = excluded.data`,
		t.ID, t.StartCode, email, t.PasswordHash, string(t.Status), t.CurrentRoundNumber,
		formatTime(t.CreatedAt), string(data),
	)
	return mapErr(err)
}

func (s *DocStore) CreateTeam(ctx context.Context, t hunt.Team) (hunt.Team, error) {
	now := s.now()
	t.ID = newID()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Progress == nil {
		t.Progress = []hunt.Progress{}
	}
	err := s.modify(ctx, func(tx *sql.Tx) error {
		return putTeam(ctx, tx, t)
	})
	if err != nil {
		return hunt.Team{}, err
	}
	return t, nil
}

func (s *DocStore) Team(ctx context.Context, id string) (hunt.Team, error) {
	return getTeam(ctx, s.db, `WHERE id = ?`, id)
}

func (s *DocStore) TeamByStartCode(ctx context.Context, code string) (hunt.Team, error) {
	return getTeam(ctx, s.db, `WHERE start_code = ?`, hunt.NormalizeCode(code))
}

func (s *DocStore) TeamByEmail(ctx context.Context, email string) (hunt.Team, error) {
	return getTeam(ctx, s.db, `WHERE email = ?`, email)
}

// Teams returns every team, newest first.
func (s *DocStore) Teams(ctx context.Context) ([]hunt.Team, error) {
	return listTeams(ctx, s.db, ``)
}

// TeamsByIDs returns the teams that exist among ids. Missing ids are skipped.
func (s *DocStore) TeamsByIDs(ctx context.Context, ids []string) ([]hunt.Team, error) {
	if len(ids) == 0 {
		return []hunt.Team{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return listTeams(ctx, s.db, `WHERE id IN (`+placeholders(len(ids))+`)`, args...)
}

func (s *DocStore) CountTeams(ctx context.Context, statuses ...hunt.TeamStatus) (int, error) {
	if len(statuses) == 0 {
		return s.count(ctx, `SELECT COUNT(*) FROM teams`)
	}
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}
	return s.count(ctx,
		`SELECT COUNT(*) FROM teams WHERE status IN (`+placeholders(len(statuses))+`)`, args...,
	)
}

func (s *DocStore) ModifyTeam(ctx context.Context, id string, fn func(*hunt.Team) error) (hunt.Team, error) {
	var t hunt.Team
	err := s.modify(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = getTeam(ctx, tx, `WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if err := fn(&t); err != nil {
			return err
		}
		t.ID = id
		t.UpdatedAt = s.now()
		return putTeam(ctx, tx, t)
	})
	if err != nil {
		return hunt.Team{}, err
	}
	return t, nil
}
