package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushunt/treasurehunt/internal/database"
	"github.com/campushunt/treasurehunt/internal/hunt"
	"github.com/campushunt/treasurehunt/internal/migrations"
	"github.com/campushunt/treasurehunt/internal/store"
)

func newTestStore(t *testing.T, driver string) *store.DocStore {
	t.Helper()
	db, err := database.Open(context.Background(), driver, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(context.Background(), db))
	return store.New(db)
}

func TestTeamRoundTrip(t *testing.T) {
	for _, driver := range []string{"libsql", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			s := newTestStore(t, driver)

			created, err := s.CreateTeam(ctx, hunt.Team{
				Name:               "Night Owls",
				Email:              "owls@example.com",
				PasswordHash:       "hash",
				StartCode:          "OWLS42",
				CurrentRoundNumber: 1,
				Status:             hunt.TeamNotStarted,
			})
			require.NoError(t, err)
			assert.NotEmpty(t, created.ID)
			assert.False(t, created.CreatedAt.IsZero())

			byCode, err := s.TeamByStartCode(ctx, "owls42")
			require.NoError(t, err)
			assert.Equal(t, created.ID, byCode.ID)
			assert.Equal(t, "hash", byCode.PasswordHash)

			byEmail, err := s.TeamByEmail(ctx, "owls@example.com")
			require.NoError(t, err)
			assert.Equal(t, created.ID, byEmail.ID)

			_, err = s.Team(ctx, "missing")
			assert.ErrorIs(t, err, hunt.ErrNotFound)
		})
	}
}

func TestTeamUniqueKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "libsql")

	_, err := s.CreateTeam(ctx, hunt.Team{Name: "A", StartCode: "SAME1", Email: "a@example.com"})
	require.NoError(t, err)

	_, err = s.CreateTeam(ctx, hunt.Team{Name: "B", StartCode: "SAME1"})
	assert.ErrorIs(t, err, hunt.ErrConflict)

	_, err = s.CreateTeam(ctx, hunt.Team{Name: "C", StartCode: "OTHER1", Email: "a@example.com"})
	assert.ErrorIs(t, err, hunt.ErrConflict)

	// Admin-created teams have no email; several may coexist.
	_, err = s.CreateTeam(ctx, hunt.Team{Name: "D", StartCode: "NOMAIL1"})
	require.NoError(t, err)
	_, err = s.CreateTeam(ctx, hunt.Team{Name: "E", StartCode: "NOMAIL2"})
	require.NoError(t, err)
}

func TestTeamsOrderAndFilters(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	now := base
	s := newTestStore(t, "libsql").WithClock(func() time.Time { return now })

	var ids []string
	for i, code := range []string{"AAAA1", "BBBB2", "CCCC3"} {
		now = base.Add(time.Duration(i) * time.Minute)
		team, err := s.CreateTeam(ctx, hunt.Team{Name: code, StartCode: code, Status: hunt.TeamPlaying})
		require.NoError(t, err)
		ids = append(ids, team.ID)
	}

	teams, err := s.Teams(ctx)
	require.NoError(t, err)
	require.Len(t, teams, 3)
	assert.Equal(t, ids[2], teams[0].ID, "newest first")
	assert.Equal(t, ids[0], teams[2].ID)

	subset, err := s.TeamsByIDs(ctx, []string{ids[0], "missing", ids[1]})
	require.NoError(t, err)
	assert.Len(t, subset, 2)

	_, err = s.ModifyTeam(ctx, ids[0], func(t *hunt.Team) error {
		t.Status = hunt.TeamCompleted
		return nil
	})
	require.NoError(t, err)

	n, err := s.CountTeams(ctx, hunt.TeamPlaying, hunt.TeamLocked)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = s.CountTeams(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestModifyTeamCallbackError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "libsql")

	team, err := s.CreateTeam(ctx, hunt.Team{Name: "A", StartCode: "AAAA1", Status: hunt.TeamPlaying})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = s.ModifyTeam(ctx, team.ID, func(t *hunt.Team) error {
		t.Status = hunt.TeamLocked
		return boom
	})
	assert.Same(t, boom, err)

	got, err := s.Team(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, hunt.TeamPlaying, got.Status, "failed modify must not write")

	_, err = s.ModifyTeam(ctx, "missing", func(*hunt.Team) error { return nil })
	assert.ErrorIs(t, err, hunt.ErrNotFound)
}

func TestModifyTeamSerializes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "libsql")

	team, err := s.CreateTeam(ctx, hunt.Team{Name: "A", StartCode: "AAAA1"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ModifyTeam(ctx, team.ID, func(t *hunt.Team) error {
				t.TotalTimeSeconds++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Team(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.TotalTimeSeconds)
}

func TestRounds(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "libsql")

	for _, n := range []int{3, 1, 7} {
		_, err := s.CreateRound(ctx, hunt.Round{RoundNumber: n, ClueText: "clue", UnlockCode: "CODE", QRID: hunt.GenerateQRID(n)})
		require.NoError(t, err)
	}

	_, err := s.CreateRound(ctx, hunt.Round{RoundNumber: 3, QRID: "QR-3-OTHER"})
	assert.ErrorIs(t, err, hunt.ErrConflict)

	rounds, err := s.Rounds(ctx)
	require.NoError(t, err)
	require.Len(t, rounds, 3)
	assert.Equal(t, []int{1, 3, 7}, []int{rounds[0].RoundNumber, rounds[1].RoundNumber, rounds[2].RoundNumber})

	next, err := s.NextRound(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, next.RoundNumber, "gaps are skipped")

	_, err = s.NextRound(ctx, 7)
	assert.ErrorIs(t, err, hunt.ErrNotFound)

	exists, err := s.RoundExists(ctx, 2)
	require.NoError(t, err)
	assert.False(t, exists)

	total, err := s.CountRounds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	updated, err := s.ModifyRound(ctx, rounds[0].ID, func(r *hunt.Round) error {
		r.RoundNumber = 2
		return nil
	})
	require.NoError(t, err)
	byNumber, err := s.RoundByNumber(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, updated.ID, byNumber.ID)

	_, err = s.ModifyRound(ctx, rounds[0].ID, func(r *hunt.Round) error {
		r.RoundNumber = 7
		return nil
	})
	assert.ErrorIs(t, err, hunt.ErrConflict)

	require.NoError(t, s.DeleteRound(ctx, rounds[0].ID))
	assert.ErrorIs(t, s.DeleteRound(ctx, rounds[0].ID), hunt.ErrNotFound)
}

func TestAssignments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "libsql")

	a1, err := s.CreateAssignment(ctx, hunt.ClueAssignment{
		RoundNumber: 1, ClueText: "Under the bridge", UnlockCode: "BRIDGE",
		QRID: "QR-1-AAAAAAAA", TimeLimitSeconds: 300, TeamIDs: []string{"t1", "t2"},
	})
	require.NoError(t, err)
	_, err = s.CreateAssignment(ctx, hunt.ClueAssignment{
		RoundNumber: 1, ClueText: "Behind the library", UnlockCode: "LIBRARY",
		QRID: "QR-1-BBBBBBBB", TimeLimitSeconds: 300, TeamIDs: []string{"t3"},
	})
	require.NoError(t, err)

	_, err = s.CreateAssignment(ctx, hunt.ClueAssignment{
		RoundNumber: 2, ClueText: "dup", UnlockCode: "BRIDGE", QRID: "QR-2-CCCCCCCC", TeamIDs: []string{"t1"},
	})
	assert.ErrorIs(t, err, hunt.ErrConflict)

	got, err := s.AssignmentFor(ctx, 1, "t2")
	require.NoError(t, err)
	assert.Equal(t, a1.ID, got.ID)

	_, err = s.AssignmentFor(ctx, 2, "t2")
	assert.ErrorIs(t, err, hunt.ErrNotFound)

	byQR, err := s.AssignmentByQR(ctx, "QR-1-AAAAAAAA", "t1")
	require.NoError(t, err)
	assert.Equal(t, a1.ID, byQR.ID)

	_, err = s.AssignmentByQR(ctx, "QR-1-AAAAAAAA", "t3")
	assert.ErrorIs(t, err, hunt.ErrNotFound, "qr of another team's assignment")

	taken, err := s.AssignmentCodeExists(ctx, "bridge")
	require.NoError(t, err)
	assert.True(t, taken)

	list, err := s.Assignments(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.DeleteAssignment(ctx, a1.ID))
	_, err = s.Assignment(ctx, a1.ID)
	assert.ErrorIs(t, err, hunt.ErrNotFound)
}

func TestHintRequests(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	now := base
	s := newTestStore(t, "libsql").WithClock(func() time.Time { return now })

	first, err := s.CreateHintRequest(ctx, hunt.HintRequest{TeamID: "t1", RoundNumber: 1, AssignmentID: "a1", Status: hunt.HintPending})
	require.NoError(t, err)

	_, err = s.CreateHintRequest(ctx, hunt.HintRequest{TeamID: "t1", RoundNumber: 1, AssignmentID: "a1", Status: hunt.HintPending})
	assert.ErrorIs(t, err, hunt.ErrConflict, "one pending request per team and round")

	pending, err := s.HasPendingHintRequest(ctx, "t1", 1)
	require.NoError(t, err)
	assert.True(t, pending)

	_, err = s.ModifyHintRequest(ctx, first.ID, func(h *hunt.HintRequest) error {
		h.Status = hunt.HintRejected
		return nil
	})
	require.NoError(t, err)

	now = base.Add(time.Minute)
	second, err := s.CreateHintRequest(ctx, hunt.HintRequest{TeamID: "t1", RoundNumber: 1, AssignmentID: "a1", Status: hunt.HintPending})
	require.NoError(t, err)

	latest, err := s.LatestHintRequest(ctx, "t1", 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	_, err = s.LatestHintRequest(ctx, "t1", 2)
	assert.ErrorIs(t, err, hunt.ErrNotFound)

	all, err := s.HintRequests(ctx, hunt.HintFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	rejected, err := s.HintRequests(ctx, hunt.HintFilter{Status: hunt.HintRejected, RoundNumber: 1})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, first.ID, rejected[0].ID)
}
