package hunt_test

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushunt/treasurehunt/internal/database"
	"github.com/campushunt/treasurehunt/internal/hunt"
	"github.com/campushunt/treasurehunt/internal/migrations"
	"github.com/campushunt/treasurehunt/internal/store"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newEngine(t *testing.T) (*hunt.Engine, *clock) {
	t.Helper()
	db, err := database.Open(context.Background(), "libsql", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(context.Background(), db))

	c := &clock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	s := store.New(db).WithClock(c.Now)
	return hunt.NewEngine(s, slog.New(slog.DiscardHandler)).WithClock(c.Now), c
}

func mustRound(t *testing.T, e *hunt.Engine, n int, code string) hunt.Round {
	t.Helper()
	r, err := e.CreateRound(context.Background(), hunt.RoundInput{
		RoundNumber: n,
		ClueText:    "Find the old clock tower",
		Hint:        "round hint",
		UnlockCode:  code,
	})
	require.NoError(t, err)
	return r
}

func mustTeam(t *testing.T, e *hunt.Engine, name, code string) hunt.Team {
	t.Helper()
	team, err := e.CreateTeam(context.Background(), hunt.TeamInput{Name: name, StartCode: code})
	require.NoError(t, err)
	return team
}

func mustAssign(t *testing.T, e *hunt.Engine, round int, code string, teamIDs ...string) hunt.ClueAssignment {
	t.Helper()
	a, err := e.CreateAssignment(context.Background(), hunt.AssignmentInput{
		RoundNumber:      round,
		ClueText:         "Look beneath the fountain",
		Hint:             "It is wet",
		UnlockCode:       code,
		TimeLimitSeconds: 300,
		TeamIDs:          teamIDs,
	})
	require.NoError(t, err)
	return a
}

func TestFullHunt(t *testing.T) {
	ctx := context.Background()
	e, c := newEngine(t)

	mustRound(t, e, 1, "ROUNDONE")
	mustRound(t, e, 2, "ROUNDTWO")
	team := mustTeam(t, e, "Night Owls", "OWLS42")
	a1 := mustAssign(t, e, 1, "ALPHA", team.ID)
	a2 := mustAssign(t, e, 2, "BRAVO", team.ID)

	started, err := e.Start(ctx, "owls42")
	require.NoError(t, err)
	assert.Equal(t, hunt.TeamPlaying, started.Team.Status)
	assert.Equal(t, 1, started.Round.RoundNumber)
	assert.Equal(t, a1.ID, started.Round.ID)
	assert.Equal(t, 2, started.TotalRounds)

	_, err = e.VerifyQRScan(ctx, team.ID, a2.QRID)
	assert.ErrorIs(t, err, hunt.ErrValidation, "qr of a later round")

	c.Advance(time.Minute)
	scan, err := e.VerifyQRScan(ctx, team.ID, a1.QRID)
	require.NoError(t, err)
	assert.Equal(t, hunt.TeamLocked, scan.Team.Status)
	assert.Equal(t, "Location verified. Await unlock code.", scan.Message)

	_, err = e.VerifyQRScan(ctx, team.ID, a1.QRID)
	assert.ErrorIs(t, err, hunt.ErrInvalidState, "locked team cannot scan")

	_, err = e.Unlock(ctx, team.ID, "ROUNDONE")
	assert.ErrorIs(t, err, hunt.ErrValidation, "assignment code takes precedence")

	board, err := e.UnlockCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, hunt.CodeActive, board[0].Status)

	c.Advance(90 * time.Second)
	unlocked, err := e.Unlock(ctx, team.ID, " alpha ")
	require.NoError(t, err)
	assert.Equal(t, "Next round unlocked", unlocked.Message)
	assert.Equal(t, hunt.TeamPlaying, unlocked.Team.Status)
	assert.Equal(t, 2, unlocked.Team.CurrentRoundNumber)
	require.NotNil(t, unlocked.NextRound)
	assert.Equal(t, a2.ID, unlocked.NextRound.ID)
	assert.False(t, unlocked.Completed())

	c.Advance(time.Minute)
	_, err = e.VerifyQRScan(ctx, team.ID, a2.QRID)
	require.NoError(t, err)
	c.Advance(30 * time.Second)
	done, err := e.Unlock(ctx, team.ID, "bravo")
	require.NoError(t, err)
	assert.True(t, done.Completed())
	assert.Equal(t, "Treasure hunt completed", done.Message)
	assert.Nil(t, done.NextRound)
	assert.Equal(t, 2, done.UnlockedRound)

	got, err := e.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, hunt.TeamCompleted, got.Status)
	assert.InDelta(t, 120, got.TotalTimeSeconds, 1e-6)
	require.Len(t, got.Progress, 2)
	for _, p := range got.Progress {
		assert.Equal(t, hunt.ProgressUnlocked, p.Status)
		require.NotNil(t, p.Qualified)
		assert.True(t, *p.Qualified)
	}

	_, err = e.Unlock(ctx, team.ID, "bravo")
	assert.ErrorIs(t, err, hunt.ErrInvalidState)

	report, err := e.AssignmentResults(ctx, a1.ID)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.InDelta(t, 90, report.Results[0].DurationSeconds, 1e-6)

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, hunt.Stats{TotalRounds: 2, ActiveTeams: 0, CompletedHunts: 1}, stats)

	board, err = e.UnlockCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, hunt.CodeUsed, board[0].Status)
	assert.Equal(t, hunt.CodeUsed, board[1].Status)
}

func TestStartErrors(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	_, err := e.Start(ctx, "ab")
	assert.ErrorIs(t, err, hunt.ErrValidation)

	_, err = e.Start(ctx, "NOPE99")
	assert.ErrorIs(t, err, hunt.ErrNotFound)

	mustRound(t, e, 1, "CODE1")
	mustTeam(t, e, "Lonely", "LONE1")
	_, err = e.Start(ctx, "LONE1")
	require.ErrorIs(t, err, hunt.ErrValidation)
	assert.EqualError(t, err, "No clue assignment configured for this team and round")
}

func TestStartResetsStatusToPlaying(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	mustRound(t, e, 1, "CODE1")
	team := mustTeam(t, e, "Owls", "OWLS1")
	a := mustAssign(t, e, 1, "ALPHA", team.ID)

	_, err := e.Start(ctx, "OWLS1")
	require.NoError(t, err)
	_, err = e.VerifyQRScan(ctx, team.ID, a.QRID)
	require.NoError(t, err)

	again, err := e.Start(ctx, "OWLS1")
	require.NoError(t, err)
	assert.Equal(t, hunt.TeamPlaying, again.Team.Status, "locked team")

	_, err = e.VerifyQRScan(ctx, team.ID, a.QRID)
	require.NoError(t, err)
	done, err := e.Unlock(ctx, team.ID, "ALPHA")
	require.NoError(t, err)
	require.Equal(t, hunt.TeamCompleted, done.Team.Status)

	again, err = e.Start(ctx, "OWLS1")
	require.NoError(t, err)
	assert.Equal(t, hunt.TeamPlaying, again.Team.Status, "completed team")
	assert.Equal(t, 1, again.Round.RoundNumber)
}

func TestUnlockRequiresLockedTeam(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	mustRound(t, e, 1, "CODE1")
	team := mustTeam(t, e, "Owls", "OWLS1")
	mustAssign(t, e, 1, "ALPHA", team.ID)
	_, err := e.Start(ctx, "OWLS1")
	require.NoError(t, err)

	_, err = e.Unlock(ctx, team.ID, "ALPHA")
	require.ErrorIs(t, err, hunt.ErrInvalidState)
	assert.EqualError(t, err, "Team is not waiting for unlock")

	_, err = e.Unlock(ctx, "missing", "ALPHA")
	assert.ErrorIs(t, err, hunt.ErrNotFound)
}

func TestUnlockFallsBackToRoundData(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	mustRound(t, e, 1, "CODE1")
	mustRound(t, e, 4, "CODE4")
	team := mustTeam(t, e, "Owls", "OWLS1")
	a := mustAssign(t, e, 1, "ALPHA", team.ID)

	_, err := e.Start(ctx, "OWLS1")
	require.NoError(t, err)
	_, err = e.VerifyQRScan(ctx, team.ID, a.QRID)
	require.NoError(t, err)

	res, err := e.Unlock(ctx, team.ID, "alpha")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Team.CurrentRoundNumber, "next round skips gaps")
	require.NotNil(t, res.NextRound)
	assert.Empty(t, res.NextRound.ID)
	assert.Equal(t, "Find the old clock tower", res.NextRound.ClueText)
}

func TestUnlockWithRoundCodeWithoutAssignment(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	mustRound(t, e, 1, "CODE1")
	mustRound(t, e, 2, "CODE2")
	team := mustTeam(t, e, "Owls", "OWLS1")
	a := mustAssign(t, e, 1, "ALPHA", team.ID)
	_, err := e.Start(ctx, "OWLS1")
	require.NoError(t, err)
	_, err = e.VerifyQRScan(ctx, team.ID, a.QRID)
	require.NoError(t, err)
	_, err = e.Unlock(ctx, team.ID, "ALPHA")
	require.NoError(t, err)

	// Round 2 has no assignment, so the team cannot scan; an admin locks it.
	locked := hunt.TeamLocked
	_, err = e.UpdateTeam(ctx, team.ID, hunt.TeamPatch{Status: &locked})
	require.NoError(t, err)

	res, err := e.Unlock(ctx, team.ID, "code2")
	require.NoError(t, err)
	assert.True(t, res.Completed())
}

func TestConcurrentUnlockAdvancesOnce(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	mustRound(t, e, 1, "CODE1")
	mustRound(t, e, 2, "CODE2")
	mustRound(t, e, 3, "CODE3")
	team := mustTeam(t, e, "Owls", "OWLS1")
	a := mustAssign(t, e, 1, "ALPHA", team.ID)
	_, err := e.Start(ctx, "OWLS1")
	require.NoError(t, err)
	_, err = e.VerifyQRScan(ctx, team.ID, a.QRID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Unlock(ctx, team.ID, "ALPHA"); err == nil {
				ok.Add(1)
			} else {
				assert.ErrorIs(t, err, hunt.ErrInvalidState)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	got, err := e.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentRoundNumber)
}

func TestHintWorkflow(t *testing.T) {
	ctx := context.Background()
	e, c := newEngine(t)

	mustRound(t, e, 1, "CODE1")
	team := mustTeam(t, e, "Owls", "OWLS1")
	a := mustAssign(t, e, 1, "ALPHA", team.ID)

	_, err := e.RequestHint(ctx, team.ID, 2)
	assert.ErrorIs(t, err, hunt.ErrNotFound, "no assignment for round 2")

	req, err := e.RequestHint(ctx, team.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, hunt.HintPending, req.Status)
	assert.Equal(t, a.ID, req.AssignmentID)

	_, err = e.RequestHint(ctx, team.ID, 1)
	require.ErrorIs(t, err, hunt.ErrInvalidState)
	assert.EqualError(t, err, "You already have a pending hint request for this round")

	mine, err := e.MyHintRequest(ctx, team.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, mine.Request)
	assert.Nil(t, mine.Hint, "hint hidden until approved")

	list, err := e.ListHintRequests(ctx, hunt.HintFilter{Status: hunt.HintPending})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Team)
	assert.Equal(t, "Owls", list[0].Team.Name)
	require.NotNil(t, list[0].Assignment)
	assert.Equal(t, 1, list[0].Assignment.RoundNumber)

	approved, err := e.ApproveHintRequest(ctx, req.ID, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, hunt.HintApproved, approved.Status)
	assert.Equal(t, "admin@example.com", approved.ReviewedBy)
	assert.NotNil(t, approved.ReviewedAt)

	_, err = e.RejectHintRequest(ctx, req.ID, "admin@example.com")
	assert.ErrorIs(t, err, hunt.ErrInvalidState)

	mine, err = e.MyHintRequest(ctx, team.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, mine.Hint)
	assert.Equal(t, "It is wet", *mine.Hint)

	c.Advance(time.Minute)
	next, err := e.RequestHint(ctx, team.ID, 1)
	require.NoError(t, err, "a new request is allowed after review")

	mine, err = e.MyHintRequest(ctx, team.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, mine.Request)
	assert.Equal(t, next.ID, mine.Request.ID, "most recent request wins")
	assert.Equal(t, hunt.HintPending, mine.Request.Status)
	assert.Nil(t, mine.Hint)

	rejected, err := e.RejectHintRequest(ctx, next.ID, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, hunt.HintRejected, rejected.Status)

	mine, err = e.MyHintRequest(ctx, team.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, mine.Request)
	assert.Equal(t, next.ID, mine.Request.ID)
	assert.Equal(t, hunt.HintRejected, mine.Request.Status)
	assert.Nil(t, mine.Hint, "rejected requests never reveal the hint")

	_, err = e.ApproveHintRequest(ctx, "missing", "admin@example.com")
	assert.ErrorIs(t, err, hunt.ErrNotFound)

	empty, err := e.MyHintRequest(ctx, "someone-else", 1)
	require.NoError(t, err)
	assert.Nil(t, empty.Request)
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	in := hunt.SignupInput{Name: "Owls", Email: "Owls@Example.com", Password: "secret1"}
	_, err := e.Signup(ctx, in)
	require.ErrorIs(t, err, hunt.ErrValidation, "no round 1 yet")

	mustRound(t, e, 1, "CODE1")
	team, err := e.Signup(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "owls@example.com", team.Email)
	assert.Len(t, team.StartCode, 6)
	assert.Equal(t, hunt.TeamNotStarted, team.Status)
	require.Len(t, team.Progress, 1)

	_, err = e.Signup(ctx, in)
	assert.ErrorIs(t, err, hunt.ErrConflict)

	_, err = e.Signup(ctx, hunt.SignupInput{Name: "X", Email: "bad", Password: "123"})
	var he *hunt.Error
	require.ErrorAs(t, err, &he)
	assert.Len(t, he.Fields, 3)

	_, err = e.Login(ctx, "owls@example.com", "wrong-pass")
	assert.ErrorIs(t, err, hunt.ErrUnauthorized)
	_, err = e.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, hunt.ErrUnauthorized)

	logged, err := e.Login(ctx, " OWLS@example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, team.ID, logged.ID)
}

func TestAdminTeams(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	_, err := e.CreateTeam(ctx, hunt.TeamInput{Name: "Owls"})
	require.ErrorIs(t, err, hunt.ErrValidation)
	assert.EqualError(t, err, "Round 1 does not exist yet")

	mustRound(t, e, 1, "CODE1")
	owls := mustTeam(t, e, "Owls", "owls1")
	assert.Equal(t, "OWLS1", owls.StartCode)

	_, err = e.CreateTeam(ctx, hunt.TeamInput{Name: "Copycats", StartCode: "OWLS1"})
	assert.ErrorIs(t, err, hunt.ErrConflict)

	auto, err := e.CreateTeam(ctx, hunt.TeamInput{Name: "Auto"})
	require.NoError(t, err)
	assert.Len(t, auto.StartCode, 6)

	_, err = e.AssignStartCode(ctx, auto.ID, "OWLS1", false)
	assert.ErrorIs(t, err, hunt.ErrConflict)
	_, err = e.AssignStartCode(ctx, auto.ID, "no!", false)
	assert.ErrorIs(t, err, hunt.ErrValidation)

	renamed, err := e.AssignStartCode(ctx, auto.ID, "auto99", false)
	require.NoError(t, err)
	assert.Equal(t, "AUTO99", renamed.StartCode)

	regenerated, err := e.AssignStartCode(ctx, auto.ID, "", true)
	require.NoError(t, err)
	assert.NotEqual(t, "AUTO99", regenerated.StartCode)

	target := 5
	_, err = e.UpdateTeam(ctx, owls.ID, hunt.TeamPatch{CurrentRoundNumber: &target})
	assert.ErrorIs(t, err, hunt.ErrValidation)

	teams, err := e.ListTeams(ctx)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, auto.ID, teams[0].ID, "newest first")
}

func TestAssignmentValidation(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)

	mustRound(t, e, 1, "CODE1")
	team := mustTeam(t, e, "Owls", "OWLS1")

	_, err := e.CreateAssignment(ctx, hunt.AssignmentInput{RoundNumber: 1})
	var he *hunt.Error
	require.ErrorAs(t, err, &he)
	assert.Contains(t, he.Fields, "teamIds")
	assert.Contains(t, he.Fields, "timeLimitSeconds")

	base := hunt.AssignmentInput{RoundNumber: 2, ClueText: "Under the stairs", UnlockCode: "ABC", TimeLimitSeconds: 60, TeamIDs: []string{team.ID}}
	_, err = e.CreateAssignment(ctx, base)
	assert.EqualError(t, err, "Round 2 does not exist")

	base.RoundNumber = 1
	base.TeamIDs = []string{team.ID, "ghost"}
	_, err = e.CreateAssignment(ctx, base)
	assert.EqualError(t, err, "One or more teams not found")

	base.TeamIDs = []string{team.ID}
	_, err = e.CreateAssignment(ctx, base)
	require.NoError(t, err)
	base.UnlockCode = "abc"
	_, err = e.CreateAssignment(ctx, base)
	assert.ErrorIs(t, err, hunt.ErrConflict)
}

func TestAssignmentRetriesQRIDCollision(t *testing.T) {
	e, _ := newEngine(t)

	mustRound(t, e, 1, "CODE1")
	team := mustTeam(t, e, "Owls", "OWLS1")

	ids := []string{"QR-1-SAMEIDXX", "QR-1-SAMEIDXX", "QR-1-FRESHIDX"}
	e.WithQRIDs(func(int) string {
		id := ids[0]
		ids = ids[1:]
		return id
	})

	first := mustAssign(t, e, 1, "ALPHA", team.ID)
	assert.Equal(t, "QR-1-SAMEIDXX", first.QRID)

	second := mustAssign(t, e, 1, "BRAVO", team.ID)
	assert.Equal(t, "QR-1-FRESHIDX", second.QRID, "collision retried with a new id")
	assert.Empty(t, ids)
}

func TestRoundAdmin(t *testing.T) {
	ctx := context.Background()
	e, c := newEngine(t)

	r := mustRound(t, e, 1, "code1")
	assert.Equal(t, "CODE1", r.UnlockCode)
	assert.Regexp(t, `^QR-1-`, r.QRID)
	assert.Equal(t, hunt.TimerIdle, r.TimerStatus)

	_, err := e.CreateRound(ctx, hunt.RoundInput{RoundNumber: 1, ClueText: "Duplicate round", UnlockCode: "XYZ"})
	assert.ErrorIs(t, err, hunt.ErrConflict)

	_, err = e.UpdateRoundTimer(ctx, r.ID, hunt.TimerPause)
	assert.ErrorIs(t, err, hunt.ErrInvalidState)

	_, err = e.UpdateRoundTimer(ctx, r.ID, hunt.TimerStart)
	require.NoError(t, err)
	c.Advance(45 * time.Second)
	detail, err := e.GetRound(ctx, r.ID)
	require.NoError(t, err)
	assert.InDelta(t, 45, detail.ElapsedSeconds, 1e-6)

	detail, err = e.UpdateRoundTimer(ctx, r.ID, hunt.TimerFinish)
	require.NoError(t, err)
	assert.Equal(t, hunt.TimerFinished, detail.TimerStatus)

	_, err = e.UpdateRoundTimer(ctx, r.ID, hunt.TimerAction("rewind"))
	assert.ErrorIs(t, err, hunt.ErrValidation)

	hint := "new hint"
	updated, err := e.UpdateRound(ctx, r.ID, hunt.RoundPatch{Hint: &hint})
	require.NoError(t, err)
	assert.Equal(t, "new hint", updated.Hint)

	require.NoError(t, e.DeleteRound(ctx, r.ID))
	_, err = e.GetRound(ctx, r.ID)
	assert.ErrorIs(t, err, hunt.ErrNotFound)
}
