package hunt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Engine applies game events (start, QR scan, unlock, timer actions, hint
// requests) to the store and derives the read-only views.
type Engine struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
	qrID   func(roundNumber int) string
}

func NewEngine(store Store, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		qrID:   GenerateQRID,
	}
}

// WithClock replaces the engine's time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// TeamView is the team as shown to players.
type TeamView struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Status             TeamStatus `json:"status"`
	CurrentRoundNumber int        `json:"currentRoundNumber"`
}

func NewTeamView(t Team) TeamView {
	return TeamView{
		ID:                 t.ID,
		Name:               t.Name,
		Status:             t.Status,
		CurrentRoundNumber: t.CurrentRoundNumber,
	}
}

// ClueView is a round's clue as shown to players. It never carries the hint,
// the unlock code or the QR id.
type ClueView struct {
	ID               string `json:"id,omitempty"`
	RoundNumber      int    `json:"roundNumber"`
	ClueText         string `json:"clueText"`
	Description      string `json:"description,omitempty"`
	TimeLimitSeconds int    `json:"timeLimitSeconds,omitempty"`
}

func clueFromAssignment(a ClueAssignment) ClueView {
	return ClueView{
		ID:               a.ID,
		RoundNumber:      a.RoundNumber,
		ClueText:         a.ClueText,
		Description:      a.Description,
		TimeLimitSeconds: a.TimeLimitSeconds,
	}
}

func clueFromRound(r Round) ClueView {
	return ClueView{
		RoundNumber: r.RoundNumber,
		ClueText:    r.ClueText,
		Description: r.Description,
	}
}

type StartResult struct {
	Team        TeamView `json:"team"`
	Round       ClueView `json:"round"`
	TotalRounds int      `json:"totalRounds"`
}

// Start moves a team into play using its start code. Calling it again is
// safe: a locked or completed team keeps its status.
func (e *Engine) Start(ctx context.Context, startCode string) (StartResult, error) {
	code := NormalizeCode(startCode)
	if len(code) < 3 {
		return StartResult{}, FieldErrors{"startCode": "must be at least 3 characters"}.Err()
	}

	team, err := e.store.TeamByStartCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return StartResult{}, notFound("Invalid start code")
	}
	if err != nil {
		return StartResult{}, fmt.Errorf("finding team by start code: %w", err)
	}

	roundNumber := team.CurrentRoundNumber
	assignment, err := e.store.AssignmentFor(ctx, roundNumber, team.ID)
	if errors.Is(err, ErrNotFound) {
		return StartResult{}, invalid("No clue assignment configured for this team and round")
	}
	if err != nil {
		return StartResult{}, fmt.Errorf("finding assignment: %w", err)
	}

	exists, err := e.store.RoundExists(ctx, roundNumber)
	if err != nil {
		return StartResult{}, fmt.Errorf("checking round: %w", err)
	}
	if !exists {
		return StartResult{}, notFound("Round %d not found", roundNumber)
	}

	team, err = e.store.ModifyTeam(ctx, team.ID, func(t *Team) error {
		if t.CurrentRoundNumber != roundNumber {
			return invalidState("Team progress changed, please retry")
		}
		t.EnsureProgress(roundNumber)
		t.Status = TeamPlaying
		return nil
	})
	if err != nil {
		return StartResult{}, err
	}

	total, err := e.store.CountRounds(ctx)
	if err != nil {
		return StartResult{}, fmt.Errorf("counting rounds: %w", err)
	}

	e.logger.Info("team started", "team_id", team.ID, "round", roundNumber, "status", team.Status)
	return StartResult{
		Team:        NewTeamView(team),
		Round:       clueFromAssignment(assignment),
		TotalRounds: total,
	}, nil
}

type ScanResult struct {
	Message string   `json:"message"`
	Team    TeamView `json:"team"`
}

// VerifyQRScan records that a playing team reached the location of its
// current round and locks it until the unlock code is entered.
func (e *Engine) VerifyQRScan(ctx context.Context, teamID, qrID string) (ScanResult, error) {
	fields := FieldErrors{}
	if teamID == "" {
		fields.Add("teamId", "is required")
	}
	if len(qrID) < 3 {
		fields.Add("qrId", "must be at least 3 characters")
	}
	if err := fields.Err(); err != nil {
		return ScanResult{}, err
	}

	team, err := e.store.Team(ctx, teamID)
	if errors.Is(err, ErrNotFound) {
		return ScanResult{}, notFound("Team not found")
	}
	if err != nil {
		return ScanResult{}, fmt.Errorf("finding team: %w", err)
	}
	if team.Status != TeamPlaying {
		return ScanResult{}, invalidState("Team is not currently playing")
	}

	assignment, err := e.store.AssignmentByQR(ctx, qrID, team.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return ScanResult{}, fmt.Errorf("finding assignment by qr: %w", err)
	}
	if err != nil || assignment.RoundNumber != team.CurrentRoundNumber {
		return ScanResult{}, invalid("QR code does not match the active round for this team")
	}

	now := e.now()
	team, err = e.store.ModifyTeam(ctx, team.ID, func(t *Team) error {
		if t.Status != TeamPlaying {
			return invalidState("Team is not currently playing")
		}
		if t.CurrentRoundNumber != assignment.RoundNumber {
			return invalid("QR code does not match the active round for this team")
		}
		p := t.EnsureProgress(assignment.RoundNumber)
		p.Status = ProgressQRFound
		p.QRScanTime = &now
		t.Status = TeamLocked
		t.LastScanTime = &now
		return nil
	})
	if err != nil {
		return ScanResult{}, err
	}

	e.logger.Info("qr verified", "team_id", team.ID, "round", assignment.RoundNumber)
	return ScanResult{
		Message: "Location verified. Await unlock code.",
		Team:    NewTeamView(team),
	}, nil
}

type UnlockResult struct {
	Message   string    `json:"message"`
	Team      TeamView  `json:"team"`
	NextRound *ClueView `json:"nextRound"`
	// UnlockedRound is the round that was just completed.
	UnlockedRound int `json:"unlockedRound"`
}

// Completed reports whether the unlock finished the hunt.
func (r UnlockResult) Completed() bool {
	return r.Team.Status == TeamCompleted
}

// Unlock checks the code for a locked team's current round and advances it
// to the next round, or completes the hunt after the last one.
func (e *Engine) Unlock(ctx context.Context, teamID, unlockCode string) (UnlockResult, error) {
	code := NormalizeCode(unlockCode)
	fields := FieldErrors{}
	if teamID == "" {
		fields.Add("teamId", "is required")
	}
	if len(code) < 3 {
		fields.Add("unlockCode", "must be at least 3 characters")
	}
	if err := fields.Err(); err != nil {
		return UnlockResult{}, err
	}

	team, err := e.store.Team(ctx, teamID)
	if errors.Is(err, ErrNotFound) {
		return UnlockResult{}, notFound("Team not found")
	}
	if err != nil {
		return UnlockResult{}, fmt.Errorf("finding team: %w", err)
	}
	if team.Status != TeamLocked {
		return UnlockResult{}, invalidState("Team is not waiting for unlock")
	}

	active, err := e.store.RoundByNumber(ctx, team.CurrentRoundNumber)
	if errors.Is(err, ErrNotFound) {
		return UnlockResult{}, notFound("Round %d not found", team.CurrentRoundNumber)
	}
	if err != nil {
		return UnlockResult{}, fmt.Errorf("finding active round: %w", err)
	}

	var assignment *ClueAssignment
	a, err := e.store.AssignmentFor(ctx, active.RoundNumber, team.ID)
	switch {
	case err == nil:
		assignment = &a
	case !errors.Is(err, ErrNotFound):
		return UnlockResult{}, fmt.Errorf("finding assignment: %w", err)
	}

	expected := active.UnlockCode
	if assignment != nil {
		expected = assignment.UnlockCode
	}
	if NormalizeCode(expected) != code {
		e.logger.Info("unlock rejected", "team_id", team.ID, "round", active.RoundNumber)
		return UnlockResult{}, invalid("Unlock code is incorrect")
	}

	next, err := e.store.NextRound(ctx, active.RoundNumber)
	hasNext := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return UnlockResult{}, fmt.Errorf("finding next round: %w", err)
	}

	now := e.now()
	team, err = e.store.ModifyTeam(ctx, team.ID, func(t *Team) error {
		if t.Status != TeamLocked || t.CurrentRoundNumber != active.RoundNumber {
			return invalidState("Team is not waiting for unlock")
		}

		p := t.EnsureProgress(active.RoundNumber)
		p.Status = ProgressUnlocked
		p.UnlockTime = &now
		if assignment != nil && assignment.TimeLimitSeconds > 0 {
			if d, ok := p.Duration(); ok {
				q := Qualifies(d, assignment.TimeLimitSeconds)
				p.Qualified = &q
			}
		}

		if hasNext {
			t.CurrentRoundNumber = next.RoundNumber
			t.EnsureProgress(next.RoundNumber)
			t.Status = TeamPlaying
			return nil
		}
		t.Status = TeamCompleted
		t.TotalTimeSeconds = TotalTimeSeconds(t.Progress)
		return nil
	})
	if err != nil {
		return UnlockResult{}, err
	}

	result := UnlockResult{
		Team:          NewTeamView(team),
		UnlockedRound: active.RoundNumber,
	}
	if !hasNext {
		result.Message = "Treasure hunt completed"
		e.logger.Info("hunt completed", "team_id", team.ID, "total_seconds", team.TotalTimeSeconds)
		return result, nil
	}

	result.Message = "Next round unlocked"
	clue := clueFromRound(next)
	na, err := e.store.AssignmentFor(ctx, next.RoundNumber, team.ID)
	switch {
	case err == nil:
		clue = clueFromAssignment(na)
	case !errors.Is(err, ErrNotFound):
		return UnlockResult{}, fmt.Errorf("finding next assignment: %w", err)
	default:
		e.logger.Warn("no assignment for next round, falling back to round clue",
			"team_id", team.ID, "round", next.RoundNumber)
	}
	result.NextRound = &clue

	e.logger.Info("round unlocked", "team_id", team.ID, "round", active.RoundNumber, "next_round", next.RoundNumber)
	return result, nil
}

// Leaderboard returns every team ranked.
func (e *Engine) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	teams, err := e.store.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	return Leaderboard(teams), nil
}

func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var err error
	if s.TotalRounds, err = e.store.CountRounds(ctx); err != nil {
		return Stats{}, fmt.Errorf("counting rounds: %w", err)
	}
	if s.ActiveTeams, err = e.store.CountTeams(ctx, TeamPlaying, TeamLocked); err != nil {
		return Stats{}, fmt.Errorf("counting active teams: %w", err)
	}
	if s.CompletedHunts, err = e.store.CountTeams(ctx, TeamCompleted); err != nil {
		return Stats{}, fmt.Errorf("counting completed teams: %w", err)
	}
	return s, nil
}

// UnlockCodes returns the unlock-code board for every round.
func (e *Engine) UnlockCodes(ctx context.Context) ([]UnlockCodeStatus, error) {
	rounds, err := e.store.Rounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing rounds: %w", err)
	}
	teams, err := e.store.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	return UnlockBoard(rounds, teams), nil
}
