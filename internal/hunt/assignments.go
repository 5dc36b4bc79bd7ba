package hunt

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type AssignmentInput struct {
	RoundNumber      int      `json:"roundNumber"`
	ClueText         string   `json:"clueText"`
	Description      string   `json:"description,omitempty"`
	Hint             string   `json:"hint,omitempty"`
	UnlockCode       string   `json:"unlockCode"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
	TeamIDs          []string `json:"teamIds"`
}

func (in *AssignmentInput) validate() error {
	in.ClueText = strings.TrimSpace(in.ClueText)
	in.Description = strings.TrimSpace(in.Description)
	in.Hint = strings.TrimSpace(in.Hint)
	in.UnlockCode = NormalizeCode(in.UnlockCode)
	in.TeamIDs = dedupe(in.TeamIDs)

	fields := FieldErrors{}
	if in.RoundNumber <= 0 {
		fields.Add("roundNumber", "must be a positive integer")
	}
	if len(in.ClueText) < 5 {
		fields.Add("clueText", "must be at least 5 characters")
	}
	if len(in.UnlockCode) < 3 {
		fields.Add("unlockCode", "must be at least 3 characters")
	}
	if in.TimeLimitSeconds <= 0 {
		fields.Add("timeLimitSeconds", "must be a positive integer")
	}
	if len(in.TeamIDs) == 0 {
		fields.Add("teamIds", "must contain at least one team")
	}
	return fields.Err()
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// CreateAssignment binds a round's clue to a set of teams with its own unlock
// code and QR id.
func (e *Engine) CreateAssignment(ctx context.Context, in AssignmentInput) (ClueAssignment, error) {
	if err := in.validate(); err != nil {
		return ClueAssignment{}, err
	}

	exists, err := e.store.RoundExists(ctx, in.RoundNumber)
	if err != nil {
		return ClueAssignment{}, fmt.Errorf("checking round: %w", err)
	}
	if !exists {
		return ClueAssignment{}, invalid("Round %d does not exist", in.RoundNumber)
	}

	teams, err := e.store.TeamsByIDs(ctx, in.TeamIDs)
	if err != nil {
		return ClueAssignment{}, fmt.Errorf("finding teams: %w", err)
	}
	if len(teams) != len(in.TeamIDs) {
		return ClueAssignment{}, invalid("One or more teams not found")
	}

	taken, err := e.store.AssignmentCodeExists(ctx, in.UnlockCode)
	if err != nil {
		return ClueAssignment{}, fmt.Errorf("checking unlock code: %w", err)
	}
	if taken {
		return ClueAssignment{}, conflict("Unlock code must be unique")
	}

	a, err := e.createWithGeneratedQRID(ctx, ClueAssignment{
		RoundNumber:      in.RoundNumber,
		ClueText:         in.ClueText,
		Description:      in.Description,
		Hint:             in.Hint,
		UnlockCode:       in.UnlockCode,
		TimeLimitSeconds: in.TimeLimitSeconds,
		TeamIDs:          in.TeamIDs,
	})
	if err != nil {
		return ClueAssignment{}, err
	}

	e.logger.Info("clue assignment created", "assignment_id", a.ID, "round", a.RoundNumber, "teams", len(a.TeamIDs))
	return a, nil
}

// createWithGeneratedQRID retries on QR id collisions. A conflict while the
// unlock code is taken means another assignment claimed the code first.
func (e *Engine) createWithGeneratedQRID(ctx context.Context, a ClueAssignment) (ClueAssignment, error) {
	for range startCodeAttempts {
		a.QRID = e.qrID(a.RoundNumber)
		created, err := e.store.CreateAssignment(ctx, a)
		if errors.Is(err, ErrConflict) {
			taken, lookupErr := e.store.AssignmentCodeExists(ctx, a.UnlockCode)
			if lookupErr != nil {
				return ClueAssignment{}, fmt.Errorf("checking unlock code: %w", lookupErr)
			}
			if taken {
				return ClueAssignment{}, conflict("Unlock code must be unique")
			}
			continue
		}
		if err != nil {
			return ClueAssignment{}, fmt.Errorf("creating assignment: %w", err)
		}
		return created, nil
	}
	return ClueAssignment{}, errors.New("could not generate a unique QR id")
}

// ListAssignments returns assignments by round number, then creation time.
func (e *Engine) ListAssignments(ctx context.Context) ([]ClueAssignment, error) {
	list, err := e.store.Assignments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	return list, nil
}

func (e *Engine) DeleteAssignment(ctx context.Context, id string) error {
	err := e.store.DeleteAssignment(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return notFound("Clue assignment not found")
	}
	if err != nil {
		return fmt.Errorf("deleting assignment: %w", err)
	}
	e.logger.Info("clue assignment deleted", "assignment_id", id)
	return nil
}

// AssignmentReport is an assignment with its per-team results.
type AssignmentReport struct {
	Assignment ClueAssignment     `json:"assignment"`
	Results    []AssignmentResult `json:"results"`
}

// AssignmentResults reports scan-to-unlock times for the assignment's teams.
func (e *Engine) AssignmentResults(ctx context.Context, id string) (AssignmentReport, error) {
	a, err := e.store.Assignment(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return AssignmentReport{}, notFound("Clue assignment not found")
	}
	if err != nil {
		return AssignmentReport{}, fmt.Errorf("finding assignment: %w", err)
	}

	teams, err := e.store.TeamsByIDs(ctx, a.TeamIDs)
	if err != nil {
		return AssignmentReport{}, fmt.Errorf("finding teams: %w", err)
	}
	return AssignmentReport{Assignment: a, Results: AssignmentResults(a, teams)}, nil
}
