package hunt

import (
	"context"
	"errors"
	"fmt"
)

// RequestHint opens a pending hint request for the team's assignment on
// roundNumber. A team holds at most one pending request per round.
func (e *Engine) RequestHint(ctx context.Context, teamID string, roundNumber int) (HintRequest, error) {
	fields := FieldErrors{}
	if teamID == "" {
		fields.Add("teamId", "is required")
	}
	if roundNumber <= 0 {
		fields.Add("roundNumber", "must be a positive integer")
	}
	if err := fields.Err(); err != nil {
		return HintRequest{}, err
	}

	if _, err := e.store.Team(ctx, teamID); errors.Is(err, ErrNotFound) {
		return HintRequest{}, notFound("Team not found")
	} else if err != nil {
		return HintRequest{}, fmt.Errorf("finding team: %w", err)
	}

	pending, err := e.store.HasPendingHintRequest(ctx, teamID, roundNumber)
	if err != nil {
		return HintRequest{}, fmt.Errorf("checking pending hint: %w", err)
	}
	if pending {
		return HintRequest{}, invalidState("You already have a pending hint request for this round")
	}

	a, err := e.store.AssignmentFor(ctx, roundNumber, teamID)
	if errors.Is(err, ErrNotFound) {
		return HintRequest{}, notFound("No assignment found for this team and round")
	}
	if err != nil {
		return HintRequest{}, fmt.Errorf("finding assignment: %w", err)
	}

	h, err := e.store.CreateHintRequest(ctx, HintRequest{
		TeamID:       teamID,
		RoundNumber:  roundNumber,
		AssignmentID: a.ID,
		Status:       HintPending,
		RequestedAt:  e.now(),
	})
	if errors.Is(err, ErrConflict) {
		return HintRequest{}, invalidState("You already have a pending hint request for this round")
	}
	if err != nil {
		return HintRequest{}, fmt.Errorf("creating hint request: %w", err)
	}

	e.logger.Info("hint requested", "hint_request_id", h.ID, "team_id", teamID, "round", roundNumber)
	return h, nil
}

// MyHint is a team's latest hint request for a round. Hint is only filled
// once the request is approved.
type MyHint struct {
	Request *HintRequest `json:"request"`
	Hint    *string      `json:"hint"`
}

func (e *Engine) MyHintRequest(ctx context.Context, teamID string, roundNumber int) (MyHint, error) {
	fields := FieldErrors{}
	if teamID == "" {
		fields.Add("teamId", "is required")
	}
	if roundNumber <= 0 {
		fields.Add("roundNumber", "must be a positive integer")
	}
	if err := fields.Err(); err != nil {
		return MyHint{}, err
	}

	h, err := e.store.LatestHintRequest(ctx, teamID, roundNumber)
	if errors.Is(err, ErrNotFound) {
		return MyHint{}, nil
	}
	if err != nil {
		return MyHint{}, fmt.Errorf("finding hint request: %w", err)
	}

	out := MyHint{Request: &h}
	if h.Status != HintApproved {
		return out, nil
	}
	a, err := e.store.Assignment(ctx, h.AssignmentID)
	switch {
	case err == nil && a.Hint != "":
		out.Hint = &a.Hint
	case err != nil && !errors.Is(err, ErrNotFound):
		return MyHint{}, fmt.Errorf("finding assignment: %w", err)
	}
	return out, nil
}

type TeamSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type AssignmentSummary struct {
	ID          string `json:"id"`
	RoundNumber int    `json:"roundNumber"`
	ClueText    string `json:"clueText"`
}

// HintRequestDetail is a hint request joined with its team and assignment
// for the admin queue. Either summary is nil when the record is gone.
type HintRequestDetail struct {
	HintRequest
	Team       *TeamSummary       `json:"team"`
	Assignment *AssignmentSummary `json:"assignment"`
}

// ListHintRequests returns matching requests, newest first.
func (e *Engine) ListHintRequests(ctx context.Context, f HintFilter) ([]HintRequestDetail, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, FieldErrors{"status": "must be one of pending, approved, rejected"}.Err()
	}

	requests, err := e.store.HintRequests(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("listing hint requests: %w", err)
	}

	teamIDs := make([]string, 0, len(requests))
	for _, h := range requests {
		teamIDs = append(teamIDs, h.TeamID)
	}
	teams, err := e.store.TeamsByIDs(ctx, dedupe(teamIDs))
	if err != nil {
		return nil, fmt.Errorf("finding teams: %w", err)
	}
	byID := make(map[string]Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}

	assignments := map[string]*AssignmentSummary{}
	details := make([]HintRequestDetail, len(requests))
	for i, h := range requests {
		d := HintRequestDetail{HintRequest: h}
		if t, ok := byID[h.TeamID]; ok {
			d.Team = &TeamSummary{ID: t.ID, Name: t.Name, Email: t.Email}
		}

		summary, seen := assignments[h.AssignmentID]
		if !seen {
			a, err := e.store.Assignment(ctx, h.AssignmentID)
			switch {
			case err == nil:
				summary = &AssignmentSummary{ID: a.ID, RoundNumber: a.RoundNumber, ClueText: a.ClueText}
			case !errors.Is(err, ErrNotFound):
				return nil, fmt.Errorf("finding assignment: %w", err)
			}
			assignments[h.AssignmentID] = summary
		}
		d.Assignment = summary
		details[i] = d
	}
	return details, nil
}

func (e *Engine) ApproveHintRequest(ctx context.Context, id, reviewer string) (HintRequest, error) {
	return e.reviewHintRequest(ctx, id, reviewer, HintApproved)
}

func (e *Engine) RejectHintRequest(ctx context.Context, id, reviewer string) (HintRequest, error) {
	return e.reviewHintRequest(ctx, id, reviewer, HintRejected)
}

func (e *Engine) reviewHintRequest(ctx context.Context, id, reviewer string, status HintStatus) (HintRequest, error) {
	now := e.now()
	h, err := e.store.ModifyHintRequest(ctx, id, func(h *HintRequest) error {
		if h.Status != HintPending {
			return invalidState("This hint request has already been reviewed")
		}
		h.Status = status
		h.ReviewedAt = &now
		h.ReviewedBy = reviewer
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return HintRequest{}, notFound("Hint request not found")
	}
	if err != nil {
		return HintRequest{}, err
	}

	e.logger.Info("hint request reviewed", "hint_request_id", h.ID, "team_id", h.TeamID, "status", h.Status, "reviewed_by", reviewer)
	return h, nil
}
