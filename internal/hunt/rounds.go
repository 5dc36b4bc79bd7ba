package hunt

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type RoundInput struct {
	RoundNumber int    `json:"roundNumber"`
	ClueText    string `json:"clueText"`
	Description string `json:"description,omitempty"`
	Hint        string `json:"hint,omitempty"`
	UnlockCode  string `json:"unlockCode"`
}

func (in *RoundInput) validate() error {
	in.ClueText = strings.TrimSpace(in.ClueText)
	in.Description = strings.TrimSpace(in.Description)
	in.Hint = strings.TrimSpace(in.Hint)
	in.UnlockCode = NormalizeCode(in.UnlockCode)

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
	return fields.Err()
}

// RoundPatch holds the fields of a partial round update. Nil means unchanged.
type RoundPatch struct {
	RoundNumber *int    `json:"roundNumber,omitempty"`
	ClueText    *string `json:"clueText,omitempty"`
	Description *string `json:"description,omitempty"`
	Hint        *string `json:"hint,omitempty"`
	UnlockCode  *string `json:"unlockCode,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

func (p *RoundPatch) validate() error {
	fields := FieldErrors{}
	if p.RoundNumber != nil && *p.RoundNumber <= 0 {
		fields.Add("roundNumber", "must be a positive integer")
	}
	if p.ClueText != nil {
		*p.ClueText = strings.TrimSpace(*p.ClueText)
		if len(*p.ClueText) < 5 {
			fields.Add("clueText", "must be at least 5 characters")
		}
	}
	if p.UnlockCode != nil {
		*p.UnlockCode = NormalizeCode(*p.UnlockCode)
		if len(*p.UnlockCode) < 3 {
			fields.Add("unlockCode", "must be at least 3 characters")
		}
	}
	return fields.Err()
}

// RoundDetail is a round with its timer reading at request time.
type RoundDetail struct {
	Round
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}

func (e *Engine) CreateRound(ctx context.Context, in RoundInput) (Round, error) {
	if err := in.validate(); err != nil {
		return Round{}, err
	}

	exists, err := e.store.RoundExists(ctx, in.RoundNumber)
	if err != nil {
		return Round{}, fmt.Errorf("checking round: %w", err)
	}
	if exists {
		return Round{}, conflict("Round %d already exists", in.RoundNumber)
	}

	r, err := e.store.CreateRound(ctx, Round{
		RoundNumber: in.RoundNumber,
		ClueText:    in.ClueText,
		Description: in.Description,
		Hint:        in.Hint,
		UnlockCode:  in.UnlockCode,
		QRID:        GenerateQRID(in.RoundNumber),
		IsActive:    true,
		TimerStatus: TimerIdle,
	})
	if errors.Is(err, ErrConflict) {
		return Round{}, conflict("Round %d already exists", in.RoundNumber)
	}
	if err != nil {
		return Round{}, fmt.Errorf("creating round: %w", err)
	}

	e.logger.Info("round created", "round_id", r.ID, "round", r.RoundNumber)
	return r, nil
}

// ListRounds returns all rounds in sequence order with live elapsed time.
func (e *Engine) ListRounds(ctx context.Context) ([]RoundDetail, error) {
	rounds, err := e.store.Rounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing rounds: %w", err)
	}
	now := e.now()
	details := make([]RoundDetail, len(rounds))
	for i, r := range rounds {
		details[i] = RoundDetail{Round: r, ElapsedSeconds: ElapsedSeconds(r, now)}
	}
	return details, nil
}

func (e *Engine) GetRound(ctx context.Context, id string) (RoundDetail, error) {
	r, err := e.store.Round(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return RoundDetail{}, notFound("Round not found")
	}
	if err != nil {
		return RoundDetail{}, fmt.Errorf("finding round: %w", err)
	}
	return RoundDetail{Round: r, ElapsedSeconds: ElapsedSeconds(r, e.now())}, nil
}

func (e *Engine) UpdateRound(ctx context.Context, id string, patch RoundPatch) (Round, error) {
	if err := patch.validate(); err != nil {
		return Round{}, err
	}

	r, err := e.store.ModifyRound(ctx, id, func(r *Round) error {
		if patch.RoundNumber != nil {
			r.RoundNumber = *patch.RoundNumber
		}
		if patch.ClueText != nil {
			r.ClueText = *patch.ClueText
		}
		if patch.Description != nil {
			r.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Hint != nil {
			r.Hint = strings.TrimSpace(*patch.Hint)
		}
		if patch.UnlockCode != nil {
			r.UnlockCode = *patch.UnlockCode
		}
		if patch.IsActive != nil {
			r.IsActive = *patch.IsActive
		}
		return nil
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return Round{}, notFound("Round not found")
	case errors.Is(err, ErrConflict):
		return Round{}, conflict("Round number already in use")
	case err != nil:
		return Round{}, fmt.Errorf("updating round: %w", err)
	}
	return r, nil
}

func (e *Engine) DeleteRound(ctx context.Context, id string) error {
	err := e.store.DeleteRound(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return notFound("Round not found")
	}
	if err != nil {
		return fmt.Errorf("deleting round: %w", err)
	}
	e.logger.Info("round deleted", "round_id", id)
	return nil
}

// UpdateRoundTimer applies an instructor timer action to a round.
func (e *Engine) UpdateRoundTimer(ctx context.Context, id string, action TimerAction) (RoundDetail, error) {
	switch action {
	case TimerStart, TimerPause, TimerResume, TimerFinish:
	default:
		return RoundDetail{}, invalid("Invalid timer action")
	}

	now := e.now()
	r, err := e.store.ModifyRound(ctx, id, func(r *Round) error {
		return ApplyTimerAction(r, action, now)
	})
	if errors.Is(err, ErrNotFound) {
		return RoundDetail{}, notFound("Round not found")
	}
	if err != nil {
		return RoundDetail{}, err
	}

	e.logger.Info("round timer updated", "round_id", r.ID, "action", action, "timer_status", r.TimerStatus)
	return RoundDetail{Round: r, ElapsedSeconds: ElapsedSeconds(r, now)}, nil
}
