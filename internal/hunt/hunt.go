// Package hunt defines the treasure hunt domain types and the progression
// engine that moves teams through rounds.
package hunt

import "time"

type TeamStatus string

const (
	TeamNotStarted TeamStatus = "not_started"
	TeamPlaying    TeamStatus = "playing"
	TeamLocked     TeamStatus = "locked"
	TeamCompleted  TeamStatus = "completed"
)

func (s TeamStatus) Valid() bool {
	switch s {
	case TeamNotStarted, TeamPlaying, TeamLocked, TeamCompleted:
		return true
	}
	return false
}

type ProgressStatus string

const (
	ProgressPending  ProgressStatus = "pending"
	ProgressQRFound  ProgressStatus = "qr_found"
	ProgressUnlocked ProgressStatus = "unlocked"
)

type TimerStatus string

const (
	TimerIdle     TimerStatus = "idle"
	TimerRunning  TimerStatus = "running"
	TimerPaused   TimerStatus = "paused"
	TimerFinished TimerStatus = "finished"
)

type HintStatus string

const (
	HintPending  HintStatus = "pending"
	HintApproved HintStatus = "approved"
	HintRejected HintStatus = "rejected"
)

func (s HintStatus) Valid() bool {
	switch s {
	case HintPending, HintApproved, HintRejected:
		return true
	}
	return false
}

type Team struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email,omitempty"`
	PasswordHash       string     `json:"-"`
	StartCode          string     `json:"startCode"`
	CurrentRoundNumber int        `json:"currentRoundNumber"`
	Status             TeamStatus `json:"status"`
	Progress           []Progress `json:"progress"`
	TotalTimeSeconds   float64    `json:"totalTimeSeconds"`
	LastScanTime       *time.Time `json:"lastScanTime,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// Progress is a team's record for a single round.
type Progress struct {
	RoundNumber int            `json:"roundNumber"`
	Status      ProgressStatus `json:"status"`
	QRScanTime  *time.Time     `json:"qrScanTime,omitempty"`
	UnlockTime  *time.Time     `json:"unlockTime,omitempty"`
	Qualified   *bool          `json:"qualified,omitempty"`
}

type Round struct {
	ID                 string      `json:"id"`
	RoundNumber        int         `json:"roundNumber"`
	ClueText           string      `json:"clueText"`
	Description        string      `json:"description,omitempty"`
	Hint               string      `json:"hint,omitempty"`
	UnlockCode         string      `json:"unlockCode"`
	QRID               string      `json:"qrId"`
	IsActive           bool        `json:"isActive"`
	TimerStatus        TimerStatus `json:"timerStatus"`
	TimerStartAt       *time.Time  `json:"timerStartAt,omitempty"`
	AccumulatedSeconds float64     `json:"accumulatedSeconds"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// ClueAssignment is the team-scoped instantiation of a round.
type ClueAssignment struct {
	ID               string    `json:"id"`
	RoundNumber      int       `json:"roundNumber"`
	ClueText         string    `json:"clueText"`
	Description      string    `json:"description,omitempty"`
	Hint             string    `json:"hint,omitempty"`
	UnlockCode       string    `json:"unlockCode"`
	QRID             string    `json:"qrId"`
	TimeLimitSeconds int       `json:"timeLimitSeconds"`
	TeamIDs          []string  `json:"teamIds"`
	CreatedAt        time.Time `json:"createdAt"`
}

// HasTeam reports whether teamID is bound to the assignment.
func (a ClueAssignment) HasTeam(teamID string) bool {
	for _, id := range a.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

type HintRequest struct {
	ID           string     `json:"id"`
	TeamID       string     `json:"teamId"`
	RoundNumber  int        `json:"roundNumber"`
	AssignmentID string     `json:"assignmentId"`
	Status       HintStatus `json:"status"`
	RequestedAt  time.Time  `json:"requestedAt"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
	ReviewedBy   string     `json:"reviewedBy,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}
