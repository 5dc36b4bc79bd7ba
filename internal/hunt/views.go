package hunt

import (
	"sort"
	"time"
)

type LeaderboardEntry struct {
	Rank             int        `json:"rank"`
	TeamID           string     `json:"teamId"`
	TeamName         string     `json:"teamName"`
	CurrentRound     int        `json:"currentRound"`
	Status           TeamStatus `json:"status"`
	LastScanTime     *time.Time `json:"lastScanTime"`
	TotalTimeSeconds float64    `json:"totalTimeSeconds"`
}

// Leaderboard ranks teams by furthest round, then lowest total time, then
// most recent activity.
func Leaderboard(teams []Team) []LeaderboardEntry {
	sorted := make([]Team, len(teams))
	copy(sorted, teams)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.CurrentRoundNumber != b.CurrentRoundNumber {
			return a.CurrentRoundNumber > b.CurrentRoundNumber
		}
		if a.TotalTimeSeconds != b.TotalTimeSeconds {
			return a.TotalTimeSeconds < b.TotalTimeSeconds
		}
		return a.UpdatedAt.After(b.UpdatedAt)
	})

	entries := make([]LeaderboardEntry, len(sorted))
	for i, t := range sorted {
		entries[i] = LeaderboardEntry{
			Rank:             i + 1,
			TeamID:           t.ID,
			TeamName:         t.Name,
			CurrentRound:     t.CurrentRoundNumber,
			Status:           t.Status,
			LastScanTime:     t.LastScanTime,
			TotalTimeSeconds: t.TotalTimeSeconds,
		}
	}
	return entries
}

type CodeStatus string

const (
	CodeActive  CodeStatus = "active"
	CodeUsed    CodeStatus = "used"
	CodePending CodeStatus = "pending"
)

type UnlockCodeStatus struct {
	Round  int        `json:"round"`
	Code   string     `json:"code"`
	Status CodeStatus `json:"status"`
}

// UnlockBoard reports, per round, whether its code is awaited by a locked
// team, has already been used, or is still pending.
func UnlockBoard(rounds []Round, teams []Team) []UnlockCodeStatus {
	board := make([]UnlockCodeStatus, 0, len(rounds))
	for _, r := range rounds {
		status := CodePending
		if anyTeam(teams, func(t Team) bool {
			return t.Status == TeamLocked && t.CurrentRoundNumber == r.RoundNumber
		}) {
			status = CodeActive
		} else if anyTeam(teams, func(t Team) bool {
			p := t.ProgressFor(r.RoundNumber)
			return p != nil && p.Status == ProgressUnlocked
		}) {
			status = CodeUsed
		}
		board = append(board, UnlockCodeStatus{
			Round:  r.RoundNumber,
			Code:   r.UnlockCode,
			Status: status,
		})
	}
	return board
}

func anyTeam(teams []Team, fn func(Team) bool) bool {
	for _, t := range teams {
		if fn(t) {
			return true
		}
	}
	return false
}

type AssignmentResult struct {
	TeamID          string  `json:"teamId"`
	TeamName        string  `json:"teamName"`
	DurationSeconds float64 `json:"durationSeconds"`
	Qualified       bool    `json:"qualified"`
}

// AssignmentResults lists the bound teams that finished the assignment's
// round, fastest first. Teams without both timestamps are left out.
func AssignmentResults(a ClueAssignment, teams []Team) []AssignmentResult {
	results := []AssignmentResult{}
	for _, t := range teams {
		if !a.HasTeam(t.ID) {
			continue
		}
		p := t.ProgressFor(a.RoundNumber)
		if p == nil {
			continue
		}
		d, ok := p.Duration()
		if !ok {
			continue
		}

		qualified := true
		switch {
		case p.Qualified != nil:
			qualified = *p.Qualified
		case a.TimeLimitSeconds > 0:
			qualified = Qualifies(d, a.TimeLimitSeconds)
		}

		results = append(results, AssignmentResult{
			TeamID:          t.ID,
			TeamName:        t.Name,
			DurationSeconds: d.Seconds(),
			Qualified:       qualified,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DurationSeconds < results[j].DurationSeconds
	})
	return results
}

type Stats struct {
	TotalRounds    int `json:"totalRounds"`
	ActiveTeams    int `json:"activeTeams"`
	CompletedHunts int `json:"completedHunts"`
}
