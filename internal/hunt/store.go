package hunt

import "context"

// Store is the persistence the engine runs against. Lookups return an error
// wrapping ErrNotFound when nothing matches; creates return one wrapping
// ErrConflict when a unique key is taken.
//
// The Modify methods load the document, apply fn and save it atomically with
// respect to other Modify calls on the same document. fn must not call back
// into the Store. An error from fn aborts the write and is returned as is.
type Store interface {
	CreateTeam(ctx context.Context, t Team) (Team, error)
	Team(ctx context.Context, id string) (Team, error)
	TeamByStartCode(ctx context.Context, code string) (Team, error)
	TeamByEmail(ctx context.Context, email string) (Team, error)
	Teams(ctx context.Context) ([]Team, error)
	TeamsByIDs(ctx context.Context, ids []string) ([]Team, error)
	CountTeams(ctx context.Context, statuses ...TeamStatus) (int, error)
	ModifyTeam(ctx context.Context, id string, fn func(*Team) error) (Team, error)

	CreateRound(ctx context.Context, r Round) (Round, error)
	Round(ctx context.Context, id string) (Round, error)
	RoundByNumber(ctx context.Context, n int) (Round, error)
	NextRound(ctx context.Context, after int) (Round, error)
	Rounds(ctx context.Context) ([]Round, error)
	RoundExists(ctx context.Context, n int) (bool, error)
	CountRounds(ctx context.Context) (int, error)
	ModifyRound(ctx context.Context, id string, fn func(*Round) error) (Round, error)
	DeleteRound(ctx context.Context, id string) error

	CreateAssignment(ctx context.Context, a ClueAssignment) (ClueAssignment, error)
	Assignment(ctx context.Context, id string) (ClueAssignment, error)
	AssignmentFor(ctx context.Context, roundNumber int, teamID string) (ClueAssignment, error)
	AssignmentByQR(ctx context.Context, qrID, teamID string) (ClueAssignment, error)
	AssignmentCodeExists(ctx context.Context, code string) (bool, error)
	Assignments(ctx context.Context) ([]ClueAssignment, error)
	DeleteAssignment(ctx context.Context, id string) error

	CreateHintRequest(ctx context.Context, h HintRequest) (HintRequest, error)
	HintRequest(ctx context.Context, id string) (HintRequest, error)
	LatestHintRequest(ctx context.Context, teamID string, roundNumber int) (HintRequest, error)
	HasPendingHintRequest(ctx context.Context, teamID string, roundNumber int) (bool, error)
	HintRequests(ctx context.Context, f HintFilter) ([]HintRequest, error)
	ModifyHintRequest(ctx context.Context, id string, fn func(*HintRequest) error) (HintRequest, error)
}

// HintFilter narrows HintRequests. Zero values match everything.
type HintFilter struct {
	Status      HintStatus
	RoundNumber int
}
