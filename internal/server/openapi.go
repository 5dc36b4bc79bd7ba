package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/campushunt/treasurehunt/internal/handler/health"
	"github.com/campushunt/treasurehunt/internal/hunt"
)

type myHintQuery struct {
	TeamID      string `query:"teamId"`
	RoundNumber int    `query:"roundNumber"`
}

type hintListQuery struct {
	Status      string `query:"status" enum:"pending,approved,rejected"`
	RoundNumber int    `query:"roundNumber"`
}

type idPath struct {
	ID string `path:"id"`
}

type teamPatchRequest struct {
	ID string `path:"id"`
	hunt.TeamPatch
}

type startCodeRequest struct {
	ID string `path:"id"`
	StartCodeRequest
}

type roundPatchRequest struct {
	ID string `path:"id"`
	hunt.RoundPatch
}

type timerRequest struct {
	ID string `path:"id"`
	TimerRequest
}

type eventsQuery struct {
	TeamID string `query:"teamId"`
	Token  string `query:"token"`
}

type apiOp struct {
	method, path, summary, description string
	req                                any
	resp                               any
	status                             int
	errors                             []int
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Treasure Hunt API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Backend API for coordinating multi-team scavenger hunts.")

	const (
		admin = " Requires an admin Bearer token."
		team  = " Requires a team Bearer token."
	)
	ops := []apiOp{
		{method: http.MethodGet, path: "/healthz", summary: "Health check",
			description: "Returns the health status of backend dependencies.",
			resp:        health.Report{}, status: http.StatusOK, errors: []int{http.StatusServiceUnavailable}},

		// Game
		{method: http.MethodPost, path: "/api/game/start", summary: "Start the hunt",
			description: "Team enters its start code and receives its first clue.",
			req:         StartRequest{}, resp: hunt.StartResult{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusNotFound}},
		{method: http.MethodPost, path: "/api/game/qr-scan", summary: "Verify QR scan",
			description: "Verifies the scanned QR id for the team's current round.",
			req:         QRScanRequest{}, resp: hunt.ScanResult{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusNotFound}},
		{method: http.MethodPost, path: "/api/game/unlock", summary: "Unlock next round",
			description: "Submits the unlock code found at the location and advances the team.",
			req:         UnlockRequest{}, resp: hunt.UnlockResult{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusTooManyRequests}},
		{method: http.MethodGet, path: "/api/game/leaderboard", summary: "Leaderboard",
			description: "Teams ordered by completed rounds, then by total time.",
			resp:        []hunt.LeaderboardEntry{}, status: http.StatusOK},
		{method: http.MethodGet, path: "/api/game/stats", summary: "Game statistics",
			resp: hunt.Stats{}, status: http.StatusOK},
		{method: http.MethodGet, path: "/api/game/events", summary: "SSE event stream",
			description: "Server-Sent Events for a team's progress. Pass a team token as query parameter.",
			req:         eventsQuery{}, status: http.StatusOK, errors: []int{http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/api/game/unlock-codes", summary: "Unlock code board",
			description: "Every round's unlock code with its usage status." + admin,
			resp:        []hunt.UnlockCodeStatus{}, status: http.StatusOK, errors: []int{http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/ws/leaderboard", summary: "Leaderboard WebSocket",
			description: "Upgrades to a WebSocket that pushes LeaderboardMessage frames on every change.",
			status:      http.StatusSwitchingProtocols},

		// Hints
		{method: http.MethodPost, path: "/api/hints/request", summary: "Request a hint",
			req: HintRequestBody{}, resp: hunt.HintRequest{}, status: http.StatusCreated,
			errors: []int{http.StatusBadRequest, http.StatusNotFound}},
		{method: http.MethodGet, path: "/api/hints/my-request", summary: "Latest hint request",
			description: "The team's latest hint request for a round, with the hint once approved.",
			req:         myHintQuery{}, resp: hunt.MyHint{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusNotFound}},
		{method: http.MethodGet, path: "/api/hints/requests", summary: "List hint requests",
			description: "Newest first, optionally filtered." + admin,
			req:         hintListQuery{}, resp: HintRequestList{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/hints/requests/{id}/approve", summary: "Approve hint request",
			description: admin[1:], req: idPath{}, resp: hunt.HintRequest{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/hints/requests/{id}/reject", summary: "Reject hint request",
			description: admin[1:], req: idPath{}, resp: hunt.HintRequest{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized}},

		// Auth
		{method: http.MethodPost, path: "/api/auth/login", summary: "Admin login",
			req: AdminLoginRequest{}, resp: AdminLoginResponse{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusTooManyRequests}},
		{method: http.MethodGet, path: "/api/auth/me", summary: "Current admin",
			description: admin[1:], resp: AdminMeResponse{}, status: http.StatusOK,
			errors: []int{http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/teams/auth/signup", summary: "Team signup",
			req: hunt.SignupInput{}, resp: TeamAuthResponse{}, status: http.StatusCreated,
			errors: []int{http.StatusBadRequest, http.StatusConflict, http.StatusTooManyRequests}},
		{method: http.MethodPost, path: "/api/teams/auth/login", summary: "Team login",
			req: TeamLoginRequest{}, resp: TeamAuthResponse{}, status: http.StatusOK,
			errors: []int{http.StatusUnauthorized, http.StatusTooManyRequests}},
		{method: http.MethodGet, path: "/api/teams/auth/me", summary: "Current team",
			description: team[1:], resp: hunt.Team{}, status: http.StatusOK,
			errors: []int{http.StatusUnauthorized}},

		// Teams
		{method: http.MethodGet, path: "/api/teams", summary: "List teams",
			description: admin[1:], resp: []hunt.Team{}, status: http.StatusOK,
			errors: []int{http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/teams", summary: "Create team",
			description: "Creates a team at its starting round." + admin,
			req:         hunt.TeamInput{}, resp: hunt.Team{}, status: http.StatusCreated,
			errors: []int{http.StatusBadRequest, http.StatusConflict, http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/api/teams/{id}", summary: "Get team",
			description: admin[1:], req: idPath{}, resp: hunt.Team{}, status: http.StatusOK,
			errors: []int{http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodPatch, path: "/api/teams/{id}", summary: "Update team",
			description: admin[1:], req: teamPatchRequest{}, resp: hunt.Team{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/teams/{id}/start-code", summary: "Assign start code",
			description: "Sets or generates a team's start code." + admin,
			req:         startCodeRequest{}, resp: hunt.Team{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusConflict, http.StatusNotFound, http.StatusUnauthorized}},

		// Rounds
		{method: http.MethodGet, path: "/api/rounds", summary: "List rounds",
			description: admin[1:], resp: []hunt.RoundDetail{}, status: http.StatusOK,
			errors: []int{http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/rounds", summary: "Create round",
			description: admin[1:], req: hunt.RoundInput{}, resp: hunt.Round{}, status: http.StatusCreated,
			errors: []int{http.StatusBadRequest, http.StatusConflict, http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/api/rounds/{id}", summary: "Get round",
			description: admin[1:], req: idPath{}, resp: hunt.RoundDetail{}, status: http.StatusOK,
			errors: []int{http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodPatch, path: "/api/rounds/{id}", summary: "Update round",
			description: admin[1:], req: roundPatchRequest{}, resp: hunt.Round{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusConflict, http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodDelete, path: "/api/rounds/{id}", summary: "Delete round",
			description: admin[1:], req: idPath{}, resp: MessageResponse{}, status: http.StatusOK,
			errors: []int{http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/rounds/{id}/timer", summary: "Control round timer",
			description: "Starts, pauses, resumes or resets the round timer." + admin,
			req:         timerRequest{}, resp: hunt.RoundDetail{}, status: http.StatusOK,
			errors: []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnauthorized}},

		// Clues
		{method: http.MethodGet, path: "/api/clues", summary: "List clue assignments",
			description: admin[1:], resp: []hunt.ClueAssignment{}, status: http.StatusOK,
			errors: []int{http.StatusUnauthorized}},
		{method: http.MethodPost, path: "/api/clues", summary: "Create clue assignment",
			description: admin[1:], req: hunt.AssignmentInput{}, resp: hunt.ClueAssignment{}, status: http.StatusCreated,
			errors: []int{http.StatusBadRequest, http.StatusConflict, http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodDelete, path: "/api/clues/{id}", summary: "Delete clue assignment",
			description: admin[1:], req: idPath{}, resp: MessageResponse{}, status: http.StatusOK,
			errors: []int{http.StatusNotFound, http.StatusUnauthorized}},
		{method: http.MethodGet, path: "/api/clues/{id}/results", summary: "Clue assignment results",
			description: "Per-team timing against the round's time limit." + admin,
			req:         idPath{}, resp: hunt.AssignmentReport{}, status: http.StatusOK,
			errors: []int{http.StatusNotFound, http.StatusUnauthorized}},
	}

	for _, o := range ops {
		oc, err := r.NewOperationContext(o.method, o.path)
		if err != nil {
			continue
		}
		oc.SetSummary(o.summary)
		if o.description != "" {
			oc.SetDescription(o.description)
		}
		if o.req != nil {
			oc.AddReqStructure(o.req)
		}
		switch {
		case o.path == "/api/game/events":
			oc.AddRespStructure(nil, openapi.WithHTTPStatus(o.status), openapi.WithContentType("text/event-stream"))
		case o.resp == nil:
			oc.AddRespStructure(nil, openapi.WithHTTPStatus(o.status))
		default:
			oc.AddRespStructure(o.resp, openapi.WithHTTPStatus(o.status))
		}
		for _, code := range o.errors {
			if o.path == "/healthz" {
				oc.AddRespStructure(health.Report{}, openapi.WithHTTPStatus(code))
				continue
			}
			oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(code))
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
