package server

import (
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, d *deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Treasure Hunt API", "/openapi.json", "/docs"))
	r.Get("/ws/leaderboard", handleLeaderboardWS(d))

	r.Route("/api/game", func(r chi.Router) {
		r.Post("/start", handleStart(d))
		r.Post("/qr-scan", handleQRScan(d))
		r.Post("/unlock", handleUnlock(d))
		r.Get("/leaderboard", handleLeaderboard(d))
		r.Get("/stats", handleStats(d))
		r.Get("/events", handleEvents(d))
		r.With(adminAuthMiddleware(d)).Get("/unlock-codes", handleUnlockCodes(d))
	})

	r.Route("/api/hints", func(r chi.Router) {
		r.Post("/request", handleRequestHint(d))
		r.Get("/my-request", handleMyHintRequest(d))

		r.Group(func(r chi.Router) {
			r.Use(adminAuthMiddleware(d))
			r.Get("/requests", handleListHintRequests(d))
			r.Post("/requests/{id}/approve", handleReviewHintRequest(d, true))
			r.Post("/requests/{id}/reject", handleReviewHintRequest(d, false))
		})
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.With(d.rateLimitByIP(d.LoginLimiter)).Post("/login", handleAdminLogin(d))
		r.With(adminAuthMiddleware(d)).Get("/me", handleAdminMe())
	})

	r.Route("/api/teams", func(r chi.Router) {
		r.With(d.rateLimitByIP(d.LoginLimiter)).Post("/auth/signup", handleTeamSignup(d))
		r.With(d.rateLimitByIP(d.LoginLimiter)).Post("/auth/login", handleTeamLogin(d))
		r.With(teamAuthMiddleware(d)).Get("/auth/me", handleTeamMe(d))

		r.Group(func(r chi.Router) {
			r.Use(adminAuthMiddleware(d))
			r.Get("/", handleListTeams(d))
			r.Post("/", handleCreateTeam(d))
			r.Get("/{id}", handleGetTeam(d))
			r.Patch("/{id}", handleUpdateTeam(d))
			r.Post("/{id}/start-code", handleAssignStartCode(d))
		})
	})

	r.Route("/api/rounds", func(r chi.Router) {
		r.Use(adminAuthMiddleware(d))
		r.Get("/", handleListRounds(d))
		r.Post("/", handleCreateRound(d))
		r.Get("/{id}", handleGetRound(d))
		r.Patch("/{id}", handleUpdateRound(d))
		r.Delete("/{id}", handleDeleteRound(d))
		r.Post("/{id}/timer", handleRoundTimer(d))
	})

	r.Route("/api/clues", func(r chi.Router) {
		r.Use(adminAuthMiddleware(d))
		r.Get("/", handleListClues(d))
		r.Post("/", handleCreateClue(d))
		r.Delete("/{id}", handleDeleteClue(d))
		r.Get("/{id}/results", handleClueResults(d))
	})

	if d.SPADir != "" {
		if info, err := os.Stat(d.SPADir); err == nil && info.IsDir() {
			d.logger.Info("serving SPA", "dir", d.SPADir)
			r.NotFound(handleSPA(d.SPADir))
		}
	}
}
