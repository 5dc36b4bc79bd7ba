package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campushunt/treasurehunt/internal/hunt"
)

type StartCodeRequest struct {
	StartCode    string `json:"startCode,omitempty"`
	AutoGenerate bool   `json:"autoGenerate,omitempty"`
}

func handleListTeams(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teams, err := d.Engine.ListTeams(r.Context())
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, teams)
	}
}

func handleCreateTeam(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req hunt.TeamInput
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		team, err := d.Engine.CreateTeam(r.Context(), req)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		d.broker.Publish(leaderboardTopic, Event{Type: EventTeamsChanged, TeamID: team.ID})
		writeJSON(w, http.StatusCreated, team)
	}
}

func handleGetTeam(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := d.Engine.GetTeam(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}

func handleUpdateTeam(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req hunt.TeamPatch
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		team, err := d.Engine.UpdateTeam(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		d.broker.Publish(leaderboardTopic, Event{Type: EventTeamsChanged, TeamID: team.ID})
		writeJSON(w, http.StatusOK, team)
	}
}

func handleAssignStartCode(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartCodeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		team, err := d.Engine.AssignStartCode(r.Context(), chi.URLParam(r, "id"), req.StartCode, req.AutoGenerate)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}
