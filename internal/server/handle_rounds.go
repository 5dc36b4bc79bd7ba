package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campushunt/treasurehunt/internal/hunt"
)

type TimerRequest struct {
	Action hunt.TimerAction `json:"action"`
}

func handleListRounds(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rounds, err := d.Engine.ListRounds(r.Context())
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, rounds)
	}
}

func handleCreateRound(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req hunt.RoundInput
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		round, err := d.Engine.CreateRound(r.Context(), req)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, round)
	}
}

func handleGetRound(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		round, err := d.Engine.GetRound(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, round)
	}
}

func handleUpdateRound(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req hunt.RoundPatch
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		round, err := d.Engine.UpdateRound(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, round)
	}
}

func handleDeleteRound(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Engine.DeleteRound(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Round deleted"})
	}
}

func handleRoundTimer(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TimerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		round, err := d.Engine.UpdateRoundTimer(r.Context(), chi.URLParam(r, "id"), req.Action)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, round)
	}
}
