package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campushunt/treasurehunt/internal/hunt"
)

func handleListClues(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Engine.ListAssignments(r.Context())
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleCreateClue(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req hunt.AssignmentInput
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		a, err := d.Engine.CreateAssignment(r.Context(), req)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

func handleDeleteClue(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Engine.DeleteAssignment(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Clue assignment deleted"})
	}
}

func handleClueResults(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := d.Engine.AssignmentResults(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
