package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/campushunt/treasurehunt/internal/hunt"
)

type HintRequestBody struct {
	TeamID      string `json:"teamId"`
	RoundNumber int    `json:"roundNumber"`
}

type HintRequestList struct {
	Requests []hunt.HintRequestDetail `json:"requests"`
}

func handleRequestHint(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req HintRequestBody
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		h, err := d.Engine.RequestHint(r.Context(), req.TeamID, req.RoundNumber)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, h)
	}
}

func handleMyHintRequest(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		round, err := strconv.Atoi(q.Get("roundNumber"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:  "Validation failed",
				Fields: map[string]string{"roundNumber": "must be a positive integer"},
			})
			return
		}

		mine, err := d.Engine.MyHintRequest(r.Context(), q.Get("teamId"), round)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, mine)
	}
}

func handleListHintRequests(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := hunt.HintFilter{Status: hunt.HintStatus(q.Get("status"))}
		if v := q.Get("roundNumber"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				writeJSON(w, http.StatusBadRequest, ErrorResponse{
					Error:  "Validation failed",
					Fields: map[string]string{"roundNumber": "must be a positive integer"},
				})
				return
			}
			filter.RoundNumber = n
		}

		list, err := d.Engine.ListHintRequests(r.Context(), filter)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		if list == nil {
			list = []hunt.HintRequestDetail{}
		}
		writeJSON(w, http.StatusOK, HintRequestList{Requests: list})
	}
}

func handleReviewHintRequest(d *deps, approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		reviewer := adminFrom(r)

		review := d.Engine.RejectHintRequest
		if approve {
			review = d.Engine.ApproveHintRequest
		}
		h, err := review(r.Context(), id, reviewer)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}

		d.broker.Publish(h.TeamID, Event{
			Type:          EventHintReviewed,
			TeamID:        h.TeamID,
			RoundNumber:   h.RoundNumber,
			HintRequestID: h.ID,
			Status:        string(h.Status),
		})
		writeJSON(w, http.StatusOK, h)
	}
}
