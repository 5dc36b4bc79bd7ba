package server

import "net/http"

type StartRequest struct {
	StartCode string `json:"startCode"`
}

type QRScanRequest struct {
	TeamID string `json:"teamId"`
	QRID   string `json:"qrId"`
}

type UnlockRequest struct {
	TeamID     string `json:"teamId"`
	UnlockCode string `json:"unlockCode"`
}

func handleStart(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := d.Engine.Start(r.Context(), req.StartCode)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		d.broker.Publish(leaderboardTopic, Event{Type: EventTeamsChanged, TeamID: res.Team.ID})
		writeJSON(w, http.StatusOK, res)
	}
}

func handleQRScan(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QRScanRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := d.Engine.VerifyQRScan(r.Context(), req.TeamID, req.QRID)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		d.broker.PublishProgress(Event{
			Type:        EventQRVerified,
			TeamID:      res.Team.ID,
			RoundNumber: res.Team.CurrentRoundNumber,
		})
		writeJSON(w, http.StatusOK, res)
	}
}

func handleUnlock(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UnlockRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.TeamID != "" && !d.allow(w, r, d.UnlockLimiter, "unlock:"+req.TeamID) {
			return
		}

		res, err := d.Engine.Unlock(r.Context(), req.TeamID, req.UnlockCode)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}

		event := Event{Type: EventRoundUnlocked, TeamID: res.Team.ID, RoundNumber: res.UnlockedRound}
		if res.Completed() {
			event.Type = EventHuntCompleted
		}
		d.broker.PublishProgress(event)
		writeJSON(w, http.StatusOK, res)
	}
}

func handleLeaderboard(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		board, err := d.Engine.Leaderboard(r.Context())
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, board)
	}
}

func handleStats(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := d.Engine.Stats(r.Context())
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func handleUnlockCodes(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		board, err := d.Engine.UnlockCodes(r.Context())
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, board)
	}
}
