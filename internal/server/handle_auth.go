package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/campushunt/treasurehunt/internal/hunt"
)

// AdminLoginRequest is the request body for POST /api/auth/login.
type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminLoginResponse struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AdminMeResponse is the response for GET /api/auth/me.
type AdminMeResponse struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type TeamLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TeamAuthResponse struct {
	Team      hunt.Team `json:"team"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func handleAdminLogin(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminLoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		emailOK := subtle.ConstantTimeCompare([]byte(req.Email), []byte(strings.ToLower(d.AdminEmail))) == 1
		passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(d.AdminPassword)) == 1
		if !emailOK || !passOK {
			d.logger.Info("admin login failed", "email", req.Email)
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		token, expires, err := d.Tokens.AdminToken(req.Email)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}

		d.logger.Info("admin logged in", "email", req.Email)
		writeJSON(w, http.StatusOK, AdminLoginResponse{Token: token, Email: req.Email, ExpiresAt: expires})
	}
}

func handleAdminMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, AdminMeResponse{Email: adminFrom(r), Role: "admin"})
	}
}

func handleTeamSignup(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req hunt.SignupInput
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		team, err := d.Engine.Signup(r.Context(), req)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeTeamAuth(w, r, d, http.StatusCreated, team)
	}
}

func handleTeamLogin(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TeamLoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		team, err := d.Engine.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeTeamAuth(w, r, d, http.StatusOK, team)
	}
}

func writeTeamAuth(w http.ResponseWriter, r *http.Request, d *deps, status int, team hunt.Team) {
	token, expires, err := d.Tokens.TeamToken(team.ID)
	if err != nil {
		writeErr(w, r, d.logger, err)
		return
	}
	writeJSON(w, status, TeamAuthResponse{Team: team, Token: token, ExpiresAt: expires})
}

func handleTeamMe(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team, err := d.Engine.GetTeam(r.Context(), teamFrom(r))
		if err != nil {
			writeErr(w, r, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	}
}
