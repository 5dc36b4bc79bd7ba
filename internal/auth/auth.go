// Package auth issues and verifies the bearer tokens used by admins and
// teams.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleTeam  Role = "team"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims is the token payload. Subject is the admin email or the team id.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs HS256 tokens with a shared secret.
type Tokens struct {
	secret   []byte
	adminTTL time.Duration
	teamTTL  time.Duration
	now      func() time.Time
}

func New(secret string, adminTTL, teamTTL time.Duration) *Tokens {
	return &Tokens{
		secret:   []byte(secret),
		adminTTL: adminTTL,
		teamTTL:  teamTTL,
		now:      time.Now,
	}
}

// WithClock replaces the time source for issuing and validating tokens.
func (t *Tokens) WithClock(now func() time.Time) *Tokens {
	t.now = now
	return t
}

func (t *Tokens) AdminToken(email string) (string, time.Time, error) {
	return t.issue(RoleAdmin, email, t.adminTTL)
}

func (t *Tokens) TeamToken(teamID string) (string, time.Time, error) {
	return t.issue(RoleTeam, teamID, t.teamTTL)
}

func (t *Tokens) issue(role Role, subject string, ttl time.Duration) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies the signature and expiry and checks the token's role.
func (t *Tokens) Parse(raw string, role Role) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role != role || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	return token, found && token != ""
}
