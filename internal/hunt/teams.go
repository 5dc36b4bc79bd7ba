package hunt

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const startCodeAttempts = 10

type TeamInput struct {
	Name                  string `json:"name"`
	StartCode             string `json:"startCode,omitempty"`
	StartingRound         int    `json:"startingRound,omitempty"`
	AutoGenerateStartCode bool   `json:"autoGenerateStartCode,omitempty"`
}

func (in *TeamInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.StartCode = NormalizeCode(in.StartCode)
	if in.StartingRound == 0 {
		in.StartingRound = 1
	}

	fields := FieldErrors{}
	if len(in.Name) < 2 {
		fields.Add("name", "must be at least 2 characters")
	}
	if in.StartingRound < 0 {
		fields.Add("startingRound", "must be a positive integer")
	}
	if in.StartCode != "" && !startCodePattern.MatchString(in.StartCode) {
		fields.Add("startCode", "must be 4-10 letters or digits")
	}
	return fields.Err()
}

// TeamPatch holds the admin-editable team fields. Nil means unchanged.
type TeamPatch struct {
	Name               *string     `json:"name,omitempty"`
	CurrentRoundNumber *int        `json:"currentRoundNumber,omitempty"`
	Status             *TeamStatus `json:"status,omitempty"`
}

func (p *TeamPatch) validate() error {
	fields := FieldErrors{}
	if p.Name != nil {
		*p.Name = strings.TrimSpace(*p.Name)
		if len(*p.Name) < 2 {
			fields.Add("name", "must be at least 2 characters")
		}
	}
	if p.CurrentRoundNumber != nil && *p.CurrentRoundNumber <= 0 {
		fields.Add("currentRoundNumber", "must be a positive integer")
	}
	if p.Status != nil && !p.Status.Valid() {
		fields.Add("status", "must be one of not_started, playing, locked, completed")
	}
	return fields.Err()
}

// CreateTeam registers a team on behalf of an admin. Without a start code one
// is generated.
func (e *Engine) CreateTeam(ctx context.Context, in TeamInput) (Team, error) {
	if err := in.validate(); err != nil {
		return Team{}, err
	}

	exists, err := e.store.RoundExists(ctx, in.StartingRound)
	if err != nil {
		return Team{}, fmt.Errorf("checking round: %w", err)
	}
	if !exists {
		return Team{}, invalid("Round %d does not exist yet", in.StartingRound)
	}

	team := Team{
		Name:               in.Name,
		CurrentRoundNumber: in.StartingRound,
		Status:             TeamNotStarted,
	}
	team.EnsureProgress(in.StartingRound)

	if in.StartCode != "" && !in.AutoGenerateStartCode {
		team.StartCode = in.StartCode
		created, err := e.store.CreateTeam(ctx, team)
		if errors.Is(err, ErrConflict) {
			return Team{}, conflict("Start code already in use")
		}
		if err != nil {
			return Team{}, fmt.Errorf("creating team: %w", err)
		}
		e.logger.Info("team created", "team_id", created.ID, "start_code", created.StartCode)
		return created, nil
	}

	created, err := e.createWithGeneratedCode(ctx, team)
	if err != nil {
		return Team{}, err
	}
	e.logger.Info("team created", "team_id", created.ID, "start_code", created.StartCode)
	return created, nil
}

// createWithGeneratedCode retries on start code collisions.
func (e *Engine) createWithGeneratedCode(ctx context.Context, team Team) (Team, error) {
	for range startCodeAttempts {
		team.StartCode = GenerateStartCode()
		created, err := e.store.CreateTeam(ctx, team)
		if errors.Is(err, ErrConflict) {
			if team.Email != "" {
				if _, lookupErr := e.store.TeamByEmail(ctx, team.Email); lookupErr == nil {
					return Team{}, conflict("Email already in use")
				}
			}
			continue
		}
		if err != nil {
			return Team{}, fmt.Errorf("creating team: %w", err)
		}
		return created, nil
	}
	return Team{}, errors.New("could not generate a unique start code")
}

// ListTeams returns all teams, newest first.
func (e *Engine) ListTeams(ctx context.Context) ([]Team, error) {
	teams, err := e.store.Teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	return teams, nil
}

func (e *Engine) GetTeam(ctx context.Context, id string) (Team, error) {
	t, err := e.store.Team(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Team{}, notFound("Team not found")
	}
	if err != nil {
		return Team{}, fmt.Errorf("finding team: %w", err)
	}
	return t, nil
}

func (e *Engine) UpdateTeam(ctx context.Context, id string, patch TeamPatch) (Team, error) {
	if err := patch.validate(); err != nil {
		return Team{}, err
	}

	if patch.CurrentRoundNumber != nil {
		exists, err := e.store.RoundExists(ctx, *patch.CurrentRoundNumber)
		if err != nil {
			return Team{}, fmt.Errorf("checking round: %w", err)
		}
		if !exists {
			return Team{}, invalid("Target round does not exist")
		}
	}

	t, err := e.store.ModifyTeam(ctx, id, func(t *Team) error {
		if patch.Name != nil {
			t.Name = *patch.Name
		}
		if patch.CurrentRoundNumber != nil {
			t.CurrentRoundNumber = *patch.CurrentRoundNumber
			t.EnsureProgress(t.CurrentRoundNumber)
		}
		if patch.Status != nil {
			t.Status = *patch.Status
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return Team{}, notFound("Team not found")
	}
	if err != nil {
		return Team{}, fmt.Errorf("updating team: %w", err)
	}

	e.logger.Info("team updated", "team_id", t.ID, "round", t.CurrentRoundNumber, "status", t.Status)
	return t, nil
}

// AssignStartCode sets a team's start code, or generates one when
// autoGenerate is set.
func (e *Engine) AssignStartCode(ctx context.Context, id, code string, autoGenerate bool) (Team, error) {
	code = NormalizeCode(code)
	if !autoGenerate && !startCodePattern.MatchString(code) {
		return Team{}, FieldErrors{"startCode": "must be 4-10 letters or digits"}.Err()
	}

	if _, err := e.store.Team(ctx, id); errors.Is(err, ErrNotFound) {
		return Team{}, notFound("Team not found")
	} else if err != nil {
		return Team{}, fmt.Errorf("finding team: %w", err)
	}

	for range startCodeAttempts {
		if autoGenerate {
			code = GenerateStartCode()
		}

		other, err := e.store.TeamByStartCode(ctx, code)
		switch {
		case err == nil && other.ID != id:
			if autoGenerate {
				continue
			}
			return Team{}, conflict("Start code already in use")
		case err != nil && !errors.Is(err, ErrNotFound):
			return Team{}, fmt.Errorf("checking start code: %w", err)
		}

		t, err := e.store.ModifyTeam(ctx, id, func(t *Team) error {
			t.StartCode = code
			return nil
		})
		if errors.Is(err, ErrConflict) {
			if autoGenerate {
				continue
			}
			return Team{}, conflict("Start code already in use")
		}
		if err != nil {
			return Team{}, fmt.Errorf("assigning start code: %w", err)
		}

		e.logger.Info("start code assigned", "team_id", t.ID, "start_code", t.StartCode)
		return t, nil
	}
	return Team{}, errors.New("could not generate a unique start code")
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *SignupInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	fields := FieldErrors{}
	if len(in.Name) < 2 {
		fields.Add("name", "must be at least 2 characters")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		fields.Add("email", "must be a valid email address")
	}
	if len(in.Password) < 6 {
		fields.Add("password", "must be at least 6 characters")
	}
	return fields.Err()
}

// Signup creates a self-registered team starting at round 1.
func (e *Engine) Signup(ctx context.Context, in SignupInput) (Team, error) {
	if err := in.validate(); err != nil {
		return Team{}, err
	}

	if _, err := e.store.TeamByEmail(ctx, in.Email); err == nil {
		return Team{}, conflict("Email already in use")
	} else if !errors.Is(err, ErrNotFound) {
		return Team{}, fmt.Errorf("checking email: %w", err)
	}

	exists, err := e.store.RoundExists(ctx, 1)
	if err != nil {
		return Team{}, fmt.Errorf("checking round: %w", err)
	}
	if !exists {
		return Team{}, invalid("Game not configured yet. No starting round found.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return Team{}, fmt.Errorf("hashing password: %w", err)
	}

	team := Team{
		Name:               in.Name,
		Email:              in.Email,
		PasswordHash:       string(hash),
		CurrentRoundNumber: 1,
		Status:             TeamNotStarted,
	}
	team.EnsureProgress(1)

	created, err := e.createWithGeneratedCode(ctx, team)
	if err != nil {
		return Team{}, err
	}
	e.logger.Info("team signed up", "team_id", created.ID)
	return created, nil
}

// Login checks a team's email and password.
func (e *Engine) Login(ctx context.Context, email, password string) (Team, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fields := FieldErrors{}
	if email == "" {
		fields.Add("email", "is required")
	}
	if password == "" {
		fields.Add("password", "is required")
	}
	if err := fields.Err(); err != nil {
		return Team{}, err
	}

	t, err := e.store.TeamByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Team{}, newError(ErrUnauthorized, "Invalid credentials")
	}
	if err != nil {
		return Team{}, fmt.Errorf("finding team: %w", err)
	}
	if t.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(password)) != nil {
		return Team{}, newError(ErrUnauthorized, "Invalid credentials")
	}
	return t, nil
}
