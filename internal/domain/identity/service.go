package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mediclear/mediclear/internal/platform/auth"
)

var (
	ErrMissingFields      = errors.New("email and password are required")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Service struct {
	users   UserRepository
	tokens  *auth.TokenService
	revoker auth.Revoker
	logger  zerolog.Logger
}

func NewService(users UserRepository, tokens *auth.TokenService, revoker auth.Revoker, logger zerolog.Logger) *Service {
	return &Service{users: users, tokens: tokens, revoker: revoker, logger: logger}
}

// Register creates an account. An empty role means patient.
func (s *Service) Register(ctx context.Context, email, password, role string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if role == "" {
		role = auth.RolePatient
	}
	if !auth.ValidRole(role) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &User{Email: email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and issues a bearer token. Accounts still
// holding a plaintext password are upgraded to bcrypt on success.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		auth.BurnPasswordCheck(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, needsRehash := auth.VerifyPassword(u.PasswordHash, password)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if needsRehash {
		s.upgradePassword(ctx, u, password)
	}

	role := u.Role
	if role == "" {
		role = auth.RolePatient
	}
	token, _, err := s.tokens.Issue(u.Email, role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Email: u.Email, Role: role}, nil
}

func (s *Service) upgradePassword(ctx context.Context, u *User, password string) {
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, u.ID, hash)
	}
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", u.ID).Msg("could not upgrade legacy password")
		return
	}
	s.logger.Info().Int64("user_id", u.ID).Msg("upgraded legacy password to bcrypt")
}

// Logout revokes the presented token until it would have expired.
func (s *Service) Logout(ctx context.Context, id auth.Identity) error {
	if s.revoker == nil || id.TokenID == "" {
		return nil
	}
	return s.revoker.Revoke(ctx, id.TokenID, id.ExpiresAt)
}
