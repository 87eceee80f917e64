package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cycletracker/internal/auth"
	apperrors "cycletracker/internal/errors"
	"cycletracker/internal/metrics"
	"cycletracker/internal/model"
)

// TokenLifetimes configures how long issued tokens stay valid.
type TokenLifetimes struct {
	Access  time.Duration
	Refresh time.Duration
}

// RegisterInput carries a self-registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginResult holds the tokens minted by a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *model.User
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	// Refresh exchanges a "Bearer <token>" refresh value for a new access token.
	Refresh(ctx context.Context, refreshValue string) (string, error)
	// Authenticate resolves an access token to its user. Every credential
	// problem is reported as ErrUnauthenticated.
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

type authService struct {
	users     UserService
	codec     *auth.TokenCodec
	hasher    auth.PasswordHasher
	lifetimes TokenLifetimes
	metrics   *metrics.Metrics
	log       zerolog.Logger
	dummyHash string
}

// NewAuthService creates a new authentication service. m may be nil.
func NewAuthService(
	users UserService,
	codec *auth.TokenCodec,
	hasher auth.PasswordHasher,
	lifetimes TokenLifetimes,
	m *metrics.Metrics,
	log zerolog.Logger,
) (AuthService, error) {
	// Compared against on unknown emails so both login failures cost one hash check.
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &authService{
		users:     users,
		codec:     codec,
		hasher:    hasher,
		lifetimes: lifetimes,
		metrics:   m,
		log:       log.With().Str("component", "auth").Logger(),
		dummyHash: dummy,
	}, nil
}

// Register creates a regular, active account.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	user, err := s.users.Create(ctx, CreateUserInput{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	})
	if err != nil {
		s.metrics.AuthEvent("register", metrics.OutcomeFailure)
		return nil, err
	}
	s.metrics.AuthEvent("register", metrics.OutcomeSuccess)
	s.log.Info().Str("user_id", user.ID.String()).Msg("user registered")
	return user, nil
}

// Login verifies credentials and issues an access and a refresh token.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if user == nil {
		s.hasher.Verify(password, s.dummyHash)
		s.metrics.AuthEvent("login", metrics.OutcomeFailure)
		return nil, apperrors.ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.HashedPassword) {
		s.metrics.AuthEvent("login", metrics.OutcomeFailure)
		return nil, apperrors.ErrInvalidCredentials
	}

	access, err := s.codec.Issue(user.Email, s.lifetimes.Access)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.IssueRefresh(user.Email, s.lifetimes.Refresh)
	if err != nil {
		return nil, err
	}

	touched, err := s.users.TouchLastLogin(ctx, user)
	if err != nil {
		return nil, err
	}

	s.metrics.AuthEvent("login", metrics.OutcomeSuccess)
	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: touched}, nil
}

func (s *authService) Refresh(ctx context.Context, refreshValue string) (string, error) {
	token, ok := auth.CutBearer(refreshValue)
	if !ok {
		s.metrics.AuthEvent("refresh", metrics.OutcomeFailure)
		return "", apperrors.ErrUnauthenticated
	}
	user, err := s.resolve(ctx, "refresh", s.codec.ParseRefresh, token)
	if err != nil {
		return "", err
	}

	access, err := s.codec.Issue(user.Email, s.lifetimes.Access)
	if err != nil {
		return "", err
	}
	s.metrics.AuthEvent("refresh", metrics.OutcomeSuccess)
	return access, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	return s.resolve(ctx, "authenticate", s.codec.Parse, token)
}

// resolve maps a token to its user. Token and lookup misses are
// ErrUnauthenticated; storage failures are returned wrapped.
func (s *authService) resolve(ctx context.Context, event string, parse func(string) (string, error), token string) (*model.User, error) {
	subject, err := parse(token)
	if err != nil {
		s.metrics.AuthEvent(event, metrics.OutcomeFailure)
		return nil, apperrors.ErrUnauthenticated
	}
	user, err := s.users.Identify(ctx, subject)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.metrics.AuthEvent(event, metrics.OutcomeFailure)
		return nil, apperrors.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	return user, nil
}
