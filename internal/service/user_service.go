package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cycletracker/internal/auth"
	"cycletracker/internal/cache"
	apperrors "cycletracker/internal/errors"
	"cycletracker/internal/model"
	"cycletracker/internal/repository"
)

// DefaultUserCacheTTL bounds how stale a cached identity may be.
const DefaultUserCacheTTL = time.Minute

// CreateUserInput carries the fields of a new account.
type CreateUserInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	IsSuperuser bool
}

// UserPatch lists profile fields to change. Nil fields are left untouched.
type UserPatch struct {
	Email       *string `json:"email" validate:"omitempty,email"`
	FirstName   *string `json:"first_name" validate:"omitempty,min=1,max=255"`
	LastName    *string `json:"last_name" validate:"omitempty,min=1,max=255"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}

// UserService exposes user account operations.
type UserService interface {
	Create(ctx context.Context, in CreateUserInput) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// Identify resolves a token subject to its user, served from cache when
	// possible. The returned user never carries the password hash.
	Identify(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, id uuid.UUID, patch UserPatch) (*model.User, error)
	ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error
	SetPassword(ctx context.Context, id uuid.UUID, next string) error
	TouchLastLogin(ctx context.Context, user *model.User) (*model.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, p repository.Pagination) (*repository.Page[model.User], error)
}

type userService struct {
	repo     *repository.UserRepository
	hasher   auth.PasswordHasher
	cache    *cache.Client
	cacheTTL time.Duration
	now      func() time.Time
}

// NewUserService builds a UserService. cache may be nil.
func NewUserService(repo *repository.UserRepository, hasher auth.PasswordHasher, cache *cache.Client, cacheTTL time.Duration) UserService {
	if cacheTTL <= 0 {
		cacheTTL = DefaultUserCacheTTL
	}
	return &userService{
		repo:     repo,
		hasher:   hasher,
		cache:    cache,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) cacheKey(email string) string {
	return "user:email:" + email
}

func (s *userService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", apperrors.ErrValidation)
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check user existence: %w", err)
	}
	if existing != nil {
		return nil, apperrors.ErrDuplicateEmail
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:          email,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		HashedPassword: hashed,
		IsActive:       true,
		IsSuperuser:    in.IsSuperuser,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, apperrors.ErrPersistenceConflict) {
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user: %w", apperrors.ErrNotFound)
	}
	return user, nil
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user: %w", apperrors.ErrNotFound)
	}
	return user, nil
}

func (s *userService) Identify(ctx context.Context, email string) (*model.User, error) {
	email = NormalizeEmail(email)

	key := s.cacheKey(email)
	var cached model.User
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	// Any invalidation committed while loading bumps the version, so the
	// stale row is not cached.
	version := s.cache.Version(ctx, key)
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSONIfVersion(ctx, key, version, user, s.cacheTTL)
	return user, nil
}

func (s *userService) Update(ctx context.Context, id uuid.UUID, patch UserPatch) (*model.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousEmail := user.Email

	columns := repository.Patch{"updated_at": s.now().UTC()}
	if patch.Email != nil {
		email := NormalizeEmail(*patch.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email must not be empty", apperrors.ErrValidation)
		}
		if email != user.Email {
			other, err := s.repo.FindByEmail(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("check user existence: %w", err)
			}
			if other != nil {
				return nil, apperrors.ErrDuplicateEmail
			}
		}
		columns["email"] = email
	}
	if patch.FirstName != nil {
		columns["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		columns["last_name"] = *patch.LastName
	}
	if patch.IsActive != nil {
		columns["is_active"] = *patch.IsActive
	}
	if patch.IsSuperuser != nil {
		columns["is_superuser"] = *patch.IsSuperuser
	}

	updated, err := s.repo.Update(ctx, user, columns)
	if err != nil {
		if errors.Is(err, apperrors.ErrPersistenceConflict) {
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	s.cache.Invalidate(ctx, s.cacheKey(previousEmail), s.cacheKey(updated.Email))
	return updated, nil
}

func (s *userService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, user.HashedPassword) {
		return apperrors.ErrIncorrectPassword
	}
	return s.storePassword(ctx, user, next)
}

func (s *userService) SetPassword(ctx context.Context, id uuid.UUID, next string) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.storePassword(ctx, user, next)
}

func (s *userService) storePassword(ctx context.Context, user *model.User, next string) error {
	if next == "" {
		return fmt.Errorf("%w: password must not be empty", apperrors.ErrValidation)
	}
	hashed, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if _, err := s.repo.Update(ctx, user, repository.Patch{"hashed_password": hashed}); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	s.cache.Invalidate(ctx, s.cacheKey(user.Email))
	return nil
}

func (s *userService) TouchLastLogin(ctx context.Context, user *model.User) (*model.User, error) {
	updated, err := s.repo.Update(ctx, user, repository.Patch{"last_login": s.now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("touch last login: %w", err)
	}
	s.cache.Invalidate(ctx, s.cacheKey(updated.Email))
	return updated, nil
}

// Delete removes the user. Their periods and symptoms go with them.
func (s *userService) Delete(ctx context.Context, id uuid.UUID) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !deleted {
		return fmt.Errorf("user: %w", apperrors.ErrNotFound)
	}
	s.cache.Invalidate(ctx, s.cacheKey(user.Email))
	return nil
}

func (s *userService) List(ctx context.Context, p repository.Pagination) (*repository.Page[model.User], error) {
	page, err := s.repo.GetPaginated(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return page, nil
}
