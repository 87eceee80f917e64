package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cycletracker/internal/auth"
	apperrors "cycletracker/internal/errors"
	"cycletracker/internal/model"
	"cycletracker/internal/repository"
)

// MockUserService is a mock implementation of UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) Identify(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, id uuid.UUID, patch UserPatch) (*model.User, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	args := m.Called(ctx, id, current, next)
	return args.Error(0)
}

func (m *MockUserService) SetPassword(ctx context.Context, id uuid.UUID, next string) error {
	args := m.Called(ctx, id, next)
	return args.Error(0)
}

func (m *MockUserService) TouchLastLogin(ctx context.Context, user *model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserService) List(ctx context.Context, p repository.Pagination) (*repository.Page[model.User], error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Page[model.User]), args.Error(1)
}

var testLifetimes = TokenLifetimes{Access: 30 * time.Minute, Refresh: 7 * 24 * time.Hour}

func newTestAuthService(t *testing.T, users UserService, codec *auth.TokenCodec) AuthService {
	t.Helper()
	svc, err := NewAuthService(users, codec, auth.NewBcryptHasher(4), testLifetimes, nil, zerolog.Nop())
	require.NoError(t, err)
	return svc
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := auth.NewBcryptHasher(4).Hash(password)
	require.NoError(t, err)
	return h
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(*MockUserService)
		expectedError error
	}{
		{
			name: "successful registration",
			setupMock: func(m *MockUserService) {
				m.On("Create", mock.Anything, CreateUserInput{
					Email: "alice@example.com", Password: "password123", FirstName: "Alice", LastName: "Smith",
				}).Return(&model.User{ID: uuid.New(), Email: "alice@example.com", IsActive: true}, nil)
			},
		},
		{
			name: "email already registered",
			setupMock: func(m *MockUserService) {
				m.On("Create", mock.Anything, mock.AnythingOfType("service.CreateUserInput")).Return(nil, apperrors.ErrDuplicateEmail)
			},
			expectedError: apperrors.ErrDuplicateEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserService)
			tt.setupMock(users)

			svc := newTestAuthService(t, users, auth.NewTokenCodec("test-secret"))
			user, err := svc.Register(context.Background(), RegisterInput{
				Email: "alice@example.com", Password: "password123", FirstName: "Alice", LastName: "Smith",
			})

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "alice@example.com", user.Email)
			}
			users.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	stored := &model.User{ID: uuid.New(), Email: "alice@example.com"}

	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserService)
		expectedError error
	}{
		{
			name:     "successful login",
			email:    "alice@example.com",
			password: "password123",
			setupMock: func(m *MockUserService) {
				user := *stored
				user.HashedPassword = hashed(t, "password123")
				m.On("GetByEmail", mock.Anything, "alice@example.com").Return(&user, nil)
				m.On("TouchLastLogin", mock.Anything, mock.AnythingOfType("*model.User")).Return(&user, nil)
			},
		},
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			password: "password123",
			setupMock: func(m *MockUserService) {
				m.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, fmt.Errorf("user: %w", apperrors.ErrNotFound))
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			email:    "alice@example.com",
			password: "wrong-password",
			setupMock: func(m *MockUserService) {
				user := *stored
				user.HashedPassword = hashed(t, "password123")
				m.On("GetByEmail", mock.Anything, "alice@example.com").Return(&user, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "storage failure is not masked",
			email:    "alice@example.com",
			password: "password123",
			setupMock: func(m *MockUserService) {
				m.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, errors.New("connection refused"))
			},
			expectedError: errors.New("connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserService)
			tt.setupMock(users)

			codec := auth.NewTokenCodec("test-secret")
			svc := newTestAuthService(t, users, codec)
			result, err := svc.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, result.AccessToken)
				assert.NotEmpty(t, result.RefreshToken)

				subject, err := codec.Parse(result.AccessToken)
				require.NoError(t, err)
				assert.Equal(t, "alice@example.com", subject)

				subject, err = codec.ParseRefresh(result.RefreshToken)
				require.NoError(t, err)
				assert.Equal(t, "alice@example.com", subject)
				_, err = codec.Parse(result.RefreshToken)
				assert.ErrorIs(t, err, auth.ErrInvalidToken)
			}
			users.AssertExpectations(t)
		})
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	codec := auth.NewTokenCodec("test-secret").WithClock(func() time.Time { return now })
	valid, err := codec.Issue("alice@example.com", time.Minute)
	require.NoError(t, err)
	ghost, err := codec.Issue("ghost@example.com", time.Minute)
	require.NoError(t, err)
	expired, err := codec.WithClock(func() time.Time { return now.Add(-time.Hour) }).Issue("alice@example.com", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name          string
		token         string
		setupMock     func(*MockUserService)
		expectedError error
	}{
		{
			name:  "valid token",
			token: valid,
			setupMock: func(m *MockUserService) {
				m.On("Identify", mock.Anything, "alice@example.com").Return(&model.User{Email: "alice@example.com"}, nil)
			},
		},
		{name: "expired token", token: expired, setupMock: func(*MockUserService) {}, expectedError: apperrors.ErrUnauthenticated},
		{name: "malformed token", token: "abc.def", setupMock: func(*MockUserService) {}, expectedError: apperrors.ErrUnauthenticated},
		{
			name:  "subject no longer exists",
			token: ghost,
			setupMock: func(m *MockUserService) {
				m.On("Identify", mock.Anything, "ghost@example.com").Return(nil, fmt.Errorf("user: %w", apperrors.ErrNotFound))
			},
			expectedError: apperrors.ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserService)
			tt.setupMock(users)

			svc := newTestAuthService(t, users, codec)
			user, err := svc.Authenticate(context.Background(), tt.token)

			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "alice@example.com", user.Email)
			}
			users.AssertExpectations(t)
		})
	}
}

func TestAuthService_Refresh(t *testing.T) {
	codec := auth.NewTokenCodec("test-secret")
	refresh, err := codec.IssueRefresh("alice@example.com", time.Hour)
	require.NoError(t, err)
	access, err := codec.Issue("alice@example.com", time.Hour)
	require.NoError(t, err)

	users := new(MockUserService)
	users.On("Identify", mock.Anything, "alice@example.com").Return(&model.User{Email: "alice@example.com"}, nil)
	svc := newTestAuthService(t, users, codec)

	renewed, err := svc.Refresh(context.Background(), auth.FormatBearer(refresh))
	require.NoError(t, err)
	subject, err := codec.Parse(renewed)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", subject)

	_, err = svc.Refresh(context.Background(), auth.FormatBearer(access))
	assert.Equal(t, apperrors.ErrUnauthenticated, err, "access token cannot refresh")

	_, err = svc.Authenticate(context.Background(), refresh)
	assert.Equal(t, apperrors.ErrUnauthenticated, err, "refresh token cannot authenticate")

	_, err = svc.Refresh(context.Background(), refresh)
	assert.Equal(t, apperrors.ErrUnauthenticated, err, "value without the Bearer prefix is rejected")

	_, err = svc.Refresh(context.Background(), "")
	assert.Equal(t, apperrors.ErrUnauthenticated, err)
}
