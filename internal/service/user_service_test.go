package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cycletracker/internal/auth"
	"cycletracker/internal/cache"
	apperrors "cycletracker/internal/errors"
	"cycletracker/internal/model"
	"cycletracker/internal/repository"
	"cycletracker/internal/testutil"
)

func newTestUserService(t *testing.T, gdb *gorm.DB, c *cache.Client) UserService {
	t.Helper()
	return NewUserService(repository.NewUserRepository(gdb), auth.NewBcryptHasher(4), c, time.Minute)
}

func createUser(t *testing.T, svc UserService, email string) *model.User {
	t.Helper()
	user, err := svc.Create(context.Background(), CreateUserInput{
		Email: email, Password: "password123", FirstName: "Test", LastName: "User",
	})
	require.NoError(t, err)
	return user
}

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService(t, testutil.NewDB(t), nil)

	user := createUser(t, svc, "  Alice@Example.com ")
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsSuperuser)
	assert.NotEqual(t, "password123", user.HashedPassword)
	assert.Nil(t, user.LastLogin)

	tests := []struct {
		name    string
		input   CreateUserInput
		wantErr error
	}{
		{name: "same email", input: CreateUserInput{Email: "alice@example.com", Password: "password123"}, wantErr: apperrors.ErrDuplicateEmail},
		{name: "same email other case", input: CreateUserInput{Email: "ALICE@example.com", Password: "password123"}, wantErr: apperrors.ErrDuplicateEmail},
		{name: "missing password", input: CreateUserInput{Email: "bob@example.com"}, wantErr: apperrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUserService_GetAndUpdate(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService(t, testutil.NewDB(t), nil)
	alice := createUser(t, svc, "alice@example.com")
	createUser(t, svc, "bob@example.com")

	_, err := svc.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	first := "Alicia"
	updated, err := svc.Update(ctx, alice.ID, UserPatch{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.FirstName)
	assert.Equal(t, "User", updated.LastName)

	taken := "BOB@example.com"
	_, err = svc.Update(ctx, alice.ID, UserPatch{Email: &taken})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEmail)

	admin := true
	updated, err = svc.Update(ctx, alice.ID, UserPatch{IsSuperuser: &admin})
	require.NoError(t, err)
	assert.True(t, updated.IsSuperuser)

	_, err = svc.Update(ctx, uuid.New(), UserPatch{FirstName: &first})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUserService_UpdateBumpsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService(t, testutil.NewDB(t), nil)
	user := createUser(t, svc, "alice@example.com")

	later := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	svc.(*userService).now = func() time.Time { return later }

	tests := []struct {
		name  string
		patch UserPatch
	}{
		{name: "empty patch", patch: UserPatch{}},
		{name: "email unchanged", patch: UserPatch{Email: &user.Email}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, err := svc.Update(ctx, user.ID, tt.patch)
			require.NoError(t, err)
			assert.WithinDuration(t, later, updated.UpdatedAt, time.Second)
			assert.True(t, updated.UpdatedAt.After(user.UpdatedAt))
		})
	}
}

func TestUserService_Passwords(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	svc := newTestUserService(t, gdb, nil)
	hasher := auth.NewBcryptHasher(4)
	user := createUser(t, svc, "alice@example.com")

	err := svc.ChangePassword(ctx, user.ID, "wrong-password", "new-password1")
	assert.ErrorIs(t, err, apperrors.ErrIncorrectPassword)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "password123", "new-password1"))
	stored, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, hasher.Verify("new-password1", stored.HashedPassword))
	assert.False(t, hasher.Verify("password123", stored.HashedPassword))

	require.NoError(t, svc.SetPassword(ctx, user.ID, "admin-chosen1"))
	stored, err = svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, hasher.Verify("admin-chosen1", stored.HashedPassword))

	assert.ErrorIs(t, svc.SetPassword(ctx, uuid.New(), "whatever1"), apperrors.ErrNotFound)
}

func TestUserService_TouchLastLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService(t, testutil.NewDB(t), nil)
	user := createUser(t, svc, "alice@example.com")

	touched, err := svc.TouchLastLogin(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, touched.LastLogin)
	assert.WithinDuration(t, time.Now(), *touched.LastLogin, time.Minute)
}

func TestUserService_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	svc := newTestUserService(t, gdb, nil)
	periods := NewPeriodService(repository.NewPeriodRepository(gdb), repository.NewSymptomRepository(gdb))

	user := createUser(t, svc, "alice@example.com")
	_, err := periods.Create(ctx, user.ID, PeriodInput{
		StartDate: model.NewDate(2024, time.January, 1),
		Symptoms:  []SymptomInput{{Name: "cramps"}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, user.ID))
	assert.ErrorIs(t, svc.Delete(ctx, user.ID), apperrors.ErrNotFound)

	var count int64
	require.NoError(t, gdb.Model(&model.Period{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, gdb.Model(&model.Symptom{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	svc := newTestUserService(t, testutil.NewDB(t), nil)
	for i := 0; i < 12; i++ {
		createUser(t, svc, fmt.Sprintf("user%02d@example.com", i))
	}

	page, err := svc.List(ctx, repository.Pagination{Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.EqualValues(t, 12, page.Total)
	assert.Equal(t, 3, page.TotalPages)
}

func TestUserService_IdentifyUsesCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	c := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), zerolog.Nop())
	svc := newTestUserService(t, testutil.NewDB(t), c)
	user := createUser(t, svc, "alice@example.com")

	identified, err := svc.Identify(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, identified.ID)
	assert.True(t, mr.Exists("user:email:alice@example.com"))

	cached, err := mr.Get("user:email:alice@example.com")
	require.NoError(t, err)
	assert.NotContains(t, cached, user.HashedPassword, "password hash is never cached")

	name := "Alicia"
	_, err = svc.Update(ctx, user.ID, UserPatch{FirstName: &name})
	require.NoError(t, err)
	assert.False(t, mr.Exists("user:email:alice@example.com"), "update evicts the cached identity")

	identified, err = svc.Identify(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", identified.FirstName)

	require.NoError(t, svc.Delete(ctx, user.ID))
	_, err = svc.Identify(ctx, "alice@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "deleted users cannot be identified from a stale cache")
}

func TestUserService_IdentifyDoesNotCacheRowChangedWhileLoading(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	c := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), zerolog.Nop())
	gdb := testutil.NewDB(t)
	svc := newTestUserService(t, gdb, c)

	admin, err := svc.Create(ctx, CreateUserInput{
		Email: "root@example.com", Password: "password123", FirstName: "Root", LastName: "User", IsSuperuser: true,
	})
	require.NoError(t, err)

	// Demote the user right after Identify has read the row, before it caches it.
	armed := true
	require.NoError(t, gdb.Callback().Query().After("gorm:query").Register("test:demote_while_loading", func(tx *gorm.DB) {
		if !armed || tx.Statement.Table != "user" {
			return
		}
		armed = false
		demoted := false
		_, err := svc.Update(ctx, admin.ID, UserPatch{IsSuperuser: &demoted})
		require.NoError(t, err)
	}))

	loaded, err := svc.Identify(ctx, "root@example.com")
	require.NoError(t, err)
	assert.True(t, loaded.IsSuperuser, "the in-flight lookup saw the old row")
	assert.False(t, armed)
	assert.False(t, mr.Exists("user:email:root@example.com"), "the stale row is not cached")

	again, err := svc.Identify(ctx, "root@example.com")
	require.NoError(t, err)
	assert.False(t, again.IsSuperuser)
	assert.True(t, mr.Exists("user:email:root@example.com"))
}
