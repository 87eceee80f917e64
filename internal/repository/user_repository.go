package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cycletracker/internal/model"
)

// UserRepository adds email lookup to the generic user CRUD.
type UserRepository struct {
	*CRUD[model.User, uuid.UUID]
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{CRUD: NewCRUD[model.User, uuid.UUID](db, WithOrder("created_at ASC, id ASC"))}
}

// WithTx returns a copy bound to tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{CRUD: r.CRUD.WithTx(tx)}
}

// FindByEmail returns the user with the normalized email, or nil.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.FindOne(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("email = ?", email)
	})
}
