package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cycletracker/internal/model"
)

// PeriodRepository adds owner-scoped queries to the generic period CRUD.
// Reads eager-load symptoms.
type PeriodRepository struct {
	*CRUD[model.Period, uuid.UUID]
}

// NewPeriodRepository builds a GORM-backed repository.
func NewPeriodRepository(db *gorm.DB) *PeriodRepository {
	return &PeriodRepository{CRUD: NewCRUD[model.Period, uuid.UUID](db,
		WithPreload("Symptoms"),
		WithOrder("start_date DESC, created_at DESC"),
	)}
}

// WithTx returns a copy bound to tx.
func (r *PeriodRepository) WithTx(tx *gorm.DB) *PeriodRepository {
	return &PeriodRepository{CRUD: r.CRUD.WithTx(tx)}
}

// OwnedBy limits a query to one user's periods.
func OwnedBy(userID uuid.UUID) Scope {
	return func(q *gorm.DB) *gorm.DB {
		return q.Where("user_id = ?", userID)
	}
}

// ListForUser pages through a user's periods, newest start first.
func (r *PeriodRepository) ListForUser(ctx context.Context, userID uuid.UUID, p Pagination) (*Page[model.Period], error) {
	return r.Paginate(ctx, OwnedBy(userID), p)
}

// Latest returns the user's period with the greatest start date, or nil.
func (r *PeriodRepository) Latest(ctx context.Context, userID uuid.UUID) (*model.Period, error) {
	return r.FindOne(ctx, func(q *gorm.DB) *gorm.DB {
		return OwnedBy(userID)(q).Order("start_date DESC").Order("created_at DESC")
	})
}

// StartedSince returns the user's periods starting on or after since, in
// ascending start order with creation order breaking ties.
func (r *PeriodRepository) StartedSince(ctx context.Context, userID uuid.UUID, since model.Date) ([]model.Period, error) {
	return r.FindAll(ctx, func(q *gorm.DB) *gorm.DB {
		return OwnedBy(userID)(q).
			Where("start_date >= ?", since).
			Order("start_date ASC").
			Order("created_at ASC")
	})
}

// SymptomRepository stores the symptoms attached to periods.
type SymptomRepository struct {
	*CRUD[model.Symptom, uuid.UUID]
}

// NewSymptomRepository builds a GORM-backed repository.
func NewSymptomRepository(db *gorm.DB) *SymptomRepository {
	return &SymptomRepository{CRUD: NewCRUD[model.Symptom, uuid.UUID](db)}
}

// WithTx returns a copy bound to tx.
func (r *SymptomRepository) WithTx(tx *gorm.DB) *SymptomRepository {
	return &SymptomRepository{CRUD: r.CRUD.WithTx(tx)}
}

// ReplaceForPeriod deletes the period's symptoms and inserts symptoms in
// their place. Callers run it inside a transaction.
func (r *SymptomRepository) ReplaceForPeriod(ctx context.Context, periodID uuid.UUID, symptoms []model.Symptom) error {
	if _, err := r.DeleteWhere(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("period_id = ?", periodID)
	}); err != nil {
		return err
	}
	for i := range symptoms {
		symptoms[i].PeriodID = periodID
	}
	return r.CreateMany(ctx, symptoms)
}
