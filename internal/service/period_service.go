package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "cycletracker/internal/errors"
	"cycletracker/internal/model"
	"cycletracker/internal/repository"
)

const (
	// IntensityWindowDays is how far back intensity counts look.
	IntensityWindowDays = 365

	maxNotesLength     = 500
	maxSymptomName     = 255
	maxSymptomSeverity = 100
)

// SymptomInput describes one symptom to attach to a period.
type SymptomInput struct {
	Name      string  `json:"name" validate:"required,max=255"`
	Intensity *string `json:"intensity" validate:"omitempty,max=100"`
	Notes     *string `json:"notes" validate:"omitempty,max=500"`
}

// PeriodInput carries the fields of a new period.
type PeriodInput struct {
	StartDate     model.Date           `json:"start_date"`
	EndDate       *model.Date          `json:"end_date"`
	FlowIntensity *model.FlowIntensity `json:"flow_intensity" validate:"omitempty,oneof=Light Medium Heavy"`
	Notes         *string              `json:"notes" validate:"omitempty,max=500"`
	Symptoms      []SymptomInput       `json:"symptoms" validate:"omitempty,dive"`
}

// PeriodPatch lists period fields to change. Absent members are untouched and
// explicit nulls clear the column. A present Symptoms list, even an empty one,
// replaces every existing symptom.
type PeriodPatch struct {
	StartDate     model.Optional[model.Date]          `json:"start_date" swaggertype:"string"`
	EndDate       model.Optional[model.Date]          `json:"end_date" swaggertype:"string"`
	FlowIntensity model.Optional[model.FlowIntensity] `json:"flow_intensity" swaggertype:"string"`
	Notes         model.Optional[string]              `json:"notes" swaggertype:"string"`
	Symptoms      *[]SymptomInput                     `json:"symptoms"`
}

// DateIntensityCount is the flow grade recorded for one calendar day.
type DateIntensityCount struct {
	Date  model.Date `json:"date"`
	Count int        `json:"count"`
}

// PeriodService manages a user's periods. Every operation is scoped to the
// owning user; someone else's period is reported as not found.
type PeriodService interface {
	Create(ctx context.Context, userID uuid.UUID, in PeriodInput) (*model.Period, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*model.Period, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch PeriodPatch) (*model.Period, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID, p repository.Pagination) (*repository.Page[model.Period], error)
	// Recent returns the latest period by start date, or nil when there is none.
	Recent(ctx context.Context, userID uuid.UUID) (*model.Period, error)
	IntensityCounts(ctx context.Context, userID uuid.UUID) ([]DateIntensityCount, error)
}

type periodService struct {
	periods  *repository.PeriodRepository
	symptoms *repository.SymptomRepository
	now      func() time.Time
}

// NewPeriodService builds a PeriodService.
func NewPeriodService(periods *repository.PeriodRepository, symptoms *repository.SymptomRepository) PeriodService {
	return &periodService{periods: periods, symptoms: symptoms, now: time.Now}
}

// NewPeriodServiceWithClock builds a PeriodService whose notion of today comes from now.
func NewPeriodServiceWithClock(periods *repository.PeriodRepository, symptoms *repository.SymptomRepository, now func() time.Time) PeriodService {
	return &periodService{periods: periods, symptoms: symptoms, now: now}
}

func (s *periodService) Create(ctx context.Context, userID uuid.UUID, in PeriodInput) (*model.Period, error) {
	if in.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start_date is required", apperrors.ErrValidation)
	}
	if err := validateDates(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}
	if err := validateFlow(in.FlowIntensity); err != nil {
		return nil, err
	}
	if err := validateNotes(in.Notes); err != nil {
		return nil, err
	}
	symptoms, err := buildSymptoms(in.Symptoms)
	if err != nil {
		return nil, err
	}

	period := &model.Period{
		UserID:        userID,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		FlowIntensity: in.FlowIntensity,
		Notes:         in.Notes,
	}

	var created *model.Period
	err = s.periods.WithTransaction(ctx, func(tx *gorm.DB) error {
		periods := s.periods.WithTx(tx)
		if err := periods.Create(ctx, period); err != nil {
			return err
		}
		for i := range symptoms {
			symptoms[i].PeriodID = period.ID
		}
		if err := s.symptoms.WithTx(tx).CreateMany(ctx, symptoms); err != nil {
			return err
		}
		loaded, err := periods.Get(ctx, period.ID)
		if err != nil {
			return err
		}
		created = loaded
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create period: %w", err)
	}
	return created, nil
}

func (s *periodService) Get(ctx context.Context, userID, id uuid.UUID) (*model.Period, error) {
	return s.owned(ctx, s.periods, userID, id)
}

func (s *periodService) owned(ctx context.Context, periods *repository.PeriodRepository, userID, id uuid.UUID) (*model.Period, error) {
	period, err := periods.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get period: %w", err)
	}
	if period == nil || period.UserID != userID {
		return nil, fmt.Errorf("period: %w", apperrors.ErrNotFound)
	}
	return period, nil
}

func (s *periodService) Update(ctx context.Context, userID, id uuid.UUID, patch PeriodPatch) (*model.Period, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}
	var symptoms []model.Symptom
	if patch.Symptoms != nil {
		var err error
		if symptoms, err = buildSymptoms(*patch.Symptoms); err != nil {
			return nil, err
		}
	}

	var updated *model.Period
	err := s.periods.WithTransaction(ctx, func(tx *gorm.DB) error {
		periods := s.periods.WithTx(tx)
		existing, err := s.owned(ctx, periods, userID, id)
		if err != nil {
			return err
		}

		start, end := existing.StartDate, existing.EndDate
		if patch.StartDate.Set {
			start = *patch.StartDate.Value
		}
		if patch.EndDate.Set {
			end = patch.EndDate.Value
		}
		if err := validateDates(start, end); err != nil {
			return err
		}

		columns := patch.columns()
		if patch.Symptoms != nil {
			if err := s.symptoms.WithTx(tx).ReplaceForPeriod(ctx, existing.ID, symptoms); err != nil {
				return err
			}
			columns["updated_at"] = s.now().UTC()
		}

		updated, err = periods.Update(ctx, existing, columns)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update period: %w", err)
	}
	return updated, nil
}

func (s *periodService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.owned(ctx, s.periods, userID, id); err != nil {
		return err
	}
	deleted, err := s.periods.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete period: %w", err)
	}
	if !deleted {
		return fmt.Errorf("period: %w", apperrors.ErrNotFound)
	}
	return nil
}

func (s *periodService) ListForUser(ctx context.Context, userID uuid.UUID, p repository.Pagination) (*repository.Page[model.Period], error) {
	page, err := s.periods.ListForUser(ctx, userID, p)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return page, nil
}

func (s *periodService) Recent(ctx context.Context, userID uuid.UUID) (*model.Period, error) {
	period, err := s.periods.Latest(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("recent period: %w", err)
	}
	return period, nil
}

// IntensityCounts expands every period that started within the last year into
// its days and reports each day's flow ordinal. When periods overlap, the one
// starting later (or created later on a tie) decides the day.
func (s *periodService) IntensityCounts(ctx context.Context, userID uuid.UUID) ([]DateIntensityCount, error) {
	since := model.DateOf(s.now()).AddDays(-IntensityWindowDays)
	periods, err := s.periods.StartedSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("intensity counts: %w", err)
	}

	byDay := map[model.Date]int{}
	for _, p := range periods {
		ordinal := 0
		if p.FlowIntensity != nil {
			ordinal = p.FlowIntensity.Ordinal()
		}
		last := p.LastDay()
		for day := p.StartDate; !day.After(last); day = day.AddDays(1) {
			byDay[day] = ordinal
		}
	}

	counts := make([]DateIntensityCount, 0, len(byDay))
	for day, count := range byDay {
		counts = append(counts, DateIntensityCount{Date: day, Count: count})
	}
	slices.SortFunc(counts, func(a, b DateIntensityCount) int {
		return a.Date.Compare(b.Date.Time)
	})
	return counts, nil
}

func (p PeriodPatch) validate() error {
	if p.StartDate.Set && p.StartDate.Value == nil {
		return fmt.Errorf("%w: start_date cannot be null", apperrors.ErrValidation)
	}
	if p.FlowIntensity.Set {
		if err := validateFlow(p.FlowIntensity.Value); err != nil {
			return err
		}
	}
	if p.Notes.Set {
		if err := validateNotes(p.Notes.Value); err != nil {
			return err
		}
	}
	return nil
}

func (p PeriodPatch) columns() repository.Patch {
	columns := repository.Patch{}
	if p.StartDate.Set {
		columns["start_date"] = *p.StartDate.Value
	}
	if p.EndDate.Set {
		columns["end_date"] = nullable(p.EndDate.Value)
	}
	if p.FlowIntensity.Set {
		columns["flow_intensity"] = nullable(p.FlowIntensity.Value)
	}
	if p.Notes.Set {
		columns["notes"] = nullable(p.Notes.Value)
	}
	return columns
}

// nullable turns a nil pointer into an untyped nil so it is written as NULL.
func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func validateDates(start model.Date, end *model.Date) error {
	if end != nil && end.Before(start) {
		return fmt.Errorf("%w: end_date %s is before start_date %s", apperrors.ErrValidation, end, start)
	}
	return nil
}

func validateFlow(f *model.FlowIntensity) error {
	if f != nil && !f.Valid() {
		return fmt.Errorf("%w: flow_intensity must be Light, Medium or Heavy", apperrors.ErrValidation)
	}
	return nil
}

func validateNotes(notes *string) error {
	if notes != nil && len(*notes) > maxNotesLength {
		return fmt.Errorf("%w: notes exceed %d characters", apperrors.ErrValidation, maxNotesLength)
	}
	return nil
}

func buildSymptoms(in []SymptomInput) ([]model.Symptom, error) {
	symptoms := make([]model.Symptom, 0, len(in))
	for _, si := range in {
		if si.Name == "" || len(si.Name) > maxSymptomName {
			return nil, fmt.Errorf("%w: symptom name must be 1 to %d characters", apperrors.ErrValidation, maxSymptomName)
		}
		if si.Intensity != nil && len(*si.Intensity) > maxSymptomSeverity {
			return nil, fmt.Errorf("%w: symptom intensity exceeds %d characters", apperrors.ErrValidation, maxSymptomSeverity)
		}
		if err := validateNotes(si.Notes); err != nil {
			return nil, err
		}
		symptoms = append(symptoms, model.Symptom{
			Name:      si.Name,
			Intensity: si.Intensity,
			Notes:     si.Notes,
		})
	}
	return symptoms, nil
}
