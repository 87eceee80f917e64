package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FlowIntensity grades the menstrual flow of a period.
type FlowIntensity string

const (
	FlowLight  FlowIntensity = "Light"
	FlowMedium FlowIntensity = "Medium"
	FlowHeavy  FlowIntensity = "Heavy"
)

// Valid reports whether f is one of the known grades.
func (f FlowIntensity) Valid() bool {
	switch f {
	case FlowLight, FlowMedium, FlowHeavy:
		return true
	}
	return false
}

// Ordinal returns 0 for Light, 1 for Medium and 2 for Heavy.
func (f FlowIntensity) Ordinal() int {
	switch f {
	case FlowMedium:
		return 1
	case FlowHeavy:
		return 2
	default:
		return 0
	}
}

// Period is one recorded menstruation, owned by a single user.
type Period struct {
	ID            uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	UserID        uuid.UUID      `json:"user_id" gorm:"type:char(36);not null;index"`
	StartDate     Date           `json:"start_date" gorm:"not null;index"`
	EndDate       *Date          `json:"end_date"`
	FlowIntensity *FlowIntensity `json:"flow_intensity" gorm:"size:10"`
	Notes         *string        `json:"notes" gorm:"size:500"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`

	// Relations
	Symptoms []Symptom `json:"symptoms" gorm:"foreignKey:PeriodID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Period) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// LastDay returns the end date, or the start date for an open period.
func (p *Period) LastDay() Date {
	if p.EndDate != nil {
		return *p.EndDate
	}
	return p.StartDate
}
