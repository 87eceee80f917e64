package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Symptom is a named observation attached to a period.
type Symptom struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	PeriodID  uuid.UUID `json:"period_id" gorm:"type:char(36);not null;index"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Intensity *string   `json:"intensity" gorm:"size:100"`
	Notes     *string   `json:"notes" gorm:"size:500"`
}

// BeforeCreate sets UUID before creating the record.
func (s *Symptom) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
