package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account holder that owns period records.
type User struct {
	ID             uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Email          string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	FirstName      string     `json:"first_name" gorm:"size:255;not null"`
	LastName       string     `json:"last_name" gorm:"size:255;not null"`
	HashedPassword string     `json:"-" gorm:"size:1024;not null"` // Never expose in JSON
	IsActive       bool       `json:"is_active" gorm:"not null"`
	IsSuperuser    bool       `json:"is_superuser" gorm:"not null"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastLogin      *time.Time `json:"last_login"`

	// Relations
	Periods []Period `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
