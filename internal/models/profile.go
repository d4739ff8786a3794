package models

import "time"

// Profile holds onboarding details keyed by user ID.
type Profile struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	FullName    string    `json:"full_name"`
	Phone       string    `json:"phone"`
	Preferences string    `json:"preferences" gorm:"type:text"` // JSON document
	UpdatedAt   time.Time `json:"updated_at"`
}
