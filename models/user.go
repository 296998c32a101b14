package models

import (
	"time"
)

// User is an allowlisted identity for the group. Rows are pre-seeded with the
// group's emails; the gateway resolves tokens to one of these ids.
type User struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Email       string    `json:"email" gorm:"uniqueIndex;not null"` // normalized lowercase
	DisplayName string    `json:"display_name" gorm:"not null"`
	IsAdmin     bool      `json:"is_admin" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}
