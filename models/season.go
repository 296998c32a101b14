package models

import (
	"time"
)

const (
	SeasonStatusSetup  = "setup"
	SeasonStatusActive = "active"
	SeasonStatusEnded  = "ended"
)

// Season is a multi-session buy-in period with one treasurer and a shared
// per-member balance. Only one non-ended season may exist at a time; the
// season service enforces that, not the database.
type Season struct {
	ID              string     `json:"id" gorm:"primaryKey"`
	Name            string     `json:"name"`
	Slug            string     `json:"slug" gorm:"index"`
	Status          string     `json:"status" gorm:"default:'setup'"`
	CreatedByUserID string     `json:"created_by_user_id" gorm:"not null"`
	TreasurerUserID string     `json:"treasurer_user_id" gorm:"not null"` // mutable only while status=setup
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`

	Members []SeasonMember `json:"members,omitempty" gorm:"foreignKey:SeasonID"`
}

const (
	ApprovalNotSubmitted = "not_submitted"
	ApprovalPending      = "pending"
	ApprovalApproved     = "approved"
	ApprovalRejected     = "rejected"
)

// SeasonMember is the per-season per-user record: deposit approval status plus
// the balance that persists across sessions. currentBalanceCents is rewritten
// (not incremented) at session finalize.
type SeasonMember struct {
	ID                  string     `json:"id" gorm:"primaryKey"`
	SeasonID            string     `json:"season_id" gorm:"not null;index"`
	UserID              string     `json:"user_id" gorm:"not null;index"`
	ApprovalStatus      string     `json:"approval_status" gorm:"default:'not_submitted'"`
	CurrentBalanceCents int64      `json:"current_balance_cents" gorm:"default:0"`
	ApprovedAt          *time.Time `json:"approved_at,omitempty"`
	ApprovedByUserID    *string    `json:"approved_by_user_id,omitempty"`
	RejectionNote       *string    `json:"rejection_note,omitempty"`
	CreatedAt           time.Time  `json:"created_at" gorm:"autoCreateTime"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

const (
	DepositStatusPending  = "pending"
	DepositStatusApproved = "approved"
	DepositStatusRejected = "rejected"
)

// SeasonDepositSubmission is one deposit proof photo per user per season.
// Review is terminal; a rejected deposit is resubmitted as a new row.
type SeasonDepositSubmission struct {
	ID               string     `json:"id" gorm:"primaryKey"`
	SeasonID         string     `json:"season_id" gorm:"not null;index"`
	UserID           string     `json:"user_id" gorm:"not null;index"`
	PhotoURL         string     `json:"photo_url" gorm:"not null"`
	Note             *string    `json:"note,omitempty"`
	Status           string     `json:"status" gorm:"default:'pending'"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	ReviewedByUserID *string    `json:"reviewed_by_user_id,omitempty"`
	ReviewNote       *string    `json:"review_note,omitempty"`
	CreatedAt        time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// SeasonHostOrder is the planning-only host rotation. Advisory: scheduling
// never validates against it.
type SeasonHostOrder struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	SeasonID  string    `json:"season_id" gorm:"not null;index"`
	UserID    string    `json:"user_id" gorm:"not null"`
	SortIndex int       `json:"sort_index" gorm:"column:sort_index;default:0"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
