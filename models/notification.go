package models

import (
	"time"
)

// Notification event types emitted by the core. Delivery is fire-and-forget;
// nothing in the core depends on it.
const (
	NotifyDepositSubmitted    = "deposit_submitted"
	NotifyDepositApproved     = "deposit_approved"
	NotifyDepositRejected     = "deposit_rejected"
	NotifySessionScheduled    = "session_scheduled"
	NotifySessionEdited       = "session_edited"
	NotifySessionStarted      = "session_started"
	NotifySessionStarting     = "session_starting"
	NotifySessionFinalized    = "session_finalized"
	NotifyPlayerCheckedIn     = "player_checked_in"
	NotifyStackDisputed       = "stack_disputed"
	NotifyPlayerRemoved       = "player_removed"
	NotifyRebuyRequested      = "rebuy_requested"
	NotifyRebuyApproved       = "rebuy_approved"
	NotifyRebuyRejected       = "rebuy_rejected"
	NotifySubmissionSubmitted = "submission_submitted"
	NotifySubmissionValidated = "submission_validated"
	NotifySubmissionRejected  = "submission_rejected"
	NotifySeasonStarted       = "season_started"
	NotifySeasonEnded         = "season_ended"
)

// Notification is the in-app audit trail, one row per recipient.
type Notification struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	UserID      string     `json:"user_id" gorm:"not null;index"`
	Type        string     `json:"type" gorm:"not null"`
	PayloadJSON string     `json:"payload_json" gorm:"type:text"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}
