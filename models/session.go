package models

import (
	"time"
)

// Session states. Linear lifecycle, no cycles, no skips.
const (
	SessionStateScheduled  = "scheduled"
	SessionStateDealing    = "dealing"
	SessionStateInProgress = "in_progress"
	SessionStateClosing    = "closing"
	SessionStateFinalized  = "finalized"
)

// Session is one game night within a season. At most one non-finalized
// session per season.
type Session struct {
	ID       string `json:"id" gorm:"primaryKey"`
	SeasonID string `json:"season_id" gorm:"not null;index"`
	State    string `json:"state" gorm:"default:'scheduled'"`

	HostUserID string `json:"host_user_id" gorm:"not null"`

	// Scheduling — mutable only while state=scheduled
	ScheduledFor      *time.Time `json:"scheduled_for,omitempty"`
	Location          *string    `json:"location,omitempty"`
	ScheduledAt       time.Time  `json:"scheduled_at"`
	ScheduledByUserID string     `json:"scheduled_by_user_id" gorm:"not null"`

	// One (timestamp, actor) pair per transition
	StartedAt         *time.Time `json:"started_at,omitempty"`
	StartedByUserID   *string    `json:"started_by_user_id,omitempty"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	EndedByUserID     *string    `json:"ended_by_user_id,omitempty"`
	FinalizedAt       *time.Time `json:"finalized_at,omitempty"`
	FinalizedByUserID *string    `json:"finalized_by_user_id,omitempty"`

	// Set once the scheduler has emitted the session_starting reminder.
	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Participants []SessionParticipant `json:"participants,omitempty" gorm:"foreignKey:SessionID"`
}

const (
	ParticipantTypeMember         = "member"
	ParticipantTypeGuestUser      = "guest_user"
	ParticipantTypeGuestEphemeral = "guest_ephemeral"
)

// SessionParticipant is a roster entry for a single session. Removal is soft
// (removedAt) and permanent within the session.
type SessionParticipant struct {
	ID        string  `json:"id" gorm:"primaryKey"`
	SessionID string  `json:"session_id" gorm:"not null;index"`
	Type      string  `json:"type" gorm:"default:'member'"`
	UserID    *string `json:"user_id,omitempty"`    // member / guest_user
	GuestName *string `json:"guest_name,omitempty"` // guest_ephemeral

	// Snapshotted from the member's balance at check-in; never recomputed.
	StartingStackCents int64 `json:"starting_stack_cents"`

	CheckedInAt      *time.Time `json:"checked_in_at,omitempty"`
	ConfirmedStartAt *time.Time `json:"confirmed_start_at,omitempty"`
	StartDisputeNote *string    `json:"start_dispute_note,omitempty"`

	RemovedAt       *time.Time `json:"removed_at,omitempty"`
	RemovedByUserID *string    `json:"removed_by_user_id,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

const (
	InjectionTypeRebuy500      = "rebuy_500"
	InjectionTypeHalf250       = "half_250"
	InjectionTypeGuestBuyin500 = "guest_buyin_500"
)

const (
	InjectionStatusPending  = "pending"
	InjectionStatusApproved = "approved"
	InjectionStatusRejected = "rejected"
)

// InjectionAmountCents maps an injection type to its fixed amount. Amounts
// are never caller-supplied.
var InjectionAmountCents = map[string]int64{
	InjectionTypeRebuy500:      50000,
	InjectionTypeHalf250:       25000,
	InjectionTypeGuestBuyin500: 50000,
}

// SessionInjection is a rebuy or guest buy-in request. Only approved
// injections count toward totals. Review is terminal.
type SessionInjection struct {
	ID            string `json:"id" gorm:"primaryKey"`
	SessionID     string `json:"session_id" gorm:"not null;index"`
	ParticipantID string `json:"participant_id" gorm:"not null;index"`
	Type          string `json:"type" gorm:"not null"`
	AmountCents   int64  `json:"amount_cents" gorm:"not null"`

	RequestedByUserID *string   `json:"requested_by_user_id,omitempty"`
	RequestedAt       time.Time `json:"requested_at"`
	ProofPhotoURL     *string   `json:"proof_photo_url,omitempty"`

	Status           string     `json:"status" gorm:"default:'pending'"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	ReviewedByUserID *string    `json:"reviewed_by_user_id,omitempty"`
	ReviewNote       *string    `json:"review_note,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

const (
	SubmissionStatusPending   = "pending"
	SubmissionStatusValidated = "validated"
	SubmissionStatusRejected  = "rejected"
)

// EndingSubmission is a claimed final chip count with mandatory photo proof.
// A rejected submission is superseded by a brand-new row, never edited; the
// latest submittedAt per participant is the one that matters.
type EndingSubmission struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	SessionID         string    `json:"session_id" gorm:"not null;index"`
	ParticipantID     string    `json:"participant_id" gorm:"not null;index"`
	EndingStackCents  int64     `json:"ending_stack_cents" gorm:"not null"`
	PhotoURL          string    `json:"photo_url" gorm:"not null"`
	SubmittedAt       time.Time `json:"submitted_at"`
	SubmittedByUserID *string   `json:"submitted_by_user_id,omitempty"`
	Note              *string   `json:"note,omitempty"`

	Status           string     `json:"status" gorm:"default:'pending'"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	ReviewedByUserID *string    `json:"reviewed_by_user_id,omitempty"`
	ReviewNote       *string    `json:"review_note,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// SessionFinalizeNote records the treasurer's justification when a session is
// finalized despite an unbalanced sum of PnL. At most one per session.
type SessionFinalizeNote struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	SessionID       string    `json:"session_id" gorm:"uniqueIndex;not null"`
	Note            string    `json:"note" gorm:"not null"`
	CreatedByUserID string    `json:"created_by_user_id" gorm:"not null"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
}
