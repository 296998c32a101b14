package services

import (
	"strings"
	"time"

	"poker-night-ledger/models"
	"poker-night-ledger/workers"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SettlementService handles ending-stack submissions and their review while a
// session is closing, and computes the balance check that finalize relies on.
type SettlementService struct {
	DB     *gorm.DB
	Notify *workers.Notifier
}

func NewSettlementService(db *gorm.DB, notify *workers.Notifier) *SettlementService {
	return &SettlementService{DB: db, Notify: notify}
}

// GetEndingSubmissions lists a session's submissions, newest first.
func (s *SettlementService) GetEndingSubmissions(sessionID string) ([]models.EndingSubmission, error) {
	var submissions []models.EndingSubmission
	err := s.DB.Where("session_id = ?", sessionID).
		Order("submitted_at DESC").
		Find(&submissions).Error
	return submissions, err
}

// SubmitEndingStack records a claimed final chip count with photo proof.
// Anyone may submit on a participant's behalf; a rejected count is replaced by
// submitting again, never by editing.
func (s *SettlementService) SubmitEndingStack(actorUserID, sessionID, participantID string, endingStackCents int64, photoURL string, note *string) (*models.EndingSubmission, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, err
	}
	if endingStackCents < 0 {
		return nil, ValidationError("ending stack cannot be negative")
	}
	photoURL = strings.TrimSpace(photoURL)
	if photoURL == "" {
		return nil, ValidationError("a proof photo is required")
	}

	unlock := lockSession(sessionID)
	defer unlock()

	var session models.Session
	if err := s.DB.First(&session, "id = ?", sessionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NotFoundError("session %s not found", sessionID)
		}
		return nil, err
	}
	if session.State != models.SessionStateClosing {
		return nil, PreconditionError("ending stacks are only accepted while closing, session is %s", session.State)
	}

	participant, err := activeParticipant(s.DB, participantID)
	if err != nil {
		return nil, err
	}
	if participant.SessionID != sessionID {
		return nil, ValidationError("participant %s does not belong to this session", participantID)
	}

	submission := &models.EndingSubmission{
		ID:                uuid.NewString(),
		SessionID:         sessionID,
		ParticipantID:     participant.ID,
		EndingStackCents:  endingStackCents,
		PhotoURL:          photoURL,
		SubmittedAt:       time.Now(),
		SubmittedByUserID: &actor.UserID,
		Note:              note,
		Status:            models.SubmissionStatusPending,
	}
	if err := s.DB.Create(submission).Error; err != nil {
		return nil, err
	}

	s.Notify.Enqueue(workers.Event{
		Type:     models.NotifySubmissionSubmitted,
		SeasonID: session.SeasonID,
		Payload: map[string]interface{}{
			"session_id":    sessionID,
			"submission_id": submission.ID,
			"ending_cents":  endingStackCents,
		},
	})
	return submission, nil
}

// ReviewEndingSubmission validates or rejects a pending submission. Any
// pending submission may be reviewed, not just the latest; rejection requires
// a note so the player knows what to fix.
func (s *SettlementService) ReviewEndingSubmission(actorUserID, submissionID, action string, reviewNote *string) (*models.EndingSubmission, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, err
	}
	if action != "validate" && action != "reject" {
		return nil, ValidationError("action must be validate or reject")
	}
	if reviewNote != nil {
		trimmed := strings.TrimSpace(*reviewNote)
		if trimmed == "" {
			reviewNote = nil
		} else {
			reviewNote = &trimmed
		}
	}
	if action == "reject" && reviewNote == nil {
		return nil, ValidationError("a rejection note is required")
	}

	var submission models.EndingSubmission
	if err := s.DB.First(&submission, "id = ?", submissionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NotFoundError("submission %s not found", submissionID)
		}
		return nil, err
	}

	unlock := lockSession(submission.SessionID)
	defer unlock()

	if err := s.DB.First(&submission, "id = ?", submissionID).Error; err != nil {
		return nil, err
	}
	if submission.Status != models.SubmissionStatusPending {
		return nil, PreconditionError("submission already %s", submission.Status)
	}

	var session models.Session
	if err := s.DB.First(&session, "id = ?", submission.SessionID).Error; err != nil {
		return nil, err
	}
	if session.State != models.SessionStateClosing {
		return nil, PreconditionError("reviews are only open while closing, session is %s", session.State)
	}
	var season models.Season
	if err := s.DB.First(&season, "id = ?", session.SeasonID).Error; err != nil {
		return nil, err
	}
	if err := requireTreasurer(&season, actor); err != nil {
		return nil, err
	}

	status := models.SubmissionStatusValidated
	eventType := models.NotifySubmissionValidated
	if action == "reject" {
		status = models.SubmissionStatusRejected
		eventType = models.NotifySubmissionRejected
	}

	now := time.Now()
	err = s.DB.Model(&submission).Updates(map[string]interface{}{
		"status":              status,
		"reviewed_at":         &now,
		"reviewed_by_user_id": actor.UserID,
		"review_note":         reviewNote,
	}).Error
	if err != nil {
		return nil, err
	}
	submission.Status = status
	submission.ReviewedAt = &now
	submission.ReviewedByUserID = &actor.UserID
	submission.ReviewNote = reviewNote

	target := ""
	if submission.SubmittedByUserID != nil {
		target = *submission.SubmittedByUserID
	}
	s.Notify.Enqueue(workers.Event{
		Type:         eventType,
		SeasonID:     session.SeasonID,
		TargetUserID: target,
		Payload: map[string]interface{}{
			"session_id":    session.ID,
			"submission_id": submission.ID,
		},
	})
	return &submission, nil
}

// ParticipantBalance is one active participant's settlement line.
type ParticipantBalance struct {
	ParticipantID          string  `json:"participant_id"`
	UserID                 *string `json:"user_id,omitempty"`
	GuestName              *string `json:"guest_name,omitempty"`
	StartingStackCents     int64   `json:"starting_stack_cents"`
	ApprovedInjectionCents int64   `json:"approved_injection_cents"`
	HasValidatedSubmission bool    `json:"has_validated_submission"`
	EndingStackCents       int64   `json:"ending_stack_cents"`
	PnlCents               int64   `json:"pnl_cents"`
}

// BalanceCheckResult is the settlement view of a whole session.
type BalanceCheckResult struct {
	Participants []ParticipantBalance `json:"participants"`
	SumPnlCents  int64                `json:"sum_pnl_cents"`
	IsBalanced   bool                 `json:"is_balanced"`
}

// BalanceCheck computes per-participant PnL and whether the session sums to
// zero. Participants without a validated submission count as ending with 0
// for display, but block finalization.
func (s *SettlementService) BalanceCheck(sessionID string) (*BalanceCheckResult, error) {
	if _, err := s.loadSession(sessionID); err != nil {
		return nil, err
	}
	return balanceCheck(s.DB, sessionID)
}

func (s *SettlementService) loadSession(sessionID string) (*models.Session, error) {
	var session models.Session
	if err := s.DB.First(&session, "id = ?", sessionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NotFoundError("session %s not found", sessionID)
		}
		return nil, err
	}
	return &session, nil
}

func balanceCheck(db *gorm.DB, sessionID string) (*BalanceCheckResult, error) {
	participants, err := activeParticipants(db, sessionID)
	if err != nil {
		return nil, err
	}

	result := &BalanceCheckResult{Participants: make([]ParticipantBalance, 0, len(participants))}
	for _, p := range participants {
		approved, err := ApprovedTotalCents(db, p.ID)
		if err != nil {
			return nil, err
		}
		row := ParticipantBalance{
			ParticipantID:          p.ID,
			UserID:                 p.UserID,
			GuestName:              p.GuestName,
			StartingStackCents:     p.StartingStackCents,
			ApprovedInjectionCents: approved,
		}

		latest, err := latestValidatedSubmission(db, p.ID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			row.HasValidatedSubmission = true
			row.EndingStackCents = latest.EndingStackCents
			row.PnlCents = latest.EndingStackCents - p.StartingStackCents - approved
			result.SumPnlCents += row.PnlCents
		}
		result.Participants = append(result.Participants, row)
	}
	result.IsBalanced = result.SumPnlCents == 0
	return result, nil
}

// latestValidatedSubmission returns the participant's most recent validated
// submission by submittedAt, or nil.
func latestValidatedSubmission(db *gorm.DB, participantID string) (*models.EndingSubmission, error) {
	var submission models.EndingSubmission
	err := db.Where("participant_id = ? AND status = ?", participantID, models.SubmissionStatusValidated).
		Order("submitted_at DESC").
		First(&submission).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &submission, nil
}
