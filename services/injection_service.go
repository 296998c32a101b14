package services

import (
	"strings"
	"time"

	"poker-night-ledger/models"
	"poker-night-ledger/workers"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InjectionService handles rebuy and guest buy-in requests while a session is
// in progress. Amounts are fixed per type and never come from the caller.
type InjectionService struct {
	DB     *gorm.DB
	Notify *workers.Notifier
}

func NewInjectionService(db *gorm.DB, notify *workers.Notifier) *InjectionService {
	return &InjectionService{DB: db, Notify: notify}
}

// GetSessionInjections lists a session's injections, newest first.
func (s *InjectionService) GetSessionInjections(sessionID string) ([]models.SessionInjection, error) {
	var injections []models.SessionInjection
	err := s.DB.Where("session_id = ?", sessionID).
		Order("requested_at DESC").
		Find(&injections).Error
	return injections, err
}

// RequestRebuy records a pending injection for an active participant.
func (s *InjectionService) RequestRebuy(actorUserID, sessionID, participantID, injectionType string, proofPhotoURL *string) (*models.SessionInjection, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, err
	}
	amount, ok := models.InjectionAmountCents[injectionType]
	if !ok {
		return nil, ValidationError("unknown injection type %q", injectionType)
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
	if session.State != models.SessionStateInProgress {
		return nil, PreconditionError("rebuys are only open while in progress, session is %s", session.State)
	}

	participant, err := activeParticipant(s.DB, participantID)
	if err != nil {
		return nil, err
	}
	if participant.SessionID != sessionID {
		return nil, ValidationError("participant %s does not belong to this session", participantID)
	}

	injection := &models.SessionInjection{
		ID:                uuid.NewString(),
		SessionID:         sessionID,
		ParticipantID:     participant.ID,
		Type:              injectionType,
		AmountCents:       amount,
		RequestedByUserID: &actor.UserID,
		RequestedAt:       time.Now(),
		ProofPhotoURL:     proofPhotoURL,
		Status:            models.InjectionStatusPending,
	}
	if err := s.DB.Create(injection).Error; err != nil {
		return nil, err
	}

	s.Notify.Enqueue(workers.Event{
		Type:     models.NotifyRebuyRequested,
		SeasonID: session.SeasonID,
		Payload: map[string]interface{}{
			"session_id":   sessionID,
			"injection_id": injection.ID,
			"type":         injectionType,
			"amount_cents": amount,
		},
	})
	return injection, nil
}

// ReviewInjection approves or rejects a pending injection. Review is terminal
// and only possible while the session is still in progress; requests left
// pending when the session closes stay pending.
func (s *InjectionService) ReviewInjection(actorUserID, injectionID, action string, reviewNote *string) (*models.SessionInjection, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, err
	}
	if action != "approve" && action != "reject" {
		return nil, ValidationError("action must be approve or reject")
	}

	var injection models.SessionInjection
	if err := s.DB.First(&injection, "id = ?", injectionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NotFoundError("injection %s not found", injectionID)
		}
		return nil, err
	}

	unlock := lockSession(injection.SessionID)
	defer unlock()

	if err := s.DB.First(&injection, "id = ?", injectionID).Error; err != nil {
		return nil, err
	}
	if injection.Status != models.InjectionStatusPending {
		return nil, PreconditionError("injection already %s", injection.Status)
	}

	var session models.Session
	if err := s.DB.First(&session, "id = ?", injection.SessionID).Error; err != nil {
		return nil, err
	}
	if session.State != models.SessionStateInProgress {
		return nil, PreconditionError("reviews are only open while in progress, session is %s", session.State)
	}
	var season models.Season
	if err := s.DB.First(&season, "id = ?", session.SeasonID).Error; err != nil {
		return nil, err
	}
	if err := requireTreasurer(&season, actor); err != nil {
		return nil, err
	}

	status := models.InjectionStatusApproved
	eventType := models.NotifyRebuyApproved
	if action == "reject" {
		status = models.InjectionStatusRejected
		eventType = models.NotifyRebuyRejected
	}
	if reviewNote != nil {
		trimmed := strings.TrimSpace(*reviewNote)
		if trimmed == "" {
			reviewNote = nil
		} else {
			reviewNote = &trimmed
		}
	}

	now := time.Now()
	err = s.DB.Model(&injection).Updates(map[string]interface{}{
		"status":              status,
		"reviewed_at":         &now,
		"reviewed_by_user_id": actor.UserID,
		"review_note":         reviewNote,
	}).Error
	if err != nil {
		return nil, err
	}
	injection.Status = status
	injection.ReviewedAt = &now
	injection.ReviewedByUserID = &actor.UserID
	injection.ReviewNote = reviewNote

	target := ""
	if injection.RequestedByUserID != nil {
		target = *injection.RequestedByUserID
	}
	s.Notify.Enqueue(workers.Event{
		Type:         eventType,
		SeasonID:     session.SeasonID,
		TargetUserID: target,
		Payload: map[string]interface{}{
			"session_id":   session.ID,
			"injection_id": injection.ID,
			"amount_cents": injection.AmountCents,
		},
	})
	return &injection, nil
}

// ApprovedTotalCents sums a participant's approved injections. This is the
// only number that feeds total buy-in and PnL.
func ApprovedTotalCents(db *gorm.DB, participantID string) (int64, error) {
	var total int64
	err := db.Model(&models.SessionInjection{}).
		Where("participant_id = ? AND status = ?", participantID, models.InjectionStatusApproved).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&total).Error
	return total, err
}
