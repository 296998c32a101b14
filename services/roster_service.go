package services

import (
	"strings"
	"time"

	"poker-night-ledger/models"
	"poker-night-ledger/workers"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Derived participant statuses. Never stored; always computed from the
// nullable fields via ParticipantStatus.
const (
	ParticipantStatusNotHere   = "not_here"
	ParticipantStatusCheckedIn = "checked_in"
	ParticipantStatusConfirmed = "confirmed"
	ParticipantStatusDisputed  = "disputed"
)

// ParticipantStatus derives a participant's roster status. A dispute note
// outranks a confirmation; the mutation paths keep the two mutually exclusive,
// so the precedence here only matters for rows written by hand.
func ParticipantStatus(p *models.SessionParticipant) string {
	if p.CheckedInAt == nil {
		return ParticipantStatusNotHere
	}
	if p.StartDisputeNote != nil {
		return ParticipantStatusDisputed
	}
	if p.ConfirmedStartAt != nil {
		return ParticipantStatusConfirmed
	}
	return ParticipantStatusCheckedIn
}

// activeParticipants is the one place the removedAt filter lives. Every
// roster read, injection check, and settlement total goes through it.
func activeParticipants(db *gorm.DB, sessionID string) ([]models.SessionParticipant, error) {
	var participants []models.SessionParticipant
	err := db.Where("session_id = ? AND removed_at IS NULL", sessionID).
		Order("created_at ASC").
		Find(&participants).Error
	return participants, err
}

func activeParticipant(db *gorm.DB, participantID string) (*models.SessionParticipant, error) {
	var p models.SessionParticipant
	if err := db.First(&p, "id = ?", participantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NotFoundError("participant %s not found", participantID)
		}
		return nil, err
	}
	if p.RemovedAt != nil {
		return nil, PreconditionError("participant has been removed from the session")
	}
	return &p, nil
}

// RosterService manages who is at the table while a session is dealing.
type RosterService struct {
	DB     *gorm.DB
	Notify *workers.Notifier
}

func NewRosterService(db *gorm.DB, notify *workers.Notifier) *RosterService {
	return &RosterService{DB: db, Notify: notify}
}

// GetSessionParticipants returns the active roster.
func (s *RosterService) GetSessionParticipants(sessionID string) ([]models.SessionParticipant, error) {
	return activeParticipants(s.DB, sessionID)
}

// requireDealing loads the session and rejects roster mutations once it has
// left the dealing phase. After that point the roster is part of the
// accounting and only settlement may touch the money.
func (s *RosterService) requireDealing(sessionID string) (*models.Session, error) {
	var session models.Session
	if err := s.DB.First(&session, "id = ?", sessionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NotFoundError("session %s not found", sessionID)
		}
		return nil, err
	}
	if session.State != models.SessionStateDealing {
		return nil, PreconditionError("roster changes are only open while dealing, session is %s", session.State)
	}
	return &session, nil
}

// CheckIn seats an approved season member at a dealing session. Their starting
// stack is snapshotted from the season balance at this instant and never
// recomputed.
func (s *RosterService) CheckIn(sessionID, actorUserID string) (*models.SessionParticipant, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, err
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
	if session.State != models.SessionStateDealing {
		return nil, PreconditionError("check-in is only open while dealing, session is %s", session.State)
	}

	var member models.SeasonMember
	err = s.DB.Where("season_id = ? AND user_id = ?", session.SeasonID, actor.UserID).
		First(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, AuthorizationError("not a member of this season")
		}
		return nil, err
	}
	if member.ApprovalStatus != models.ApprovalApproved {
		return nil, AuthorizationError("season membership is %s, not approved", member.ApprovalStatus)
	}

	var prior []models.SessionParticipant
	err = s.DB.Where("session_id = ? AND user_id = ?", sessionID, actor.UserID).
		Find(&prior).Error
	if err != nil {
		return nil, err
	}
	for _, row := range prior {
		if row.RemovedAt == nil {
			return nil, ConflictError("already checked in to this session")
		}
		// removal is permanent within a session, no fresh snapshot
		return nil, PreconditionError("removed from this session")
	}

	now := time.Now()
	participant := &models.SessionParticipant{
		ID:                 uuid.NewString(),
		SessionID:          sessionID,
		Type:               models.ParticipantTypeMember,
		UserID:             &actor.UserID,
		StartingStackCents: member.CurrentBalanceCents,
		CheckedInAt:        &now,
	}
	if err := s.DB.Create(participant).Error; err != nil {
		return nil, err
	}

	s.Notify.Enqueue(workers.Event{
		Type:     models.NotifyPlayerCheckedIn,
		SeasonID: session.SeasonID,
		Payload:  map[string]interface{}{"session_id": sessionID, "user_id": actor.UserID},
	})
	return participant, nil
}

// ConfirmStart records agreement with the snapshotted starting stack and
// clears any earlier dispute. Latest action wins.
func (s *RosterService) ConfirmStart(participantID string) (*models.SessionParticipant, error) {
	p, err := activeParticipant(s.DB, participantID)
	if err != nil {
		return nil, err
	}
	unlock := lockSession(p.SessionID)
	defer unlock()

	p, err = activeParticipant(s.DB, participantID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireDealing(p.SessionID); err != nil {
		return nil, err
	}
	if p.CheckedInAt == nil {
		return nil, PreconditionError("participant has not checked in")
	}
	if p.ConfirmedStartAt != nil {
		return nil, PreconditionError("starting stack already confirmed")
	}

	now := time.Now()
	err = s.DB.Model(p).Updates(map[string]interface{}{
		"confirmed_start_at": &now,
		"start_dispute_note": nil,
	}).Error
	if err != nil {
		return nil, err
	}
	p.ConfirmedStartAt = &now
	p.StartDisputeNote = nil
	return p, nil
}

// DisputeStart records disagreement with the snapshotted starting stack and
// clears any earlier confirmation. The dispute blocks moveToInProgress until
// the participant re-confirms.
func (s *RosterService) DisputeStart(participantID, note string) (*models.SessionParticipant, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, ValidationError("dispute note is required")
	}
	p, err := activeParticipant(s.DB, participantID)
	if err != nil {
		return nil, err
	}
	unlock := lockSession(p.SessionID)
	defer unlock()

	p, err = activeParticipant(s.DB, participantID)
	if err != nil {
		return nil, err
	}
	session, err := s.requireDealing(p.SessionID)
	if err != nil {
		return nil, err
	}
	if p.CheckedInAt == nil {
		return nil, PreconditionError("participant has not checked in")
	}

	err = s.DB.Model(p).Updates(map[string]interface{}{
		"start_dispute_note": note,
		"confirmed_start_at": nil,
	}).Error
	if err != nil {
		return nil, err
	}
	p.StartDisputeNote = &note
	p.ConfirmedStartAt = nil

	s.Notify.Enqueue(workers.Event{
		Type:     models.NotifyStackDisputed,
		SeasonID: session.SeasonID,
		Payload:  map[string]interface{}{"session_id": p.SessionID, "participant_id": p.ID},
	})
	return p, nil
}

// RemoveParticipant soft-deletes a roster entry. There is no undo and no
// re-check-in for this session; the balance snapshot cannot be re-gamed.
func (s *RosterService) RemoveParticipant(participantID, actorUserID string) (*models.SessionParticipant, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, err
	}
	p, err := activeParticipant(s.DB, participantID)
	if err != nil {
		return nil, err
	}
	unlock := lockSession(p.SessionID)
	defer unlock()

	p, err = activeParticipant(s.DB, participantID)
	if err != nil {
		return nil, err
	}

	session, err := s.requireDealing(p.SessionID)
	if err != nil {
		return nil, err
	}
	var season models.Season
	if err := s.DB.First(&season, "id = ?", session.SeasonID).Error; err != nil {
		return nil, err
	}
	if err := requireTreasurer(&season, actor); err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.DB.Model(p).Updates(map[string]interface{}{
		"removed_at":         &now,
		"removed_by_user_id": actor.UserID,
	}).Error
	if err != nil {
		return nil, err
	}
	p.RemovedAt = &now
	p.RemovedByUserID = &actor.UserID

	s.Notify.Enqueue(workers.Event{
		Type:     models.NotifyPlayerRemoved,
		SeasonID: session.SeasonID,
		Payload:  map[string]interface{}{"session_id": p.SessionID, "participant_id": p.ID},
	})
	return p, nil
}
