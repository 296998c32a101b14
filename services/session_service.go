package services

import (
	"strings"
	"time"

	"poker-night-ledger/models"
	"poker-night-ledger/workers"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionService drives the session lifecycle:
//
//	scheduled → dealing → in_progress → closing → finalized
//
// Each transition checks the current state strictly, so a stale caller gets a
// precondition rejection instead of a silent double-apply.
type SessionService struct {
	DB     *gorm.DB
	Notify *workers.Notifier
}

func NewSessionService(db *gorm.DB, notify *workers.Notifier) *SessionService {
	return &SessionService{DB: db, Notify: notify}
}

// GetActiveSession returns the season's non-finalized session, or nil.
func (s *SessionService) GetActiveSession(seasonID string) (*models.Session, error) {
	var session models.Session
	err := s.DB.Where("season_id = ? AND state <> ?", seasonID, models.SessionStateFinalized).
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// GetSession loads a session by id.
func (s *SessionService) GetSession(sessionID string) (*models.Session, error) {
	var session models.Session
	if err := s.DB.First(&session, "id = ?", sessionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NotFoundError("session %s not found", sessionID)
		}
		return nil, err
	}
	return &session, nil
}

// sessionWithSeason loads a session and its season for the mutation paths.
// A session stranded by an ended season is frozen where it stands; nothing
// may write balances into a closed ledger.
func (s *SessionService) sessionWithSeason(sessionID string) (*models.Session, *models.Season, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return nil, nil, err
	}
	var season models.Season
	if err := s.DB.First(&season, "id = ?", session.SeasonID).Error; err != nil {
		return nil, nil, err
	}
	if season.Status == models.SeasonStatusEnded {
		return nil, nil, PreconditionError("season has ended")
	}
	return session, &season, nil
}

// ScheduleSession creates a session in scheduled state. The season must be
// active and must not already have a non-finalized session.
func (s *SessionService) ScheduleSession(actorUserID, seasonID, hostUserID string, scheduledFor *time.Time, location *string) (*models.Session, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, err
	}
	var season models.Season
	if err := s.DB.First(&season, "id = ?", seasonID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NotFoundError("season %s not found", seasonID)
		}
		return nil, err
	}
	if err := requireTreasurer(&season, actor); err != nil {
		return nil, err
	}
	if season.Status != models.SeasonStatusActive {
		return nil, ConflictError("season is %s, not active", season.Status)
	}
	var host models.User
	if err := s.DB.First(&host, "id = ?", hostUserID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ValidationError("host user %s not found", hostUserID)
		}
		return nil, err
	}

	existing, err := s.GetActiveSession(seasonID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ConflictError("a non-finalized session already exists for this season")
	}

	session := &models.Session{
		ID:                uuid.NewString(),
		SeasonID:          seasonID,
		State:             models.SessionStateScheduled,
		HostUserID:        host.ID,
		ScheduledFor:      scheduledFor,
		Location:          location,
		ScheduledAt:       time.Now(),
		ScheduledByUserID: actor.UserID,
	}
	if err := s.DB.Create(session).Error; err != nil {
		return nil, err
	}

	s.Notify.Enqueue(workers.Event{
		Type:     models.NotifySessionScheduled,
		SeasonID: seasonID,
		Payload:  map[string]interface{}{"session_id": session.ID, "host_user_id": host.ID},
	})
	return session, nil
}

// UpdateScheduledSessionInput carries partial edits to a scheduled session.
// Nil pointer fields are left unchanged; the Clear flags null a field out.
type UpdateScheduledSessionInput struct {
	HostUserID        *string
	ScheduledFor      *time.Time
	ClearScheduledFor bool
	Location          *string
	ClearLocation     bool
}

// UpdateScheduledSession edits host/time/location. Fails once the session has
// advanced past scheduled.
func (s *SessionService) UpdateScheduledSession(actorUserID, sessionID string, input UpdateScheduledSessionInput) (*models.Session, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, err
	}
	unlock := lockSession(sessionID)
	defer unlock()

	session, season, err := s.sessionWithSeason(sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireTreasurer(season, actor); err != nil {
		return nil, err
	}
	if session.State != models.SessionStateScheduled {
		return nil, PreconditionError("session is %s; scheduling details are locked", session.State)
	}

	updates := map[string]interface{}{}
	if input.HostUserID != nil {
		var host models.User
		if err := s.DB.First(&host, "id = ?", *input.HostUserID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, ValidationError("host user %s not found", *input.HostUserID)
			}
			return nil, err
		}
		updates["host_user_id"] = host.ID
	}
	if input.ClearScheduledFor {
		updates["scheduled_for"] = nil
	} else if input.ScheduledFor != nil {
		updates["scheduled_for"] = input.ScheduledFor
	}
	if input.ClearLocation {
		updates["location"] = nil
	} else if input.Location != nil {
		updates["location"] = input.Location
	}
	if len(updates) == 0 {
		return session, nil
	}

	if err := s.DB.Model(session).Updates(updates).Error; err != nil {
		return nil, err
	}
	session, err = s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	s.Notify.Enqueue(workers.Event{
		Type:     models.NotifySessionEdited,
		SeasonID: session.SeasonID,
		Payload:  map[string]interface{}{"session_id": session.ID},
	})
	return session, nil
}

// StartSession moves scheduled → dealing. No roster checks here; rostering
// happens during dealing.
func (s *SessionService) StartSession(actorUserID, sessionID string) (*models.Session, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, err
	}
	unlock := lockSession(sessionID)
	defer unlock()

	session, season, err := s.sessionWithSeason(sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireTreasurer(season, actor); err != nil {
		return nil, err
	}
	if session.State != models.SessionStateScheduled {
		return nil, PreconditionError("cannot start a session in state %s", session.State)
	}

	now := time.Now()
	if err := s.DB.Model(session).Updates(map[string]interface{}{
		"state":              models.SessionStateDealing,
		"started_at":         &now,
		"started_by_user_id": actor.UserID,
	}).Error; err != nil {
		return nil, err
	}
	session.State = models.SessionStateDealing
	session.StartedAt = &now
	session.StartedByUserID = &actor.UserID

	s.Notify.Enqueue(workers.Event{
		Type:     models.NotifySessionStarted,
		SeasonID: session.SeasonID,
		Payload:  map[string]interface{}{"session_id": session.ID},
	})
	return session, nil
}

// MoveToInProgress moves dealing → in_progress once the roster is ready:
// at least two checked-in participants, all of them confirmed, none disputed.
func (s *SessionService) MoveToInProgress(actorUserID, sessionID string) (*models.Session, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, err
	}
	unlock := lockSession(sessionID)
	defer unlock()

	session, season, err := s.sessionWithSeason(sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireTreasurer(season, actor); err != nil {
		return nil, err
	}
	if session.State != models.SessionStateDealing {
		return nil, PreconditionError("cannot move a %s session to in_progress", session.State)
	}

	participants, err := activeParticipants(s.DB, sessionID)
	if err != nil {
		return nil, err
	}
	checkedIn := 0
	unconfirmed := 0
	disputed := 0
	for _, p := range participants {
		if p.CheckedInAt == nil {
			continue
		}
		checkedIn++
		if p.StartDisputeNote != nil {
			disputed++
		} else if p.ConfirmedStartAt == nil {
			unconfirmed++
		}
	}
	if checkedIn < 2 {
		return nil, PreconditionError("need at least 2 checked-in players, have %d", checkedIn)
	}
	if disputed > 0 {
		return nil, PreconditionError("%d player(s) dispute their starting stack", disputed)
	}
	if unconfirmed > 0 {
		return nil, PreconditionError("%d player(s) have not confirmed their starting stack", unconfirmed)
	}

	if err := s.DB.Model(session).Update("state", models.SessionStateInProgress).Error; err != nil {
		return nil, err
	}
	session.State = models.SessionStateInProgress
	return session, nil
}

// EndSession moves in_progress → closing. No readiness precondition: the
// treasurer may end at will, and pending injections stay pending.
func (s *SessionService) EndSession(actorUserID, sessionID string) (*models.Session, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, err
	}
	unlock := lockSession(sessionID)
	defer unlock()

	session, season, err := s.sessionWithSeason(sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireTreasurer(season, actor); err != nil {
		return nil, err
	}
	if session.State != models.SessionStateInProgress {
		return nil, PreconditionError("cannot end a session in state %s", session.State)
	}

	now := time.Now()
	if err := s.DB.Model(session).Updates(map[string]interface{}{
		"state":            models.SessionStateClosing,
		"ended_at":         &now,
		"ended_by_user_id": actor.UserID,
	}).Error; err != nil {
		return nil, err
	}
	session.State = models.SessionStateClosing
	session.EndedAt = &now
	session.EndedByUserID = &actor.UserID
	return session, nil
}

// FinalizeSession moves closing → finalized and writes results back into the
// season ledger. Every active participant needs a validated ending submission;
// an unbalanced sum of PnL requires a non-empty override note, which is
// persisted as the session's finalize note.
func (s *SessionService) FinalizeSession(actorUserID, sessionID, overrideNote string) (*models.Session, []models.SeasonMember, *models.SessionFinalizeNote, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, nil, nil, err
	}
	unlock := lockSession(sessionID)
	defer unlock()

	session, season, err := s.sessionWithSeason(sessionID)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := requireTreasurer(season, actor); err != nil {
		return nil, nil, nil, err
	}
	if session.State != models.SessionStateClosing {
		return nil, nil, nil, PreconditionError("cannot finalize a session in state %s", session.State)
	}

	check, err := balanceCheck(s.DB, sessionID)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, r := range check.Participants {
		if !r.HasValidatedSubmission {
			return nil, nil, nil, PreconditionError("participant %s has no validated ending submission", r.ParticipantID)
		}
	}

	overrideNote = strings.TrimSpace(overrideNote)
	var finalizeNote *models.SessionFinalizeNote
	if check.SumPnlCents != 0 {
		if overrideNote == "" {
			return nil, nil, nil, PreconditionError("session does not balance (sum of PnL is %d cents); an override note is required", check.SumPnlCents)
		}
		finalizeNote = &models.SessionFinalizeNote{
			ID:              uuid.NewString(),
			SessionID:       sessionID,
			Note:            overrideNote,
			CreatedByUserID: actor.UserID,
		}
	}

	now := time.Now()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(session).Updates(map[string]interface{}{
			"state":                models.SessionStateFinalized,
			"finalized_at":         &now,
			"finalized_by_user_id": actor.UserID,
		}).Error; err != nil {
			return err
		}
		if finalizeNote != nil {
			if err := tx.Create(finalizeNote).Error; err != nil {
				return err
			}
		}
		// New baseline: each member's balance becomes what they walked away
		// with, not balance+PnL.
		for _, r := range check.Participants {
			if r.UserID == nil || !r.HasValidatedSubmission {
				continue
			}
			var member models.SeasonMember
			if err := tx.Where("season_id = ? AND user_id = ?", session.SeasonID, *r.UserID).
				First(&member).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					continue // guest_user without a season membership
				}
				return err
			}
			if err := tx.Model(&member).
				Update("current_balance_cents", r.EndingStackCents).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}

	session, err = s.GetSession(sessionID)
	if err != nil {
		return nil, nil, nil, err
	}
	var members []models.SeasonMember
	if err := s.DB.Where("season_id = ?", session.SeasonID).Find(&members).Error; err != nil {
		return nil, nil, nil, err
	}

	s.Notify.Enqueue(workers.Event{
		Type:     models.NotifySessionFinalized,
		SeasonID: session.SeasonID,
		Payload: map[string]interface{}{
			"session_id":    session.ID,
			"sum_pnl_cents": check.SumPnlCents,
			"overridden":    finalizeNote != nil,
		},
	})
	return session, members, finalizeNote, nil
}

// GetFinalizeNote returns the override note for a session, or nil.
func (s *SessionService) GetFinalizeNote(sessionID string) (*models.SessionFinalizeNote, error) {
	var note models.SessionFinalizeNote
	if err := s.DB.First(&note, "session_id = ?", sessionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}
