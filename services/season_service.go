package services

import (
	"strings"
	"time"

	"poker-night-ledger/models"
	"poker-night-ledger/workers"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// seasonDepositCents is the fixed season buy-in (500 MXN). An approved
// deposit credits exactly this amount as the member's opening balance.
const seasonDepositCents int64 = 50000

type SeasonService struct {
	DB     *gorm.DB
	Notify *workers.Notifier
}

func NewSeasonService(db *gorm.DB, notify *workers.Notifier) *SeasonService {
	return &SeasonService{DB: db, Notify: notify}
}

// GetActiveSeason returns the one non-ended season with its members, or nil
// when none exists.
func (s *SeasonService) GetActiveSeason() (*models.Season, error) {
	var season models.Season
	err := s.DB.Preload("Members.User").
		Where("status <> ?", models.SeasonStatusEnded).
		First(&season).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &season, nil
}

// GetSeason loads a season by id.
func (s *SeasonService) GetSeason(seasonID string) (*models.Season, error) {
	var season models.Season
	if err := s.DB.Preload("Members").First(&season, "id = ?", seasonID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NotFoundError("season %s not found", seasonID)
		}
		return nil, err
	}
	return &season, nil
}

// GetUsers returns the allowlist.
func (s *SeasonService) GetUsers() ([]models.User, error) {
	var users []models.User
	if err := s.DB.Order("display_name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// CreateSeason creates a season in setup plus a not_submitted member row for
// every known user. Fails while another non-ended season exists.
func (s *SeasonService) CreateSeason(actorUserID, treasurerUserID, name string) (*models.Season, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, err
	}

	var treasurer models.User
	if err := s.DB.First(&treasurer, "id = ?", treasurerUserID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ValidationError("treasurer user %s not found", treasurerUserID)
		}
		return nil, err
	}

	var existing int64
	if err := s.DB.Model(&models.Season{}).
		Where("status <> ?", models.SeasonStatusEnded).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ConflictError("a non-ended season already exists")
	}

	name = strings.TrimSpace(name)
	season := &models.Season{
		ID:              uuid.NewString(),
		Name:            name,
		Slug:            slug.Make(name),
		Status:          models.SeasonStatusSetup,
		CreatedByUserID: actor.UserID,
		TreasurerUserID: treasurer.ID,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(season).Error; err != nil {
			return err
		}
		var users []models.User
		if err := tx.Find(&users).Error; err != nil {
			return err
		}
		for _, u := range users {
			member := models.SeasonMember{
				ID:             uuid.NewString(),
				SeasonID:       season.ID,
				UserID:         u.ID,
				ApprovalStatus: models.ApprovalNotSubmitted,
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.DB.Preload("Members.User").First(season, "id = ?", season.ID)
	return season, nil
}

// StartSeason moves setup → active once at least two members are approved.
func (s *SeasonService) StartSeason(actorUserID, seasonID string) (*models.Season, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, err
	}
	season, err := s.GetSeason(seasonID)
	if err != nil {
		return nil, err
	}
	if err := requireTreasurer(season, actor); err != nil {
		return nil, err
	}
	if season.Status != models.SeasonStatusSetup {
		return nil, PreconditionError("season is %s, not setup", season.Status)
	}

	var approved int64
	if err := s.DB.Model(&models.SeasonMember{}).
		Where("season_id = ? AND approval_status = ?", seasonID, models.ApprovalApproved).
		Count(&approved).Error; err != nil {
		return nil, err
	}
	if approved < 2 {
		return nil, PreconditionError("need at least 2 approved members to start, have %d", approved)
	}

	now := time.Now()
	if err := s.DB.Model(season).Updates(map[string]interface{}{
		"status":     models.SeasonStatusActive,
		"started_at": &now,
	}).Error; err != nil {
		return nil, err
	}
	season.Status = models.SeasonStatusActive
	season.StartedAt = &now

	s.Notify.Enqueue(workers.Event{
		Type:     models.NotifySeasonStarted,
		SeasonID: season.ID,
		Payload:  map[string]interface{}{"season_id": season.ID},
	})
	return season, nil
}

// UpdateTreasurer reassigns the treasurer. Legal only while status=setup.
func (s *SeasonService) UpdateTreasurer(actorUserID, seasonID, treasurerUserID string) (*models.Season, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, err
	}
	season, err := s.GetSeason(seasonID)
	if err != nil {
		return nil, err
	}
	if err := requireTreasurer(season, actor); err != nil {
		return nil, err
	}
	if season.Status != models.SeasonStatusSetup {
		return nil, PreconditionError("treasurer is locked once the season leaves setup")
	}
	var treasurer models.User
	if err := s.DB.First(&treasurer, "id = ?", treasurerUserID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ValidationError("treasurer user %s not found", treasurerUserID)
		}
		return nil, err
	}
	if err := s.DB.Model(season).Update("treasurer_user_id", treasurer.ID).Error; err != nil {
		return nil, err
	}
	season.TreasurerUserID = treasurer.ID
	return season, nil
}

// EndSeason closes a season. Any non-finalized session is left in its current
// state but frozen (the session service rejects further transitions); a new
// season can then be created.
func (s *SeasonService) EndSeason(actorUserID, seasonID string) (*models.Season, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, err
	}
	season, err := s.GetSeason(seasonID)
	if err != nil {
		return nil, err
	}
	if err := requireTreasurer(season, actor); err != nil {
		return nil, err
	}
	if season.Status == models.SeasonStatusEnded {
		return nil, PreconditionError("season already ended")
	}

	now := time.Now()
	if err := s.DB.Model(season).Updates(map[string]interface{}{
		"status":   models.SeasonStatusEnded,
		"ended_at": &now,
	}).Error; err != nil {
		return nil, err
	}
	season.Status = models.SeasonStatusEnded
	season.EndedAt = &now

	s.Notify.Enqueue(workers.Event{
		Type:     models.NotifySeasonEnded,
		SeasonID: season.ID,
		Payload:  map[string]interface{}{"season_id": season.ID},
	})
	return season, nil
}

// ---------------------------------------------------------------------------
// Deposits
// ---------------------------------------------------------------------------

// SubmitDeposit records a deposit proof for a member and flips their approval
// status to pending. Proof photo is mandatory.
func (s *SeasonService) SubmitDeposit(seasonID, userID, photoURL string, note *string) (*models.SeasonDepositSubmission, *models.SeasonMember, error) {
	if photoURL == "" {
		return nil, nil, ValidationError("deposit proof photo is required")
	}
	season, err := s.GetSeason(seasonID)
	if err != nil {
		return nil, nil, err
	}
	if season.Status == models.SeasonStatusEnded {
		return nil, nil, PreconditionError("season has ended")
	}

	var member models.SeasonMember
	if err := s.DB.Where("season_id = ? AND user_id = ?", seasonID, userID).First(&member).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, NotFoundError("user %s is not a member of this season", userID)
		}
		return nil, nil, err
	}
	if member.ApprovalStatus == models.ApprovalApproved {
		return nil, nil, PreconditionError("deposit already approved")
	}

	submission := &models.SeasonDepositSubmission{
		ID:       uuid.NewString(),
		SeasonID: seasonID,
		UserID:   userID,
		PhotoURL: photoURL,
		Note:     note,
		Status:   models.DepositStatusPending,
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(submission).Error; err != nil {
			return err
		}
		return tx.Model(&member).Update("approval_status", models.ApprovalPending).Error
	})
	if err != nil {
		return nil, nil, err
	}
	member.ApprovalStatus = models.ApprovalPending

	s.Notify.Enqueue(workers.Event{
		Type:         models.NotifyDepositSubmitted,
		SeasonID:     seasonID,
		TargetUserID: season.TreasurerUserID,
		Payload:      map[string]interface{}{"user_id": userID, "submission_id": submission.ID},
	})
	return submission, &member, nil
}

// GetDepositSubmissions lists a season's deposit history, newest first.
func (s *SeasonService) GetDepositSubmissions(seasonID string) ([]models.SeasonDepositSubmission, error) {
	var submissions []models.SeasonDepositSubmission
	err := s.DB.Where("season_id = ?", seasonID).
		Order("created_at DESC").
		Find(&submissions).Error
	return submissions, err
}

// ReviewDeposit approves or rejects a pending deposit. Approval credits the
// fixed season buy-in as the member's opening balance. Review is terminal.
func (s *SeasonService) ReviewDeposit(actorUserID, submissionID, action string, reviewNote *string) (*models.SeasonDepositSubmission, *models.SeasonMember, error) {
	actor, _, err := resolveActor(s.DB, actorUserID)
	if err != nil {
		return nil, nil, err
	}
	if action != "approve" && action != "reject" {
		return nil, nil, ValidationError("action must be approve or reject")
	}
	if action == "reject" && (reviewNote == nil || strings.TrimSpace(*reviewNote) == "") {
		return nil, nil, ValidationError("a rejection note is required")
	}

	var submission models.SeasonDepositSubmission
	if err := s.DB.First(&submission, "id = ?", submissionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, NotFoundError("deposit submission %s not found", submissionID)
		}
		return nil, nil, err
	}
	season, err := s.GetSeason(submission.SeasonID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireTreasurer(season, actor); err != nil {
		return nil, nil, err
	}
	if submission.Status != models.DepositStatusPending {
		return nil, nil, PreconditionError("deposit already reviewed (%s)", submission.Status)
	}

	var member models.SeasonMember
	if err := s.DB.Where("season_id = ? AND user_id = ?", submission.SeasonID, submission.UserID).
		First(&member).Error; err != nil {
		return nil, nil, err
	}

	now := time.Now()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		status := models.DepositStatusRejected
		if action == "approve" {
			status = models.DepositStatusApproved
		}
		if err := tx.Model(&submission).Updates(map[string]interface{}{
			"status":              status,
			"reviewed_at":         &now,
			"reviewed_by_user_id": actor.UserID,
			"review_note":         reviewNote,
		}).Error; err != nil {
			return err
		}
		if action == "approve" {
			return tx.Model(&member).Updates(map[string]interface{}{
				"approval_status":       models.ApprovalApproved,
				"current_balance_cents": seasonDepositCents,
				"approved_at":           &now,
				"approved_by_user_id":   actor.UserID,
				"rejection_note":        nil,
			}).Error
		}
		return tx.Model(&member).Updates(map[string]interface{}{
			"approval_status": models.ApprovalRejected,
			"rejection_note":  reviewNote,
		}).Error
	})
	if err != nil {
		return nil, nil, err
	}

	s.DB.First(&submission, "id = ?", submission.ID)
	s.DB.First(&member, "id = ?", member.ID)

	eventType := models.NotifyDepositRejected
	if action == "approve" {
		eventType = models.NotifyDepositApproved
	}
	s.Notify.Enqueue(workers.Event{
		Type:         eventType,
		SeasonID:     submission.SeasonID,
		TargetUserID: submission.UserID,
		Payload:      map[string]interface{}{"submission_id": submission.ID},
	})
	return &submission, &member, nil
}

// ---------------------------------------------------------------------------
// Host rotation (advisory)
// ---------------------------------------------------------------------------

// SaveHostOrder replaces a season's host rotation wholesale. Any user id is
// accepted; the rotation is planning-only.
func (s *SeasonService) SaveHostOrder(seasonID string, orderedUserIDs []string) ([]models.SeasonHostOrder, error) {
	if _, err := s.GetSeason(seasonID); err != nil {
		return nil, err
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("season_id = ?", seasonID).Delete(&models.SeasonHostOrder{}).Error; err != nil {
			return err
		}
		for i, userID := range orderedUserIDs {
			entry := models.SeasonHostOrder{
				ID:        uuid.NewString(),
				SeasonID:  seasonID,
				UserID:    userID,
				SortIndex: i,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetHostOrder(seasonID)
}

// GetHostOrder returns the rotation ascending by sort index.
func (s *SeasonService) GetHostOrder(seasonID string) ([]models.SeasonHostOrder, error) {
	var order []models.SeasonHostOrder
	err := s.DB.Where("season_id = ?", seasonID).
		Order("sort_index ASC").
		Find(&order).Error
	return order, err
}
