package services

import (
	"log"
	"time"

	"poker-night-ledger/models"
	"poker-night-ledger/workers"

	"github.com/go-co-op/gocron/v2"
)

// StartReminderScheduler polls for scheduled sessions whose start time has
// arrived and emits a one-shot session_starting reminder for each.
func (s *SessionService) StartReminderScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var sessions []models.Session
			now := time.Now()
			err := s.DB.Where("state = ? AND scheduled_for IS NOT NULL AND scheduled_for <= ? AND reminder_sent_at IS NULL",
				models.SessionStateScheduled, now).
				Find(&sessions).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for _, session := range sessions {
				if err := s.DB.Model(&session).Update("reminder_sent_at", &now).Error; err != nil {
					log.Printf("[Scheduler] Failed to mark reminder for session %s: %v", session.ID, err)
					continue
				}
				s.Notify.Enqueue(workers.Event{
					Type:     models.NotifySessionStarting,
					SeasonID: session.SeasonID,
					Payload:  map[string]interface{}{"session_id": session.ID},
				})
				log.Printf("[Scheduler] Reminder sent for session %s", session.ID)
			}
		}),
	)
}
