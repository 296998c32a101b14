package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"poker-night-ledger/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is one notification-worthy thing that happened in the core. SeasonID
// selects the recipients (every approved member); TargetUserID narrows the
// fan-out to a single user when set.
type Event struct {
	Type         string
	SeasonID     string
	TargetUserID string
	Payload      map[string]interface{}
}

// Notifier fans core events out to Notification rows and an optional webhook
// sink. Fire-and-forget: a full queue drops the event, a failed POST is
// logged and never retried, and the core's correctness never depends on it.
type Notifier struct {
	DB         *gorm.DB
	WebhookURL string
	HTTPClient *http.Client

	events chan Event
}

func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{
		DB:         db,
		WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		events:     make(chan Event, 256),
	}
}

// Enqueue hands an event to the worker without blocking the caller.
func (n *Notifier) Enqueue(ev Event) {
	if n == nil {
		return
	}
	select {
	case n.events <- ev:
	default:
		log.Printf("[Notify] queue full, dropping %s event", ev.Type)
	}
}

// Start runs the dispatch loop until ctx is cancelled.
func (n *Notifier) Start(ctx context.Context) {
	log.Println("[Notify] notification worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("[Notify] notification worker stopped")
			return
		case ev := <-n.events:
			n.dispatch(ev)
		}
	}
}

func (n *Notifier) dispatch(ev Event) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		payload = []byte("{}")
	}

	userIDs, err := n.recipients(ev)
	if err != nil {
		log.Printf("[Notify] failed to resolve recipients for %s: %v", ev.Type, err)
		return
	}

	for _, userID := range userIDs {
		row := models.Notification{
			ID:          uuid.NewString(),
			UserID:      userID,
			Type:        ev.Type,
			PayloadJSON: string(payload),
		}
		if err := n.DB.Create(&row).Error; err != nil {
			log.Printf("[Notify] failed to persist %s for user %s: %v", ev.Type, userID, err)
		}
	}

	if n.WebhookURL != "" {
		n.post(ev, payload)
	}
}

func (n *Notifier) recipients(ev Event) ([]string, error) {
	if ev.TargetUserID != "" {
		return []string{ev.TargetUserID}, nil
	}
	var userIDs []string
	err := n.DB.Model(&models.SeasonMember{}).
		Where("season_id = ? AND approval_status = ?", ev.SeasonID, models.ApprovalApproved).
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

func (n *Notifier) post(ev Event, payload []byte) {
	body, _ := json.Marshal(map[string]interface{}{
		"type":      ev.Type,
		"season_id": ev.SeasonID,
		"payload":   json.RawMessage(payload),
	})
	resp, err := n.HTTPClient.Post(n.WebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[Notify] webhook POST failed for %s: %v", ev.Type, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("[Notify] webhook returned %d for %s", resp.StatusCode, ev.Type)
	}
}
