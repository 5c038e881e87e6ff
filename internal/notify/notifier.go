package notify

import (
	"estate-video-backend/internal/models"

	log "github.com/sirupsen/logrus"
)

// Store is the persistence surface the notifier needs.
type Store interface {
	CreateNotification(n *models.Notification) error
}

// Notifier records user-facing events (video ready, generation failed,
// order finalized). Delivery is best-effort: a failed write is logged
// and dropped, never propagated to the caller.
type Notifier struct {
	store Store
}

func New(store Store) *Notifier {
	return &Notifier{store: store}
}

// Notify persists a notification for the user. A zero user id means the
// order has no registered owner and the event is skipped.
func (n *Notifier) Notify(userID int64, category, message string) {
	if n == nil || n.store == nil || userID == 0 {
		return
	}

	err := n.store.CreateNotification(&models.Notification{
		UserID:   userID,
		Category: category,
		Message:  message,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"user_id":  userID,
			"category": category,
		}).Errorf("failed to persist notification: %v", err)
	}
}
