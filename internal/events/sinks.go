package events

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/models"
)

// LogSink writes events to the process log. It stands in for the real-time
// push transport.
type LogSink struct{}

func (LogSink) Emit(_ context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	log.Printf("event %s %s actor=%d payload=%s", event.Channel, event.Name, event.ActorID, payload)
	return nil
}

// RecordingSink keeps emitted events in memory.
type RecordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (sink *RecordingSink) Emit(_ context.Context, event Event) error {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.events = append(sink.events, event)
	return nil
}

func (sink *RecordingSink) Events() []Event {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return append([]Event(nil), sink.events...)
}

// StoreNotifier persists notifications as inbox rows.
type StoreNotifier struct {
	store *db.Store
}

func NewStoreNotifier(store *db.Store) *StoreNotifier {
	return &StoreNotifier{store: store}
}

func (notifier *StoreNotifier) Notify(ctx context.Context, notification Notification) error {
	return notifier.store.Repos(ctx).Notifications.Create(&models.Notification{
		UserID:    notification.UserID,
		Type:      notification.Type,
		Title:     notification.Title,
		Message:   notification.Message,
		Link:      notification.Link,
		CreatedAt: time.Now().UTC(),
	})
}
