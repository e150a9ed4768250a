package services

import "github.com/terraincognita07/boardkeeper/internal/events"

// Publisher receives side effects once the owning transaction has committed.
type Publisher interface {
	Publish(events ...events.Event)
	Notify(notifications ...events.Notification)
}

type discardPublisher struct{}

func (discardPublisher) Publish(...events.Event)       {}
func (discardPublisher) Notify(...events.Notification) {}

func publisherOrDiscard(publisher Publisher) Publisher {
	if publisher == nil {
		return discardPublisher{}
	}
	return publisher
}

// sideEffects collects events and notifications inside a transaction and
// flushes them only after commit.
type sideEffects struct {
	events        []events.Event
	notifications []events.Notification
}

func (effects *sideEffects) emit(batch ...events.Event) {
	effects.events = append(effects.events, batch...)
}

func (effects *sideEffects) notify(batch ...events.Notification) {
	effects.notifications = append(effects.notifications, batch...)
}

func (effects *sideEffects) flush(publisher Publisher) {
	if len(effects.events) > 0 {
		publisher.Publish(effects.events...)
	}
	if len(effects.notifications) > 0 {
		publisher.Notify(effects.notifications...)
	}
}
