package events

import (
	"context"
	"fmt"
	"time"
)

const (
	CardAssigned   = "card:assigned"
	CardUnassigned = "card:unassigned"
	CardReset      = "card:reset"
	CardUpdated    = "card:updated"
	CardCreated    = "card:created"
	CardDeleted    = "card:deleted"
	MemberAdded    = "member:added"
	MemberRemoved  = "member:removed"
	MemberUpdated  = "member:updated"
	ProjectUpdated = "project:updated"
	ProjectDeleted = "project:deleted"
	SubtaskUpdated = "subtask:updated"
	TimerStarted   = "timer:started"
	TimerStopped   = "timer:stopped"
)

// Event is a real-time message for one channel. Delivery is best effort.
type Event struct {
	ID      string         `json:"id"`
	Channel string         `json:"channel"`
	Name    string         `json:"name"`
	ActorID uint           `json:"actor_id"`
	Payload map[string]any `json:"payload"`
	At      time.Time      `json:"at"`
}

// Notification is a user-facing inbox entry created after commit.
type Notification struct {
	UserID  uint
	Type    string
	Title   string
	Message string
	Link    string
}

type Sink interface {
	Emit(ctx context.Context, event Event) error
}

type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

func ProjectChannel(projectID uint) string {
	return fmt.Sprintf("project:%d", projectID)
}

func CardChannel(cardID uint) string {
	return fmt.Sprintf("card:%d", cardID)
}

// ForCardAndProject fans one state change out to the card channel and its
// project channel.
func ForCardAndProject(name string, cardID uint, projectID uint, actorID uint, payload map[string]any) []Event {
	return []Event{
		{Channel: CardChannel(cardID), Name: name, ActorID: actorID, Payload: payload},
		{Channel: ProjectChannel(projectID), Name: name, ActorID: actorID, Payload: payload},
	}
}
