package services

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/events"
	"github.com/terraincognita07/boardkeeper/internal/models"
)

type recordingPublisher struct {
	mu            sync.Mutex
	events        []events.Event
	notifications []events.Notification
}

func (publisher *recordingPublisher) Publish(batch ...events.Event) {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	publisher.events = append(publisher.events, batch...)
}

func (publisher *recordingPublisher) Notify(batch ...events.Notification) {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	publisher.notifications = append(publisher.notifications, batch...)
}

// reset drops everything recorded so far.
func (publisher *recordingPublisher) reset() {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	publisher.events = nil
	publisher.notifications = nil
}

func (publisher *recordingPublisher) eventNames() []string {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	names := make([]string, 0, len(publisher.events))
	for _, event := range publisher.events {
		names = append(names, event.Name)
	}
	return names
}

func (publisher *recordingPublisher) hasEvent(name string, channel string) bool {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	for _, event := range publisher.events {
		if event.Name == name && event.Channel == channel {
			return true
		}
	}
	return false
}

func (publisher *recordingPublisher) notificationsFor(userID uint) []events.Notification {
	return publisher.notificationsOfType(userID)
}

// notificationsOfType returns the user's notifications, restricted to the
// given types when any are passed.
func (publisher *recordingPublisher) notificationsOfType(userID uint, types ...string) []events.Notification {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	result := make([]events.Notification, 0)
	for _, notification := range publisher.notifications {
		if notification.UserID != userID {
			continue
		}
		if len(types) > 0 && !slices.Contains(types, notification.Type) {
			continue
		}
		result = append(result, notification)
	}
	return result
}

// testWorld is one project led by lead, with two developers, an observer
// and a user outside the project.
type testWorld struct {
	ctx       context.Context
	store     *db.Store
	publisher *recordingPublisher

	assignments *AssignmentService
	cards       *CardService
	members     *MembershipService
	projects    *ProjectService
	history     *HistoryService
	workload    *WorkloadService
	subtasks    *SubtaskService
	timers      *TimerService
	users       *UserService

	admin    models.User
	lead     models.User
	dev      models.User
	dev2     models.User
	observer models.User
	outsider models.User

	project models.Project
	board   models.Board
}

func newTestStore(t *testing.T) *db.Store {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "boardkeeper-services.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db.NewStore(database)
}

func createTestUser(t *testing.T, store *db.Store, email string, globalRole string) models.User {
	t.Helper()

	user := models.User{
		Email:        email,
		Name:         email,
		PasswordHash: "x",
		GlobalRole:   globalRole,
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.Repos(context.Background()).Users.Create(&user); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return user
}

func newTestWorld(t *testing.T) *testWorld {
	t.Helper()

	store := newTestStore(t)
	publisher := &recordingPublisher{}
	world := &testWorld{
		ctx:         context.Background(),
		store:       store,
		publisher:   publisher,
		assignments: NewAssignmentService(store, publisher),
		cards:       NewCardService(store, publisher),
		members:     NewMembershipService(store, publisher),
		projects:    NewProjectService(store, publisher),
		history:     NewHistoryService(store),
		workload:    NewWorkloadService(store),
		subtasks:    NewSubtaskService(store, publisher),
		timers:      NewTimerService(store, publisher, DefaultMaxTimerHours),
		users:       NewUserService(store),
	}

	world.admin = createTestUser(t, store, "admin@example.com", models.GlobalRoleAdmin)
	world.lead = createTestUser(t, store, "lead@example.com", models.GlobalRoleLeader)
	world.dev = createTestUser(t, store, "dev@example.com", models.GlobalRoleMember)
	world.dev2 = createTestUser(t, store, "dev2@example.com", models.GlobalRoleMember)
	world.observer = createTestUser(t, store, "observer@example.com", models.GlobalRoleMember)
	world.outsider = createTestUser(t, store, "outsider@example.com", models.GlobalRoleMember)

	project, err := world.projects.CreateProject(world.ctx, "Apollo", "launch tracker", world.lead.ID)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	world.project = project

	for _, membership := range []struct {
		user models.User
		role string
	}{
		{world.dev, models.ProjectRoleDeveloper},
		{world.dev2, models.ProjectRoleTester},
		{world.observer, models.ProjectRoleObserver},
	} {
		if _, err := world.members.AddMember(world.ctx, project.ID, membership.user.ID, membership.role, world.lead.ID); err != nil {
			t.Fatalf("add member %s: %v", membership.user.Email, err)
		}
	}

	board, err := world.projects.CreateBoard(world.ctx, project.ID, "Sprint 1", world.lead.ID)
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	world.board = board
	publisher.reset()
	return world
}

func (world *testWorld) createCard(t *testing.T, title string) models.Card {
	t.Helper()

	card, err := world.cards.CreateCard(world.ctx, CreateCardInput{BoardID: world.board.ID, Title: title, ActorID: world.lead.ID})
	if err != nil {
		t.Fatalf("create card %q: %v", title, err)
	}
	return card
}

func (world *testWorld) assign(t *testing.T, cardID uint, assigneeID uint) models.CardAssignment {
	t.Helper()

	assignment, err := world.assignments.Assign(world.ctx, AssignInput{CardID: cardID, AssigneeID: assigneeID, ActorID: world.lead.ID})
	if err != nil {
		t.Fatalf("assign card %d to %d: %v", cardID, assigneeID, err)
	}
	return assignment
}

func (world *testWorld) setStatus(t *testing.T, cardID uint, status string) {
	t.Helper()

	if _, err := world.cards.UpdateStatus(world.ctx, cardID, status, world.lead.ID); err != nil {
		t.Fatalf("set status %s on card %d: %v", status, cardID, err)
	}
}

func (world *testWorld) reloadCard(t *testing.T, cardID uint) models.Card {
	t.Helper()

	card, err := world.store.Repos(world.ctx).Cards.FindByID(cardID)
	if err != nil {
		t.Fatalf("reload card %d: %v", cardID, err)
	}
	return card
}

func (world *testWorld) activeRows(t *testing.T, cardID uint) []models.CardAssignment {
	t.Helper()

	rows, err := world.store.Repos(world.ctx).Assignments.ListActiveByCard(cardID)
	if err != nil {
		t.Fatalf("list active rows for card %d: %v", cardID, err)
	}
	return rows
}

func uintPtr(value uint) *uint {
	return &value
}
