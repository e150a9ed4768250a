package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/terraincognita07/boardkeeper/internal/models"
	"gorm.io/gorm"
)

type cardFixture struct {
	owner     models.User
	member    models.User
	project   models.Project
	memberRow models.ProjectMember
	board     models.Board
	card      models.Card
}

func seedCardFixture(t *testing.T, database *gorm.DB) cardFixture {
	t.Helper()

	repos := NewRepositories(database)
	now := time.Now().UTC()

	owner := models.User{Email: "owner@example.com", Name: "Owner", PasswordHash: "x", GlobalRole: models.GlobalRoleLeader, CreatedAt: now}
	if err := repos.Users.Create(&owner); err != nil {
		t.Fatalf("create owner: %v", err)
	}
	member := models.User{Email: "member@example.com", Name: "Member", PasswordHash: "x", GlobalRole: models.GlobalRoleMember, CreatedAt: now}
	if err := repos.Users.Create(&member); err != nil {
		t.Fatalf("create member: %v", err)
	}

	project := models.Project{Name: "Apollo", CreatedBy: owner.ID}
	if err := repos.Projects.Create(&project); err != nil {
		t.Fatalf("create project: %v", err)
	}
	memberRow := models.ProjectMember{ProjectID: project.ID, UserID: member.ID, ProjectRole: models.ProjectRoleDeveloper, JoinedAt: now}
	if err := repos.Members.Create(&memberRow); err != nil {
		t.Fatalf("create membership: %v", err)
	}
	board := models.Board{ProjectID: project.ID, Name: "Sprint"}
	if err := repos.Boards.Create(&board); err != nil {
		t.Fatalf("create board: %v", err)
	}
	card := models.Card{BoardID: board.ID, Title: "Wire login", Status: models.CardStatusTodo, Priority: models.PriorityMedium, CreatedBy: owner.ID}
	if err := repos.Cards.Create(&card); err != nil {
		t.Fatalf("create card: %v", err)
	}

	return cardFixture{owner: owner, member: member, project: project, memberRow: memberRow, board: board, card: card}
}

func TestCardRepositoryFindScopeResolvesProject(t *testing.T) {
	database := openTestDatabase(t)
	fixture := seedCardFixture(t, database)

	scope, err := NewCardRepository(database).FindScope(fixture.card.ID)
	if err != nil {
		t.Fatalf("FindScope() unexpected error: %v", err)
	}
	if scope.Project.ID != fixture.project.ID {
		t.Fatalf("expected project %d, got %d", fixture.project.ID, scope.Project.ID)
	}
}

func TestCardRepositoryListUnfinishedForAssigneeSkipsDoneAndExcluded(t *testing.T) {
	database := openTestDatabase(t)
	fixture := seedCardFixture(t, database)
	repos := NewRepositories(database)

	assignee := fixture.member.ID
	done := models.Card{BoardID: fixture.board.ID, Title: "Shipped", Status: models.CardStatusDone, AssigneeID: &assignee, CreatedBy: fixture.owner.ID}
	active := models.Card{BoardID: fixture.board.ID, Title: "Ongoing", Status: models.CardStatusReview, AssigneeID: &assignee, CreatedBy: fixture.owner.ID}
	for _, card := range []*models.Card{&done, &active} {
		if err := repos.Cards.Create(card); err != nil {
			t.Fatalf("create card: %v", err)
		}
	}

	cards, err := repos.Cards.ListUnfinishedForAssignee(fixture.project.ID, assignee, 0)
	if err != nil {
		t.Fatalf("ListUnfinishedForAssignee() unexpected error: %v", err)
	}
	if len(cards) != 1 || cards[0].ID != active.ID {
		t.Fatalf("expected only card %d, got %#v", active.ID, cards)
	}

	cards, err = repos.Cards.ListUnfinishedForAssignee(fixture.project.ID, assignee, active.ID)
	if err != nil {
		t.Fatalf("ListUnfinishedForAssignee() unexpected error: %v", err)
	}
	if len(cards) != 0 {
		t.Fatalf("expected excluded card to be skipped, got %#v", cards)
	}
}

func TestStoreTransactionRollsBackOnError(t *testing.T) {
	database := openTestDatabase(t)
	fixture := seedCardFixture(t, database)
	store := NewStore(database)

	boom := errors.New("boom")
	err := store.Transaction(context.Background(), func(repos *Repositories) error {
		assignee := fixture.member.ID
		if err := repos.Cards.SetAssignee(fixture.card.ID, &assignee); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	card, err := store.Repos(context.Background()).Cards.FindByID(fixture.card.ID)
	if err != nil {
		t.Fatalf("reload card: %v", err)
	}
	if card.AssigneeID != nil {
		t.Fatalf("expected rolled back assignee, got %v", *card.AssigneeID)
	}
}

func TestAssignmentRepositoryListRecordsJoinsCardAndProject(t *testing.T) {
	database := openTestDatabase(t)
	fixture := seedCardFixture(t, database)
	repos := NewRepositories(database)

	assignedAt := time.Now().UTC().Add(-48 * time.Hour)
	row := models.CardAssignment{CardID: fixture.card.ID, AssignedTo: fixture.member.ID, AssignedBy: fixture.owner.ID, AssignedAt: assignedAt, IsActive: true, Reason: "kickoff"}
	if err := repos.Assignments.Create(&row); err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	records, err := repos.Assignments.ListRecords(AssignmentFilter{ProjectID: fixture.project.ID, ActiveOnly: true})
	if err != nil {
		t.Fatalf("ListRecords() unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	record := records[0]
	if record.CardTitle != fixture.card.Title || record.ProjectID != fixture.project.ID {
		t.Fatalf("unexpected join result %#v", record)
	}
	if record.AssigneeName != "Member" || record.AssignerName != "Owner" {
		t.Fatalf("unexpected user names %q / %q", record.AssigneeName, record.AssignerName)
	}

	from := time.Now().UTC().Add(-time.Hour)
	records, err = repos.Assignments.ListRecords(AssignmentFilter{CardID: fixture.card.ID, From: &from})
	if err != nil {
		t.Fatalf("ListRecords() unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected date filter to exclude older row, got %d", len(records))
	}
}

func TestMemberRepositoryFindLeadershipByUser(t *testing.T) {
	database := openTestDatabase(t)
	fixture := seedCardFixture(t, database)
	repos := NewRepositories(database)

	if _, found, err := repos.Members.FindLeadershipByUser(fixture.member.ID); err != nil || found {
		t.Fatalf("expected no leadership, found=%v err=%v", found, err)
	}
	if err := repos.Members.UpdateRole(fixture.memberRow.ID, models.ProjectRoleLeader); err != nil {
		t.Fatalf("promote member: %v", err)
	}
	leadership, found, err := repos.Members.FindLeadershipByUser(fixture.member.ID)
	if err != nil || !found {
		t.Fatalf("expected leadership, found=%v err=%v", found, err)
	}
	if leadership.ProjectID != fixture.project.ID {
		t.Fatalf("expected project %d, got %d", fixture.project.ID, leadership.ProjectID)
	}
}
