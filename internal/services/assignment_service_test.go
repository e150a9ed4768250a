package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/terraincognita07/boardkeeper/internal/events"
	"github.com/terraincognita07/boardkeeper/internal/models"
)

func TestAssignRejectsSecondUnfinishedCardInOpenProject(t *testing.T) {
	world := newTestWorld(t)
	first := world.createCard(t, "Wire login")
	second := world.createCard(t, "Wire logout")

	world.assign(t, first.ID, world.dev.ID)
	world.setStatus(t, first.ID, models.CardStatusInProgress)

	_, err := world.assignments.Assign(world.ctx, AssignInput{CardID: second.ID, AssigneeID: world.dev.ID, ActorID: world.lead.ID})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	var unfinished *UnfinishedCardsError
	if !errors.As(err, &unfinished) {
		t.Fatalf("expected UnfinishedCardsError, got %T", err)
	}
	if len(unfinished.Cards) != 1 || unfinished.Cards[0].ID != first.ID {
		t.Fatalf("expected blocking card %d, got %#v", first.ID, unfinished.Cards)
	}
	if unfinished.Cards[0].Status != models.CardStatusInProgress {
		t.Fatalf("expected blocking status IN_PROGRESS, got %q", unfinished.Cards[0].Status)
	}

	if reloaded := world.reloadCard(t, second.ID); reloaded.AssigneeID != nil {
		t.Fatalf("expected second card to stay unassigned, got %v", *reloaded.AssigneeID)
	}
	if rows := world.activeRows(t, second.ID); len(rows) != 0 {
		t.Fatalf("expected no ledger rows for rejected assignment, got %d", len(rows))
	}
}

func TestResetFreesMemberForNewAssignment(t *testing.T) {
	world := newTestWorld(t)
	first := world.createCard(t, "Wire login")
	second := world.createCard(t, "Wire logout")

	original := world.assign(t, first.ID, world.dev.ID)
	world.setStatus(t, first.ID, models.CardStatusDone)

	reset, err := world.cards.ResetCard(world.ctx, first.ID, world.dev.ID)
	if err != nil {
		t.Fatalf("reset card: %v", err)
	}
	if reset.Status != models.CardStatusTodo || reset.AssigneeID != nil {
		t.Fatalf("expected TODO with no assignee, got status=%q assignee=%v", reset.Status, reset.AssigneeID)
	}

	ledger, err := world.store.Repos(world.ctx).Assignments.ListByCard(first.ID)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(ledger) != 1 || ledger[0].ID != original.ID {
		t.Fatalf("expected the original ledger row only, got %#v", ledger)
	}
	if ledger[0].IsActive || ledger[0].UnassignedAt == nil {
		t.Fatalf("expected original row closed with unassigned_at, got %#v", ledger[0])
	}

	world.assign(t, second.ID, world.dev.ID)
	world.setStatus(t, second.ID, models.CardStatusInProgress)

	if !world.publisher.hasEvent(events.CardReset, events.CardChannel(first.ID)) {
		t.Fatalf("expected card:reset on card channel, got %v", world.publisher.eventNames())
	}
}

func TestResetRejectsCardThatIsNotDone(t *testing.T) {
	world := newTestWorld(t)
	card := world.createCard(t, "Wire login")
	world.assign(t, card.ID, world.dev.ID)

	_, err := world.cards.ResetCard(world.ctx, card.ID, world.lead.ID)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if reloaded := world.reloadCard(t, card.ID); reloaded.AssigneeID == nil || *reloaded.AssigneeID != world.dev.ID {
		t.Fatalf("expected assignee to be kept after failed reset")
	}
}

func TestConcurrentAssignmentsLeaveExactlyOneActiveRow(t *testing.T) {
	world := newTestWorld(t)
	card := world.createCard(t, "Contested card")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for index, assigneeID := range []uint{world.dev.ID, world.dev2.ID} {
		wg.Add(1)
		go func(index int, assigneeID uint) {
			defer wg.Done()
			_, errs[index] = world.assignments.Assign(world.ctx, AssignInput{CardID: card.ID, AssigneeID: assigneeID, ActorID: world.lead.ID})
		}(index, assigneeID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected success or conflict, got %v", err)
		}
	}
	if succeeded == 0 {
		t.Fatalf("expected at least one assignment to succeed")
	}

	active := world.activeRows(t, card.ID)
	if len(active) != 1 {
		t.Fatalf("expected exactly one active row, got %d", len(active))
	}
	ledger, err := world.store.Repos(world.ctx).Assignments.ListByCard(card.ID)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(ledger) != succeeded {
		t.Fatalf("expected %d ledger rows, got %d", succeeded, len(ledger))
	}
	if latest := ledger[len(ledger)-1]; latest.ID != active[0].ID {
		t.Fatalf("expected the latest row %d to be active, got %d", latest.ID, active[0].ID)
	}

	reloaded := world.reloadCard(t, card.ID)
	if reloaded.AssigneeID == nil || *reloaded.AssigneeID != active[0].AssignedTo {
		t.Fatalf("expected card pointer to match active row assignee %d, got %v", active[0].AssignedTo, reloaded.AssigneeID)
	}
}

func TestReassignClosesPreviousRowAndNotifiesBothUsers(t *testing.T) {
	world := newTestWorld(t)
	card := world.createCard(t, "Wire login")

	first := world.assign(t, card.ID, world.dev.ID)
	second := world.assign(t, card.ID, world.dev2.ID)
	if first.ID == second.ID {
		t.Fatalf("expected a new ledger row on reassignment")
	}

	ledger, err := world.store.Repos(world.ctx).Assignments.ListByCard(card.ID)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(ledger) != 2 || ledger[0].IsActive || !ledger[1].IsActive {
		t.Fatalf("expected closed then active rows, got %#v", ledger)
	}
	if reloaded := world.reloadCard(t, card.ID); reloaded.AssigneeID == nil || *reloaded.AssigneeID != world.dev2.ID {
		t.Fatalf("expected pointer to dev2")
	}

	cardTypes := []string{models.NotificationCardAssigned, models.NotificationCardUnassigned}
	if got := world.publisher.notificationsOfType(world.dev2.ID, cardTypes...); len(got) != 1 || got[0].Type != models.NotificationCardAssigned {
		t.Fatalf("expected one CARD_ASSIGNED for dev2, got %#v", got)
	}
	if all := world.publisher.notificationsFor(world.dev2.ID); len(all) != 1 {
		t.Fatalf("expected fixture invites to be cleared, got %#v", all)
	}
	devNotes := world.publisher.notificationsOfType(world.dev.ID, cardTypes...)
	if len(devNotes) != 2 || devNotes[1].Type != models.NotificationCardUnassigned {
		t.Fatalf("expected assigned then unassigned notifications for dev, got %#v", devNotes)
	}
}

func TestAssignSameUserTwiceIsIdempotent(t *testing.T) {
	world := newTestWorld(t)
	card := world.createCard(t, "Wire login")

	first := world.assign(t, card.ID, world.dev.ID)
	again := world.assign(t, card.ID, world.dev.ID)
	if first.ID != again.ID {
		t.Fatalf("expected the existing row %d, got %d", first.ID, again.ID)
	}
	if rows := world.activeRows(t, card.ID); len(rows) != 1 {
		t.Fatalf("expected one active row, got %d", len(rows))
	}
}

func TestUnassignTwiceIsNoOp(t *testing.T) {
	world := newTestWorld(t)
	card := world.createCard(t, "Wire login")
	world.assign(t, card.ID, world.dev.ID)

	for attempt := 1; attempt <= 2; attempt++ {
		if err := world.assignments.Unassign(world.ctx, card.ID, world.lead.ID); err != nil {
			t.Fatalf("unassign attempt %d: %v", attempt, err)
		}
		if rows := world.activeRows(t, card.ID); len(rows) != 0 {
			t.Fatalf("expected no active rows after attempt %d, got %d", attempt, len(rows))
		}
		if reloaded := world.reloadCard(t, card.ID); reloaded.AssigneeID != nil {
			t.Fatalf("expected nil assignee after attempt %d", attempt)
		}
	}

	unassigned := 0
	for _, name := range world.publisher.eventNames() {
		if name == events.CardUnassigned {
			unassigned++
		}
	}
	if unassigned != 2 {
		t.Fatalf("expected card:unassigned on card and project channels once, got %d events", unassigned)
	}
}

func TestObserverCannotBeAssignedWithoutAdminOverride(t *testing.T) {
	world := newTestWorld(t)
	card := world.createCard(t, "Review docs")

	_, err := world.assignments.Assign(world.ctx, AssignInput{CardID: card.ID, AssigneeID: world.observer.ID, ActorID: world.lead.ID})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for observer assignee, got %v", err)
	}

	_, err = world.assignments.Assign(world.ctx, AssignInput{CardID: card.ID, AssigneeID: world.observer.ID, ActorID: world.lead.ID, AdminOverride: true})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin override, got %v", err)
	}

	if _, err := world.assignments.Assign(world.ctx, AssignInput{CardID: card.ID, AssigneeID: world.observer.ID, ActorID: world.admin.ID, AdminOverride: true}); err != nil {
		t.Fatalf("expected admin override to succeed, got %v", err)
	}
}

func TestContributorMayOnlyClaimCardsForThemselves(t *testing.T) {
	world := newTestWorld(t)
	card := world.createCard(t, "Wire login")

	_, err := world.assignments.Assign(world.ctx, AssignInput{CardID: card.ID, AssigneeID: world.dev2.ID, ActorID: world.dev.ID})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden when assigning someone else, got %v", err)
	}
	if _, err := world.assignments.Assign(world.ctx, AssignInput{CardID: card.ID, AssigneeID: world.dev.ID, ActorID: world.dev.ID}); err != nil {
		t.Fatalf("expected self-claim to succeed, got %v", err)
	}

	if err := world.assignments.Unassign(world.ctx, card.ID, world.dev2.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden when unassigning another member, got %v", err)
	}
	if err := world.assignments.Unassign(world.ctx, card.ID, world.dev.ID); err != nil {
		t.Fatalf("expected assignee to release their own card, got %v", err)
	}
}

func TestAssignHidesProjectFromOutsiders(t *testing.T) {
	world := newTestWorld(t)
	card := world.createCard(t, "Wire login")

	_, err := world.assignments.Assign(world.ctx, AssignInput{CardID: card.ID, AssigneeID: world.outsider.ID, ActorID: world.outsider.ID})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for outsider, got %v", err)
	}

	_, err = world.assignments.Assign(world.ctx, AssignInput{CardID: card.ID, AssigneeID: world.outsider.ID, ActorID: world.lead.ID})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-member assignee, got %v", err)
	}

	_, err = world.assignments.Assign(world.ctx, AssignInput{CardID: card.ID, AssigneeID: world.dev.ID, ActorID: 0})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without identity, got %v", err)
	}
}

func TestCompletedProjectSkipsWorkloadRuleAndBlocksReopen(t *testing.T) {
	world := newTestWorld(t)
	first := world.createCard(t, "Wire login")
	second := world.createCard(t, "Wire logout")

	if _, err := world.projects.SetCompletion(world.ctx, world.project.ID, true, world.lead.ID); err != nil {
		t.Fatalf("complete project: %v", err)
	}
	world.assign(t, first.ID, world.dev.ID)
	world.assign(t, second.ID, world.dev.ID)

	_, err := world.projects.SetCompletion(world.ctx, world.project.ID, false, world.lead.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict when reopening with overloaded member, got %v", err)
	}

	world.setStatus(t, first.ID, models.CardStatusDone)
	project, err := world.projects.SetCompletion(world.ctx, world.project.ID, false, world.lead.ID)
	if err != nil {
		t.Fatalf("reopen project: %v", err)
	}
	if project.IsCompleted || project.CompletedAt != nil {
		t.Fatalf("expected reopened project, got %#v", project)
	}
}

func TestMovingCardOutOfDoneRechecksWorkload(t *testing.T) {
	world := newTestWorld(t)
	first := world.createCard(t, "Wire login")
	second := world.createCard(t, "Wire logout")

	world.assign(t, first.ID, world.dev.ID)
	world.setStatus(t, first.ID, models.CardStatusDone)
	world.assign(t, second.ID, world.dev.ID)

	_, err := world.cards.UpdateStatus(world.ctx, first.ID, models.CardStatusReview, world.lead.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if reloaded := world.reloadCard(t, first.ID); reloaded.Status != models.CardStatusDone {
		t.Fatalf("expected status to stay DONE, got %q", reloaded.Status)
	}
}

func TestCreateCardWithAssigneeWritesLedger(t *testing.T) {
	world := newTestWorld(t)

	card, err := world.cards.CreateCard(world.ctx, CreateCardInput{
		BoardID:    world.board.ID,
		Title:      "Ship it",
		AssigneeID: uintPtr(world.dev.ID),
		ActorID:    world.lead.ID,
	})
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	if card.AssigneeID == nil || *card.AssigneeID != world.dev.ID {
		t.Fatalf("expected card assigned to dev")
	}
	if rows := world.activeRows(t, card.ID); len(rows) != 1 || rows[0].AssignedTo != world.dev.ID {
		t.Fatalf("expected one active ledger row for dev, got %#v", rows)
	}

	_, err = world.cards.CreateCard(world.ctx, CreateCardInput{
		BoardID:    world.board.ID,
		Title:      "Ship it again",
		AssigneeID: uintPtr(world.dev.ID),
		ActorID:    world.lead.ID,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for second unfinished card, got %v", err)
	}
	cards, err := world.cards.ListBoardCards(world.ctx, world.board.ID, world.lead.ID)
	if err != nil {
		t.Fatalf("list cards: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("expected rejected card creation to roll back, got %d cards", len(cards))
	}
}

func TestDeleteCardClosesLedgerAndKeepsAuditRows(t *testing.T) {
	world := newTestWorld(t)
	card := world.createCard(t, "Wire login")
	world.assign(t, card.ID, world.dev.ID)

	if err := world.cards.DeleteCard(world.ctx, card.ID, world.dev.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for developer delete, got %v", err)
	}
	if err := world.cards.DeleteCard(world.ctx, card.ID, world.lead.ID); err != nil {
		t.Fatalf("delete card: %v", err)
	}

	ledger, err := world.store.Repos(world.ctx).Assignments.ListByCard(card.ID)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(ledger) != 1 || ledger[0].IsActive {
		t.Fatalf("expected one closed audit row, got %#v", ledger)
	}
	if _, err := world.cards.GetCard(world.ctx, card.ID, world.lead.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted card to be hidden, got %v", err)
	}
}
