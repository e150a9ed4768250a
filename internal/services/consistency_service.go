package services

import (
	"context"
	"log"
	"slices"
	"time"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/models"
)

// PointerMismatch is a card whose assignee pointer disagrees with the newest
// active ledger row. Either side may be nil.
type PointerMismatch struct {
	CardID         uint  `json:"card_id"`
	CardAssigneeID *uint `json:"card_assignee_id"`
	LedgerUserID   *uint `json:"ledger_user_id"`
}

type DuplicateActive struct {
	CardID        uint   `json:"card_id"`
	AssignmentIDs []uint `json:"assignment_ids"`
}

// OrphanActive lists live ledger rows on a card that was deleted or no
// longer exists. Repair closes all of them.
type OrphanActive struct {
	CardID        uint   `json:"card_id"`
	AssignmentIDs []uint `json:"assignment_ids"`
}

type WorkloadViolation struct {
	ProjectID       uint  `json:"project_id"`
	UserID          uint  `json:"user_id"`
	UnfinishedCards int64 `json:"unfinished_cards"`
}

type ConsistencyReport struct {
	PointerMismatches  []PointerMismatch   `json:"pointer_mismatches"`
	DuplicateActive    []DuplicateActive   `json:"duplicate_active"`
	OrphanActive       []OrphanActive      `json:"orphan_active"`
	WorkloadViolations []WorkloadViolation `json:"workload_violations"`
}

func (report ConsistencyReport) Clean() bool {
	return len(report.PointerMismatches) == 0 &&
		len(report.DuplicateActive) == 0 &&
		len(report.OrphanActive) == 0 &&
		len(report.WorkloadViolations) == 0
}

type RepairResult struct {
	PointersRealigned   int `json:"pointers_realigned"`
	AssignmentsDisabled int `json:"assignments_disabled"`
}

type ConsistencyService struct {
	store *db.Store
	now   func() time.Time
}

func NewConsistencyService(store *db.Store) *ConsistencyService {
	return &ConsistencyService{store: store, now: utcNow}
}

func (service *ConsistencyService) Check(ctx context.Context) (ConsistencyReport, error) {
	return checkConsistency(service.store.Repos(ctx))
}

// Repair points every card at its newest active ledger row and closes the
// older ones. Workload violations are reported but never auto-resolved.
func (service *ConsistencyService) Repair(ctx context.Context) (RepairResult, error) {
	result := RepairResult{}
	err := service.store.Transaction(ctx, func(repos *db.Repositories) error {
		now := service.now()
		snapshot, err := loadLedgerSnapshot(repos)
		if err != nil {
			return err
		}

		for cardID, rows := range snapshot.activeByCard {
			for _, stale := range rows[1:] {
				if err := repos.Assignments.DeactivateByID(stale.ID, now); err != nil {
					return err
				}
				result.AssignmentsDisabled++
			}
			if _, live := snapshot.cards[cardID]; !live {
				if err := repos.Assignments.DeactivateByID(rows[0].ID, now); err != nil {
					return err
				}
				result.AssignmentsDisabled++
			}
		}

		for _, mismatch := range snapshot.mismatches() {
			if _, live := snapshot.cards[mismatch.CardID]; !live {
				continue
			}
			if err := repos.Cards.SetAssignee(mismatch.CardID, mismatch.LedgerUserID); err != nil {
				return err
			}
			result.PointersRealigned++
		}
		return nil
	})
	if err != nil {
		return RepairResult{}, err
	}

	log.Printf("consistency repair: realigned=%d disabled=%d", result.PointersRealigned, result.AssignmentsDisabled)
	return result, nil
}

func checkConsistency(repos *db.Repositories) (ConsistencyReport, error) {
	snapshot, err := loadLedgerSnapshot(repos)
	if err != nil {
		return ConsistencyReport{}, err
	}

	report := ConsistencyReport{
		PointerMismatches:  snapshot.mismatches(),
		DuplicateActive:    make([]DuplicateActive, 0),
		OrphanActive:       make([]OrphanActive, 0),
		WorkloadViolations: make([]WorkloadViolation, 0),
	}
	for _, cardID := range snapshot.cardIDs() {
		rows := snapshot.activeByCard[cardID]
		if len(rows) == 0 {
			continue
		}
		ids := make([]uint, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		if _, live := snapshot.cards[cardID]; !live {
			report.OrphanActive = append(report.OrphanActive, OrphanActive{CardID: cardID, AssignmentIDs: ids})
			continue
		}
		if len(rows) > 1 {
			report.DuplicateActive = append(report.DuplicateActive, DuplicateActive{CardID: cardID, AssignmentIDs: ids})
		}
	}

	violations, err := repos.Cards.ListWorkloadViolations()
	if err != nil {
		return ConsistencyReport{}, err
	}
	for _, row := range violations {
		report.WorkloadViolations = append(report.WorkloadViolations, WorkloadViolation{
			ProjectID:       row.ProjectID,
			UserID:          row.AssigneeID,
			UnfinishedCards: row.Total,
		})
	}
	return report, nil
}

type ledgerSnapshot struct {
	cards        map[uint]models.Card
	activeByCard map[uint][]models.CardAssignment
}

func loadLedgerSnapshot(repos *db.Repositories) (ledgerSnapshot, error) {
	snapshot := ledgerSnapshot{
		cards:        make(map[uint]models.Card),
		activeByCard: make(map[uint][]models.CardAssignment),
	}

	active, err := repos.Assignments.ListActive()
	if err != nil {
		return ledgerSnapshot{}, err
	}
	for _, row := range active {
		snapshot.activeByCard[row.CardID] = append(snapshot.activeByCard[row.CardID], row)
	}

	assigned, err := repos.Cards.ListWithAssignee()
	if err != nil {
		return ledgerSnapshot{}, err
	}
	for _, card := range assigned {
		snapshot.cards[card.ID] = card
	}
	for cardID := range snapshot.activeByCard {
		if _, ok := snapshot.cards[cardID]; ok {
			continue
		}
		card, err := repos.Cards.FindByID(cardID)
		if db.IsNotFound(err) {
			continue
		}
		if err != nil {
			return ledgerSnapshot{}, err
		}
		snapshot.cards[card.ID] = card
	}
	return snapshot, nil
}

func (snapshot ledgerSnapshot) cardIDs() []uint {
	seen := make(map[uint]struct{}, len(snapshot.cards)+len(snapshot.activeByCard))
	for cardID := range snapshot.cards {
		seen[cardID] = struct{}{}
	}
	for cardID := range snapshot.activeByCard {
		seen[cardID] = struct{}{}
	}
	ids := make([]uint, 0, len(seen))
	for cardID := range seen {
		ids = append(ids, cardID)
	}
	slices.Sort(ids)
	return ids
}

// mismatches lists live cards whose pointer is not the newest active row's
// assignee. Rows are ordered newest first by the repository.
func (snapshot ledgerSnapshot) mismatches() []PointerMismatch {
	result := make([]PointerMismatch, 0)
	for _, cardID := range snapshot.cardIDs() {
		card, live := snapshot.cards[cardID]
		if !live {
			continue
		}
		var ledgerUser *uint
		if rows := snapshot.activeByCard[cardID]; len(rows) > 0 {
			assignee := rows[0].AssignedTo
			ledgerUser = &assignee
		}
		if sameAssignee(card.AssigneeID, ledgerUser) {
			continue
		}
		result = append(result, PointerMismatch{CardID: cardID, CardAssigneeID: card.AssigneeID, LedgerUserID: ledgerUser})
	}
	return result
}

func sameAssignee(left *uint, right *uint) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	return *left == *right
}
