package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/models"
)

const (
	AssignmentStatusActive     = "active"
	AssignmentStatusCompleted  = "completed"
	AssignmentStatusUnassigned = "unassigned"
)

// HistoryQuery selects ledger rows for exactly one card or one project.
type HistoryQuery struct {
	CardID     uint
	ProjectID  uint
	AssigneeID uint
	From       *time.Time
	To         *time.Time
	ActiveOnly bool
}

type HistoryRow struct {
	ID           uint       `json:"id"`
	CardID       uint       `json:"card_id"`
	CardTitle    string     `json:"card_title"`
	CardStatus   string     `json:"card_status"`
	ProjectID    uint       `json:"project_id"`
	AssignedTo   uint       `json:"assigned_to"`
	AssigneeName string     `json:"assignee_name"`
	AssignedBy   uint       `json:"assigned_by"`
	AssignerName string     `json:"assigner_name"`
	AssignedAt   time.Time  `json:"assigned_at"`
	UnassignedAt *time.Time `json:"unassigned_at"`
	IsActive     bool       `json:"is_active"`
	Reason       string     `json:"reason"`
	DurationDays float64    `json:"duration_days"`
	Status       string     `json:"status"`
}

type AssigneeSummary struct {
	UserID      uint    `json:"user_id"`
	Name        string  `json:"name"`
	Assignments int     `json:"assignments"`
	Active      int     `json:"active"`
	TotalDays   float64 `json:"total_days"`
}

type HistorySummary struct {
	Total               int               `json:"total"`
	Active              int               `json:"active"`
	Completed           int               `json:"completed"`
	Unassigned          int               `json:"unassigned"`
	UniqueAssignees     int               `json:"unique_assignees"`
	AverageDurationDays float64           `json:"average_duration_days"`
	ByAssignee          []AssigneeSummary `json:"by_assignee"`
}

type HistoryResult struct {
	Rows    []HistoryRow   `json:"rows"`
	Summary HistorySummary `json:"summary"`
}

type HistoryService struct {
	store *db.Store
	now   func() time.Time
}

func NewHistoryService(store *db.Store) *HistoryService {
	return &HistoryService{store: store, now: utcNow}
}

func (service *HistoryService) GetAssignmentHistory(ctx context.Context, query HistoryQuery, actorID uint) (HistoryResult, error) {
	if (query.CardID == 0) == (query.ProjectID == 0) {
		return HistoryResult{}, fmt.Errorf("%w: exactly one of card or project scope is required", ErrValidation)
	}
	// To is exclusive, so an end equal to the start is an empty range.
	if query.From != nil && query.To != nil && !query.To.After(*query.From) {
		return HistoryResult{}, fmt.Errorf("%w: range end must be after start", ErrValidation)
	}

	repos := service.store.Repos(ctx)
	var project models.Project
	var err error
	if query.CardID != 0 {
		scope, scopeErr := loadCardScope(repos, query.CardID)
		if scopeErr != nil {
			return HistoryResult{}, scopeErr
		}
		project = scope.Project
	} else {
		project, err = loadProject(repos, query.ProjectID)
		if err != nil {
			return HistoryResult{}, err
		}
	}
	if _, _, err := authorizeProject(repos, actorID, project, CanReadProject); err != nil {
		return HistoryResult{}, err
	}

	records, err := repos.Assignments.ListRecords(db.AssignmentFilter{
		CardID:     query.CardID,
		ProjectID:  query.ProjectID,
		AssigneeID: query.AssigneeID,
		From:       query.From,
		To:         query.To,
		ActiveOnly: query.ActiveOnly,
	})
	if err != nil {
		return HistoryResult{}, err
	}

	now := service.now()
	rows := make([]HistoryRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, HistoryRow{
			ID:           record.ID,
			CardID:       record.CardID,
			CardTitle:    record.CardTitle,
			CardStatus:   record.CardStatus,
			ProjectID:    record.ProjectID,
			AssignedTo:   record.AssignedTo,
			AssigneeName: record.AssigneeName,
			AssignedBy:   record.AssignedBy,
			AssignerName: record.AssignerName,
			AssignedAt:   record.AssignedAt,
			UnassignedAt: record.UnassignedAt,
			IsActive:     record.IsActive,
			Reason:       record.Reason,
			DurationDays: AssignmentDurationDays(record.AssignedAt, record.UnassignedAt, now),
			Status:       DeriveAssignmentStatus(record.IsActive, record.CardStatus),
		})
	}

	return HistoryResult{Rows: rows, Summary: SummarizeHistory(rows)}, nil
}

// AssignmentDurationDays measures (unassignedAt ?? now) - assignedAt in days,
// rounded to two decimals.
func AssignmentDurationDays(assignedAt time.Time, unassignedAt *time.Time, now time.Time) float64 {
	end := now
	if unassignedAt != nil {
		end = *unassignedAt
	}
	days := end.Sub(assignedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Round(days*100) / 100
}

// DeriveAssignmentStatus: a live row on a DONE card is completed, any other
// live row is active, and closed rows are unassigned.
func DeriveAssignmentStatus(isActive bool, cardStatus string) string {
	if !isActive {
		return AssignmentStatusUnassigned
	}
	if cardStatus == models.CardStatusDone {
		return AssignmentStatusCompleted
	}
	return AssignmentStatusActive
}

func SummarizeHistory(rows []HistoryRow) HistorySummary {
	summary := HistorySummary{ByAssignee: []AssigneeSummary{}}
	perAssignee := make(map[uint]*AssigneeSummary)
	totalDays := 0.0

	for _, row := range rows {
		summary.Total++
		switch row.Status {
		case AssignmentStatusActive:
			summary.Active++
		case AssignmentStatusCompleted:
			summary.Completed++
		default:
			summary.Unassigned++
		}
		totalDays += row.DurationDays

		entry, ok := perAssignee[row.AssignedTo]
		if !ok {
			entry = &AssigneeSummary{UserID: row.AssignedTo, Name: row.AssigneeName}
			perAssignee[row.AssignedTo] = entry
		}
		entry.Assignments++
		entry.TotalDays = math.Round((entry.TotalDays+row.DurationDays)*100) / 100
		if row.IsActive {
			entry.Active++
		}
	}

	summary.UniqueAssignees = len(perAssignee)
	if summary.Total > 0 {
		summary.AverageDurationDays = math.Round(totalDays/float64(summary.Total)*100) / 100
	}
	for _, entry := range perAssignee {
		summary.ByAssignee = append(summary.ByAssignee, *entry)
	}
	sort.Slice(summary.ByAssignee, func(i, j int) bool {
		if summary.ByAssignee[i].Assignments == summary.ByAssignee[j].Assignments {
			return summary.ByAssignee[i].UserID < summary.ByAssignee[j].UserID
		}
		return summary.ByAssignee[i].Assignments > summary.ByAssignee[j].Assignments
	})
	return summary
}
