package services

import (
	"context"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/models"
)

// checkOneActiveTask enforces the per-project workload rule: while the
// project is open, a member may hold at most one card that is not DONE.
// excludeCardID is the card being (re)assigned.
func checkOneActiveTask(repos *db.Repositories, project models.Project, userID uint, excludeCardID uint) error {
	if project.IsCompleted {
		return nil
	}
	unfinished, err := repos.Cards.ListUnfinishedForAssignee(project.ID, userID, excludeCardID)
	if err != nil {
		return err
	}
	if len(unfinished) == 0 {
		return nil
	}
	return &UnfinishedCardsError{
		UserID:    userID,
		ProjectID: project.ID,
		Cards:     blockingCards(unfinished),
	}
}

type Eligibility struct {
	UserID      uint           `json:"user_id"`
	ProjectID   uint           `json:"project_id"`
	Eligible    bool           `json:"eligible"`
	Reason      string         `json:"reason,omitempty"`
	Unfinished  []BlockingCard `json:"unfinished_cards"`
	ProjectDone bool           `json:"project_completed"`
}

type WorkloadService struct {
	store *db.Store
}

func NewWorkloadService(store *db.Store) *WorkloadService {
	return &WorkloadService{store: store}
}

// CheckEligibility is the advisory form of the assignment-time checks, used
// by clients to grey out candidates before submitting.
func (service *WorkloadService) CheckEligibility(ctx context.Context, projectID uint, userID uint, actorID uint) (Eligibility, error) {
	repos := service.store.Repos(ctx)
	project, err := loadProject(repos, projectID)
	if err != nil {
		return Eligibility{}, err
	}
	if _, _, err := authorizeProject(repos, actorID, project, CanReadProject); err != nil {
		return Eligibility{}, err
	}

	result := Eligibility{
		UserID:      userID,
		ProjectID:   projectID,
		Unfinished:  []BlockingCard{},
		ProjectDone: project.IsCompleted,
	}

	member, found, err := repos.Members.Find(projectID, userID)
	if err != nil {
		return Eligibility{}, err
	}
	if !found {
		result.Reason = "not a project member"
		return result, nil
	}
	if !CanBeAssigned(member) {
		result.Reason = "observers cannot be assigned"
		return result, nil
	}

	unfinished, err := repos.Cards.ListUnfinishedForAssignee(projectID, userID, 0)
	if err != nil {
		return Eligibility{}, err
	}
	result.Unfinished = blockingCards(unfinished)
	if !project.IsCompleted && len(unfinished) > 0 {
		result.Reason = "member has an unfinished card"
		return result, nil
	}

	result.Eligible = true
	return result, nil
}
