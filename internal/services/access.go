package services

import (
	"time"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/models"
)

func utcNow() time.Time {
	return time.Now().UTC()
}

func loadActor(repos *db.Repositories, actorID uint) (models.User, error) {
	if actorID == 0 {
		return models.User{}, ErrUnauthorized
	}
	actor, err := repos.Users.FindByID(actorID)
	if err != nil {
		return models.User{}, translateStoreError(err, ErrUnauthorized)
	}
	return actor, nil
}

func loadProject(repos *db.Repositories, projectID uint) (models.Project, error) {
	project, err := repos.Projects.FindByID(projectID)
	if err != nil {
		return models.Project{}, translateStoreError(err, ErrProjectNotFound)
	}
	return project, nil
}

func loadCardScope(repos *db.Repositories, cardID uint) (db.CardScope, error) {
	scope, err := repos.Cards.FindScope(cardID)
	if err != nil {
		return db.CardScope{}, translateStoreError(err, ErrCardNotFound)
	}
	return scope, nil
}

func loadAccess(repos *db.Repositories, actor models.User, project models.Project) (ProjectAccess, error) {
	member, found, err := repos.Members.Find(project.ID, actor.ID)
	if err != nil {
		return ProjectAccess{}, err
	}
	if !found {
		return NewProjectAccess(actor, project, nil), nil
	}
	return NewProjectAccess(actor, project, &member), nil
}

// authorizeProject loads actor and access and applies the predicate. Callers
// that cannot read the project get NotFound so existence is not leaked.
func authorizeProject(repos *db.Repositories, actorID uint, project models.Project, allowed func(ProjectAccess) bool) (models.User, ProjectAccess, error) {
	actor, err := loadActor(repos, actorID)
	if err != nil {
		return models.User{}, ProjectAccess{}, err
	}
	access, err := loadAccess(repos, actor, project)
	if err != nil {
		return models.User{}, ProjectAccess{}, err
	}
	if !CanReadProject(access) {
		return models.User{}, ProjectAccess{}, ErrProjectNotFound
	}
	if allowed != nil && !allowed(access) {
		return models.User{}, ProjectAccess{}, ErrForbidden
	}
	return actor, access, nil
}

func blockingCards(cards []models.Card) []BlockingCard {
	blocking := make([]BlockingCard, 0, len(cards))
	for _, card := range cards {
		blocking = append(blocking, BlockingCard{ID: card.ID, Title: card.Title, Status: card.Status})
	}
	return blocking
}
