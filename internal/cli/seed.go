package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/models"
	"github.com/terraincognita07/boardkeeper/internal/services"
	"gopkg.in/yaml.v3"
)

type SeedFixture struct {
	Users    []SeedUser    `yaml:"users"`
	Projects []SeedProject `yaml:"projects"`
}

type SeedUser struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type SeedProject struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Owner       string       `yaml:"owner"`
	Members     []SeedMember `yaml:"members"`
	Boards      []SeedBoard  `yaml:"boards"`
}

type SeedMember struct {
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

type SeedBoard struct {
	Name  string     `yaml:"name"`
	Cards []SeedCard `yaml:"cards"`
}

type SeedCard struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Priority    string `yaml:"priority"`
	Status      string `yaml:"status"`
	Assignee    string `yaml:"assignee"`
}

type SeedResult struct {
	Users    int
	Projects int
	Boards   int
	Cards    int
}

// ParseSeedFixture rejects unknown keys so typos in a fixture fail loudly.
func ParseSeedFixture(raw []byte) (SeedFixture, error) {
	fixture := SeedFixture{}
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fixture); err != nil && !errors.Is(err, io.EOF) {
		return SeedFixture{}, fmt.Errorf("parse seed fixture: %w", err)
	}
	return fixture, nil
}

func LoadSeedFixture(path string) (SeedFixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedFixture{}, fmt.Errorf("read seed fixture: %w", err)
	}
	return ParseSeedFixture(raw)
}

// RunSeed loads a fixture through the service layer so every membership and
// assignment rule applies. Existing users are reused and projects whose name
// already exists are skipped.
func RunSeed(ctx context.Context, store *db.Store, fixture SeedFixture, out io.Writer) (SeedResult, error) {
	seeder := &seeder{
		ctx:         ctx,
		store:       store,
		auth:        services.NewAuthService(store),
		users:       services.NewUserService(store),
		projects:    services.NewProjectService(store, nil),
		memberships: services.NewMembershipService(store, nil),
		cards:       services.NewCardService(store, nil),
		byEmail:     make(map[string]models.User),
	}

	if err := seeder.seedUsers(fixture.Users); err != nil {
		return seeder.result, err
	}
	for _, project := range fixture.Projects {
		if err := seeder.seedProject(project); err != nil {
			return seeder.result, fmt.Errorf("project %q: %w", project.Name, err)
		}
	}

	fmt.Fprintf(out, "Seeded %d user(s), %d project(s), %d board(s), %d card(s)\n",
		seeder.result.Users, seeder.result.Projects, seeder.result.Boards, seeder.result.Cards)
	return seeder.result, nil
}

type seeder struct {
	ctx         context.Context
	store       *db.Store
	auth        *services.AuthService
	users       *services.UserService
	projects    *services.ProjectService
	memberships *services.MembershipService
	cards       *services.CardService
	byEmail     map[string]models.User
	result      SeedResult
}

func (seeder *seeder) seedUsers(users []SeedUser) error {
	for _, entry := range users {
		email := services.NormalizeAuthEmail(entry.Email)
		if email == "" {
			return fmt.Errorf("user %q: invalid email", entry.Email)
		}

		existing, err := seeder.store.Repos(seeder.ctx).Users.FindByNormalizedEmail(email)
		if err == nil {
			seeder.byEmail[email] = existing
			continue
		}
		if !db.IsNotFound(err) {
			return fmt.Errorf("user %s: %w", email, err)
		}

		name := strings.TrimSpace(entry.Name)
		if name == "" {
			name = email
		}
		created, err := seeder.auth.Register(seeder.ctx, email, name, entry.Password)
		if err != nil {
			return fmt.Errorf("user %s: %w", email, err)
		}
		seeder.byEmail[email] = created
		seeder.result.Users++
	}

	admin, ok := seeder.firstAdmin()
	for _, entry := range users {
		role := strings.ToUpper(strings.TrimSpace(entry.Role))
		email := services.NormalizeAuthEmail(entry.Email)
		user := seeder.byEmail[email]
		if role == "" || role == user.GlobalRole {
			continue
		}
		if !ok {
			return fmt.Errorf("user %s: an ADMIN user is required to assign role %s", email, role)
		}
		updated, err := seeder.users.ChangeUserRole(seeder.ctx, user.ID, role, admin.ID)
		if err != nil {
			return fmt.Errorf("user %s: %w", email, err)
		}
		seeder.byEmail[email] = updated
	}
	return nil
}

func (seeder *seeder) firstAdmin() (models.User, bool) {
	users, err := seeder.store.Repos(seeder.ctx).Users.List()
	if err != nil {
		return models.User{}, false
	}
	for _, user := range users {
		if user.GlobalRole == models.GlobalRoleAdmin {
			return user, true
		}
	}
	return models.User{}, false
}

func (seeder *seeder) seedProject(entry SeedProject) error {
	owner, err := seeder.user(entry.Owner)
	if err != nil {
		return err
	}

	existing, err := seeder.store.Repos(seeder.ctx).Projects.ListAll()
	if err != nil {
		return err
	}
	for _, project := range existing {
		if strings.EqualFold(project.Name, strings.TrimSpace(entry.Name)) {
			return nil
		}
	}

	project, err := seeder.projects.CreateProject(seeder.ctx, entry.Name, entry.Description, owner.ID)
	if err != nil {
		return err
	}
	seeder.result.Projects++

	for _, member := range entry.Members {
		user, err := seeder.user(member.Email)
		if err != nil {
			return err
		}
		if _, err := seeder.memberships.AddMember(seeder.ctx, project.ID, user.ID, strings.ToUpper(member.Role), owner.ID); err != nil {
			return fmt.Errorf("member %s: %w", member.Email, err)
		}
	}

	for _, boardEntry := range entry.Boards {
		board, err := seeder.projects.CreateBoard(seeder.ctx, project.ID, boardEntry.Name, owner.ID)
		if err != nil {
			return fmt.Errorf("board %q: %w", boardEntry.Name, err)
		}
		seeder.result.Boards++

		for _, cardEntry := range boardEntry.Cards {
			if err := seeder.seedCard(board.ID, owner.ID, cardEntry); err != nil {
				return fmt.Errorf("card %q: %w", cardEntry.Title, err)
			}
		}
	}
	return nil
}

func (seeder *seeder) seedCard(boardID uint, ownerID uint, entry SeedCard) error {
	input := services.CreateCardInput{
		BoardID:     boardID,
		Title:       entry.Title,
		Description: entry.Description,
		Priority:    strings.ToUpper(entry.Priority),
		ActorID:     ownerID,
	}
	if strings.TrimSpace(entry.Assignee) != "" {
		assignee, err := seeder.user(entry.Assignee)
		if err != nil {
			return err
		}
		input.AssigneeID = &assignee.ID
	}

	card, err := seeder.cards.CreateCard(seeder.ctx, input)
	if err != nil {
		return err
	}
	seeder.result.Cards++

	status := strings.ToUpper(strings.TrimSpace(entry.Status))
	if status == "" || status == card.Status {
		return nil
	}
	_, err = seeder.cards.UpdateStatus(seeder.ctx, card.ID, status, ownerID)
	return err
}

func (seeder *seeder) user(email string) (models.User, error) {
	user, ok := seeder.byEmail[services.NormalizeAuthEmail(email)]
	if !ok {
		return models.User{}, fmt.Errorf("user %q is not declared in the fixture", email)
	}
	return user, nil
}
