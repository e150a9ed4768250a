package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/boardkeeper/internal/db"
	"github.com/terraincognita07/boardkeeper/internal/events"
)

const testPassword = "Sup3rSecret"

type nopPublisher struct{}

func (nopPublisher) Publish(...events.Event)       {}
func (nopPublisher) Notify(...events.Notification) {}
func (nopPublisher) Stats() events.Stats           { return events.Stats{} }

func newTestApp(t *testing.T) (*fiber.App, *db.Store) {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "boardkeeper-api-test.db"))
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

	store := db.NewStore(database)
	handler, err := NewHandler(store, nopPublisher{}, HandlerOptions{
		SecretKey:     "test-secret-key",
		MaxTimerHours: 12,
		Location:      time.UTC,
	})
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}

	app := fiber.New()
	RegisterRoutes(app, handler)
	return app, store
}

type testResponse struct {
	status  int
	body    []byte
	cookies []*http.Cookie
}

func (response testResponse) decode(t *testing.T, out any) {
	t.Helper()
	if err := json.Unmarshal(response.body, out); err != nil {
		t.Fatalf("decode response %q: %v", string(response.body), err)
	}
}

func (response testResponse) object(t *testing.T) map[string]any {
	t.Helper()
	payload := map[string]any{}
	response.decode(t, &payload)
	return payload
}

func doJSON(t *testing.T, app *fiber.App, method string, path string, token string, body any) testResponse {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return testResponse{status: response.StatusCode, body: raw, cookies: response.Cookies()}
}

type session struct {
	UserID uint
	Token  string
}

func registerUser(t *testing.T, app *fiber.App, email string) session {
	t.Helper()

	response := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    email,
		"name":     email,
		"password": testPassword,
	})
	if response.status != fiber.StatusCreated {
		t.Fatalf("expected register status 201, got %d: %s", response.status, string(response.body))
	}

	payload := sessionResponse{}
	response.decode(t, &payload)
	if payload.Token == "" {
		t.Fatal("expected token in register response")
	}
	return session{UserID: payload.User.ID, Token: payload.Token}
}

func idOf(t *testing.T, response testResponse) uint {
	t.Helper()
	payload := response.object(t)
	id, ok := payload["id"].(float64)
	if !ok {
		t.Fatalf("expected id in response, got %s", string(response.body))
	}
	return uint(id)
}

// projectFixture is an ADMIN-created project with one developer, one observer
// and two cards on a board.
type projectFixture struct {
	app      *fiber.App
	store    *db.Store
	admin    session
	dev      session
	observer session
	outsider session
	project  uint
	board    uint
	cards    []uint
}

func newProjectFixture(t *testing.T) projectFixture {
	t.Helper()

	app, store := newTestApp(t)
	fixture := projectFixture{app: app, store: store}
	fixture.admin = registerUser(t, app, "admin@example.com")
	fixture.dev = registerUser(t, app, "dev@example.com")
	fixture.observer = registerUser(t, app, "observer@example.com")
	fixture.outsider = registerUser(t, app, "outsider@example.com")

	response := doJSON(t, app, http.MethodPost, "/api/projects", fixture.admin.Token, map[string]any{"name": "Apollo"})
	if response.status != fiber.StatusCreated {
		t.Fatalf("expected create project status 201, got %d: %s", response.status, string(response.body))
	}
	fixture.project = idOf(t, response)

	for _, member := range []struct {
		user session
		role string
	}{
		{fixture.dev, "DEVELOPER"},
		{fixture.observer, "OBSERVER"},
	} {
		response = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/projects/%d/members", fixture.project), fixture.admin.Token, map[string]any{
			"user_id":      member.user.UserID,
			"project_role": member.role,
		})
		if response.status != fiber.StatusCreated {
			t.Fatalf("expected add member status 201, got %d: %s", response.status, string(response.body))
		}
	}

	response = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/projects/%d/boards", fixture.project), fixture.admin.Token, map[string]any{"name": "Sprint 1"})
	if response.status != fiber.StatusCreated {
		t.Fatalf("expected create board status 201, got %d: %s", response.status, string(response.body))
	}
	fixture.board = idOf(t, response)

	for _, title := range []string{"Design", "Build"} {
		response = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/boards/%d/cards", fixture.board), fixture.admin.Token, map[string]any{"title": title})
		if response.status != fiber.StatusCreated {
			t.Fatalf("expected create card status 201, got %d: %s", response.status, string(response.body))
		}
		fixture.cards = append(fixture.cards, idOf(t, response))
	}
	return fixture
}
