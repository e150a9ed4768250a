package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestRegisterMakesFirstUserAdmin(t *testing.T) {
	app, _ := newTestApp(t)

	first := registerUser(t, app, "first@example.com")
	second := registerUser(t, app, "second@example.com")

	me := doJSON(t, app, http.MethodGet, "/api/auth/me", first.Token, nil).object(t)
	if me["global_role"] != "ADMIN" {
		t.Fatalf("expected first user to be ADMIN, got %v", me["global_role"])
	}
	me = doJSON(t, app, http.MethodGet, "/api/auth/me", second.Token, nil).object(t)
	if me["global_role"] != "MEMBER" {
		t.Fatalf("expected second user to be MEMBER, got %v", me["global_role"])
	}
	if _, exposed := me["password_hash"]; exposed {
		t.Fatal("expected password hash to stay out of responses")
	}
}

func TestRegisterRejectsDuplicateAndWeakInput(t *testing.T) {
	app, _ := newTestApp(t)
	registerUser(t, app, "dup@example.com")

	response := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "DUP@example.com", "name": "Dup", "password": testPassword,
	})
	if response.status != fiber.StatusConflict {
		t.Fatalf("expected duplicate email status 409, got %d", response.status)
	}

	response = doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "weak@example.com", "name": "Weak", "password": "short",
	})
	if response.status != fiber.StatusBadRequest {
		t.Fatalf("expected weak password status 400, got %d", response.status)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	app, _ := newTestApp(t)

	response := doJSON(t, app, http.MethodGet, "/api/projects", "", nil)
	if response.status != fiber.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", response.status)
	}
	if code := response.object(t)["code"]; code != "unauthorized" {
		t.Fatalf("expected code unauthorized, got %v", code)
	}

	response = doJSON(t, app, http.MethodGet, "/api/projects", "not-a-jwt", nil)
	if response.status != fiber.StatusUnauthorized {
		t.Fatalf("expected status 401 for garbage token, got %d", response.status)
	}
}

func TestLoginSetsCookieAccepted(t *testing.T) {
	app, _ := newTestApp(t)
	registerUser(t, app, "cookie@example.com")

	response := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "cookie@example.com", "password": testPassword,
	})
	if response.status != fiber.StatusOK {
		t.Fatalf("expected login status 200, got %d: %s", response.status, string(response.body))
	}

	var authCookie *http.Cookie
	for _, cookie := range response.cookies {
		if cookie.Name == AuthCookieName {
			authCookie = cookie
		}
	}
	if authCookie == nil || authCookie.Value == "" {
		t.Fatal("expected auth cookie after login")
	}
	if !authCookie.HttpOnly {
		t.Fatal("expected auth cookie to be HttpOnly")
	}

	request := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	request.AddCookie(&http.Cookie{Name: AuthCookieName, Value: authCookie.Value})
	me, err := app.Test(request, -1)
	if err != nil {
		t.Fatalf("me request failed: %v", err)
	}
	defer me.Body.Close()
	if me.StatusCode != fiber.StatusOK {
		t.Fatalf("expected cookie session to be accepted, got %d", me.StatusCode)
	}
}

func TestLoginLimiterBlocksRepeatedFailures(t *testing.T) {
	app, _ := newTestApp(t)
	registerUser(t, app, "target@example.com")

	for attempt := 0; attempt < loginFailureLimit; attempt++ {
		response := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{
			"email": "target@example.com", "password": "Wrong-Passw0rd",
		})
		if response.status != fiber.StatusUnauthorized {
			t.Fatalf("attempt %d: expected status 401, got %d", attempt, response.status)
		}
		if code := response.object(t)["code"]; code != "invalid_credentials" {
			t.Fatalf("attempt %d: expected invalid_credentials, got %v", attempt, code)
		}
	}

	response := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "target@example.com", "password": testPassword,
	})
	if response.status != fiber.StatusTooManyRequests {
		t.Fatalf("expected status 429 after repeated failures, got %d", response.status)
	}
}

func TestUnknownEmailAndWrongPasswordLookAlike(t *testing.T) {
	app, _ := newTestApp(t)
	registerUser(t, app, "known@example.com")

	unknown := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "nobody@example.com", "password": testPassword,
	})
	wrong := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "known@example.com", "password": "Wrong-Passw0rd",
	})
	if unknown.status != wrong.status || string(unknown.body) != string(wrong.body) {
		t.Fatalf("expected identical responses, got %d %s and %d %s", unknown.status, unknown.body, wrong.status, wrong.body)
	}
}

func TestChangePasswordEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	user := registerUser(t, app, "changer@example.com")

	response := doJSON(t, app, http.MethodPost, "/api/auth/password", user.Token, map[string]any{
		"current_password": "Wrong-Passw0rd", "new_password": "Another1Pass",
	})
	if response.status != fiber.StatusUnauthorized {
		t.Fatalf("expected wrong current password status 401, got %d", response.status)
	}

	response = doJSON(t, app, http.MethodPost, "/api/auth/password", user.Token, map[string]any{
		"current_password": testPassword, "new_password": "Another1Pass",
	})
	if response.status != fiber.StatusNoContent {
		t.Fatalf("expected change status 204, got %d: %s", response.status, string(response.body))
	}

	response = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "changer@example.com", "password": "Another1Pass",
	})
	if response.status != fiber.StatusOK {
		t.Fatalf("expected login with new password status 200, got %d", response.status)
	}
}
