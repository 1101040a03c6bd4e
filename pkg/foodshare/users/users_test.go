package users

import (
	"net/http"
	"testing"

	"github.com/mikepea/foodshare/pkg/foodshare/testutil"
)

func TestMe(t *testing.T) {
	db := testutil.NewDB(t)
	sessions := testutil.NewSessions(db)
	r, api := testutil.Router(sessions)
	NewHandler(db).RegisterRoutes(api.Group("/users"))

	alice := testutil.CreateUser(t, db, "Alice")

	w := testutil.Do(r, http.MethodGet, "/api/users/me", nil, testutil.SessionCookie(t, sessions, alice))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp MeResponse
	testutil.Decode(t, w, &resp)
	if resp.User.ID != alice.ID || resp.User.Email != "alice@example.com" {
		t.Errorf("Unexpected user %+v", resp.User)
	}
}

func TestMeRequiresSession(t *testing.T) {
	db := testutil.NewDB(t)
	sessions := testutil.NewSessions(db)
	r, api := testutil.Router(sessions)
	NewHandler(db).RegisterRoutes(api.Group("/users"))

	w := testutil.Do(r, http.MethodGet, "/api/users/me", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
	if body := testutil.DecodeError(t, w); body.Error != "AuthenticationFailed" {
		t.Errorf("Expected AuthenticationFailed, got %s", body.Error)
	}
}

func TestMeForDeletedUser(t *testing.T) {
	db := testutil.NewDB(t)
	sessions := testutil.NewSessions(db)
	r, api := testutil.Router(sessions)
	NewHandler(db).RegisterRoutes(api.Group("/users"))

	ghost := testutil.CreateUser(t, db, "Ghost")
	cookie := testutil.SessionCookie(t, sessions, ghost)
	db.Delete(&ghost)

	w := testutil.Do(r, http.MethodGet, "/api/users/me", nil, cookie)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}
