// Package testutil holds fixtures shared by the handler tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodshare/pkg/foodshare/auth"
	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SessionSecret signs test session tokens
const SessionSecret = "test-secret-key-that-is-long-enough-for-hs256"

var dbCounter atomic.Int64

// NewDB opens a private in-memory database with the schema and categories
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Ensure single connection to prevent SQLite locking issues
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	if err := models.SeedCategories(db); err != nil {
		t.Fatalf("Failed to seed categories: %v", err)
	}
	return db
}

// CreateUser inserts a user with a throwaway password hash
func CreateUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	user := models.User{
		Name:         name,
		Email:        strings.ToLower(name) + "@example.com",
		PasswordHash: "not-a-real-hash",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", name, err)
	}
	return user
}

// Befriend creates a friendship initiated by from with the given status
func Befriend(t *testing.T, db *gorm.DB, from, to models.User, status models.FriendshipStatus) models.Friendship {
	t.Helper()
	f := models.Friendship{UserID: from.ID, FriendID: to.ID, Status: status}
	if err := db.Create(&f).Error; err != nil {
		t.Fatalf("Failed to create friendship: %v", err)
	}
	return f
}

// CreateProduct inserts a product expiring in days days
func CreateProduct(t *testing.T, db *gorm.DB, owner models.User, name string, days int, available bool) models.Product {
	t.Helper()
	today := time.Now().UTC().Truncate(24 * time.Hour)
	p := models.Product{
		Name:        name,
		OwnerID:     owner.ID,
		ExpiresOn:   today.AddDate(0, 0, days),
		IsAvailable: available,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}
	return p
}

// CreateGroup inserts a group owned by owner containing the given friendships
func CreateGroup(t *testing.T, db *gorm.DB, owner models.User, name string, members ...models.Friendship) models.Group {
	t.Helper()
	g := models.Group{Name: name, OwnerID: owner.ID}
	if err := db.Create(&g).Error; err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	for _, f := range members {
		m := models.GroupMembership{GroupID: g.ID, FriendshipID: f.ID}
		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("Failed to add group member: %v", err)
		}
	}
	return g
}

// NewSessions returns a session manager storing sessions in db
func NewSessions(db *gorm.DB) *auth.SessionManager {
	return auth.NewSessionManager(auth.NewGormSessionStore(db), SessionSecret, time.Hour, false)
}

// SessionCookie issues a session for user and returns its cookie
func SessionCookie(t *testing.T, sessions *auth.SessionManager, user models.User) *http.Cookie {
	t.Helper()
	token, _, err := sessions.Issue(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Failed to issue session: %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookieName, Value: token}
}

// Router returns a test-mode engine with an /api group behind the session middleware
func Router(sessions *auth.SessionManager) (*gin.Engine, *gin.RouterGroup) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.Use(sessions.Middleware())
	return r, api
}

// Do sends a JSON request through r
func Do(r http.Handler, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// Decode unmarshals the recorder body into v
func Decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

// ErrorBody is the decoded error envelope
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DecodeError unmarshals an error envelope
func DecodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	Decode(t, w, &body)
	return body
}
