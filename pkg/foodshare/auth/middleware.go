package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mikepea/foodshare/pkg/foodshare/apperrors"
	"github.com/mikepea/foodshare/pkg/foodshare/models"
)

const (
	// SessionCookieName is the cookie carrying the signed session token
	SessionCookieName = "foodshare_session"

	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
	// ContextKeySessionID is the key for the session ID in gin context
	ContextKeySessionID = "session_id"
)

// SessionManager issues, resolves and revokes cookie sessions
type SessionManager struct {
	store  SessionStore
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewSessionManager creates a session manager backed by store
func NewSessionManager(store SessionStore, secret string, ttl time.Duration, secureCookie bool) *SessionManager {
	return &SessionManager{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		secure: secureCookie,
	}
}

// Issue creates a session record for userID and returns its signed token
func (m *SessionManager) Issue(ctx context.Context, userID uint) (string, *models.Session, error) {
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(m.ttl),
	}
	if err := m.store.Create(ctx, session); err != nil {
		return "", nil, err
	}

	token, err := GenerateToken(m.secret, session.ID, userID, session.ExpiresAt)
	if err != nil {
		_ = m.store.Delete(ctx, session.ID)
		return "", nil, err
	}
	return token, session, nil
}

// Start issues a session for userID and sets the session cookie
func (m *SessionManager) Start(c *gin.Context, userID uint) error {
	token, _, err := m.Issue(c.Request.Context(), userID)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, int(m.ttl.Seconds()), "/", "", m.secure, true)
	return nil
}

// Resolve validates a token and returns the live session it refers to
func (m *SessionManager) Resolve(ctx context.Context, token string) (*models.Session, error) {
	claims, err := ValidateToken(m.secret, token)
	if err != nil {
		return nil, err
	}
	session, err := m.store.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != claims.UserID {
		return nil, ErrInvalidToken
	}
	return session, nil
}

// End revokes the request's session and clears the cookie
func (m *SessionManager) End(c *gin.Context) error {
	m.clearCookie(c)

	token := tokenFromRequest(c)
	if token == "" {
		return ErrSessionNotFound
	}
	claims, err := ValidateToken(m.secret, token)
	if err != nil {
		return ErrSessionNotFound
	}
	return m.store.Delete(c.Request.Context(), claims.SessionID)
}

// Purge removes expired session records
func (m *SessionManager) Purge(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, time.Now().UTC())
}

func (m *SessionManager) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", m.secure, true)
}

// Middleware requires a live session and sets the user in context
func (m *SessionManager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			apperrors.Respond(c, apperrors.Unauthenticated("Authentication required"))
			return
		}

		session, err := m.Resolve(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, ErrExpiredToken):
				apperrors.Respond(c, apperrors.Unauthenticated("Session has expired"))
			case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrSessionNotFound):
				apperrors.Respond(c, apperrors.Unauthenticated("Invalid or expired session"))
			default:
				apperrors.Respond(c, err)
			}
			return
		}

		c.Set(ContextKeyUserID, session.UserID)
		c.Set(ContextKeySessionID, session.ID)

		c.Next()
	}
}

// tokenFromRequest reads the session cookie, falling back to a bearer token
func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}

	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// GetUserID returns the user ID from the gin context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// MustUserID returns the session user, which middleware guarantees is set
func MustUserID(c *gin.Context) uint {
	id, _ := GetUserID(c)
	return id
}
