package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ErrSessionNotFound is returned for missing, revoked or expired sessions
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists server-side session records
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes sessions that expired before now and reports how many
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// GormSessionStore keeps sessions in the sessions table
type GormSessionStore struct {
	db *gorm.DB
}

func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{db: db}
}

func (s *GormSessionStore) Create(ctx context.Context, session *models.Session) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *GormSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *GormSessionStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Session{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *GormSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.Session{})
	return result.RowsAffected, result.Error
}

// RedisSessionStore keeps sessions as JSON values that expire with the session
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: "session:"}
}

func (s *RedisSessionStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisSessionStore) Create(ctx context.Context, session *models.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.ID), data, ttl).Err()
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	if session.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteExpired is a no-op: Redis expires the keys itself
func (s *RedisSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
