// Package reminders runs the periodic background jobs: the expiring-food
// sweep and the expired-session purge.
package reminders

import (
	"context"
	"time"

	"github.com/mikepea/foodshare/pkg/foodshare/events"
	"github.com/mikepea/foodshare/pkg/foodshare/foods"
	"github.com/mikepea/foodshare/pkg/foodshare/logger"
	"github.com/mikepea/foodshare/pkg/foodshare/metrics"
	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"github.com/mikepea/foodshare/pkg/foodshare/views"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Sweeper finds products about to expire and notifies their owners
type Sweeper struct {
	db        *gorm.DB
	publisher events.Publisher
	days      int
}

func NewSweeper(db *gorm.DB, publisher events.Publisher, days int) *Sweeper {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Sweeper{db: db, publisher: publisher, days: days}
}

// Run publishes one ProductExpiring event per product expiring within the
// configured window of now and returns how many were found.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (int, error) {
	start, end := foods.ExpiringWindow(now, s.days)

	var products []models.Product
	err := s.db.WithContext(ctx).
		Where("expires_on >= ? AND expires_on < ?", start, end).
		Order("expires_on ASC").Order("id ASC").
		Find(&products).Error
	if err != nil {
		return 0, err
	}

	for _, p := range products {
		events.Emit(ctx, s.publisher, events.Event{
			Type:        events.ProductExpiring,
			RecipientID: p.OwnerID,
			SubjectID:   p.ID,
			Data: map[string]interface{}{
				"name":         p.Name,
				"expires_on":   p.ExpiresOn.UTC().Format(views.DateLayout),
				"is_available": p.IsAvailable,
			},
		})
	}

	metrics.SetExpiringProducts(len(products))
	return len(products), nil
}

// SessionPurger removes expired sessions
type SessionPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// Scheduler wraps a cron runner with the foodshare jobs registered
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers the expiry sweep at sweepSpec (standard 5-field
// cron, UTC) and an hourly session purge. sessions may be nil.
func NewScheduler(sweepSpec string, sweeper *Sweeper, sessions SessionPurger) (*Scheduler, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(sweepSpec, func() {
		n, err := sweeper.Run(context.Background(), time.Now())
		if err != nil {
			logger.Error("expiry sweep failed", "error", err)
			return
		}
		logger.Info("expiry sweep completed", "expiring", n)
	})
	if err != nil {
		return nil, err
	}

	if sessions != nil {
		if _, err := c.AddFunc("@hourly", func() {
			n, err := sessions.Purge(context.Background())
			if err != nil {
				logger.Warn("session purge failed", "error", err)
				return
			}
			if n > 0 {
				logger.Info("purged expired sessions", "count", n)
			}
		}); err != nil {
			return nil, err
		}
	}

	return &Scheduler{cron: c}, nil
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish or ctx to end
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
