// Package events publishes domain events (friend requests, claims,
// expiring food) for out-of-band consumers such as notifiers.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/mikepea/foodshare/pkg/foodshare/logger"
)

const (
	FriendshipRequested = "friendship.requested"
	FriendshipAccepted  = "friendship.accepted"
	FriendshipRejected  = "friendship.rejected"
	ClaimCreated        = "claim.created"
	ClaimApproved       = "claim.approved"
	ClaimRejected       = "claim.rejected"
	ProductExpiring     = "product.expiring"
)

// Event is a JSON-serializable domain event
type Event struct {
	Type        string                 `json:"type"`
	OccurredAt  time.Time              `json:"occurred_at"`
	ActorID     uint                   `json:"actor_id,omitempty"`
	RecipientID uint                   `json:"recipient_id,omitempty"`
	SubjectID   uint                   `json:"subject_id"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// Publisher delivers events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Emit publishes event, stamping OccurredAt. Failures are logged and
// swallowed so they never fail the request that caused the event.
func Emit(ctx context.Context, p Publisher, event Event) {
	if p == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := p.Publish(ctx, event); err != nil {
		logger.Warn("event publish failed", "type", event.Type, "subject_id", event.SubjectID, "error", err)
	}
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }

func (NopPublisher) Close() error { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the type of each published event, in order
func (r *Recorder) Types() []string {
	events := r.Events()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}
