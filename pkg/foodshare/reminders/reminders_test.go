package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/mikepea/foodshare/pkg/foodshare/events"
	"github.com/mikepea/foodshare/pkg/foodshare/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPurger struct {
	calls int
}

func (p *countingPurger) Purge(ctx context.Context) (int64, error) {
	p.calls++
	return 0, nil
}

func TestSweeperRun(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "Alice")
	bob := testutil.CreateUser(t, db, "Bob")

	today := testutil.CreateProduct(t, db, alice, "Milk", 0, true)
	edge := testutil.CreateProduct(t, db, bob, "Bread", 3, false)
	testutil.CreateProduct(t, db, alice, "Rice", 4, true)
	testutil.CreateProduct(t, db, alice, "Yesterday", -1, true)

	rec := events.NewRecorder()
	n, err := NewSweeper(db, rec, 3).Run(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := rec.Events()
	require.Len(t, got, 2)
	assert.Equal(t, events.ProductExpiring, got[0].Type)
	assert.Equal(t, today.ID, got[0].SubjectID)
	assert.Equal(t, alice.ID, got[0].RecipientID)
	assert.Equal(t, edge.ID, got[1].SubjectID)
	assert.Equal(t, bob.ID, got[1].RecipientID)
	assert.Equal(t, "Bread", got[1].Data["name"])
}

func TestSweeperNothingExpiring(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "Alice")
	testutil.CreateProduct(t, db, alice, "Rice", 20, true)

	rec := events.NewRecorder()
	n, err := NewSweeper(db, rec, 3).Run(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rec.Events())
}

func TestNewScheduler(t *testing.T) {
	db := testutil.NewDB(t)
	sweeper := NewSweeper(db, nil, 3)

	s, err := NewScheduler("0 8 * * *", sweeper, &countingPurger{})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())

	s, err = NewScheduler("0 8 * * *", sweeper, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Entries())

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestNewSchedulerBadSpec(t *testing.T) {
	_, err := NewScheduler("every morning", NewSweeper(testutil.NewDB(t), nil, 3), nil)
	assert.Error(t, err)
}
