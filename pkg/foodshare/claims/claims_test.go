package claims

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/mikepea/foodshare/pkg/foodshare/apperrors"
	"github.com/mikepea/foodshare/pkg/foodshare/events"
	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"github.com/mikepea/foodshare/pkg/foodshare/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	svc   *Service
	rec   *events.Recorder
	owner models.User
	buddy models.User
	other models.User
}

func setup(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	rec := events.NewRecorder()
	f := &fixture{
		db:    db,
		svc:   NewService(db, rec),
		rec:   rec,
		owner: testutil.CreateUser(t, db, "Owner"),
		buddy: testutil.CreateUser(t, db, "Buddy"),
		other: testutil.CreateUser(t, db, "Other"),
	}
	testutil.Befriend(t, db, f.buddy, f.owner, models.FriendshipAccepted)
	return f
}

func appErr(t *testing.T, err error) *apperrors.AppError {
	t.Helper()
	var e *apperrors.AppError
	require.True(t, errors.As(err, &e), "expected an AppError, got %v", err)
	return e
}

func TestClaim(t *testing.T) {
	f := setup(t)
	p := testutil.CreateProduct(t, f.db, f.owner, "Bread", 1, true)

	req, err := f.svc.Claim(context.Background(), f.buddy.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, "Bread", req.Product.Name)
	assert.Equal(t, "Owner", req.Product.Owner.Name)
	assert.Equal(t, "Buddy", req.Claimer.Name)

	events := f.rec.Events()
	if assert.Len(t, events, 1) {
		assert.Equal(t, f.owner.ID, events[0].RecipientID)
		assert.Equal(t, req.ID, events[0].SubjectID)
	}
}

func TestClaimPreconditions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	pendingFriend := testutil.CreateUser(t, f.db, "Pending")
	testutil.Befriend(t, f.db, f.owner, pendingFriend, models.FriendshipPending)

	available := testutil.CreateProduct(t, f.db, f.owner, "Bread", 1, true)
	unavailable := testutil.CreateProduct(t, f.db, f.owner, "Cake", 1, false)

	tests := []struct {
		name      string
		claimer   uint
		productID uint
		kind      apperrors.Kind
		status    int
	}{
		{"missing product", f.buddy.ID, 9999, apperrors.KindNotFound, http.StatusNotFound},
		{"own item", f.owner.ID, available.ID, apperrors.KindValidation, http.StatusBadRequest},
		{"unavailable", f.buddy.ID, unavailable.ID, apperrors.KindValidation, http.StatusBadRequest},
		{"not a friend", f.other.ID, available.ID, apperrors.KindForbidden, http.StatusForbidden},
		{"pending friend", pendingFriend.ID, available.ID, apperrors.KindForbidden, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Claim(ctx, tt.claimer, tt.productID)
			e := appErr(t, err)
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.status, e.HTTPStatus())
		})
	}

	var count int64
	f.db.Model(&models.Request{}).Count(&count)
	assert.Zero(t, count)
}

func TestClaimIgnoresGroupScoping(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	insider := testutil.CreateUser(t, f.db, "Insider")
	withInsider := testutil.Befriend(t, f.db, f.owner, insider, models.FriendshipAccepted)
	group := testutil.CreateGroup(t, f.db, f.owner, "Inner circle", withInsider)

	p := testutil.CreateProduct(t, f.db, f.owner, "Truffles", 2, true)
	require.NoError(t, f.db.Model(&p).Association("Groups").Replace([]models.Group{group}))

	// Buddy is an accepted friend outside the group
	req, err := f.svc.Claim(ctx, f.buddy.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)

	_, err = f.svc.Claim(ctx, insider.ID, p.ID)
	assert.NoError(t, err)

	// A repeat claim still reports the existing request
	_, err = f.svc.Claim(ctx, f.buddy.ID, p.ID)
	e := appErr(t, err)
	assert.Equal(t, apperrors.KindConflict, e.Kind)
	assert.Equal(t, http.StatusBadRequest, e.HTTPStatus())
}

func TestInsertRequestUniqueViolation(t *testing.T) {
	f := setup(t)
	p := testutil.CreateProduct(t, f.db, f.owner, "Bread", 1, true)
	require.NoError(t, f.db.Create(&models.Request{ProductID: p.ID, ClaimerID: f.buddy.ID, Status: models.RequestPending}).Error)

	err := insertRequest(f.db, &models.Request{ProductID: p.ID, ClaimerID: f.buddy.ID, Status: models.RequestPending})
	e := appErr(t, err)
	assert.Equal(t, apperrors.KindConflict, e.Kind)
	assert.Equal(t, http.StatusBadRequest, e.HTTPStatus())
	assert.Equal(t, "You already have a pending request for this item", e.Message)
}

func TestConcurrentClaims(t *testing.T) {
	f := setup(t)
	p := testutil.CreateProduct(t, f.db, f.owner, "Bread", 1, true)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Claim(context.Background(), f.buddy.ID, p.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, apperrors.KindConflict, appErr(t, err).Kind)
	}
	assert.Equal(t, 1, succeeded)

	var count int64
	f.db.Model(&models.Request{}).Where("product_id = ?", p.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestDuplicateClaim(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p := testutil.CreateProduct(t, f.db, f.owner, "Bread", 1, true)

	_, err := f.svc.Claim(ctx, f.buddy.ID, p.ID)
	require.NoError(t, err)

	_, err = f.svc.Claim(ctx, f.buddy.ID, p.ID)
	e := appErr(t, err)
	assert.Equal(t, apperrors.KindConflict, e.Kind)
	assert.Equal(t, http.StatusBadRequest, e.HTTPStatus())
	assert.Equal(t, "You already have a pending request for this item", e.Message)
}

func TestDecide(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	second := testutil.CreateUser(t, f.db, "Second")
	testutil.Befriend(t, f.db, f.owner, second, models.FriendshipAccepted)
	p := testutil.CreateProduct(t, f.db, f.owner, "Bread", 1, true)

	first, err := f.svc.Claim(ctx, f.buddy.ID, p.ID)
	require.NoError(t, err)
	sibling, err := f.svc.Claim(ctx, second.ID, p.ID)
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, f.buddy.ID, first.ID, true)
	assert.Equal(t, apperrors.KindForbidden, appErr(t, err).Kind, "claimer cannot approve")

	_, err = f.svc.Decide(ctx, f.owner.ID, 9999, true)
	assert.Equal(t, apperrors.KindNotFound, appErr(t, err).Kind)

	approved, err := f.svc.Decide(ctx, f.owner.ID, first.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, approved.Status)

	// Terminal states do not move
	_, err = f.svc.Decide(ctx, f.owner.ID, first.ID, false)
	e := appErr(t, err)
	assert.Equal(t, http.StatusBadRequest, e.HTTPStatus())
	assert.Equal(t, "Request is already approved", e.Message)

	// Approval leaves the product and sibling claims alone
	var product models.Product
	f.db.First(&product, p.ID)
	assert.True(t, product.IsAvailable)
	var other models.Request
	f.db.First(&other, sibling.ID)
	assert.Equal(t, models.RequestPending, other.Status)

	rejected, err := f.svc.Decide(ctx, f.owner.ID, sibling.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, rejected.Status)

	assert.Equal(t, []string{events.ClaimCreated, events.ClaimCreated, events.ClaimApproved, events.ClaimRejected}, f.rec.Types())

	_, err = f.svc.Claim(ctx, f.buddy.ID, p.ID)
	assert.Equal(t, "You already have a approved request for this item", appErr(t, err).Message)
}

func TestListings(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	bread := testutil.CreateProduct(t, f.db, f.owner, "Bread", 1, true)
	milk := testutil.CreateProduct(t, f.db, f.owner, "Milk", 1, true)
	r1, err := f.svc.Claim(ctx, f.buddy.ID, bread.ID)
	require.NoError(t, err)
	_, err = f.svc.Claim(ctx, f.buddy.ID, milk.ID)
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, f.owner.ID, r1.ID, true)
	require.NoError(t, err)

	received, err := f.svc.Received(ctx, f.owner.ID, "")
	require.NoError(t, err)
	assert.Len(t, received, 2)

	pending, err := f.svc.Received(ctx, f.owner.ID, "pending")
	require.NoError(t, err)
	if assert.Len(t, pending, 1) {
		assert.Equal(t, "Milk", pending[0].Product.Name)
	}

	none, err := f.svc.Received(ctx, f.buddy.ID, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	mine, err := f.svc.Mine(ctx, f.buddy.ID, "APPROVED")
	require.NoError(t, err)
	if assert.Len(t, mine, 1) {
		assert.Equal(t, "Bread", mine[0].Product.Name)
	}

	_, err = f.svc.Mine(ctx, f.buddy.ID, "maybe")
	assert.Equal(t, apperrors.KindValidation, appErr(t, err).Kind)

	product, forBread, err := f.svc.ForProduct(ctx, f.owner.ID, bread.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bread", product.Name)
	assert.Len(t, forBread, 1)

	_, _, err = f.svc.ForProduct(ctx, f.buddy.ID, bread.ID)
	assert.Equal(t, apperrors.KindForbidden, appErr(t, err).Kind)
}

func TestClaimHandlers(t *testing.T) {
	f := setup(t)
	sessions := testutil.NewSessions(f.db)
	r, api := testutil.Router(sessions)
	handler := NewHandler(f.svc)
	handler.RegisterFoodRoutes(api.Group("/foods"))
	handler.RegisterRoutes(api.Group("/requests"))

	ownerCookie := testutil.SessionCookie(t, sessions, f.owner)
	buddyCookie := testutil.SessionCookie(t, sessions, f.buddy)
	otherCookie := testutil.SessionCookie(t, sessions, f.other)
	p := testutil.CreateProduct(t, f.db, f.owner, "Bread", 1, true)

	if w := testutil.Do(r, http.MethodPost, fmt.Sprintf("/api/foods/%d/claim", p.ID), nil, otherCookie); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a stranger, got %d", w.Code)
	}

	w := testutil.Do(r, http.MethodPost, fmt.Sprintf("/api/foods/%d/claim", p.ID), nil, buddyCookie)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var claimed RequestEnvelope
	testutil.Decode(t, w, &claimed)
	if claimed.Request.Status != "PENDING" {
		t.Errorf("Expected PENDING, got %s", claimed.Request.Status)
	}

	w = testutil.Do(r, http.MethodGet, fmt.Sprintf("/api/foods/%d/requests", p.ID), nil, ownerCookie)
	var forProduct ProductRequestsResponse
	testutil.Decode(t, w, &forProduct)
	if forProduct.Count != 1 || forProduct.ProductName != "Bread" {
		t.Errorf("Unexpected product requests %+v", forProduct)
	}

	w = testutil.Do(r, http.MethodPatch, fmt.Sprintf("/api/requests/%d/approve", claimed.Request.ID), nil, ownerCookie)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.Do(r, http.MethodGet, "/api/foods/my-claims?status=approved", nil, buddyCookie)
	var mine ListResponse
	testutil.Decode(t, w, &mine)
	if mine.Count != 1 {
		t.Errorf("Expected one approved claim, got %d", mine.Count)
	}

	w = testutil.Do(r, http.MethodGet, "/api/requests/received", nil, ownerCookie)
	var received ListResponse
	testutil.Decode(t, w, &received)
	if received.Count != 1 || received.Requests[0].Status != "APPROVED" {
		t.Errorf("Unexpected received list %+v", received)
	}
}
