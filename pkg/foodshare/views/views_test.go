package views

import (
	"testing"
	"time"

	"github.com/mikepea/foodshare/pkg/foodshare/models"
)

func TestFriendshipFromEitherSide(t *testing.T) {
	alice := models.User{ID: 1, Name: "Alice", Email: "alice@example.com"}
	bob := models.User{ID: 2, Name: "Bob", Email: "bob@example.com"}
	f := models.Friendship{ID: 9, UserID: 1, FriendID: 2, User: alice, Friend: bob, Status: models.FriendshipAccepted}

	fromAlice := Friendship(f, alice.ID)
	if !fromAlice.IsSender || fromAlice.Friend.ID != bob.ID {
		t.Errorf("Alice should see herself as sender and Bob as friend, got %+v", fromAlice)
	}

	fromBob := Friendship(f, bob.ID)
	if fromBob.IsSender || fromBob.Friend.ID != alice.ID {
		t.Errorf("Bob should see Alice as friend, got %+v", fromBob)
	}
}

func TestProductProjection(t *testing.T) {
	notes := "opened yesterday"
	catID := uint(3)
	p := models.Product{
		ID:         5,
		Name:       "Yogurt",
		CategoryID: &catID,
		Category:   &models.Category{ID: 3, Name: "Lactate"},
		ExpiresOn:  time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
		Notes:      &notes,
		Owner:      models.User{ID: 1, Name: "Alice"},
		Groups:     []models.Group{{ID: 2, Name: "Family"}},
	}

	resp := Product(p)
	if resp.ExpiresOn != "2026-05-04" {
		t.Errorf("Expected date-only expiry, got %s", resp.ExpiresOn)
	}
	if resp.Category == nil || resp.Category.Name != "Lactate" {
		t.Errorf("Expected category Lactate, got %+v", resp.Category)
	}
	if resp.Owner == nil || resp.Owner.Name != "Alice" {
		t.Errorf("Expected owner Alice, got %+v", resp.Owner)
	}
	if len(resp.Groups) != 1 || resp.Groups[0].Name != "Family" {
		t.Errorf("Expected one group, got %+v", resp.Groups)
	}
}

func TestProductWithoutRelations(t *testing.T) {
	resp := Product(models.Product{ID: 1, Name: "Bread"})
	if resp.Owner != nil || resp.Category != nil {
		t.Error("Expected nil owner and category when not loaded")
	}
	if resp.Groups == nil {
		t.Error("Expected empty, non-nil groups so JSON renders []")
	}
}

func TestGroupMembersShowTheFriend(t *testing.T) {
	owner := models.User{ID: 1, Name: "Owner"}
	other := models.User{ID: 2, Name: "Friend"}
	g := models.Group{
		ID:      3,
		Name:    "Neighbours",
		OwnerID: owner.ID,
		Members: []models.GroupMembership{
			// owner was the target of this friendship
			{ID: 10, FriendshipID: 4, Friendship: models.Friendship{ID: 4, UserID: 2, FriendID: 1, User: other, Friend: owner}},
		},
	}

	resp := Group(g)
	if resp.MemberCount != 1 || resp.Members[0].Friend.ID != other.ID {
		t.Errorf("Expected member to be the friend, got %+v", resp.Members)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"2026-05-04", "2026-05-04", true},
		{" 2026-05-04 ", "2026-05-04", true},
		{"2026-05-04T23:30:00Z", "2026-05-04", true},
		{"2026-05-04T23:30:00-02:00", "2026-05-05", true},
		{"", "", false},
		{"04/05/2026", "", false},
		{"2026-02-30", "", false},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.input)
		if tt.ok != (err == nil) {
			t.Errorf("ParseDate(%q) error = %v, want ok=%v", tt.input, err, tt.ok)
			continue
		}
		if tt.ok && got.Format(DateLayout) != tt.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.input, got.Format(DateLayout), tt.want)
		}
	}
}
