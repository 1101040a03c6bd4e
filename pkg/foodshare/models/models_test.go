package models

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) User {
	user := User{Email: email, PasswordHash: "hash", Name: "Test"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func TestAutoMigrate(t *testing.T) {
	db := setupTestDB(t)

	tables := []string{"users", "sessions", "categories", "friendships", "groups", "group_memberships", "products", "product_groups", "requests"}
	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			t.Errorf("Expected table %s to exist", table)
		}
	}
}

func TestUserEmailNormalizedAndUnique(t *testing.T) {
	db := setupTestDB(t)

	user := createUser(t, db, "  Alice@Example.COM ")
	if user.Email != "alice@example.com" {
		t.Errorf("Expected normalized email, got %q", user.Email)
	}

	dup := User{Email: "alice@example.com", PasswordHash: "hash", Name: "Other"}
	if err := db.Create(&dup).Error; err == nil {
		t.Error("Expected error when creating user with duplicate email")
	}
}

func TestFriendshipPairUniqueness(t *testing.T) {
	db := setupTestDB(t)
	a := createUser(t, db, "a@example.com")
	b := createUser(t, db, "b@example.com")

	first := Friendship{UserID: a.ID, FriendID: b.ID, Status: FriendshipPending}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("Failed to create friendship: %v", err)
	}
	if first.PairKey != PairKey(b.ID, a.ID) {
		t.Errorf("Expected pair key %s, got %s", PairKey(b.ID, a.ID), first.PairKey)
	}

	// The reverse direction is the same unordered pair
	reverse := Friendship{UserID: b.ID, FriendID: a.ID, Status: FriendshipPending}
	if err := db.Create(&reverse).Error; err == nil {
		t.Error("Expected error when creating friendship for an existing pair")
	}
}

func TestFriendshipHelpers(t *testing.T) {
	f := Friendship{UserID: 1, FriendID: 2}
	if !f.Involves(1) || !f.Involves(2) || f.Involves(3) {
		t.Error("Involves returned the wrong answer")
	}
	if f.OtherParty(1) != 2 || f.OtherParty(2) != 1 {
		t.Error("OtherParty returned the wrong user")
	}
	if !PreferenceVegan.Valid() || Preference("KETO").Valid() {
		t.Error("Preference validation is wrong")
	}
}

func TestGroupNameUniquePerOwner(t *testing.T) {
	db := setupTestDB(t)
	a := createUser(t, db, "a@example.com")
	b := createUser(t, db, "b@example.com")

	if err := db.Create(&Group{Name: "Family", OwnerID: a.ID}).Error; err != nil {
		t.Fatalf("Failed to create group: %v", err)
	}
	if err := db.Create(&Group{Name: "Family", OwnerID: b.ID}).Error; err != nil {
		t.Errorf("Same name for a different owner should be allowed: %v", err)
	}
	if err := db.Create(&Group{Name: "Family", OwnerID: a.ID}).Error; err == nil {
		t.Error("Expected error for duplicate group name for the same owner")
	}
}

func TestProductGroupsAndRequestUniqueness(t *testing.T) {
	db := setupTestDB(t)
	owner := createUser(t, db, "owner@example.com")
	claimer := createUser(t, db, "claimer@example.com")

	group := Group{Name: "Neighbours", OwnerID: owner.ID}
	db.Create(&group)

	product := Product{
		Name:      "Milk",
		ExpiresOn: time.Now().Add(48 * time.Hour),
		OwnerID:   owner.ID,
		Groups:    []Group{group},
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}

	var loaded Product
	db.Preload("Groups").First(&loaded, product.ID)
	if len(loaded.Groups) != 1 {
		t.Errorf("Expected 1 scoping group, got %d", len(loaded.Groups))
	}
	if loaded.IsAvailable {
		t.Error("Expected product to default to unavailable")
	}

	if err := db.Create(&Request{ProductID: product.ID, ClaimerID: claimer.ID, Status: RequestPending}).Error; err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	if err := db.Create(&Request{ProductID: product.ID, ClaimerID: claimer.ID, Status: RequestPending}).Error; err == nil {
		t.Error("Expected error for duplicate request on the same product")
	}
}

func TestSeedCategoriesIsIdempotent(t *testing.T) {
	db := setupTestDB(t)

	if err := SeedCategories(db); err != nil {
		t.Fatalf("SeedCategories failed: %v", err)
	}
	if err := SeedCategories(db); err != nil {
		t.Fatalf("Second SeedCategories failed: %v", err)
	}

	var count int64
	db.Model(&Category{}).Count(&count)
	if count != int64(len(DefaultCategories)) {
		t.Errorf("Expected %d categories, got %d", len(DefaultCategories), count)
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	s := Session{ExpiresAt: now.Add(time.Minute)}
	if s.Expired(now) {
		t.Error("Session should not be expired yet")
	}
	if !s.Expired(now.Add(time.Minute)) {
		t.Error("Session should be expired at its expiry time")
	}
}
