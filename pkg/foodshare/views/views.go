// Package views maps models to the JSON shapes returned by the API.
package views

import (
	"errors"
	"strings"
	"time"

	"github.com/mikepea/foodshare/pkg/foodshare/models"
)

// DateLayout is the wire format of expiry dates
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned by ParseDate for unparsable input
var ErrInvalidDate = errors.New("invalid date")

// ParseDate accepts YYYY-MM-DD or RFC 3339 and returns midnight UTC of that day
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return time.Time{}, ErrInvalidDate
		}
		t = t.UTC()
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// UserResponse is the full projection of the session user
type UserResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// UserSummary identifies another user inside a larger response
type UserSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func User(u models.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: timestamp(u.CreatedAt)}
}

func Summary(u models.User) UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func Category(c models.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name}
}

// GroupRef names a group a product is scoped to
type GroupRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// RequestSummary is a claim as listed under the owner's product
type RequestSummary struct {
	ID        uint        `json:"id"`
	Status    string      `json:"status"`
	CreatedAt string      `json:"created_at"`
	Claimer   UserSummary `json:"claimer"`
}

// ProductResponse represents a food item in API responses
type ProductResponse struct {
	ID          uint              `json:"id"`
	Name        string            `json:"name"`
	CategoryID  *uint             `json:"category_id"`
	Category    *CategoryResponse `json:"category"`
	ExpiresOn   string            `json:"expires_on"`
	Notes       *string           `json:"notes"`
	IsAvailable bool              `json:"is_available"`
	Owner       *UserSummary      `json:"owner,omitempty"`
	Groups      []GroupRef        `json:"groups"`
	Requests    []RequestSummary  `json:"requests,omitempty"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

// Product projects p; relations are included when they were preloaded
func Product(p models.Product) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		CategoryID:  p.CategoryID,
		ExpiresOn:   p.ExpiresOn.UTC().Format(DateLayout),
		Notes:       p.Notes,
		IsAvailable: p.IsAvailable,
		Groups:      make([]GroupRef, len(p.Groups)),
		CreatedAt:   timestamp(p.CreatedAt),
		UpdatedAt:   timestamp(p.UpdatedAt),
	}
	if p.Category != nil {
		c := Category(*p.Category)
		resp.Category = &c
	}
	if p.Owner.ID != 0 {
		owner := Summary(p.Owner)
		resp.Owner = &owner
	}
	for i, g := range p.Groups {
		resp.Groups[i] = GroupRef{ID: g.ID, Name: g.Name}
	}
	for _, r := range p.Requests {
		resp.Requests = append(resp.Requests, RequestSummary{
			ID:        r.ID,
			Status:    string(r.Status),
			CreatedAt: timestamp(r.CreatedAt),
			Claimer:   Summary(r.Claimer),
		})
	}
	return resp
}

func Products(ps []models.Product) []ProductResponse {
	out := make([]ProductResponse, len(ps))
	for i, p := range ps {
		out[i] = Product(p)
	}
	return out
}

// RequestResponse is a claim with its product and claimer
type RequestResponse struct {
	ID        uint            `json:"id"`
	Status    string          `json:"status"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
	Product   ProductResponse `json:"product"`
	Claimer   UserSummary     `json:"claimer"`
}

func Request(r models.Request) RequestResponse {
	return RequestResponse{
		ID:        r.ID,
		Status:    string(r.Status),
		CreatedAt: timestamp(r.CreatedAt),
		UpdatedAt: timestamp(r.UpdatedAt),
		Product:   Product(r.Product),
		Claimer:   Summary(r.Claimer),
	}
}

func Requests(rs []models.Request) []RequestResponse {
	out := make([]RequestResponse, len(rs))
	for i, r := range rs {
		out[i] = Request(r)
	}
	return out
}

// FriendshipResponse presents a friendship from one user's side
type FriendshipResponse struct {
	ID         uint        `json:"id"`
	Status     string      `json:"status"`
	Preference *string     `json:"preference"`
	IsSender   bool        `json:"is_sender"`
	Friend     UserSummary `json:"friend"`
	CreatedAt  string      `json:"created_at"`
}

// Friendship projects f as seen by selfID; User and Friend must be preloaded
func Friendship(f models.Friendship, selfID uint) FriendshipResponse {
	resp := FriendshipResponse{
		ID:        f.ID,
		Status:    string(f.Status),
		IsSender:  f.UserID == selfID,
		CreatedAt: timestamp(f.CreatedAt),
	}
	if f.Preference != nil {
		p := string(*f.Preference)
		resp.Preference = &p
	}
	if resp.IsSender {
		resp.Friend = Summary(f.Friend)
	} else {
		resp.Friend = Summary(f.User)
	}
	return resp
}

func Friendships(fs []models.Friendship, selfID uint) []FriendshipResponse {
	out := make([]FriendshipResponse, len(fs))
	for i, f := range fs {
		out[i] = Friendship(f, selfID)
	}
	return out
}

// MemberResponse is a group membership with the friend it points at
type MemberResponse struct {
	ID           uint        `json:"id"`
	FriendshipID uint        `json:"friendship_id"`
	Friend       UserSummary `json:"friend"`
	AddedAt      string      `json:"added_at"`
}

// GroupResponse represents a friend group in API responses
type GroupResponse struct {
	ID          uint             `json:"id"`
	Name        string           `json:"name"`
	MemberCount int              `json:"member_count"`
	Members     []MemberResponse `json:"members"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

// Group projects g; members need Friendship.User and Friendship.Friend preloaded
func Group(g models.Group) GroupResponse {
	resp := GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		MemberCount: len(g.Members),
		Members:     make([]MemberResponse, len(g.Members)),
		CreatedAt:   timestamp(g.CreatedAt),
		UpdatedAt:   timestamp(g.UpdatedAt),
	}
	for i, m := range g.Members {
		friend := m.Friendship.Friend
		if m.Friendship.FriendID == g.OwnerID {
			friend = m.Friendship.User
		}
		resp.Members[i] = MemberResponse{
			ID:           m.ID,
			FriendshipID: m.FriendshipID,
			Friend:       Summary(friend),
			AddedAt:      timestamp(m.CreatedAt),
		}
	}
	return resp
}

func Groups(gs []models.Group) []GroupResponse {
	out := make([]GroupResponse, len(gs))
	for i, g := range gs {
		out[i] = Group(g)
	}
	return out
}
