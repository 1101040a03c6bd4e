package categories

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"github.com/mikepea/foodshare/pkg/foodshare/testutil"
)

func TestListCategoriesIsPublic(t *testing.T) {
	db := testutil.NewDB(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(db).RegisterRoutes(r.Group("/api/categories"))

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var resp ListResponse
	testutil.Decode(t, w, &resp)
	if resp.Count != len(models.DefaultCategories) {
		t.Errorf("Expected %d seeded categories, got %d", len(models.DefaultCategories), resp.Count)
	}

	names := map[string]bool{}
	for _, c := range resp.Categories {
		names[c.Name] = true
	}
	for _, want := range models.DefaultCategories {
		if !names[want] {
			t.Errorf("Missing category %s", want)
		}
	}
}
