package importexport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodshare/pkg/foodshare/models"
	"github.com/mikepea/foodshare/pkg/foodshare/testutil"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func setupTest(t *testing.T) (*gorm.DB, *gin.Engine, models.User, *http.Cookie) {
	db := testutil.NewDB(t)
	sessions := testutil.NewSessions(db)
	r, api := testutil.Router(sessions)
	NewHandler(db).RegisterRoutes(api.Group("/foods"))

	user := testutil.CreateUser(t, db, "Alice")
	return db, r, user, testutil.SessionCookie(t, sessions, user)
}

func TestImport(t *testing.T) {
	db, r, user, cookie := setupTest(t)

	body := map[string]interface{}{
		"items": []map[string]interface{}{
			{"name": "Milk", "category": "lactate", "expires_on": "2030-01-01", "is_available": true},
			{"name": "Bread", "expires_on": "2030-01-02", "notes": "sliced"},
			{"name": "", "expires_on": "2030-01-02"},
			{"name": "Mystery", "expires_on": "2030-01-02", "category": "Unknown"},
			{"name": "Soup", "expires_on": "next week"},
		},
	}
	w := testutil.Do(r, http.MethodPost, "/api/foods/import", body, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var result ImportResult
	testutil.Decode(t, w, &result)
	if result.Imported != 2 || result.Skipped != 3 || len(result.Errors) != 3 {
		t.Errorf("Unexpected result %+v", result)
	}

	var products []models.Product
	db.Preload("Category").Where("owner_id = ?", user.ID).Order("name").Find(&products)
	if len(products) != 2 {
		t.Fatalf("Expected 2 products, got %d", len(products))
	}
	for _, p := range products {
		if p.IsAvailable {
			t.Errorf("Imported product %s should start unavailable", p.Name)
		}
	}
	if products[1].Category == nil || products[1].Category.Name != "Lactate" {
		t.Errorf("Expected Milk to be in Lactate, got %+v", products[1].Category)
	}
}

func TestImportRequiresItems(t *testing.T) {
	_, r, _, cookie := setupTest(t)

	w := testutil.Do(r, http.MethodPost, "/api/foods/import", map[string]interface{}{}, cookie)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestExportJSON(t *testing.T) {
	db, r, user, cookie := setupTest(t)
	testutil.CreateProduct(t, db, user, "Later", 9, true)
	testutil.CreateProduct(t, db, user, "Sooner", 1, false)
	other := testutil.CreateUser(t, db, "Bob")
	testutil.CreateProduct(t, db, other, "Bob's", 1, false)

	w := testutil.Do(r, http.MethodGet, "/api/foods/export?download=true", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("Content-Disposition") == "" {
		t.Error("Expected attachment header")
	}

	var items []InventoryItem
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("Failed to decode export: %v", err)
	}
	if len(items) != 2 || items[0].Name != "Sooner" || !items[1].IsAvailable {
		t.Errorf("Unexpected export %+v", items)
	}
}

func TestExportXLSX(t *testing.T) {
	db, r, user, cookie := setupTest(t)
	testutil.CreateProduct(t, db, user, "Cheese", 2, false)

	w := testutil.Do(r, http.MethodGet, "/api/foods/export?format=xlsx", nil, cookie)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxType {
		t.Errorf("Unexpected content type %s", ct)
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("Failed to read rows: %v", err)
	}
	if len(rows) != 2 || rows[0][0] != "Name" || rows[1][0] != "Cheese" {
		t.Errorf("Unexpected rows %v", rows)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	_, r, _, cookie := setupTest(t)

	w := testutil.Do(r, http.MethodGet, "/api/foods/export?format=csv", nil, cookie)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}
