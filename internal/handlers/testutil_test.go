package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"bizorder-system/internal/database/models"
	"bizorder-system/internal/middleware"
	"bizorder-system/internal/permissions"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Company{}, &models.User{},
		&models.ProductMaster{}, &models.CompanyProduct{}, &models.PriceSchedule{},
		&models.Order{}, &models.OrderItem{}, &models.Approval{}, &models.CartItem{},
		&models.DataMonitorCategory{}, &models.DataMonitorProject{}, &models.Measurement{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// authAs injects the caller identity the JWT middleware would have set.
func authAs(u models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxUserID, u.ID)
		c.Set(middleware.CtxCompanyID, u.CompanyID)
		c.Set(middleware.CtxSystemRole, u.SystemRole)
		c.Next()
	}
}

func seedCompany(t *testing.T, db *gorm.DB, name string) models.Company {
	t.Helper()
	company := models.Company{Name: name}
	if err := db.Create(&company).Error; err != nil {
		t.Fatalf("seed company: %v", err)
	}
	return company
}

func seedUser(t *testing.T, db *gorm.DB, companyID int64, email, role string, perms permissions.Permissions) models.User {
	t.Helper()
	user := models.User{
		CompanyID:   companyID,
		Email:       email,
		Password:    "hashed",
		Name:        email,
		SystemRole:  role,
		Permissions: permissions.Encode(perms),
		IsActive:    true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return user
}

func seedCompanyProduct(t *testing.T, db *gorm.DB, companyID int64, code, price string) models.CompanyProduct {
	t.Helper()
	master := models.ProductMaster{Code: code, Name: "Oil " + code, Unit: "L"}
	if err := db.Create(&master).Error; err != nil {
		t.Fatalf("seed master: %v", err)
	}
	cp := models.CompanyProduct{
		CompanyID:       companyID,
		ProductMasterID: master.ID,
		Enabled:         true,
	}
	if price != "" {
		cp.Price = &price
	}
	if err := db.Create(&cp).Error; err != nil {
		t.Fatalf("seed company product: %v", err)
	}
	return cp
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) APIResponse {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
		Meta    json.RawMessage `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, w.Body.String())
	}
	if dst != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, dst); err != nil {
			t.Fatalf("decode data: %v (data: %s)", err, string(resp.Data))
		}
	}
	return APIResponse{Success: resp.Success, Message: resp.Message}
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format(time.RFC3339)
}
