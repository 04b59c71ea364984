package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bizorder-system/internal/database/models"
	"bizorder-system/internal/permissions"
)

func catalogRouter(db *gorm.DB, as models.User) *gin.Engine {
	r := gin.New()
	h := NewCatalogHandler(db, nil)
	g := r.Group("/api/v1", authAs(as))
	g.POST("/products", h.CreateProduct)
	g.GET("/products", h.ListProducts)
	g.POST("/company-products", h.CreateCompanyProduct)
	g.GET("/company-products", h.ListCompanyProducts)
	g.PUT("/company-products/:id", h.UpdateCompanyProduct)
	g.DELETE("/company-products/:id", h.DeleteCompanyProduct)
	return r
}

func timePtr(t time.Time) *time.Time { return &t }

func TestPriceState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	price := "450"

	tests := []struct {
		name string
		cp   models.CompanyProduct
		want string
	}{
		{
			name: "no price",
			cp:   models.CompanyProduct{},
			want: PriceStateUnset,
		},
		{
			name: "price without expiry",
			cp:   models.CompanyProduct{Price: &price},
			want: PriceStateOK,
		},
		{
			name: "expiry in the past",
			cp: models.CompanyProduct{
				Price:               &price,
				QuotationExpiryDate: timePtr(now.AddDate(0, 0, -1)),
			},
			want: PriceStateExpired,
		},
		{
			// The expiry date is the last orderable day; a midnight
			// timestamp on today's date is not yet expired at noon.
			name: "expiry today",
			cp: models.CompanyProduct{
				Price:               &price,
				QuotationExpiryDate: timePtr(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
			},
			want: PriceStateExpiringSoon,
		},
		{
			name: "expiry inside warning window",
			cp: models.CompanyProduct{
				Price:               &price,
				QuotationExpiryDate: timePtr(now.AddDate(0, 0, 10)),
			},
			want: PriceStateExpiringSoon,
		},
		{
			name: "expiry beyond warning window",
			cp: models.CompanyProduct{
				Price:               &price,
				QuotationExpiryDate: timePtr(now.AddDate(0, 0, 60)),
			},
			want: PriceStateOK,
		},
		{
			name: "warning suppressed by covering schedule",
			cp: models.CompanyProduct{
				Price:               &price,
				QuotationExpiryDate: timePtr(now.AddDate(0, 0, 10)),
				Schedules: []models.PriceSchedule{{
					ScheduledPrice: "500",
					EffectiveDate:  now.AddDate(0, 0, 5),
					ExpiryDate:     now.AddDate(0, 1, 0),
				}},
			},
			want: PriceStateOK,
		},
		{
			name: "schedule starting after the gap does not cover",
			cp: models.CompanyProduct{
				Price:               &price,
				QuotationExpiryDate: timePtr(now.AddDate(0, 0, 10)),
				Schedules: []models.PriceSchedule{{
					ScheduledPrice: "500",
					EffectiveDate:  now.AddDate(0, 0, 20),
					ExpiryDate:     now.AddDate(0, 1, 0),
				}},
			},
			want: PriceStateExpiringSoon,
		},
		{
			name: "lapsed schedule does not cover",
			cp: models.CompanyProduct{
				Price:               &price,
				QuotationExpiryDate: timePtr(now.AddDate(0, 0, 10)),
				Schedules: []models.PriceSchedule{{
					ScheduledPrice: "500",
					EffectiveDate:  now.AddDate(0, 0, -20),
					ExpiryDate:     now.AddDate(0, 0, -2),
				}},
			},
			want: PriceStateExpiringSoon,
		},
		{
			name: "applied schedule does not cover",
			cp: models.CompanyProduct{
				Price:               &price,
				QuotationExpiryDate: timePtr(now.AddDate(0, 0, 10)),
				Schedules: []models.PriceSchedule{{
					ScheduledPrice: "500",
					EffectiveDate:  now.AddDate(0, 0, 5),
					ExpiryDate:     now.AddDate(0, 1, 0),
					IsApplied:      true,
				}},
			},
			want: PriceStateExpiringSoon,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := priceState(tt.cp, now); got != tt.want {
				t.Errorf("priceState() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCreateProductDuplicateCode(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db, "Tenant A")
	main := seedUser(t, db, company.ID, "main@a.test", models.SystemRoleMain, permissions.Defaults())
	r := catalogRouter(db, main)

	body := gin.H{"code": "OIL-001", "name": "Hydraulic Oil 46"}
	w := doJSON(t, r, http.MethodPost, "/api/v1/products", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("first create: got %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodPost, "/api/v1/products", body)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate code should be 409, got %d", w.Code)
	}
}

func TestCreateCompanyProductDuplicatePair(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db, "Tenant A")
	main := seedUser(t, db, company.ID, "main@a.test", models.SystemRoleMain, permissions.Defaults())

	master := models.ProductMaster{Code: "OIL-001", Name: "Hydraulic Oil 46"}
	if err := db.Create(&master).Error; err != nil {
		t.Fatalf("seed master: %v", err)
	}

	r := catalogRouter(db, main)
	body := gin.H{
		"company_id":        company.ID,
		"product_master_id": master.ID,
		"price":             "450",
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/company-products", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("first create: got %d: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodPost, "/api/v1/company-products", body)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate company/product pair should be 409, got %d", w.Code)
	}
}

func TestCompanyProductPriceValidation(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db, "Tenant A")
	main := seedUser(t, db, company.ID, "main@a.test", models.SystemRoleMain, permissions.Defaults())

	master := models.ProductMaster{Code: "OIL-001", Name: "Hydraulic Oil 46"}
	if err := db.Create(&master).Error; err != nil {
		t.Fatalf("seed master: %v", err)
	}

	r := catalogRouter(db, main)
	for _, price := range []string{"0", "-5", "abc"} {
		w := doJSON(t, r, http.MethodPost, "/api/v1/company-products", gin.H{
			"company_id":        company.ID,
			"product_master_id": master.ID,
			"price":             price,
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("price %q should be 400, got %d", price, w.Code)
		}
	}
}

func TestListCompanyProductsScopedWithPriceState(t *testing.T) {
	db := setupTestDB(t)
	companyA := seedCompany(t, db, "Tenant A")
	companyB := seedCompany(t, db, "Tenant B")
	mainA := seedUser(t, db, companyA.ID, "main@a.test", models.SystemRoleMain, permissions.Defaults())

	seedCompanyProduct(t, db, companyA.ID, "OIL-001", "450")
	unpriced := seedCompanyProduct(t, db, companyA.ID, "OIL-002", "")
	seedCompanyProduct(t, db, companyB.ID, "OIL-003", "300")

	r := catalogRouter(db, mainA)
	w := doJSON(t, r, http.MethodGet, "/api/v1/company-products", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: got %d", w.Code)
	}

	var views []CompanyProductView
	decodeData(t, w, &views)
	if len(views) != 2 {
		t.Fatalf("expected 2 products for company A, got %d", len(views))
	}
	for _, v := range views {
		switch v.ID {
		case unpriced.ID:
			if v.PriceState != PriceStateUnset {
				t.Errorf("unpriced product should report %s, got %s", PriceStateUnset, v.PriceState)
			}
		default:
			if v.PriceState != PriceStateOK {
				t.Errorf("priced product should report %s, got %s", PriceStateOK, v.PriceState)
			}
		}
	}
}

func TestCatalogMutationRequiresMainAccount(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db, "Tenant A")
	child := seedUser(t, db, company.ID, "child@a.test", models.SystemRoleChild, permissions.Defaults())
	r := catalogRouter(db, child)

	w := doJSON(t, r, http.MethodPost, "/api/v1/products", gin.H{"code": "OIL-001", "name": "Oil"})
	if w.Code != http.StatusForbidden {
		t.Errorf("child product create should be 403, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/api/v1/company-products", gin.H{
		"company_id":        company.ID,
		"product_master_id": 1,
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("child company-product create should be 403, got %d", w.Code)
	}
}

func TestCompanyProductMutationScopedToCompany(t *testing.T) {
	db := setupTestDB(t)
	companyA := seedCompany(t, db, "Tenant A")
	companyB := seedCompany(t, db, "Tenant B")
	seedUser(t, db, companyA.ID, "main@a.test", models.SystemRoleMain, permissions.Defaults())
	mainB := seedUser(t, db, companyB.ID, "main@b.test", models.SystemRoleMain, permissions.Defaults())
	cp := seedCompanyProduct(t, db, companyA.ID, "OIL-001", "450")

	r := catalogRouter(db, mainB)
	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/v1/company-products/%d", cp.ID), gin.H{
		"price": "1",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("cross-tenant update should be 404, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/company-products/%d", cp.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("cross-tenant delete should be 404, got %d", w.Code)
	}

	var fresh models.CompanyProduct
	if err := db.First(&fresh, cp.ID).Error; err != nil {
		t.Fatalf("row should survive cross-tenant attempts: %v", err)
	}
	if fresh.Price == nil || *fresh.Price != "450" {
		t.Errorf("price should be unchanged, got %v", fresh.Price)
	}
}

func TestListCompanyProductsRequiresProductsScreen(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db, "Tenant A")

	perms := permissions.Defaults()
	perms.Products = false
	child := seedUser(t, db, company.ID, "child@a.test", models.SystemRoleChild, perms)

	r := catalogRouter(db, child)
	w := doJSON(t, r, http.MethodGet, "/api/v1/company-products", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("products-revoked child should be 403, got %d", w.Code)
	}
}
