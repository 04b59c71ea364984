package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bizorder-system/internal/database/models"
	"bizorder-system/internal/permissions"
)

func monitorRouter(db *gorm.DB, as models.User) *gin.Engine {
	r := gin.New()
	h := NewMonitorHandler(db)
	g := r.Group("/api/v1", authAs(as))
	g.POST("/monitor-categories", h.CreateCategory)
	g.GET("/monitor-categories", h.ListCategories)
	g.GET("/monitor-categories/:id", h.GetCategory)
	g.DELETE("/monitor-categories/:id", h.DeleteCategory)
	g.POST("/monitor-projects", h.CreateProject)
	g.POST("/measurements", h.CreateMeasurement)
	return r
}

func TestCategoryDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db, "Tenant A")
	main := seedUser(t, db, company.ID, "main@a.test", models.SystemRoleMain, permissions.Defaults())
	r := monitorRouter(db, main)

	w := doJSON(t, r, http.MethodPost, "/api/v1/monitor-categories", gin.H{"name": "Compressors"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create category: got %d: %s", w.Code, w.Body.String())
	}
	var category models.DataMonitorCategory
	decodeData(t, w, &category)

	// Two projects with three measurements each.
	for p := 1; p <= 2; p++ {
		w = doJSON(t, r, http.MethodPost, "/api/v1/monitor-projects", gin.H{
			"category_id": category.ID,
			"name":        fmt.Sprintf("Line %d", p),
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("create project %d: got %d", p, w.Code)
		}
		var project models.DataMonitorProject
		decodeData(t, w, &project)

		for m := 1; m <= 3; m++ {
			w = doJSON(t, r, http.MethodPost, "/api/v1/measurements", gin.H{
				"project_id": project.ID,
				"value":      fmt.Sprintf("%d.5", m),
				"unit":       "bar",
			})
			if w.Code != http.StatusCreated {
				t.Fatalf("create measurement: got %d: %s", w.Code, w.Body.String())
			}
		}
	}

	var measurementCount int64
	db.Model(&models.Measurement{}).Count(&measurementCount)
	if measurementCount != 6 {
		t.Fatalf("expected 6 measurements seeded, got %d", measurementCount)
	}

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/monitor-categories/%d", category.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete category: got %d: %s", w.Code, w.Body.String())
	}

	// Nothing orphaned.
	var projectCount int64
	db.Model(&models.DataMonitorProject{}).Count(&projectCount)
	db.Model(&models.Measurement{}).Count(&measurementCount)
	if projectCount != 0 || measurementCount != 0 {
		t.Errorf("cascade left %d projects and %d measurements", projectCount, measurementCount)
	}

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/monitor-categories/%d", category.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("deleted category should be 404, got %d", w.Code)
	}
}

func TestMonitorRequiresEquipmentAccess(t *testing.T) {
	db := setupTestDB(t)
	company := seedCompany(t, db, "Tenant A")

	perms := permissions.Defaults()
	perms.Equipment = false
	child := seedUser(t, db, company.ID, "child@a.test", models.SystemRoleChild, perms)
	r := monitorRouter(db, child)

	w := doJSON(t, r, http.MethodPost, "/api/v1/monitor-categories", gin.H{"name": "Compressors"})
	if w.Code != http.StatusForbidden {
		t.Errorf("equipment-revoked child should be 403, got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/api/v1/monitor-categories", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("equipment-revoked list should be 403, got %d", w.Code)
	}
}

func TestMonitorScopedToCompany(t *testing.T) {
	db := setupTestDB(t)
	companyA := seedCompany(t, db, "Tenant A")
	companyB := seedCompany(t, db, "Tenant B")
	mainA := seedUser(t, db, companyA.ID, "main@a.test", models.SystemRoleMain, permissions.Defaults())
	mainB := seedUser(t, db, companyB.ID, "main@b.test", models.SystemRoleMain, permissions.Defaults())

	rA := monitorRouter(db, mainA)
	w := doJSON(t, rA, http.MethodPost, "/api/v1/monitor-categories", gin.H{"name": "Compressors"})
	var category models.DataMonitorCategory
	decodeData(t, w, &category)

	rB := monitorRouter(db, mainB)
	w = doJSON(t, rB, http.MethodDelete, fmt.Sprintf("/api/v1/monitor-categories/%d", category.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("cross-tenant category delete should be 404, got %d", w.Code)
	}
	w = doJSON(t, rB, http.MethodPost, "/api/v1/monitor-projects", gin.H{
		"category_id": category.ID,
		"name":        "Line 1",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("cross-tenant project create should be 404, got %d", w.Code)
	}
}
