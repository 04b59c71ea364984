package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bizorder-system/internal/database/models"
)

type MonitorHandler struct {
	db *gorm.DB
}

func NewMonitorHandler(db *gorm.DB) *MonitorHandler {
	return &MonitorHandler{db: db}
}

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

type CreateProjectRequest struct {
	CategoryID int64  `json:"category_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
}

type CreateMeasurementRequest struct {
	ProjectID  int64  `json:"project_id" binding:"required"`
	Value      string `json:"value" binding:"required"`
	Unit       string `json:"unit,omitempty"`
	MeasuredAt string `json:"measured_at,omitempty"`
}

func (h *MonitorHandler) requireEquipmentAccess(c *gin.Context) (actor, bool) {
	act, err := loadActor(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return actor{}, false
	}
	if !act.Perms.CanAccessEquipment() {
		c.JSON(http.StatusForbidden, errorResponse("You do not have access to equipment data"))
		return actor{}, false
	}
	return act, true
}

func (h *MonitorHandler) CreateCategory(c *gin.Context) {
	act, ok := h.requireEquipmentAccess(c)
	if !ok {
		return
	}

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("name is required"))
		return
	}

	var count int64
	if err := h.db.WithContext(c.Request.Context()).Model(&models.DataMonitorCategory{}).
		Where("company_id = ? AND name = ?", act.User.CompanyID, req.Name).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, errorResponse("Category name already exists"))
		return
	}

	category := models.DataMonitorCategory{
		CompanyID: act.User.CompanyID,
		Name:      req.Name,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&category).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Category created", category))
}

func (h *MonitorHandler) ListCategories(c *gin.Context) {
	act, ok := h.requireEquipmentAccess(c)
	if !ok {
		return
	}

	var categories []models.DataMonitorCategory
	if err := h.db.WithContext(c.Request.Context()).
		Where("company_id = ?", act.User.CompanyID).
		Preload("Projects").
		Order("id").
		Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("Categories retrieved", categories))
}

func (h *MonitorHandler) GetCategory(c *gin.Context) {
	act, ok := h.requireEquipmentAccess(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid category id"))
		return
	}

	var category models.DataMonitorCategory
	if err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND company_id = ?", id, act.User.CompanyID).
		Preload("Projects").
		Preload("Projects.Measurements").
		First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Category not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("Category retrieved", category))
}

// DeleteCategory removes the category with all of its projects and their
// measurements in one transaction. A crash cannot leave orphaned rows.
func (h *MonitorHandler) DeleteCategory(c *gin.Context) {
	act, ok := h.requireEquipmentAccess(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid category id"))
		return
	}

	var category models.DataMonitorCategory
	if err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND company_id = ?", id, act.User.CompanyID).
		First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Category not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("project_id IN (?)", tx.Model(&models.DataMonitorProject{}).
				Select("id").Where("category_id = ?", category.ID)).
			Delete(&models.Measurement{}).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", category.ID).
			Delete(&models.DataMonitorProject{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.DataMonitorCategory{}, category.ID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("Category deleted", nil))
}

func (h *MonitorHandler) CreateProject(c *gin.Context) {
	act, ok := h.requireEquipmentAccess(c)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("category_id and name are required"))
		return
	}

	var category models.DataMonitorCategory
	if err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND company_id = ?", req.CategoryID, act.User.CompanyID).
		First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Category not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	project := models.DataMonitorProject{
		CategoryID: category.ID,
		Name:       req.Name,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Project created", project))
}

func (h *MonitorHandler) CreateMeasurement(c *gin.Context) {
	act, ok := h.requireEquipmentAccess(c)
	if !ok {
		return
	}

	var req CreateMeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("project_id and value are required"))
		return
	}

	var project models.DataMonitorProject
	if err := h.db.WithContext(c.Request.Context()).
		Joins("JOIN data_monitor_categories ON data_monitor_categories.id = data_monitor_projects.category_id").
		Where("data_monitor_projects.id = ? AND data_monitor_categories.company_id = ?", req.ProjectID, act.User.CompanyID).
		Select("data_monitor_projects.*").
		First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Project not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	measuredAt := time.Now()
	if req.MeasuredAt != "" {
		t, err := parseDateTime(req.MeasuredAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("measured_at must be a date"))
			return
		}
		measuredAt = t
	}

	measurement := models.Measurement{
		ProjectID:  project.ID,
		Value:      req.Value,
		Unit:       req.Unit,
		MeasuredAt: measuredAt,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&measurement).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Measurement recorded", measurement))
}
