package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bizorder-system/internal/database/models"
	"bizorder-system/internal/middleware"
)

// Applied-price history uses a fixed page size.
const PriceHistoryPageSize = 10

type ScheduleHandler struct {
	db *gorm.DB
}

func NewScheduleHandler(db *gorm.DB) *ScheduleHandler {
	return &ScheduleHandler{db: db}
}

type CreateScheduleRequest struct {
	CompanyProductID int64  `json:"company_product_id" binding:"required"`
	ScheduledPrice   string `json:"scheduled_price" binding:"required"`
	EffectiveDate    string `json:"effective_date" binding:"required"`
	ExpiryDate       string `json:"expiry_date" binding:"required"`
}

type UpdateScheduleRequest struct {
	ScheduledPrice string `json:"scheduled_price" binding:"required"`
	EffectiveDate  string `json:"effective_date" binding:"required"`
	ExpiryDate     string `json:"expiry_date" binding:"required"`
}

type scheduleWindow struct {
	price     string
	effective time.Time
	expiry    time.Time
}

// validateWindow enforces the schedule invariant: positive price,
// strictly future effective date, expiry strictly after effective.
func validateWindow(price, effectiveDate, expiryDate string, now time.Time) (scheduleWindow, string) {
	d, err := parsePositivePrice(price)
	if err != nil {
		return scheduleWindow{}, "scheduled_price must be a positive decimal"
	}

	effective, err := parseDateTime(effectiveDate)
	if err != nil {
		return scheduleWindow{}, "effective_date must be a date"
	}
	if !effective.After(now) {
		return scheduleWindow{}, "effective_date must be in the future"
	}

	expiry, err := parseDateTime(expiryDate)
	if err != nil {
		return scheduleWindow{}, "expiry_date must be a date"
	}
	if !expiry.After(effective) {
		return scheduleWindow{}, "expiry_date must be after effective_date"
	}

	return scheduleWindow{price: d.String(), effective: effective, expiry: expiry}, ""
}

// findOwnCompanyProduct resolves a company product within the caller's
// tenant. Rows of other companies are indistinguishable from missing.
func (h *ScheduleHandler) findOwnCompanyProduct(c *gin.Context, cpID, companyID int64) (models.CompanyProduct, bool) {
	var cp models.CompanyProduct
	err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND company_id = ?", cpID, companyID).
		First(&cp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Company product not found"))
		} else {
			c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		}
		return models.CompanyProduct{}, false
	}
	return cp, true
}

// Create stores a future price change. Activation is never synchronous;
// the schedule worker applies it when the effective date arrives.
func (h *ScheduleHandler) Create(c *gin.Context) {
	_, companyID, role := middleware.Identity(c)
	if role != models.SystemRoleMain {
		c.JSON(http.StatusForbidden, errorResponse("Only a main account may manage price schedules"))
		return
	}

	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("company_product_id, scheduled_price, effective_date and expiry_date are required"))
		return
	}

	window, msg := validateWindow(req.ScheduledPrice, req.EffectiveDate, req.ExpiryDate, time.Now())
	if msg != "" {
		c.JSON(http.StatusBadRequest, errorResponse(msg))
		return
	}

	cp, ok := h.findOwnCompanyProduct(c, req.CompanyProductID, companyID)
	if !ok {
		return
	}

	schedule := models.PriceSchedule{
		CompanyProductID: cp.ID,
		ScheduledPrice:   window.price,
		EffectiveDate:    window.effective,
		ExpiryDate:       window.expiry,
		IsApplied:        false,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&schedule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Price schedule created", schedule))
}

func (h *ScheduleHandler) Update(c *gin.Context) {
	_, companyID, role := middleware.Identity(c)
	if role != models.SystemRoleMain {
		c.JSON(http.StatusForbidden, errorResponse("Only a main account may manage price schedules"))
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid schedule id"))
		return
	}

	var req UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("scheduled_price, effective_date and expiry_date are required"))
		return
	}

	window, msg := validateWindow(req.ScheduledPrice, req.EffectiveDate, req.ExpiryDate, time.Now())
	if msg != "" {
		c.JSON(http.StatusBadRequest, errorResponse(msg))
		return
	}

	var schedule models.PriceSchedule
	if err := h.db.WithContext(c.Request.Context()).
		Select("price_schedules.*").
		Joins("JOIN company_products ON company_products.id = price_schedules.company_product_id").
		Where("price_schedules.id = ? AND company_products.company_id = ?", id, companyID).
		First(&schedule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Price schedule not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	if schedule.IsApplied {
		c.JSON(http.StatusConflict, errorResponse("Applied schedules cannot be edited"))
		return
	}

	schedule.ScheduledPrice = window.price
	schedule.EffectiveDate = window.effective
	schedule.ExpiryDate = window.expiry

	if err := h.db.WithContext(c.Request.Context()).Save(&schedule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("Price schedule updated", schedule))
}

// Delete removes a schedule unconditionally. Deleting an applied
// schedule does not roll back the price it already copied onto the
// company product.
func (h *ScheduleHandler) Delete(c *gin.Context) {
	_, companyID, role := middleware.Identity(c)
	if role != models.SystemRoleMain {
		c.JSON(http.StatusForbidden, errorResponse("Only a main account may manage price schedules"))
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid schedule id"))
		return
	}

	res := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND company_product_id IN (?)", id,
			h.db.Model(&models.CompanyProduct{}).Select("id").Where("company_id = ?", companyID)).
		Delete(&models.PriceSchedule{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, errorResponse("Price schedule not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Price schedule deleted", nil))
}

// List returns the currently relevant schedules of a company product:
// unapplied with an expiry that has not passed. ?all=true lifts the
// filter.
func (h *ScheduleHandler) List(c *gin.Context) {
	_, companyID, _ := middleware.Identity(c)

	cpID, err := strconv.ParseInt(c.Query("companyProductId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("companyProductId is required"))
		return
	}

	cp, ok := h.findOwnCompanyProduct(c, cpID, companyID)
	if !ok {
		return
	}

	q := h.db.WithContext(c.Request.Context()).
		Where("company_product_id = ?", cp.ID)

	if c.Query("all") != "true" {
		q = q.Where("is_applied = ? AND expiry_date >= ?", false, time.Now())
	}

	var schedules []models.PriceSchedule
	if err := q.Order("effective_date, id").Find(&schedules).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("Price schedules retrieved", schedules))
}

// History lists applied schedules, newest effective date first. The id
// tiebreak keeps pagination stable when effective dates collide.
func (h *ScheduleHandler) History(c *gin.Context) {
	_, companyID, _ := middleware.Identity(c)

	cpID, err := strconv.ParseInt(c.Query("companyProductId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("companyProductId is required"))
		return
	}

	cp, ok := h.findOwnCompanyProduct(c, cpID, companyID)
	if !ok {
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	var total int64
	if err := h.db.WithContext(c.Request.Context()).Model(&models.PriceSchedule{}).
		Where("company_product_id = ? AND is_applied = ?", cp.ID, true).
		Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	var schedules []models.PriceSchedule
	if err := h.db.WithContext(c.Request.Context()).
		Where("company_product_id = ? AND is_applied = ?", cp.ID, true).
		Order("effective_date DESC, id DESC").
		Limit(PriceHistoryPageSize).
		Offset((page - 1) * PriceHistoryPageSize).
		Find(&schedules).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	meta := newPaginationMeta(page, PriceHistoryPageSize, total)
	c.JSON(http.StatusOK, successWithMetaResponse("Price history retrieved", schedules, meta))
}
