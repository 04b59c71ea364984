package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"bizorder-system/internal/database/models"
	"bizorder-system/internal/middleware"
)

const (
	CATALOG_CACHE_PREFIX     = "catalog:"
	PRODUCT_MASTER_CACHE_KEY = "catalog:product-master"

	CACHE_TTL_SHORT  = 5 * time.Minute
	CACHE_TTL_MEDIUM = 30 * time.Minute

	// Quotation expiry within this window flags a product as expiring soon.
	QuotationWarningWindow = 30 * 24 * time.Hour
)

const (
	PriceStateOK           = "ok"
	PriceStateUnset        = "unset"
	PriceStateExpired      = "expired"
	PriceStateExpiringSoon = "expiringSoon"
)

type CatalogHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCatalogHandler(db *gorm.DB, redisClient *redis.Client) *CatalogHandler {
	return &CatalogHandler{db: db, redis: redisClient}
}

func (h *CatalogHandler) invalidateProductCache(ctx context.Context) {
	if h.redis != nil {
		h.redis.Del(ctx, PRODUCT_MASTER_CACHE_KEY)
	}
}

// --- Product masters ---

type CreateProductRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Capacity     string `json:"capacity,omitempty"`
	Unit         string `json:"unit,omitempty"`
	OilType      string `json:"oil_type,omitempty"`
	PackageType  string `json:"package_type,omitempty"`
}

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	_, _, role := middleware.Identity(c)
	if role != models.SystemRoleMain {
		c.JSON(http.StatusForbidden, errorResponse("Only a main account may manage product masters"))
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("code and name are required"))
		return
	}

	var count int64
	if err := h.db.WithContext(c.Request.Context()).Model(&models.ProductMaster{}).
		Where("code = ?", req.Code).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, errorResponse("Product code already exists"))
		return
	}

	product := models.ProductMaster{
		Code:         req.Code,
		Name:         req.Name,
		Manufacturer: req.Manufacturer,
		Capacity:     req.Capacity,
		Unit:         req.Unit,
		OilType:      req.OilType,
		PackageType:  req.PackageType,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	h.invalidateProductCache(c.Request.Context())
	c.JSON(http.StatusCreated, successResponse("Product created", product))
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()

	if h.redis != nil {
		if cached, err := h.redis.Get(ctx, PRODUCT_MASTER_CACHE_KEY).Result(); err == nil {
			var products []models.ProductMaster
			if json.Unmarshal([]byte(cached), &products) == nil {
				c.JSON(http.StatusOK, successResponse("Products retrieved (cached)", products))
				return
			}
		}
	}

	var products []models.ProductMaster
	if err := h.db.WithContext(ctx).Order("code").Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	if h.redis != nil {
		if data, err := json.Marshal(products); err == nil {
			h.redis.Set(ctx, PRODUCT_MASTER_CACHE_KEY, data, CACHE_TTL_MEDIUM)
		}
	}

	c.JSON(http.StatusOK, successResponse("Products retrieved", products))
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid product id"))
		return
	}

	var product models.ProductMaster
	if err := h.db.WithContext(c.Request.Context()).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Product not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("Product retrieved", product))
}

// --- Company products ---

type CreateCompanyProductRequest struct {
	CompanyID       int64   `json:"company_id" binding:"required"`
	ProductMasterID int64   `json:"product_master_id" binding:"required"`
	Price           *string `json:"price,omitempty"`
	DisplayOrder    int32   `json:"display_order,omitempty"`
}

type UpdateCompanyProductRequest struct {
	Enabled             *bool   `json:"enabled,omitempty"`
	Price               *string `json:"price,omitempty"`
	QuotationExpiryDate *string `json:"quotation_expiry_date,omitempty"`
	DisplayOrder        *int32  `json:"display_order,omitempty"`
}

type CompanyProductView struct {
	models.CompanyProduct
	PriceState string `json:"price_state"`
}

func (h *CatalogHandler) CreateCompanyProduct(c *gin.Context) {
	_, _, role := middleware.Identity(c)
	if role != models.SystemRoleMain {
		c.JSON(http.StatusForbidden, errorResponse("Only a main account may manage the company catalog"))
		return
	}

	var req CreateCompanyProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("company_id and product_master_id are required"))
		return
	}

	if req.Price != nil {
		if _, err := parsePositivePrice(*req.Price); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("price must be a positive decimal"))
			return
		}
	}

	var master models.ProductMaster
	if err := h.db.WithContext(c.Request.Context()).First(&master, req.ProductMasterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Product master not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	var count int64
	if err := h.db.WithContext(c.Request.Context()).Model(&models.CompanyProduct{}).
		Where("company_id = ? AND product_master_id = ?", req.CompanyID, req.ProductMasterID).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, errorResponse("Product is already enabled for this company"))
		return
	}

	cp := models.CompanyProduct{
		CompanyID:       req.CompanyID,
		ProductMasterID: req.ProductMasterID,
		Enabled:         true,
		Price:           req.Price,
		DisplayOrder:    req.DisplayOrder,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&cp).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Company product created", cp))
}

func (h *CatalogHandler) ListCompanyProducts(c *gin.Context) {
	act, err := loadActor(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}
	if !act.Perms.CanAccessProducts() {
		c.JSON(http.StatusForbidden, errorResponse("You do not have access to the product screen"))
		return
	}
	companyID := act.User.CompanyID

	var items []models.CompanyProduct
	if err := h.db.WithContext(c.Request.Context()).
		Where("company_id = ?", companyID).
		Preload("ProductMaster").
		Preload("Schedules", "is_applied = ?", false).
		Order("display_order, id").
		Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	now := time.Now()
	views := make([]CompanyProductView, 0, len(items))
	for _, cp := range items {
		views = append(views, CompanyProductView{
			CompanyProduct: cp,
			PriceState:     priceState(cp, now),
		})
	}

	c.JSON(http.StatusOK, successResponse("Company products retrieved", views))
}

func (h *CatalogHandler) UpdateCompanyProduct(c *gin.Context) {
	_, companyID, role := middleware.Identity(c)
	if role != models.SystemRoleMain {
		c.JSON(http.StatusForbidden, errorResponse("Only a main account may manage the company catalog"))
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid company product id"))
		return
	}

	var req UpdateCompanyProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	var cp models.CompanyProduct
	if err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&cp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Company product not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	if req.Enabled != nil {
		cp.Enabled = *req.Enabled
	}
	if req.Price != nil {
		if _, err := parsePositivePrice(*req.Price); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("price must be a positive decimal"))
			return
		}
		cp.Price = req.Price
	}
	if req.QuotationExpiryDate != nil {
		if *req.QuotationExpiryDate == "" {
			cp.QuotationExpiryDate = nil
		} else {
			d, err := parseDateTime(*req.QuotationExpiryDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, errorResponse("quotation_expiry_date must be a date"))
				return
			}
			cp.QuotationExpiryDate = &d
		}
	}
	if req.DisplayOrder != nil {
		cp.DisplayOrder = *req.DisplayOrder
	}

	if err := h.db.WithContext(c.Request.Context()).Save(&cp).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("Company product updated", cp))
}

func (h *CatalogHandler) DeleteCompanyProduct(c *gin.Context) {
	_, companyID, role := middleware.Identity(c)
	if role != models.SystemRoleMain {
		c.JSON(http.StatusForbidden, errorResponse("Only a main account may manage the company catalog"))
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid company product id"))
		return
	}

	res := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND company_id = ?", id, companyID).
		Delete(&models.CompanyProduct{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, errorResponse("Company product not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Company product deleted", nil))
}

// quotationExpired reports whether ordering is blocked. The expiry date
// names the last orderable day: a date parses to midnight, so the
// comparison runs against the end of that day, not its start.
func quotationExpired(expiry, now time.Time) bool {
	endOfDay := time.Date(expiry.Year(), expiry.Month(), expiry.Day(),
		23, 59, 59, int(time.Second-time.Nanosecond), expiry.Location())
	return now.After(endOfDay)
}

// priceState derives the display state of a company product's price.
// Expects cp.Schedules preloaded with unapplied schedules only.
// A quotation expiring within the warning window is not flagged when an
// unapplied schedule already covers the gap, so admins are not warned
// about a price update they have already scheduled.
func priceState(cp models.CompanyProduct, now time.Time) string {
	if cp.Price == nil {
		return PriceStateUnset
	}
	if cp.QuotationExpiryDate == nil {
		return PriceStateOK
	}
	if quotationExpired(*cp.QuotationExpiryDate, now) {
		return PriceStateExpired
	}
	if cp.QuotationExpiryDate.Sub(now) <= QuotationWarningWindow && !scheduleCovers(cp, now) {
		return PriceStateExpiringSoon
	}
	return PriceStateOK
}

func scheduleCovers(cp models.CompanyProduct, now time.Time) bool {
	if cp.QuotationExpiryDate == nil {
		return false
	}
	for _, s := range cp.Schedules {
		if s.IsApplied {
			continue
		}
		if s.ExpiryDate.Before(now) {
			continue
		}
		if !s.EffectiveDate.After(*cp.QuotationExpiryDate) {
			return true
		}
	}
	return false
}

func parsePositivePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errors.New("price must be positive")
	}
	return d, nil
}
