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

type CartHandler struct {
	db *gorm.DB
}

func NewCartHandler(db *gorm.DB) *CartHandler {
	return &CartHandler{db: db}
}

type AddCartItemRequest struct {
	CompanyProductID int64 `json:"company_product_id" binding:"required"`
	Quantity         int32 `json:"quantity" binding:"required,min=1"`
}

type UpdateCartItemRequest struct {
	Quantity int32 `json:"quantity" binding:"required,min=1"`
}

// Add puts a product in the caller's cart, or bumps the quantity when it
// is already there. Disabled or quotation-expired products are rejected
// up front rather than at checkout.
func (h *CartHandler) Add(c *gin.Context) {
	userID, companyID, _ := middleware.Identity(c)

	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("company_product_id and quantity (min 1) are required"))
		return
	}

	var cp models.CompanyProduct
	if err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND company_id = ?", req.CompanyProductID, companyID).
		First(&cp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Product not found in company catalog"))
			return
		}
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	if !cp.Enabled {
		c.JSON(http.StatusBadRequest, errorResponse("Product is not available for ordering"))
		return
	}
	if cp.Price == nil {
		c.JSON(http.StatusBadRequest, errorResponse("Product has no price set"))
		return
	}
	if cp.QuotationExpiryDate != nil && quotationExpired(*cp.QuotationExpiryDate, time.Now()) {
		c.JSON(http.StatusBadRequest, errorResponse("Product quotation has expired"))
		return
	}

	var item models.CartItem
	err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ? AND company_product_id = ?", userID, cp.ID).
		First(&item).Error
	switch {
	case err == nil:
		item.Quantity += req.Quantity
		if err := h.db.WithContext(c.Request.Context()).Save(&item).Error; err != nil {
			c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
			return
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		item = models.CartItem{
			UserID:           userID,
			CompanyProductID: cp.ID,
			Quantity:         req.Quantity,
		}
		if err := h.db.WithContext(c.Request.Context()).Create(&item).Error; err != nil {
			c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
			return
		}
	default:
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("Cart updated", item))
}

func (h *CartHandler) List(c *gin.Context) {
	userID, _, _ := middleware.Identity(c)

	var items []models.CartItem
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Preload("CompanyProduct").
		Preload("CompanyProduct.ProductMaster").
		Order("id").
		Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("Cart retrieved", items))
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	userID, _, _ := middleware.Identity(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid cart item id"))
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("quantity (min 1) is required"))
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.CartItem{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("quantity", req.Quantity)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, errorResponse("Cart item not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Cart item updated", nil))
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, _, _ := middleware.Identity(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid cart item id"))
		return
	}

	res := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, errorResponse("Cart item not found"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Cart item removed", nil))
}

func (h *CartHandler) Clear(c *gin.Context) {
	userID, _, _ := middleware.Identity(c)

	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("Cart cleared", nil))
}
