package handlers

import (
	"errors"
	"fmt"
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

type OrderHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewOrderHandler(db *gorm.DB, redisClient *redis.Client) *OrderHandler {
	return &OrderHandler{db: db, redis: redisClient}
}

type CreateOrderRequest struct {
	DeliveryName       string  `json:"delivery_name" binding:"required"`
	DeliveryPostalCode string  `json:"delivery_postal_code" binding:"required"`
	DeliveryAddress    string  `json:"delivery_address" binding:"required"`
	DeliveryPhone      string  `json:"delivery_phone,omitempty"`
	Notes              *string `json:"notes,omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Admin-driven status transitions. Creation and cancel-request are the
// only moves a company user makes.
var orderStatusTransitions = map[string][]string{
	models.OrderStatusPending:         {models.OrderStatusConfirmed},
	models.OrderStatusConfirmed:       {models.OrderStatusProcessing},
	models.OrderStatusProcessing:      {models.OrderStatusShipped},
	models.OrderStatusShipped:         {models.OrderStatusDelivered},
	models.OrderStatusCancelRequested: {models.OrderStatusCancelled, models.OrderStatusCancelRejected},
}

func transitionAllowed(from, to string) bool {
	for _, next := range orderStatusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func generateOrderNumber() string {
	return fmt.Sprintf("ORD-%d", time.Now().UnixNano())
}

// Create turns the caller's cart into an order. Order, items, the
// approval record when the user requires one, and the cart cleanup all
// commit in a single transaction: there is no partial state where an
// order exists without its approval gate.
func (h *OrderHandler) Create(c *gin.Context) {
	act, err := loadActor(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("delivery_name, delivery_postal_code and delivery_address are required"))
		return
	}

	var cartItems []models.CartItem
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", act.User.ID).
		Preload("CompanyProduct").
		Preload("CompanyProduct.ProductMaster").
		Find(&cartItems).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}
	if len(cartItems) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse("Cart is empty"))
		return
	}

	now := time.Now()
	requiresApproval := act.Perms.RequiresApproval()

	tx := h.db.WithContext(c.Request.Context()).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	order := models.Order{
		OrderNumber:        generateOrderNumber(),
		UserID:             act.User.ID,
		DeliveryName:       req.DeliveryName,
		DeliveryPostalCode: req.DeliveryPostalCode,
		DeliveryAddress:    req.DeliveryAddress,
		DeliveryPhone:      req.DeliveryPhone,
		Status:             models.OrderStatusPending,
		TotalAmount:        "0.00",
		RequiresApproval:   requiresApproval,
		Notes:              req.Notes,
	}
	if requiresApproval {
		pending := models.ApprovalStatusPending
		order.ApprovalStatus = &pending
	}

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	total := decimal.Zero
	for _, item := range cartItems {
		cp := item.CompanyProduct
		if cp == nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, errorResponse("Cart references a missing product"))
			return
		}
		if !cp.Enabled || cp.Price == nil {
			tx.Rollback()
			c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf("Product %d is not orderable", cp.ID)))
			return
		}
		if cp.QuotationExpiryDate != nil && quotationExpired(*cp.QuotationExpiryDate, now) {
			tx.Rollback()
			c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf("Quotation for product %d has expired", cp.ID)))
			return
		}

		unitPrice, err := decimal.NewFromString(*cp.Price)
		if err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, errorResponse("Stored price is not a valid decimal"))
			return
		}
		lineTotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))

		productName := ""
		if cp.ProductMaster != nil {
			productName = cp.ProductMaster.Name
		}

		orderItem := models.OrderItem{
			OrderID:          order.ID,
			CompanyProductID: cp.ID,
			ProductName:      productName,
			Quantity:         item.Quantity,
			UnitPrice:        unitPrice.StringFixed(2),
			TotalPrice:       lineTotal.StringFixed(2),
		}

		if err := tx.Create(&orderItem).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
			return
		}

		total = total.Add(lineTotal)
	}

	order.TotalAmount = total.StringFixed(2)
	if err := tx.Save(&order).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	if requiresApproval {
		approval := models.Approval{
			OrderID:     order.ID,
			Status:      models.ApprovalStatusPending,
			RequesterID: act.User.ID,
			RequestedAt: now,
		}
		if err := tx.Create(&approval).Error; err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
			return
		}
	}

	if err := tx.Where("user_id = ?", act.User.ID).Delete(&models.CartItem{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	if requiresApproval {
		invalidatePendingCount(c.Request.Context(), h.redis, act.User.CompanyID)
	}

	var created models.Order
	if err := h.db.WithContext(c.Request.Context()).
		Preload("OrderItems").Preload("Approval").
		First(&created, order.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Order created", created))
}

func (h *OrderHandler) List(c *gin.Context) {
	act, err := loadActor(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}
	if !act.Perms.CanAccessOrders() {
		c.JSON(http.StatusForbidden, errorResponse("You do not have access to the order screen"))
		return
	}
	companyID := act.User.CompanyID

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	cond := h.db.WithContext(c.Request.Context()).Model(&models.Order{}).
		Joins("JOIN users ON users.id = orders.user_id").
		Where("users.company_id = ?", companyID)
	if status := c.Query("status"); status != "" {
		cond = cond.Where("orders.status = ?", status)
	}

	var total int64
	if err := cond.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.Order{}).
		Joins("JOIN users ON users.id = orders.user_id").
		Where("users.company_id = ?", companyID)
	if status := c.Query("status"); status != "" {
		q = q.Where("orders.status = ?", status)
	}

	var orders []models.Order
	if err := q.Select("orders.*").Preload("OrderItems").Preload("Approval").
		Order("orders.created_at DESC, orders.id DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	meta := newPaginationMeta(page, pageSize, total)
	c.JSON(http.StatusOK, successWithMetaResponse("Orders retrieved", orders, meta))
}

func (h *OrderHandler) Get(c *gin.Context) {
	act, err := loadActor(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}
	if !act.Perms.CanAccessOrders() {
		c.JSON(http.StatusForbidden, errorResponse("You do not have access to the order screen"))
		return
	}
	companyID := act.User.CompanyID

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order id"))
		return
	}

	order, ok := h.findCompanyOrder(c, id, companyID)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, successResponse("Order retrieved", order))
}

// RequestCancel moves an order to cancel_requested. Only the ordering
// user may ask, and only while the order is still pending or confirmed.
func (h *OrderHandler) RequestCancel(c *gin.Context) {
	userID, companyID, _ := middleware.Identity(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order id"))
		return
	}

	order, ok := h.findCompanyOrder(c, id, companyID)
	if !ok {
		return
	}

	if order.UserID != userID {
		c.JSON(http.StatusForbidden, errorResponse("Only the ordering user may request cancellation"))
		return
	}
	if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusConfirmed {
		c.JSON(http.StatusConflict, errorResponse("Order can no longer be cancelled"))
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Order{}).
		Where("id = ? AND status IN ?", order.ID, []string{models.OrderStatusPending, models.OrderStatusConfirmed}).
		Update("status", models.OrderStatusCancelRequested)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, errorResponse("Order can no longer be cancelled"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Cancellation requested", nil))
}

// UpdateStatus performs the admin-side transitions, including resolving
// cancellation requests.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	_, companyID, role := middleware.Identity(c)
	if role != models.SystemRoleMain {
		c.JSON(http.StatusForbidden, errorResponse("Only a main account may change order status"))
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid order id"))
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("status is required"))
		return
	}

	order, ok := h.findCompanyOrder(c, id, companyID)
	if !ok {
		return
	}

	if !transitionAllowed(order.Status, req.Status) {
		c.JSON(http.StatusConflict, errorResponse(
			fmt.Sprintf("Cannot transition order from %s to %s", order.Status, req.Status)))
		return
	}

	// Guarded on the previous status so two admins cannot apply
	// conflicting transitions to the same order.
	res := h.db.WithContext(c.Request.Context()).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Update("status", req.Status)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, errorResponse("Order status changed concurrently"))
		return
	}

	order.Status = req.Status
	c.JSON(http.StatusOK, successResponse("Order status updated", order))
}

func (h *OrderHandler) findCompanyOrder(c *gin.Context, id, companyID int64) (models.Order, bool) {
	var order models.Order
	err := h.db.WithContext(c.Request.Context()).
		Select("orders.*").
		Joins("JOIN users ON users.id = orders.user_id").
		Where("orders.id = ? AND users.company_id = ?", id, companyID).
		Preload("OrderItems").Preload("Approval").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Order not found"))
		} else {
			c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		}
		return models.Order{}, false
	}
	return order, true
}
