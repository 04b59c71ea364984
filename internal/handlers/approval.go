package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"bizorder-system/internal/database/models"
	"bizorder-system/internal/middleware"
)

const (
	APPROVAL_PENDING_COUNT_PREFIX = "approval:pending-count:"

	ApprovalActionApprove = "approve"
	ApprovalActionReject  = "reject"
)

type ApprovalHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewApprovalHandler(db *gorm.DB, redisClient *redis.Client) *ApprovalHandler {
	return &ApprovalHandler{db: db, redis: redisClient}
}

type ApprovalActionRequest struct {
	OrderID         int64  `json:"order_id" binding:"required"`
	Action          string `json:"action" binding:"required,oneof=approve reject"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

func pendingCountKey(companyID int64) string {
	return fmt.Sprintf("%s%d", APPROVAL_PENDING_COUNT_PREFIX, companyID)
}

func invalidatePendingCount(ctx context.Context, rdb *redis.Client, companyID int64) {
	if rdb != nil {
		rdb.Del(ctx, pendingCountKey(companyID))
	}
}

// Columns the pending list may be sorted by. total_amount is stored as a
// decimal string, so it is cast for numeric ordering.
var approvalSortColumns = map[string]string{
	"requested_at": "approvals.requested_at",
	"order_number": "orders.order_number",
	"total_amount": "CAST(orders.total_amount AS DECIMAL)",
}

// List returns the company's approvals with their order data joined.
// Default: pending only, newest request first.
func (h *ApprovalHandler) List(c *gin.Context) {
	_, companyID, _ := middleware.Identity(c)

	status := c.DefaultQuery("status", models.ApprovalStatusPending)

	sortCol, ok := approvalSortColumns[c.DefaultQuery("sort", "requested_at")]
	if !ok {
		c.JSON(http.StatusBadRequest, errorResponse("sort must be one of requested_at, order_number, total_amount"))
		return
	}
	direction := strings.ToLower(c.DefaultQuery("direction", "desc"))
	if direction != "asc" && direction != "desc" {
		c.JSON(http.StatusBadRequest, errorResponse("direction must be asc or desc"))
		return
	}

	var approvals []models.Approval
	if err := h.db.WithContext(c.Request.Context()).
		Select("approvals.*").
		Joins("JOIN orders ON orders.id = approvals.order_id").
		Joins("JOIN users ON users.id = approvals.requester_id").
		Where("users.company_id = ? AND approvals.status = ?", companyID, status).
		Preload("Order").
		Preload("Requester").
		Preload("Approver").
		Order(fmt.Sprintf("%s %s, approvals.id %s", sortCol, direction, direction)).
		Find(&approvals).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("Approvals retrieved", approvals))
}

// Action approves or rejects a pending approval. Any same-company
// account with approval authority may act, including on its own request.
// The status flip is guarded on status = pending, so of two approvers
// racing on the same record exactly one wins; the other gets 409.
func (h *ApprovalHandler) Action(c *gin.Context) {
	act, err := loadActor(c, h.db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	var req ApprovalActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("order_id and action (approve|reject) are required"))
		return
	}

	if !act.Perms.CanApprove() {
		c.JSON(http.StatusForbidden, errorResponse("You do not have approval authority"))
		return
	}

	reason := strings.TrimSpace(req.RejectionReason)
	if req.Action == ApprovalActionReject {
		if reason == "" {
			c.JSON(http.StatusBadRequest, errorResponse("rejection_reason is required when rejecting"))
			return
		}
		if utf8.RuneCountInString(reason) > models.RejectionReasonMaxLen {
			c.JSON(http.StatusBadRequest, errorResponse("rejection_reason must be 200 characters or less"))
			return
		}
	}

	var approval models.Approval
	if err := h.db.WithContext(c.Request.Context()).
		Select("approvals.*").
		Joins("JOIN users ON users.id = approvals.requester_id").
		Where("approvals.order_id = ? AND users.company_id = ?", req.OrderID, act.User.CompanyID).
		First(&approval).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Approval not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	now := time.Now()
	newStatus := models.ApprovalStatusApproved
	updates := map[string]interface{}{
		"status":      models.ApprovalStatusApproved,
		"approver_id": act.User.ID,
		"approved_at": now,
	}
	if req.Action == ApprovalActionReject {
		newStatus = models.ApprovalStatusRejected
		updates = map[string]interface{}{
			"status":           models.ApprovalStatusRejected,
			"approver_id":      act.User.ID,
			"rejected_at":      now,
			"rejection_reason": reason,
		}
	}

	var conflicted bool
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Approval{}).
			Where("id = ? AND status = ?", approval.ID, models.ApprovalStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			conflicted = true
			return nil
		}

		// Approval resolution never touches Order.Status: admin
		// confirmation is an independent gate. Only the mirror field moves.
		return tx.Model(&models.Order{}).
			Where("id = ?", approval.OrderID).
			Update("approval_status", newStatus).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}
	if conflicted {
		c.JSON(http.StatusConflict, errorResponse("Approval has already been resolved"))
		return
	}

	invalidatePendingCount(c.Request.Context(), h.redis, act.User.CompanyID)

	var updated models.Approval
	if err := h.db.WithContext(c.Request.Context()).
		Preload("Order").Preload("Requester").Preload("Approver").
		First(&updated, approval.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("Approval "+newStatus, updated))
}

// PendingCount serves the badge counter, cache-aside in Redis.
func (h *ApprovalHandler) PendingCount(c *gin.Context) {
	_, companyID, _ := middleware.Identity(c)
	ctx := c.Request.Context()

	if h.redis != nil {
		if cached, err := h.redis.Get(ctx, pendingCountKey(companyID)).Result(); err == nil {
			if count, err := strconv.ParseInt(cached, 10, 64); err == nil {
				c.JSON(http.StatusOK, successResponse("Pending count retrieved (cached)", gin.H{"count": count}))
				return
			}
		}
	}

	var count int64
	if err := h.db.WithContext(ctx).Model(&models.Approval{}).
		Joins("JOIN users ON users.id = approvals.requester_id").
		Where("users.company_id = ? AND approvals.status = ?", companyID, models.ApprovalStatusPending).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	if h.redis != nil {
		h.redis.Set(ctx, pendingCountKey(companyID), strconv.FormatInt(count, 10), CACHE_TTL_SHORT)
	}

	c.JSON(http.StatusOK, successResponse("Pending count retrieved", gin.H{"count": count}))
}
