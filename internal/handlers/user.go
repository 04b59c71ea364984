package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"bizorder-system/internal/database/models"
	"bizorder-system/internal/middleware"
	"bizorder-system/internal/permissions"
)

type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

type RegisterSubAccountRequest struct {
	Email    string                   `json:"email" binding:"required,email"`
	Password string                   `json:"password" binding:"required,min=8"`
	Name     string                   `json:"name" binding:"required"`
	Perms    *permissions.Permissions `json:"permissions,omitempty"`
}

type UpdateUserRequest struct {
	Name     *string                  `json:"name,omitempty"`
	IsActive *bool                    `json:"is_active,omitempty"`
	Perms    *permissions.Permissions `json:"permissions,omitempty"`
}

// RegisterSubAccount creates a child account under the caller's company.
// Bounded to MaxSubAccounts active sub-accounts per company.
func (h *UserHandler) RegisterSubAccount(c *gin.Context) {
	_, companyID, role := middleware.Identity(c)

	if role != models.SystemRoleMain {
		c.JSON(http.StatusForbidden, errorResponse("Only the main account may register sub-accounts"))
		return
	}

	var req RegisterSubAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("email, password (min 8 chars) and name are required"))
		return
	}

	var existing models.User
	if err := h.db.WithContext(c.Request.Context()).
		Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, errorResponse("Email already exists"))
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	var count int64
	if err := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("company_id = ? AND system_role = ? AND is_active = ?", companyID, models.SystemRoleChild, true).
		Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}
	if count >= models.MaxSubAccounts {
		c.JSON(http.StatusConflict, errorResponse("Sub-account limit reached (max 3 per company)"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to hash password"))
		return
	}

	perms := permissions.Defaults()
	if req.Perms != nil {
		perms = *req.Perms
	}

	user := models.User{
		CompanyID:   companyID,
		Email:       req.Email,
		Password:    string(hashed),
		Name:        req.Name,
		SystemRole:  models.SystemRoleChild,
		Permissions: permissions.Encode(perms),
		IsActive:    true,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Sub-account registered", user))
}

func (h *UserHandler) List(c *gin.Context) {
	_, companyID, _ := middleware.Identity(c)

	var users []models.User
	if err := h.db.WithContext(c.Request.Context()).
		Where("company_id = ?", companyID).Order("id").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("Users retrieved", users))
}

func (h *UserHandler) Get(c *gin.Context) {
	_, companyID, _ := middleware.Identity(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid user id"))
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND company_id = ?", id, companyID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("User not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("User retrieved", user))
}

func (h *UserHandler) Update(c *gin.Context) {
	_, companyID, role := middleware.Identity(c)

	if role != models.SystemRoleMain {
		c.JSON(http.StatusForbidden, errorResponse("Only the main account may update users"))
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid user id"))
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND company_id = ?", id, companyID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("User not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.Perms != nil {
		if user.IsMain() {
			c.JSON(http.StatusBadRequest, errorResponse("Main account permissions cannot be changed"))
			return
		}
		user.Permissions = permissions.Encode(*req.Perms)
	}

	if err := h.db.WithContext(c.Request.Context()).Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("User updated", user))
}

// Delete soft-deletes a sub-account. The row stays so orders and
// approvals keep a valid requester/approver reference.
func (h *UserHandler) Delete(c *gin.Context) {
	_, companyID, role := middleware.Identity(c)

	if role != models.SystemRoleMain {
		c.JSON(http.StatusForbidden, errorResponse("Only the main account may delete users"))
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid user id"))
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND company_id = ?", id, companyID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("User not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	if user.IsMain() {
		c.JSON(http.StatusBadRequest, errorResponse("Main account cannot be deleted"))
		return
	}

	now := time.Now()
	user.IsActive = false
	user.DeletedAt = &now

	if err := h.db.WithContext(c.Request.Context()).Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("User deleted", nil))
}
