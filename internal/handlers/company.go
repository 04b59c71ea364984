package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bizorder-system/internal/database/models"
	"bizorder-system/internal/middleware"
)

type CompanyHandler struct {
	db *gorm.DB
}

func NewCompanyHandler(db *gorm.DB) *CompanyHandler {
	return &CompanyHandler{db: db}
}

type CreateCompanyRequest struct {
	Name        string `json:"name" binding:"required"`
	PostalCode  string `json:"postal_code,omitempty"`
	Prefecture  string `json:"prefecture,omitempty"`
	City        string `json:"city,omitempty"`
	AddressLine string `json:"address_line,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

type UpdateCompanyRequest struct {
	Name        *string `json:"name,omitempty"`
	PostalCode  *string `json:"postal_code,omitempty"`
	Prefecture  *string `json:"prefecture,omitempty"`
	City        *string `json:"city,omitempty"`
	AddressLine *string `json:"address_line,omitempty"`
	Phone       *string `json:"phone,omitempty"`
}

func (h *CompanyHandler) Create(c *gin.Context) {
	_, _, role := middleware.Identity(c)
	if role != models.SystemRoleMain {
		c.JSON(http.StatusForbidden, errorResponse("Only a main account may create companies"))
		return
	}

	var req CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("name is required"))
		return
	}

	var count int64
	if err := h.db.WithContext(c.Request.Context()).Model(&models.Company{}).
		Where("name = ?", req.Name).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, errorResponse("Company name already exists"))
		return
	}

	company := models.Company{
		Name:        req.Name,
		PostalCode:  req.PostalCode,
		Prefecture:  req.Prefecture,
		City:        req.City,
		AddressLine: req.AddressLine,
		Phone:       req.Phone,
	}

	if err := h.db.WithContext(c.Request.Context()).Create(&company).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusCreated, successResponse("Company created", company))
}

func (h *CompanyHandler) List(c *gin.Context) {
	var companies []models.Company
	if err := h.db.WithContext(c.Request.Context()).Order("id").Find(&companies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}
	c.JSON(http.StatusOK, successResponse("Companies retrieved", companies))
}

func (h *CompanyHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid company id"))
		return
	}

	var company models.Company
	if err := h.db.WithContext(c.Request.Context()).First(&company, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Company not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("Company retrieved", company))
}

func (h *CompanyHandler) Update(c *gin.Context) {
	_, companyID, role := middleware.Identity(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid company id"))
		return
	}

	// A main account may only edit its own company.
	if role != models.SystemRoleMain || companyID != id {
		c.JSON(http.StatusForbidden, errorResponse("Only the company's main account may update it"))
		return
	}

	var req UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	var company models.Company
	if err := h.db.WithContext(c.Request.Context()).First(&company, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("Company not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	if req.Name != nil {
		company.Name = *req.Name
	}
	if req.PostalCode != nil {
		company.PostalCode = *req.PostalCode
	}
	if req.Prefecture != nil {
		company.Prefecture = *req.Prefecture
	}
	if req.City != nil {
		company.City = *req.City
	}
	if req.AddressLine != nil {
		company.AddressLine = *req.AddressLine
	}
	if req.Phone != nil {
		company.Phone = *req.Phone
	}

	if err := h.db.WithContext(c.Request.Context()).Save(&company).Error; err != nil {
		c.JSON(http.StatusInternalServerError, dbErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, successResponse("Company updated", company))
}
