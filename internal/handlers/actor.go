package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bizorder-system/internal/database/models"
	"bizorder-system/internal/middleware"
	"bizorder-system/internal/permissions"
)

// actor is the authenticated caller with permissions resolved from the
// stored blob, not from the token: flags may have changed since issuance.
type actor struct {
	User  models.User
	Perms permissions.Set
}

func loadActor(c *gin.Context, db *gorm.DB) (actor, error) {
	userID, _, _ := middleware.Identity(c)

	var user models.User
	if err := db.WithContext(c.Request.Context()).First(&user, userID).Error; err != nil {
		return actor{}, err
	}

	return actor{
		User:  user,
		Perms: permissions.ForUser(user.SystemRole, user.Permissions),
	}, nil
}
