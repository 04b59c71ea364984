package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bizorder-system/internal/utils"
)

const (
	CtxUserID     = "user_id"
	CtxCompanyID  = "company_id"
	CtxSystemRole = "system_role"
)

// JWTAuth verifies the Bearer token and exposes the caller's identity in
// the request context. Token issuance lives elsewhere; this side only
// trusts the shared-secret verification.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Missing or malformed Authorization header",
			})
			return
		}

		claims, err := utils.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
			})
			return
		}

		c.Set(CtxUserID, claims.UserId)
		c.Set(CtxCompanyID, claims.CompanyId)
		c.Set(CtxSystemRole, claims.SystemRole)
		c.Next()
	}
}

// Identity reads the authenticated caller out of the context.
func Identity(c *gin.Context) (userID, companyID int64, systemRole string) {
	userID = c.GetInt64(CtxUserID)
	companyID = c.GetInt64(CtxCompanyID)
	systemRole = c.GetString(CtxSystemRole)
	return
}
