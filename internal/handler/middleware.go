package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Authentication is handled upstream; the gateway in front of this service
// asserts identity and forwards it in headers. These middlewares only parse
// and scope that identity.

const (
	ctxUserID         = "user_id"
	ctxAdminID        = "admin_id"
	ctxAdminCafeteria = "admin_cafeteria_id"
)

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader("X-User-ID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}
		c.Set(ctxUserID, id)
		c.Next()
	}
}

// RequireAdmin scopes the request to the admin's cafeteria; services enforce
// that the admin only touches orders belonging to it.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, err := uuid.Parse(c.GetHeader("X-Admin-ID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing admin identity"})
			return
		}
		cafeteriaID, err := uuid.Parse(c.GetHeader("X-Cafeteria-ID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing cafeteria scope"})
			return
		}
		c.Set(ctxAdminID, adminID)
		c.Set(ctxAdminCafeteria, cafeteriaID)
		c.Next()
	}
}

func userID(c *gin.Context) uuid.UUID {
	return c.MustGet(ctxUserID).(uuid.UUID)
}

func adminID(c *gin.Context) uuid.UUID {
	return c.MustGet(ctxAdminID).(uuid.UUID)
}

func adminCafeteria(c *gin.Context) uuid.UUID {
	return c.MustGet(ctxAdminCafeteria).(uuid.UUID)
}
