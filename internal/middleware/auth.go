package middleware

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/eacouncil/membership/internal/auth"
	"github.com/eacouncil/membership/internal/models"
	"github.com/eacouncil/membership/pkg/errors"
	"github.com/eacouncil/membership/pkg/response"
)

const (
	CtxStaffUserKey = "staffUser"
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
)

// StaffAuth enforces cookie-based session authentication for staff routes.
func StaffAuth(sessions *iauth.SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(iauth.SessionCookieName)
		if err != nil || token == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		user, session, err := sessions.Authenticate(c.Request.Context(), token)
		if err != nil {
			// Normalise all session failures to 401
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxStaffUserKey, user)
		c.Set(CtxUserIDKey, user.ID)
		c.Set(CtxSessionIDKey, session.ID)

		c.Next()
	}
}

// StaffUserFromContext returns the authenticated staff user, if any.
func StaffUserFromContext(c *gin.Context) (*models.StaffUser, bool) {
	v, ok := c.Get(CtxStaffUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.StaffUser)
	return user, ok
}
