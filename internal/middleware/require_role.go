package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/eacouncil/membership/pkg/errors"
	"github.com/eacouncil/membership/pkg/response"
)

// RequireRole checks that the authenticated staff user holds at least one of
// the named roles. Admin is implicitly allowed everywhere.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := append([]string{"admin"}, roles...)

	return func(c *gin.Context) {
		user, ok := StaffUserFromContext(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		if !user.HasRole(allowed...) {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
