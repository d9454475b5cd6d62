package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eacouncil/membership/internal/middleware"
	"github.com/eacouncil/membership/pkg/response"
)

// paginationParams reads ?page= and ?limit= with sane defaults.
func paginationParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// currentStaffID returns the authenticated staff user's id, or "" when the
// route is unauthenticated.
func currentStaffID(c *gin.Context) string {
	user, ok := middleware.StaffUserFromContext(c)
	if !ok {
		return ""
	}
	return user.ID
}

func listMeta(page, limit int, total int64) *response.Meta {
	return &response.Meta{Page: page, PerPage: limit, Total: int(total)}
}
