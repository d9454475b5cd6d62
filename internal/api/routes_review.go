package api

import (
	"github.com/gin-gonic/gin"

	"github.com/eacouncil/membership/internal/handlers"
	"github.com/eacouncil/membership/internal/middleware"
	"github.com/eacouncil/membership/internal/models"
)

// registerReviewRoutes mounts the staff review surface. Listing is open to
// any authenticated staff member; lifecycle decisions require the
// member_manager role (admin is implicit).
func registerReviewRoutes(staff *gin.RouterGroup, applicants *handlers.ApplicantHandler, applications *handlers.ApplicationHandler, documents *handlers.DocumentHandler) {
	staff.GET("/applicants", applicants.List)
	staff.GET("/applicants/:id", applicants.Get)
	staff.GET("/applicants/:id/documents", documents.ListByApplicant)

	group := staff.Group("/applications")
	{
		group.GET("", applications.List)
		group.GET("/:id", applications.Get)
		group.POST("/:id/review", middleware.RequireRole(models.RoleMemberManager), applications.Review)
	}
}
