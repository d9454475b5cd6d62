package api

import (
	"github.com/gin-gonic/gin"

	"github.com/eacouncil/membership/internal/handlers"
	"github.com/eacouncil/membership/internal/middleware"
	"github.com/eacouncil/membership/internal/models"
)

func registerOrganizationRoutes(staff *gin.RouterGroup, organizations *handlers.OrganizationHandler) {
	group := staff.Group("/organizations")
	{
		group.GET("", organizations.List)
		group.GET("/:id", organizations.Get)
		group.PATCH("/:id", middleware.RequireRole(models.RoleMemberManager), organizations.Update)
		group.POST("/:id/renew", middleware.RequireRole(models.RoleMemberManager), organizations.Renew)
		group.POST("/:id/status", middleware.RequireRole(models.RoleMemberManager), organizations.SetStatus)
	}
}
