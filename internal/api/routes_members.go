package api

import (
	"github.com/gin-gonic/gin"

	"github.com/eacouncil/membership/internal/handlers"
	"github.com/eacouncil/membership/internal/middleware"
	"github.com/eacouncil/membership/internal/models"
)

func registerMemberRoutes(staff *gin.RouterGroup, members *handlers.MemberHandler) {
	group := staff.Group("/members")
	{
		group.GET("", members.List)
		group.GET("/:id", members.Get)
		group.PATCH("/:id", middleware.RequireRole(models.RoleMemberManager), members.Update)
		group.POST("/:id/renew", middleware.RequireRole(models.RoleMemberManager), members.Renew)
		group.POST("/:id/status", middleware.RequireRole(models.RoleMemberManager), members.SetStatus)
	}
}
