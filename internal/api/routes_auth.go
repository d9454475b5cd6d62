package api

import (
	"github.com/gin-gonic/gin"

	"github.com/eacouncil/membership/internal/handlers"
)

func registerAuthRoutes(staff *gin.RouterGroup, auth *handlers.AuthHandler) {
	staff.GET("/auth/me", auth.Me)
	staff.POST("/auth/logout", auth.Logout)
}
