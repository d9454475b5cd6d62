package api

import (
	"github.com/gin-gonic/gin"

	"github.com/eacouncil/membership/internal/handlers"
)

// registerApplicantRoutes mounts the unauthenticated self-service endpoints:
// registration, email verification, draft editing and submission.
func registerApplicantRoutes(public *gin.RouterGroup, applicants *handlers.ApplicantHandler, applications *handlers.ApplicationHandler) {
	group := public.Group("/applicants")
	{
		group.POST("/register", applicants.Register)
		group.POST("/verify-email", applicants.VerifyEmail)
		group.PUT("/:id/draft", applicants.SaveDraft)
	}

	public.POST("/applications/:id/submit", applications.Submit)
}
