package api

import (
	"github.com/gin-gonic/gin"

	"github.com/eacouncil/membership/internal/handlers"
)

// registerPaymentRoutes mounts the applicant-facing initiation endpoint and
// the gateway notification callback. The callback authenticates via the HMAC
// signature on the form body, not a session.
func registerPaymentRoutes(public *gin.RouterGroup, payments *handlers.PaymentHandler) {
	group := public.Group("/payments")
	{
		group.POST("/initiate", payments.Initiate)
		group.POST("/notify", payments.Notify)
	}
}
