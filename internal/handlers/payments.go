package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/eacouncil/membership/internal/payments"
	"github.com/eacouncil/membership/internal/services"
	"github.com/eacouncil/membership/pkg/errors"
	"github.com/eacouncil/membership/pkg/response"
)

// PaymentHandler initiates fee payments and receives gateway callbacks.
type PaymentHandler struct {
	payments *services.PaymentService
	gateway  payments.Gateway
}

func NewPaymentHandler(paymentService *services.PaymentService, gateway payments.Gateway) *PaymentHandler {
	return &PaymentHandler{payments: paymentService, gateway: gateway}
}

type initiatePaymentRequest struct {
	ApplicationID string `json:"application_id" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
	Currency      string `json:"currency" validate:"omitempty,len=3"`
}

// POST /api/payments/initiate
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req initiatePaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		response.Error(c, errors.NewBadRequest("amount must be a positive decimal"))
		return
	}

	initiated, err := h.payments.Initiate(c.Request.Context(), req.ApplicationID, amount, req.Currency)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, initiated)
}

// POST /api/payments/notify
//
// The gateway posts an HMAC-signed form. A bad signature is a 400 and the
// payload is discarded.
func (h *PaymentHandler) Notify(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		response.Error(c, errors.NewBadRequest("invalid form payload"))
		return
	}

	notification, err := h.gateway.VerifyNotification(c.Request.Context(), c.Request.PostForm)
	if err != nil {
		response.Error(c, err)
		return
	}

	payment, err := h.payments.HandleNotification(c.Request.Context(), notification)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"payment": payment})
}

// GET /api/payments (staff, accountant)
func (h *PaymentHandler) List(c *gin.Context) {
	page, limit := paginationParams(c)
	rows, total, err := h.payments.List(c.Request.Context(), services.PaymentFilter{
		Status:        c.Query("status"),
		ApplicationID: c.Query("application_id"),
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, gin.H{"payments": rows}, listMeta(page, limit, total))
}
