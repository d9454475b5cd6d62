package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eacouncil/membership/internal/services"
	"github.com/eacouncil/membership/pkg/errors"
	"github.com/eacouncil/membership/pkg/response"
)

// Review actions accepted by the staff review endpoint.
const (
	reviewActionPaymentPending  = "payment-pending"
	reviewActionPaymentReceived = "payment-received"
	reviewActionUnderReview     = "under-review"
	reviewActionDocumentReview  = "document-review"
	reviewActionApprove         = "approve"
	reviewActionReject          = "reject"
)

// ApplicationHandler drives the application lifecycle over HTTP.
type ApplicationHandler struct {
	applications *services.ApplicationService
}

func NewApplicationHandler(applications *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

// POST /api/applications/:id/submit
func (h *ApplicationHandler) Submit(c *gin.Context) {
	result, err := h.applications.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

type reviewRequest struct {
	Action string `json:"action" validate:"required,oneof=payment-pending payment-received under-review document-review approve reject"`
	Reason string `json:"reason" validate:"max=1000"`
}

// POST /api/applications/:id/review (staff)
func (h *ApplicationHandler) Review(c *gin.Context) {
	var req reviewRequest
	if !bindAndValidate(c, &req) {
		return
	}

	applicationID := c.Param("id")
	reviewerID := currentStaffID(c)

	var result *services.TransitionResult
	var err error
	switch req.Action {
	case reviewActionPaymentPending:
		result, err = h.applications.MarkPaymentPending(c.Request.Context(), applicationID, &reviewerID)
	case reviewActionPaymentReceived:
		result, err = h.applications.RecordPaymentReceived(c.Request.Context(), applicationID)
	case reviewActionUnderReview:
		result, err = h.applications.MoveToUnderReview(c.Request.Context(), applicationID, reviewerID)
	case reviewActionDocumentReview:
		result, err = h.applications.MoveToDocumentReview(c.Request.Context(), applicationID, reviewerID)
	case reviewActionApprove:
		result, err = h.applications.Approve(c.Request.Context(), applicationID, reviewerID)
	case reviewActionReject:
		if req.Reason == "" {
			response.Error(c, errors.NewBadRequest("reason is required when rejecting"))
			return
		}
		result, err = h.applications.Reject(c.Request.Context(), applicationID, reviewerID, req.Reason)
	default:
		response.Error(c, errors.NewBadRequest("unknown review action"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// GET /api/applications (staff)
func (h *ApplicationHandler) List(c *gin.Context) {
	page, limit := paginationParams(c)
	applications, total, err := h.applications.List(c.Request.Context(), services.ApplicationFilter{
		Status:      c.Query("status"),
		Kind:        c.Query("kind"),
		ApplicantID: c.Query("applicant_id"),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, gin.H{"applications": applications}, listMeta(page, limit, total))
}

// GET /api/applications/:id (staff)
func (h *ApplicationHandler) Get(c *gin.Context) {
	application, err := h.applications.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"application": application})
}
