package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eacouncil/membership/internal/models"
	"github.com/eacouncil/membership/internal/services"
	"github.com/eacouncil/membership/pkg/response"
)

// ApplicantHandler covers self-registration, email verification and draft
// editing, plus the staff listing views.
type ApplicantHandler struct {
	applicants *services.ApplicantService
}

func NewApplicantHandler(applicants *services.ApplicantService) *ApplicantHandler {
	return &ApplicantHandler{applicants: applicants}
}

type registerRequest struct {
	Kind             string `json:"kind" validate:"required,oneof=individual organization"`
	FirstName        string `json:"first_name" validate:"max=100"`
	Surname          string `json:"surname" validate:"max=100"`
	OrganizationName string `json:"organization_name" validate:"max=200"`
	Email            string `json:"email" validate:"required,email"`
	Phone            string `json:"phone" validate:"max=32"`
	Address          string `json:"address" validate:"max=500"`
}

// POST /api/applicants/register
func (h *ApplicantHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.applicants.Register(c.Request.Context(), services.RegisterInput{
		Kind:             req.Kind,
		FirstName:        req.FirstName,
		Surname:          req.Surname,
		OrganizationName: req.OrganizationName,
		Email:            req.Email,
		Phone:            req.Phone,
		Address:          req.Address,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

type verifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// POST /api/applicants/verify-email
func (h *ApplicantHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	applicant, err := h.applicants.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"applicant": applicant})
}

type draftRequest struct {
	Personal   *models.PersonalSection   `json:"personal"`
	Education  *models.EducationSection  `json:"education"`
	Employment *models.EmploymentSection `json:"employment"`
	Company    *models.CompanySection    `json:"company"`
}

// PUT /api/applicants/:id/draft
func (h *ApplicantHandler) SaveDraft(c *gin.Context) {
	var req draftRequest
	if !bindAndValidate(c, &req) {
		return
	}

	application, err := h.applicants.SaveDraft(c.Request.Context(), c.Param("id"), services.DraftInput{
		Personal:   req.Personal,
		Education:  req.Education,
		Employment: req.Employment,
		Company:    req.Company,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"application": application})
}

// GET /api/applicants (staff)
func (h *ApplicantHandler) List(c *gin.Context) {
	page, limit := paginationParams(c)
	applicants, total, err := h.applicants.List(c.Request.Context(), services.ApplicantFilter{
		Kind:   c.Query("kind"),
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, gin.H{"applicants": applicants}, listMeta(page, limit, total))
}

// GET /api/applicants/:id (staff)
func (h *ApplicantHandler) Get(c *gin.Context) {
	applicant, err := h.applicants.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"applicant": applicant})
}
