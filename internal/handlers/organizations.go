package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eacouncil/membership/internal/services"
	"github.com/eacouncil/membership/pkg/response"
)

// OrganizationHandler exposes the organization register to staff.
type OrganizationHandler struct {
	organizations *services.OrganizationService
}

func NewOrganizationHandler(organizations *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{organizations: organizations}
}

// GET /api/organizations
func (h *OrganizationHandler) List(c *gin.Context) {
	page, limit := paginationParams(c)
	organizations, total, err := h.organizations.List(c.Request.Context(), services.OrganizationFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, gin.H{"organizations": organizations}, listMeta(page, limit, total))
}

// GET /api/organizations/:id
func (h *OrganizationHandler) Get(c *gin.Context) {
	organization, err := h.organizations.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"organization": organization})
}

// PATCH /api/organizations/:id
func (h *OrganizationHandler) Update(c *gin.Context) {
	var req services.UpdateProfileInput
	if !bindAndValidate(c, &req) {
		return
	}

	organization, err := h.organizations.UpdateProfile(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"organization": organization})
}

// POST /api/organizations/:id/renew
func (h *OrganizationHandler) Renew(c *gin.Context) {
	organization, err := h.organizations.Renew(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"organization": organization})
}

// POST /api/organizations/:id/status
func (h *OrganizationHandler) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	organization, err := h.organizations.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"organization": organization})
}
