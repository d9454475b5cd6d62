package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eacouncil/membership/internal/services"
	"github.com/eacouncil/membership/pkg/response"
)

// MemberHandler exposes the member register to staff.
type MemberHandler struct {
	members *services.MemberService
}

func NewMemberHandler(members *services.MemberService) *MemberHandler {
	return &MemberHandler{members: members}
}

// GET /api/members
func (h *MemberHandler) List(c *gin.Context) {
	page, limit := paginationParams(c)
	members, total, err := h.members.List(c.Request.Context(), services.MemberFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, gin.H{"members": members}, listMeta(page, limit, total))
}

// GET /api/members/:id
func (h *MemberHandler) Get(c *gin.Context) {
	member, err := h.members.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"member": member})
}

// PATCH /api/members/:id
func (h *MemberHandler) Update(c *gin.Context) {
	var req services.UpdateProfileInput
	if !bindAndValidate(c, &req) {
		return
	}

	member, err := h.members.UpdateProfile(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"member": member})
}

// POST /api/members/:id/renew
func (h *MemberHandler) Renew(c *gin.Context) {
	member, err := h.members.Renew(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"member": member})
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active lapsed suspended"`
}

// POST /api/members/:id/status
func (h *MemberHandler) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	member, err := h.members.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"member": member})
}
