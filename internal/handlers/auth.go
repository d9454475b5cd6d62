package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/eacouncil/membership/internal/auth"
	"github.com/eacouncil/membership/internal/middleware"
	"github.com/eacouncil/membership/internal/models"
	"github.com/eacouncil/membership/pkg/errors"
	"github.com/eacouncil/membership/pkg/response"
)

// AuthHandler manages staff login, logout and identity lookup. Sessions ride
// in an HttpOnly cookie; there is no token in the response body.
type AuthHandler struct {
	sessions     *iauth.SessionService
	cookieMaxAge int
	secureCookie bool
}

func NewAuthHandler(sessions *iauth.SessionService, cookieMaxAge int, secureCookie bool) *AuthHandler {
	return &AuthHandler{sessions: sessions, cookieMaxAge: cookieMaxAge, secureCookie: secureCookie}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required,notblank"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, token, err := h.sessions.Login(c.Request.Context(),
		strings.TrimSpace(req.Username), req.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		// All login failures look the same to the client.
		response.Error(c, errors.ErrInvalidCredentials)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(iauth.SessionCookieName, token, h.cookieMaxAge, "/", "", h.secureCookie, true)

	response.Success(c, http.StatusOK, gin.H{
		"user": staffUserPayload(user),
	})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	token, err := c.Cookie(iauth.SessionCookieName)
	if err == nil && token != "" {
		_ = h.sessions.Logout(c.Request.Context(), token)
	}

	c.SetCookie(iauth.SessionCookieName, "", -1, "/", "", h.secureCookie, true)
	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.StaffUserFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": staffUserPayload(user)})
}

func staffUserPayload(user *models.StaffUser) gin.H {
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, role.Name)
	}
	return gin.H{
		"id":        user.ID,
		"username":  user.Username,
		"email":     user.Email,
		"is_active": user.IsActive,
		"roles":     roles,
	}
}
