package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/adherence-api/internal/service/auth"

	"github.com/jwalitptl/adherence-api/internal/handler"
	"github.com/jwalitptl/adherence-api/internal/model"
)

type Handler struct {
	svc auth.AuthService
}

func NewHandler(svc auth.AuthService) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public auth endpoints on r and /auth/me behind
// authenticate.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authenticate gin.HandlerFunc) {
	auth := r.Group("/auth")
	{
		auth.POST("/pharmacies/register", h.RegisterPharmacy)
		auth.POST("/pharmacies/login", h.login(model.RolePharmacy))
		auth.POST("/clients/login", h.login(model.RoleClient))
		auth.POST("/refresh", h.RefreshToken)

		auth.OPTIONS("/update-password", h.UpdatePasswordReady)
		auth.GET("/update-password", h.UpdatePasswordReady)
		auth.POST("/update-password", h.UpdatePassword)

		auth.GET("/me", authenticate, h.Me)
	}
}

func (h *Handler) RegisterPharmacy(c *gin.Context) {
	var req model.RegisterPharmacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	resp, err := h.svc.RegisterPharmacy(c.Request.Context(), &req)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.Created(c, resp)
}

func (h *Handler) login(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req model.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			handler.RespondWithBindError(c, err)
			return
		}

		resp, err := h.svc.Login(c.Request.Context(), req.Login(), req.Password, role)
		if err != nil {
			handler.RespondWithError(c, err)
			return
		}

		handler.OK(c, resp)
	}
}

func (h *Handler) RefreshToken(c *gin.Context) {
	var req model.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	tokens, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, tokens)
}

func (h *Handler) Me(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}

	profile, err := h.svc.Me(c.Request.Context(), principal)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, profile)
}

// UpdatePasswordReady answers preflight and plain GET checks of the reset endpoint.
func (h *Handler) UpdatePasswordReady(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"ok": true}))
}

func (h *Handler) UpdatePassword(c *gin.Context) {
	var req model.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	if err := h.svc.UpdatePasswordByPhone(c.Request.Context(), req.Phone, req.NewPassword); err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, gin.H{"ok": true})
}
