package pharmacy

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/adherence-api/internal/handler"
	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/service/pharmacy"
)

type Handler struct {
	svc pharmacy.PharmacyService
}

func NewHandler(svc pharmacy.PharmacyService) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the caller's own pharmacy profile on a group that
// already requires the pharmacy role.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/pharmacy", h.GetPharmacy)
	r.PUT("/pharmacy", h.UpdatePharmacy)
}

func (h *Handler) GetPharmacy(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}

	p, err := h.svc.Get(c.Request.Context(), principal.PharmacyID)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, p)
}

func (h *Handler) UpdatePharmacy(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}

	var req model.UpdatePharmacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	p, err := h.svc.Update(c.Request.Context(), principal.PharmacyID, &req)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, p)
}
