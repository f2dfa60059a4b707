package dose

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/adherence-api/internal/handler"
	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/service/dose"
)

type Handler struct {
	svc dose.DoseService
	loc *time.Location
}

// NewHandler parses date-only query bounds as midnight in loc.
func NewHandler(svc dose.DoseService, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{svc: svc, loc: loc}
}

func (h *Handler) RegisterRoutes(pharmacy, me *gin.RouterGroup) {
	pharmacy.GET("/clients/:id/doses", h.ListForClient)
	pharmacy.PATCH("/doses/:id", h.UpdateStatus)
	pharmacy.GET("/doses/:id", h.Details)

	doses := me.Group("/doses")
	{
		doses.GET("", h.ListMine)
		doses.GET("/today", h.Today)
		doses.POST("/refresh-missed", h.RefreshMissed)
		doses.GET("/:id", h.Details)
		doses.PATCH("/:id", h.UpdateStatus)
	}
	me.POST("/medications/:id/prn-doses", h.LogPRN)
}

func (h *Handler) ListForClient(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}
	clientID, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	h.list(c, principal, clientID)
}

func (h *Handler) ListMine(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}
	h.list(c, principal, *principal.ClientID)
}

func (h *Handler) list(c *gin.Context, principal *model.Principal, clientID uuid.UUID) {
	from, ok := handler.QueryTime(c, "from", h.loc)
	if !ok {
		return
	}
	to, ok := handler.QueryTime(c, "to", h.loc)
	if !ok {
		return
	}

	doses, err := h.svc.List(c.Request.Context(), principal, clientID, from, to)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, doses)
}

func (h *Handler) Today(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}

	doses, err := h.svc.Today(c.Request.Context(), principal)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, doses)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateDoseStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	d, err := h.svc.UpdateStatus(c.Request.Context(), principal, id, req.Status)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, d)
}

func (h *Handler) RefreshMissed(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}

	n, err := h.svc.MarkMissed(c.Request.Context(), principal)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, gin.H{"updated": n})
}

func (h *Handler) LogPRN(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}
	medID, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req model.LogPRNRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handler.RespondWithBindError(c, err)
			return
		}
	}

	d, err := h.svc.LogPRN(c.Request.Context(), principal, medID, req.TakenAt)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.Created(c, d)
}

func (h *Handler) Details(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	details, err := h.svc.Details(c.Request.Context(), principal, id)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, details)
}
