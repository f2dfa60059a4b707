package issue

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/adherence-api/internal/handler"
	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/service/issue"
)

type Handler struct {
	svc issue.IssueService
}

func NewHandler(svc issue.IssueService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(pharmacy, me *gin.RouterGroup) {
	pharmacy.GET("/clients/:id/issues", h.ListForClient)

	me.POST("/doses/:id/corrections", h.ReportCorrection)
	me.POST("/doses/:id/adverse-events", h.ReportDoseAdverseEvent)
	me.POST("/adverse-events", h.ReportAdverseEvent)
	me.GET("/issues", h.ListMine)
}

func (h *Handler) ReportCorrection(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}
	doseID, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req model.ReportCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	correction, err := h.svc.ReportCorrection(c.Request.Context(), principal, doseID, &req)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.Created(c, correction)
}

func (h *Handler) ReportDoseAdverseEvent(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}
	doseID, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	h.reportAdverseEvent(c, principal, &doseID)
}

func (h *Handler) ReportAdverseEvent(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}
	h.reportAdverseEvent(c, principal, nil)
}

func (h *Handler) reportAdverseEvent(c *gin.Context, principal *model.Principal, doseID *uuid.UUID) {
	var req model.ReportAdverseEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	ev, err := h.svc.ReportAdverseEvent(c.Request.Context(), principal, doseID, &req)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.Created(c, ev)
}

func (h *Handler) ListMine(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}
	h.list(c, principal, *principal.ClientID)
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

func (h *Handler) list(c *gin.Context, principal *model.Principal, clientID uuid.UUID) {
	issues, err := h.svc.List(c.Request.Context(), principal, clientID)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, issues)
}
