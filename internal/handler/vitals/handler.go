package vitals

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/adherence-api/internal/handler"
	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/service/vitals"
)

type Handler struct {
	svc vitals.VitalsService
}

func NewHandler(svc vitals.VitalsService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(pharmacy, me *gin.RouterGroup) {
	pharmacy.POST("/clients/:id/vitals", h.AddForClient)
	pharmacy.GET("/clients/:id/vitals", h.ListForClient)

	me.POST("/vitals", h.AddMine)
	me.GET("/vitals", h.ListMine)
	me.DELETE("/vitals/:id", h.Delete)
}

func (h *Handler) AddForClient(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}
	clientID, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	h.add(c, principal, clientID)
}

func (h *Handler) AddMine(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}
	h.add(c, principal, *principal.ClientID)
}

func (h *Handler) add(c *gin.Context, principal *model.Principal, clientID uuid.UUID) {
	var req model.AddVitalSignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	reading, err := h.svc.Add(c.Request.Context(), principal, clientID, &req)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.Created(c, reading)
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

// list accepts ?filter=all|bp|glucose and ?range=all|week|month.
func (h *Handler) list(c *gin.Context, principal *model.Principal, clientID uuid.UUID) {
	history, err := h.svc.List(c.Request.Context(), principal, clientID, c.Query("filter"), c.Query("range"))
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, history)
}

func (h *Handler) Delete(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), principal, id); err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
