package client

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/adherence-api/internal/handler"
	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/service/client"
)

type Handler struct {
	svc client.ClientService
}

func NewHandler(svc client.ClientService) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the roster on the pharmacy group and the monitoring
// preferences on the client's /me group.
func (h *Handler) RegisterRoutes(pharmacy, me *gin.RouterGroup) {
	clients := pharmacy.Group("/clients")
	{
		clients.POST("", h.CreateClient)
		clients.GET("", h.ListClients)
		clients.GET("/:id", h.GetClient)
		clients.PUT("/:id", h.UpdateClient)
		clients.DELETE("/:id", h.DeleteClient)
		clients.PUT("/:id/monitoring", h.SetClientMonitoring)
	}

	me.GET("/monitoring", h.GetMyMonitoring)
	me.PUT("/monitoring", h.SetMyMonitoring)
}

func (h *Handler) CreateClient(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}

	var req model.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	cl, err := h.svc.Create(c.Request.Context(), principal.PharmacyID, &req)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.Created(c, cl)
}

func (h *Handler) ListClients(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}

	clients, err := h.svc.List(c.Request.Context(), principal.PharmacyID)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, clients)
}

func (h *Handler) GetClient(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	cl, err := h.svc.Get(c.Request.Context(), principal.PharmacyID, id)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, cl)
}

func (h *Handler) UpdateClient(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	cl, err := h.svc.Update(c.Request.Context(), principal.PharmacyID, id, &req)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, cl)
}

func (h *Handler) DeleteClient(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), principal.PharmacyID, id); err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) SetClientMonitoring(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}
	h.setMonitoring(c, principal, id)
}

func (h *Handler) GetMyMonitoring(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}

	settings, err := h.svc.Monitoring(c.Request.Context(), principal, *principal.ClientID)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, settings)
}

func (h *Handler) SetMyMonitoring(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}
	h.setMonitoring(c, principal, *principal.ClientID)
}

func (h *Handler) setMonitoring(c *gin.Context, principal *model.Principal, clientID uuid.UUID) {
	var req model.MonitoringSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	settings, err := h.svc.SetMonitoring(c.Request.Context(), principal, clientID, &req)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, settings)
}
