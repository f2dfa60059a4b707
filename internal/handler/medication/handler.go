package medication

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/adherence-api/internal/handler"
	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/internal/service/medication"
)

type Handler struct {
	svc medication.MedicationService
}

func NewHandler(svc medication.MedicationService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(pharmacy, me *gin.RouterGroup) {
	pharmacy.POST("/clients/:id/medications", h.Prescribe)
	pharmacy.GET("/clients/:id/medications", h.ListForClient)
	pharmacy.PUT("/medications/:id", h.Update)
	pharmacy.POST("/medications/:id/deactivate", h.Deactivate)

	meds := me.Group("/medications")
	{
		meds.POST("", h.CreateSelf)
		meds.GET("", h.ListMine)
		meds.PUT("/:id", h.Update)
		meds.DELETE("/:id", h.Delete)
		meds.POST("/:id/deactivate", h.Deactivate)
	}
}

func (h *Handler) Prescribe(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}
	clientID, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req model.PrescribeMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	med, err := h.svc.CreateForClient(c.Request.Context(), principal.PharmacyID, clientID, &req)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.Created(c, med)
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

	meds, err := h.svc.List(c.Request.Context(), principal, clientID)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, meds)
}

func (h *Handler) CreateSelf(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}

	var req model.SelfMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	med, err := h.svc.CreateSelf(c.Request.Context(), principal, &req)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.Created(c, med)
}

func (h *Handler) ListMine(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}

	meds, err := h.svc.List(c.Request.Context(), principal, *principal.ClientID)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, meds)
}

// Update serves both roles; the service scopes the medication to the caller.
func (h *Handler) Update(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	med, err := h.svc.Update(c.Request.Context(), principal, id, &req)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, med)
}

func (h *Handler) Deactivate(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Deactivate(c.Request.Context(), principal, id); err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
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
