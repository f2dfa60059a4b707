package report

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/adherence-api/internal/handler"
	"github.com/jwalitptl/adherence-api/internal/service/report"
)

type Handler struct {
	svc report.ReportService
}

func NewHandler(svc report.ReportService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(pharmacy, me *gin.RouterGroup) {
	pharmacy.GET("/clients/:id/adherence", h.ClientAdherence)
	pharmacy.GET("/reports/summary", h.Summary)
	pharmacy.GET("/reports/overview", h.Overview)

	me.GET("/adherence/today", h.TodayAdherence)
	me.GET("/progress", h.Progress)
	me.GET("/calendar", h.Calendar)
}

func (h *Handler) TodayAdherence(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}

	today, err := h.svc.TodayAdherence(c.Request.Context(), principal)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, today)
}

// Progress accepts ?period=daily|weekly|monthly and ?date=YYYY-MM-DD.
func (h *Handler) Progress(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}

	progress, err := h.svc.Progress(c.Request.Context(), principal, *principal.ClientID, c.Query("period"), c.Query("date"))
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, progress)
}

// Calendar accepts ?month=YYYY-MM, defaulting to the current month.
func (h *Handler) Calendar(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}

	days, err := h.svc.Calendar(c.Request.Context(), principal, *principal.ClientID, c.Query("month"))
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, days)
}

func (h *Handler) ClientAdherence(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}
	clientID, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	days := 0
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, handler.NewErrorResponse("days must be a number"))
			return
		}
		days = n
	}

	adherence, err := h.svc.ClientAdherence(c.Request.Context(), principal, clientID, days)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, adherence)
}

func (h *Handler) Summary(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}

	summary, err := h.svc.PharmacySummary(c.Request.Context(), principal.PharmacyID, c.Query("range"))
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, summary)
}

func (h *Handler) Overview(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}

	overview, err := h.svc.PharmacyOverview(c.Request.Context(), principal.PharmacyID)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, overview)
}
