package ad

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/adherence-api/internal/handler"
	"github.com/jwalitptl/adherence-api/internal/service/ad"
)

// ImageField is the multipart field carrying the banner.
const ImageField = "image"

type Handler struct {
	svc ad.AdService
}

func NewHandler(svc ad.AdService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(pharmacy, me *gin.RouterGroup) {
	ads := pharmacy.Group("/ads")
	{
		ads.POST("", h.CreateAd)
		ads.GET("", h.ListAds)
		ads.PATCH("/:id/toggle", h.ToggleAd)
		ads.DELETE("/:id", h.DeleteAd)
	}

	me.GET("/ads", h.MyAds)
}

// RegisterMediaRoutes serves stored images publicly; keys are unguessable
// enough for banners and the app renders them in <img> tags.
func (h *Handler) RegisterMediaRoutes(r gin.IRouter, middleware ...gin.HandlerFunc) {
	r.GET("/media/*key", append(middleware, h.ServeMedia)...)
}

func (h *Handler) CreateAd(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}

	file, err := c.FormFile(ImageField)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, handler.NewErrorResponse("image is required"))
		return
	}
	f, err := file.Open()
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}
	defer f.Close()

	upload := &ad.Upload{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Size:        file.Size,
		Content:     f,
	}

	created, err := h.svc.Create(c.Request.Context(), principal.PharmacyID, upload,
		c.PostForm("whatsapp_phone"), c.PostForm("whatsapp_message"))
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.Created(c, created)
}

func (h *Handler) ListAds(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}

	ads, err := h.svc.List(c.Request.Context(), principal.PharmacyID)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, ads)
}

func (h *Handler) ToggleAd(c *gin.Context) {
	principal, ok := handler.GetPrincipal(c)
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	toggled, err := h.svc.Toggle(c.Request.Context(), principal.PharmacyID, id)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, toggled)
}

func (h *Handler) DeleteAd(c *gin.Context) {
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

func (h *Handler) MyAds(c *gin.Context) {
	principal, ok := handler.ClientPrincipal(c)
	if !ok {
		return
	}

	ads, err := h.svc.ActiveForClient(c.Request.Context(), principal)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	handler.OK(c, ads)
}

func (h *Handler) ServeMedia(c *gin.Context) {
	rc, obj, err := h.svc.Open(c.Request.Context(), c.Param("key"))
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Length", strconv.FormatInt(obj.Size, 10))
	if obj.Hash != "" {
		c.Header("ETag", `"`+obj.Hash+`"`)
	}
	c.Status(http.StatusOK)
	c.Writer.Header().Set("Content-Type", obj.ContentType)
	if c.Request.Method == http.MethodHead {
		return
	}
	_, _ = io.Copy(c.Writer, rc)
}
