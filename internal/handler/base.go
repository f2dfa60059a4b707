package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/adherence-api/internal/model"
	"github.com/jwalitptl/adherence-api/pkg/validator"
)

// PrincipalKey is the gin context key holding the authenticated *model.Principal.
const PrincipalKey = "principal"

func init() {
	if err := validator.RegisterBindings(); err != nil {
		panic(err)
	}
}

func SetPrincipal(c *gin.Context, p *model.Principal) {
	c.Set(PrincipalKey, p)
}

// GetPrincipal returns the caller set by the auth middleware. Routes behind
// the middleware always have one; the 401 covers misconfigured routes.
func GetPrincipal(c *gin.Context) (*model.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, NewErrorResponse("unauthorized"))
		return nil, false
	}
	p, ok := v.(*model.Principal)
	if !ok || p == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, NewErrorResponse("unauthorized"))
		return nil, false
	}
	return p, true
}

// ClientPrincipal is GetPrincipal for routes under /me that need a client.
func ClientPrincipal(c *gin.Context) (*model.Principal, bool) {
	p, ok := GetPrincipal(c)
	if !ok {
		return nil, false
	}
	if !p.IsClient() {
		c.AbortWithStatusJSON(http.StatusForbidden, NewErrorResponse("client access required"))
		return nil, false
	}
	return p, true
}

// ParamUUID parses a path parameter, answering 400 when it is not a UUID.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, NewErrorResponse("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// QueryTime parses an optional RFC 3339 timestamp or YYYY-MM-DD date (local
// midnight in loc) from the query string. A missing value is the zero time.
func QueryTime(c *gin.Context, name string, loc *time.Location) (time.Time, bool) {
	v := c.Query(name)
	if v == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02", v, loc); err == nil {
		return t, true
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, NewErrorResponse("invalid "+name))
	return time.Time{}, false
}
