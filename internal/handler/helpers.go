package handler

import (
	"errors"
	"net/http"

	"billing/internal/middleware"
	"billing/internal/model"
	"billing/pkg/apperror"
	"billing/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error onto the response envelope, preserving
// the machine-readable taxonomy code.
func respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	var ae *apperror.Error
	if errors.As(err, &ae) {
		c.JSON(status, response.ErrorWithCode(status, ae.Code(), ae.Error()))
		return
	}
	c.JSON(status, response.Error(status, err.Error()))
}

// mustTenant fetches the TenantContext or aborts; handlers behind
// RequireAuth can rely on it being present.
func mustTenant(c *gin.Context) (model.TenantContext, bool) {
	tenant, ok := middleware.Tenant(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Missing tenant context"))
		return model.TenantContext{}, false
	}
	return tenant, true
}
