// internal/interfaces/http/handlers/respond.go
package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/hospital-backend/internal/domain/apperror"
	"github.com/your-org/hospital-backend/internal/interfaces/http/middleware"
)

// respondError translates a service error into an HTTP response. Domain
// errors map kind to status and expose their stable code; anything else
// is logged and returned as a plain 500 so internals never reach the
// client.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperror.FromError(err); ok {
		status := http.StatusBadRequest
		switch appErr.Kind {
		case apperror.KindNotFound:
			status = http.StatusNotFound
		case apperror.KindConflict:
			status = http.StatusConflict
		case apperror.KindDomainRule:
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}

	log.Printf("⚠️ Unhandled service error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
	})
}

// requestIdentity pulls the authenticated tenant and user set by the
// auth middleware. It writes the 401 itself so handlers can bail with a
// bare return.
func requestIdentity(c *gin.Context) (tenantID, userID uint, ok bool) {
	tenantID, tenantOK := middleware.GetTenantIDFromContext(c)
	userID, userOK := middleware.GetUserIDFromContext(c)
	if !tenantOK || !userOK {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return 0, 0, false
	}
	return tenantID, userID, true
}

// parseIDParam reads a numeric path parameter, answering 400 on garbage
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid %s parameter", name),
		})
		return 0, false
	}
	return uint(raw), true
}

// versionRequest carries the optimistic-concurrency guard for status
// transitions. Versions start at 1, so required rejects a missing or
// zero value.
type versionRequest struct {
	ExpectedVersion int `json:"expected_version" binding:"required"`
}

// cancelRequest adds the operator's reason to the version guard
type cancelRequest struct {
	ExpectedVersion int    `json:"expected_version" binding:"required"`
	Reason          string `json:"reason"`
}
