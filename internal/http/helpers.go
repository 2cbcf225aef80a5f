package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/libshelf/library-api/internal/errs"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`  // machine-readable error kind
	Field string `json:"field,omitempty"` // offending field, when known
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: string(errs.KindValidation)})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found", Code: string(errs.KindNotFound)})
}

// respondInternalError logs the error and sends a 500 response. The actual
// error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondUnauthenticated sends a 401 when no user identity is on the context.
func respondUnauthenticated(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
}

// respondStoreError maps a store/service error kind onto its status code.
// Authorization failures use a constant body so denial never leaks whether
// the target exists.
func respondStoreError(c *gin.Context, err error, context string) {
	var e *errs.Error
	errors.As(err, &e)
	switch errs.KindOf(err) {
	case errs.KindValidation:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: e.Message, Code: string(e.Kind), Field: e.Field})
	case errs.KindConflict:
		c.JSON(http.StatusConflict, ErrorResponse{Error: e.Message, Code: string(e.Kind), Field: e.Field})
	case errs.KindAuthorization:
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied", Code: string(errs.KindAuthorization)})
	case errs.KindNotFound:
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: string(errs.KindNotFound)})
	default:
		respondInternalError(c, err, context)
	}
}

// --- Success Response Helpers ---

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL
// parameters. Responds with a 400 and returns false on garbage.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}
