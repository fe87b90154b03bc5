package handlers

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/participa-vecinal/participa/pkg/apperror"
	"github.com/participa-vecinal/participa/pkg/response"
	"github.com/participa-vecinal/participa/pkg/validation"
)

var errInvalidSize = apperror.Validation("invalid_size", "invalid size", map[string]string{"size": "must be a positive integer"})

var errInvalidID = apperror.Validation("invalid_id", "invalid id", map[string]string{"id": "must be a positive integer"})

// pathID parses a positive numeric path parameter and writes a 400 when it is not one.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.FromError(c, errInvalidID)
		return 0, false
	}
	return id, true
}

// bindJSON binds the request body and writes a 400 with field details on failure.
// With allowEmpty an absent body leaves req untouched.
func bindJSON(c *gin.Context, req any, allowEmpty bool) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		response.FromError(c, apperror.Validation("invalid_payload", "invalid payload", validation.ToDetails(err)))
		return false
	}
	return true
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}
