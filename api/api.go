package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/flatstay/internal/apperr"
	"github.com/gin-gonic/gin"
)

// Identity arrives pre-validated with every request; the upstream proxy is
// responsible for authentication.
const userIDHeader = "X-User-ID"

func requestUserID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.GetHeader(userIDHeader), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid user identity"})
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
