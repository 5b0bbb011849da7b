package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ispeak-server-go/internal/platform/errors"
)

// respondError writes the error shape the clients expect: {"error": message}.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondDomainError maps an error chain to an HTTP status by kind.
func respondDomainError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errors.KindOf(err) {
	case errors.KindAudio, errors.KindText, errors.KindConfig:
		status = http.StatusBadRequest
	case errors.KindProvider:
		status = http.StatusBadGateway
	}
	respondError(c, status, err.Error())
}
