package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"roulette_service/internal/apperr"
)

var statusByKind = map[apperr.Kind]int{
	apperr.KindInvalidWager:      http.StatusBadRequest,
	apperr.KindInvalidRequest:    http.StatusBadRequest,
	apperr.KindRoundNotReady:     http.StatusConflict,
	apperr.KindConflict:          http.StatusConflict,
	apperr.KindUnauthorized:      http.StatusUnauthorized,
	apperr.KindForbidden:         http.StatusForbidden,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindInsufficientFunds: http.StatusPaymentRequired,
}

func statusFor(kind apperr.Kind) int {
	if s, ok := statusByKind[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		log.Printf("Request failed: method=%s path=%s err=%v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{
		"success": false,
		"kind":    kind,
		"message": apperr.Public(err),
	})
}

func badRequest(c *gin.Context, kind apperr.Kind, err error) {
	writeError(c, apperr.Wrap(kind, "malformed request body", err))
}
