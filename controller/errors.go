package controller

import (
	"errors"
	"net/http"

	services "github.com/Itish41/ParseGuard/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var kindStatus = map[services.Kind]int{
	services.KindNotFound:               http.StatusNotFound,
	services.KindOwnerMismatch:          http.StatusForbidden,
	services.KindValidationFailed:       http.StatusBadRequest,
	services.KindCollaboratorFailure:    http.StatusBadGateway,
	services.KindConcurrentModification: http.StatusConflict,
	services.KindInvalidTransition:      http.StatusConflict,
}

// respondError writes a service error as JSON. Errors outside the taxonomy
// are logged and reported as 500 without detail.
func respondError(ctx *gin.Context, log *zap.Logger, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		log.Error("unhandled error", zap.String("path", ctx.FullPath()), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "InternalError"})
		return
	}

	status, ok := kindStatus[svcErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	body := gin.H{"error": svcErr.Kind, "code": svcErr.Code}
	if len(svcErr.IDs) > 0 {
		body["ids"] = svcErr.IDs
	}
	if svcErr.Message != "" {
		body["message"] = svcErr.Message
	}
	ctx.JSON(status, body)
}

// badRequest reports a malformed request body or query.
func badRequest(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"error":   services.KindValidationFailed,
		"code":    "ValidationFailed",
		"message": message,
	})
}
