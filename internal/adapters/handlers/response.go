package handlers

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/iwtcode/ppmacAdapter/axis"
	"github.com/iwtcode/ppmacAdapter/fly"
	"github.com/iwtcode/ppmacAdapter/gpascii"
	"github.com/iwtcode/ppmacAdapter/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ErrorResponse возвращает стандартизированный ответ с ошибкой
func (h *Handler) ErrorResponse(c *gin.Context, err error, statusCode int, message string, showError bool) {
	errorMessage := message
	if showError && err != nil {
		errorMessage = message + ": " + err.Error()
	}

	h.logger.Error(message, "error", err, "statusCode", statusCode)
	c.AbortWithStatusJSON(statusCode, gin.H{
		"status": "error",
		"error": gin.H{
			"code":    statusCode,
			"message": errorMessage,
		},
	})
}

// BadRequest возвращает ошибку 400
func (h *Handler) BadRequest(c *gin.Context, err error, message string) {
	if message == "" {
		message = errors.BadRequest
	}
	h.ErrorResponse(c, err, http.StatusBadRequest, message, true)
}

// InternalError возвращает ошибку 500
func (h *Handler) InternalError(c *gin.Context, err error) {
	h.ErrorResponse(c, err, http.StatusInternalServerError, errors.InternalServerError, false)
}

// NotFound возвращает ошибку 404
func (h *Handler) NotFound(c *gin.Context, err error) {
	h.ErrorResponse(c, err, http.StatusNotFound, errors.NotFound, true)
}

// Conflict возвращает ошибку 409
func (h *Handler) Conflict(c *gin.Context, err error) {
	h.ErrorResponse(c, err, http.StatusConflict, errors.Conflict, true)
}

// HandleError подбирает HTTP-статус по типу ошибки.
func (h *Handler) HandleError(c *gin.Context, err error) {
	var (
		appErr      *errors.AppError
		validation  *gpascii.ValidationError
		unknownVar  *gpascii.UnknownVariableError
		notReady    *fly.NotReadyError
		duplicate   *axis.DuplicateAxisError
		ctrlErr     *gpascii.ControllerError
		protocolErr *gpascii.ProtocolError
	)

	switch {
	case stderrors.As(err, &appErr):
		h.ErrorResponse(c, appErr.Err, appErr.Code, appErr.Message, appErr.IsUserFacing)
	case stderrors.Is(err, errors.ErrSessionNotFound),
		stderrors.Is(err, errors.ErrNoScan),
		stderrors.As(err, &unknownVar):
		h.NotFound(c, err)
	case stderrors.As(err, &validation),
		stderrors.As(err, &notReady),
		stderrors.As(err, &duplicate),
		stderrors.Is(err, axis.ErrUnknownAxis):
		h.BadRequest(c, err, "")
	case stderrors.Is(err, errors.ErrAlreadyExists),
		stderrors.Is(err, errors.ErrScanActive),
		stderrors.Is(err, fly.ErrInvalidState):
		h.Conflict(c, err)
	case stderrors.Is(err, gpascii.ErrTimeout),
		stderrors.Is(err, context.DeadlineExceeded):
		h.ErrorResponse(c, err, errors.GatewayTimeoutCode, errors.BadGateway, true)
	case gpascii.IsConnectionError(err),
		stderrors.As(err, &ctrlErr),
		stderrors.As(err, &protocolErr):
		h.ErrorResponse(c, err, errors.BadGatewayErrorCode, errors.BadGateway, true)
	default:
		h.InternalError(c, err)
	}
}
