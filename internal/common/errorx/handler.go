package errorx

import (
	"fmt"
	"runtime"

	"github.com/catalogpilot/catalogpilot/internal/common/cnst"
	"github.com/catalogpilot/catalogpilot/internal/i18n"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrorHandler provides unified error handling capabilities
type ErrorHandler struct {
	logger *zap.Logger
	tr     *i18n.I18n
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger, tr *i18n.I18n) *ErrorHandler {
	return &ErrorHandler{
		logger: logger.Named("errorx"),
		tr:     tr,
	}
}

// HandleError converts any error to APIError and writes the JSON envelope
func (h *ErrorHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	apiErr := Localize(h.tr, err, c.GetString(cnst.CtxLang))
	apiErr.TraceID = h.traceID(c)

	h.logError(c, apiErr, err)
	c.AbortWithStatusJSON(apiErr.HTTPStatus, gin.H{"error": apiErr})
}

func (h *ErrorHandler) traceID(c *gin.Context) string {
	if id := c.GetString(cnst.CtxRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}

func (h *ErrorHandler) logError(c *gin.Context, apiErr *APIError, originalErr error) {
	fields := []zap.Field{
		zap.String("trace_id", apiErr.TraceID),
		zap.String("error_code", apiErr.Code),
		zap.String("category", string(apiErr.Category)),
		zap.Int("http_status", apiErr.HTTPStatus),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.String("client_ip", c.ClientIP()),
		zap.Error(originalErr),
	}

	switch apiErr.Severity {
	case SeverityInfo:
		h.logger.Info(apiErr.Message, fields...)
	case SeverityWarning:
		h.logger.Warn(apiErr.Message, fields...)
	case SeverityCritical:
		buf := make([]byte, 4096)
		n := runtime.Stack(buf, false)
		h.logger.Error(apiErr.Message, append(fields, zap.String("stack_trace", string(buf[:n])))...)
	default:
		h.logger.Error(apiErr.Message, fields...)
	}
}

// ErrorMiddleware handles the last error attached with c.Error
func (h *ErrorHandler) ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 && !c.Writer.Written() {
			h.HandleError(c, c.Errors.Last().Err)
		}
	}
}

// NoRoute attaches a not found error for ErrorMiddleware to render
func (h *ErrorHandler) NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = c.Error(ErrNotFound.WithMessagef("no route for %s %s", c.Request.Method, c.Request.URL.Path))
	}
}

// RecoveryMiddleware turns panics into 500 responses
func (h *ErrorHandler) RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		h.logger.Error("panic recovered", zap.String("panic", fmt.Sprintf("%v", recovered)))
		h.HandleError(c, ErrInternal)
	})
}
