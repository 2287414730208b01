package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/common/cnst"
	"github.com/catalogpilot/catalogpilot/internal/i18n"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestID reuses the caller's X-Request-Id or generates one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(cnst.XRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(cnst.CtxRequestID, id)
		c.Header(cnst.XRequestID, id)
		c.Next()
	}
}

// Logger writes one line per request
func Logger(logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("size", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(cnst.CtxRequestID)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request completed", fields...)
			return
		}
		logger.Debug("request completed", fields...)
	}
}

// CORS allows the listed origins; "*" allows any
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			c.Next()
			return
		}

		for _, allowed := range allowedOrigins {
			if allowed == "*" || strings.EqualFold(origin, allowed) {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Lang, X-Request-Id")
				c.Header("Access-Control-Allow-Credentials", "true")
				c.Header("Vary", "Origin")
				break
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Language stores the negotiated language under cnst.CtxLang
func Language(tr *i18n.I18n) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := cnst.LangDefault
		if tr != nil {
			lang = tr.LanguageFromRequest(c.Request)
		}
		c.Set(cnst.CtxLang, lang)
		c.Next()
	}
}
