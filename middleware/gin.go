package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ahmadsaubani/go-sos-lib/logging"
)

const panicInfoKey = "panic_info"

/**
 * RequestContext attaches request metadata (ID, IP, method, path) to the
 * request context so alert and error logs can be tied back to the call.
 *
 * @return gin.HandlerFunc Middleware handler
 */
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}

		meta, _ := logging.FromContext(c.Request.Context())
		meta.RequestID = reqID
		meta.IP = c.ClientIP()
		meta.Method = c.Request.Method
		meta.Path = c.Request.URL.Path
		meta.UserAgent = c.Request.UserAgent()

		c.Request = c.Request.WithContext(logging.WithMeta(c.Request.Context(), meta))
		c.Header("X-Request-ID", reqID)
		c.Next()
	}
}

/**
 * AccessLog writes one access line and one Loki event per request.
 *
 * @param logger Logger instance
 * @return gin.HandlerFunc Middleware handler
 */
func AccessLog(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		var err error
		if status >= 400 {
			err = requestError(c)
		}
		logger.LogRequestWithError(c.Request.Context(), status, latency, err)
	}
}

// ErrorLog writes failed requests to the error log unless a handler already
// logged the error itself.
func ErrorLog(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if status < 400 || logging.IsErrorLogged(c) {
			return
		}

		msg := "HTTP Error"
		if err := requestError(c); err != nil {
			msg = err.Error()
		}
		logger.Error(c.Request.Context(), fmt.Errorf("%s (status: %d, latency: %v)", msg, status, time.Since(start)))
	}
}

// Recovery turns a handler panic into a 500 and keeps the panic text for the
// logging middleware.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				c.Set(panicInfoKey, fmt.Sprintf("PANIC: %v", r))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}

func requestError(c *gin.Context) error {
	if info, ok := c.Get(panicInfoKey); ok {
		return fmt.Errorf("%v", info)
	}
	if len(c.Errors) > 0 {
		return fmt.Errorf("%s", c.Errors.String())
	}
	if err, ok := logging.LoggedError(c); ok {
		return err
	}
	return nil
}
