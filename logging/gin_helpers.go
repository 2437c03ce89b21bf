package logging

import (
	"github.com/gin-gonic/gin"
)

const handledKey = "sos.handled_error"

// handled is what a handler leaves behind about an error it dealt with.
// Logged means it already reached the error log.
type handled struct {
	err    error
	logged bool
}

// SetLoggedError records the request's error for the access and Loki lines
// without writing it to the error log. Used for client errors.
func SetLoggedError(c *gin.Context, err error) {
	c.Set(handledKey, handled{err: err})
}

// LoggedError returns the error recorded by SetLoggedError or
// LogErrorWithMark, if any.
func LoggedError(c *gin.Context) (error, bool) {
	h, ok := handledError(c)
	if !ok || h.err == nil {
		return nil, false
	}
	return h.err, true
}

// IsErrorLogged reports whether a handler already wrote the request's error
// to the error log.
func IsErrorLogged(c *gin.Context) bool {
	h, _ := handledError(c)
	return h.logged
}

func handledError(c *gin.Context) (handled, bool) {
	v, ok := c.Get(handledKey)
	if !ok {
		return handled{}, false
	}
	h, ok := v.(handled)
	return h, ok
}

// LogErrorWithMark logs an error and marks it as logged to prevent duplication
func (l *Logger) LogErrorWithMark(c *gin.Context, err error) {
	l.Error(c.Request.Context(), err)
	c.Set(handledKey, handled{err: err, logged: true})
}
