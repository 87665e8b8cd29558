package logger

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Recovery replaces gin.Recovery: a panicking handler is answered with 500 and
// the panic is reported with the request path.
func (l *Logger) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v", rec)
				}
				l.Error("panic recovered", err, map[string]interface{}{
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
		}()
		c.Next()
	}
}
