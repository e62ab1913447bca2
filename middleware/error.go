package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// ErrorHandler recovers from handler panics and turns them into a 500
// response with the request ID for correlation.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("Panic recovered (request_id=%s): %v\nStack trace:\n%s",
					c.GetString(RequestIDKey), err, debug.Stack())

				c.JSON(http.StatusInternalServerError, gin.H{
					"error":     "An unexpected error occurred",
					"requestId": c.GetString(RequestIDKey),
				})
				c.Abort()
			}
		}()

		c.Next()
	}
}
