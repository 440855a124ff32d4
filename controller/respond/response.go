package respond

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Response is the unified API envelope.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success responds 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{Code: 0, Message: "success", Data: data})
}

// Accepted responds 202 for asynchronous work that has been started.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(202, Response{Code: 0, Message: "accepted", Data: data})
}

// InvalidParam responds 400 with a message.
func InvalidParam(c *gin.Context, message string) {
	c.JSON(400, Response{Code: 400, Message: message})
}

// NotFound responds 404 with a message.
func NotFound(c *gin.Context, message string) {
	c.JSON(404, Response{Code: 404, Message: message})
}

// Conflict responds 409 with a message.
func Conflict(c *gin.Context, message string) {
	c.JSON(409, Response{Code: 409, Message: message})
}

// ServerError responds 500 with a message.
func ServerError(c *gin.Context, message string) {
	c.JSON(500, Response{Code: 500, Message: message})
}

// TimingMiddleware records request duration and flags slow requests.
func TimingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Header("X-Request-Start", fmt.Sprintf("%d", start.UnixMilli()))

		c.Next()

		elapsed := time.Since(start)
		if elapsed > time.Second {
			log.Printf("Slow request: %s %s took %s", c.Request.Method, c.Request.URL.Path, elapsed)
		}
	}
}
