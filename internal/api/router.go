package api

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterOptions struct {
	BasePath    string
	ServiceName string
}

// NewRouter builds the engine with recovery, tracing, logging and metrics
// middleware in front of the todo routes.
func NewRouter(uc UseCases, logger *log.Logger, opts RouterOptions) *gin.Engine {
	if opts.ServiceName == "" {
		opts.ServiceName = "todos"
	}

	r := gin.New()
	// Match ids on the escaped path so an id holding "/" still hits /todos/:id.
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(opts.ServiceName))
	r.Use(RequestLogger(logger))
	r.Use(MetricsMiddleware(nil))

	r.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: ErrorDetail{Message: "route not found"}})
	})

	NewHandler(uc, logger).Register(r.Group(opts.BasePath))
	return r
}
