package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"plusfolio-backend/internal/shared/config"
	"plusfolio-backend/internal/shared/metrics"
	"plusfolio-backend/internal/shared/server/middleware"
	"plusfolio-backend/internal/shared/server/respond"
)

// RouteRegistrar is implemented by feature handlers that attach their
// endpoints to the API group.
type RouteRegistrar interface {
	RegisterRoutes(r gin.IRouter)
}

// Deps carries the wired feature handlers into the router. Bootstrap owns
// construction; the router only mounts.
type Deps struct {
	Reports  RouteRegistrar
	Feedback RouteRegistrar
	GitHub   RouteRegistrar
	Limiter  *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Identity(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: deps.Limiter,
			Rules: map[string]middleware.RateLimitRule{
				"ANALYZE": {Rate: 0.2, Burst: 5},
				"SHARE":   {Rate: 2, Burst: 30},
			},
			GroupFor: func(c *gin.Context) string {
				path := c.Request.URL.Path
				switch {
				case c.Request.Method == http.MethodPost && strings.HasSuffix(path, "/analyze"):
					return "ANALYZE"
				case strings.Contains(path, "/reports/shared/"):
					return "SHARE"
				}
				return ""
			},
		}),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())
	if deps.Reports != nil {
		deps.Reports.RegisterRoutes(api)
	}
	if deps.Feedback != nil {
		deps.Feedback.RegisterRoutes(api)
	}
	if deps.GitHub != nil {
		deps.GitHub.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
