package http

import (
	"github.com/gin-gonic/gin"

	"github.com/vkulagin/authgate/internal/logging"
	"github.com/vkulagin/authgate/internal/server/csrf"
	"github.com/vkulagin/authgate/internal/server/metrics"
	"github.com/vkulagin/authgate/internal/server/ratelimit"
	"github.com/vkulagin/authgate/internal/server/sessions"
)

// NewRouter assembles the gin engine.
//
// The rate limiter guards only the credential endpoints: those are the ones
// an attacker hammers, and established sessions should not be starved by an
// unrelated client's abuse of the login route.
func NewRouter(h *Handler, limiter *ratelimit.Limiter, registry *sessions.Registry, store *csrf.Store, m *metrics.Metrics, logger logging.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	limited := router.Group("/api", RateLimit(limiter, m, logger))
	{
		limited.POST("/register", h.Register)
		limited.POST("/login", h.Login)
	}

	authed := router.Group("/api", RequireSession(registry))
	{
		authed.GET("/session", h.SessionInfo)
		authed.POST("/csrf", h.IssueCSRF)
		authed.POST("/logout", RequireCSRF(store), h.Logout)
	}

	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	return router
}
