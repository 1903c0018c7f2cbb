package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vkulagin/authgate/internal/logging"
	"github.com/vkulagin/authgate/internal/server/csrf"
	"github.com/vkulagin/authgate/internal/server/metrics"
	"github.com/vkulagin/authgate/internal/server/ratelimit"
	"github.com/vkulagin/authgate/internal/server/sessions"
)

// CSRFHeader carries the anti-forgery token on state-changing requests.
const CSRFHeader = "X-CSRF-Token"

const sessionKey = "authgate.session"

// RateLimit rejects requests from clients that exceeded their sliding
// window, before any credential work happens. Clients are keyed by IP.
func RateLimit(limiter *ratelimit.Limiter, m *metrics.Metrics, logger logging.Logger) gin.HandlerFunc {
	logger = logger.With("module", "http")
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			m.IncRateLimited()
			logger.Warn(c.Request.Context(), "rate limit exceeded", "ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// RequireSession validates the session cookie, touches the session's
// activity time, and stores a snapshot for the handler. A missing, unknown
// or expired cookie ends the request with 401.
func RequireSession(registry *sessions.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookie)
		if err != nil || id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		session, valid := registry.Get(id)
		if !valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(sessionKey, session)

		c.Next()
	}
}

// RequireCSRF checks the X-CSRF-Token header against the token bound to the
// current session. Must run after RequireSession.
func RequireCSRF(store *csrf.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := currentSession(c)
		if !store.Validate(session.ID, c.GetHeader(CSRFHeader)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid csrf token"})
			return
		}
		c.Next()
	}
}

// currentSession returns the session snapshot stored by RequireSession.
func currentSession(c *gin.Context) sessions.Session {
	return c.MustGet(sessionKey).(sessions.Session)
}
