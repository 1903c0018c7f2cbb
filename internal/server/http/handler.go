// Package http exposes the authentication service over a JSON HTTP API.
//
// Login state travels in an HttpOnly session cookie; state-changing requests
// on an established session additionally carry an anti-forgery token in the
// X-CSRF-Token header.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vkulagin/authgate/internal/common"
	"github.com/vkulagin/authgate/internal/logging"
	"github.com/vkulagin/authgate/internal/server/audit"
	"github.com/vkulagin/authgate/internal/server/csrf"
	"github.com/vkulagin/authgate/internal/server/metrics"
	"github.com/vkulagin/authgate/internal/server/sessions"
	"github.com/vkulagin/authgate/internal/server/users"
)

// SessionCookie is the name of the cookie carrying the session id.
const SessionCookie = "session"

// UserService is the credential surface the API consumes, implemented by
// users.Service.
type UserService interface {
	Create(ctx context.Context, username, email, password string, info audit.RequestInfo) (*users.User, error)
	Authenticate(ctx context.Context, username, password string, info audit.RequestInfo) (*users.User, error)
	RecordLogout(ctx context.Context, userID string, info audit.RequestInfo)
}

// Handler implements the API endpoints.
type Handler struct {
	users    UserService
	sessions *sessions.Registry
	csrf     *csrf.Store
	metrics  *metrics.Metrics
	logger   logging.Logger

	// cookieMaxAge mirrors the registry's sliding timeout so the cookie and
	// the server-side session expire together.
	cookieMaxAge int
}

func NewHandler(us UserService, reg *sessions.Registry, cs *csrf.Store, m *metrics.Metrics, cookieMaxAge int, l logging.Logger) *Handler {
	return &Handler{
		users:        us,
		sessions:     reg,
		csrf:         cs,
		metrics:      m,
		logger:       l.With("module", "http"),
		cookieMaxAge: cookieMaxAge,
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func requestInfo(c *gin.Context) audit.RequestInfo {
	return audit.RequestInfo{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// Register creates a new account.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.users.Create(c.Request.Context(), req.Username, req.Email, req.Password, requestInfo(c))
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidUsername),
			errors.Is(err, common.ErrInvalidEmail),
			errors.Is(err, common.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, common.ErrAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": "username or email already taken"})
		default:
			h.logger.Error(c.Request.Context(), "registration failed", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	h.metrics.IncRegistrations()

	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// Login authenticates credentials and establishes a session.
//
// Unknown usernames, wrong passwords and locked accounts all produce the
// same 401 response so the endpoint does not leak which accounts exist or
// which are locked. The distinction survives in the audit log and metrics.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password, requestInfo(c))
	if err != nil {
		switch {
		case errors.Is(err, common.ErrNotFound):
			h.metrics.ObserveLogin(metrics.ResultNotFound)
		case errors.Is(err, common.ErrInvalidCredentials):
			h.metrics.ObserveLogin(metrics.ResultInvalid)
		case errors.Is(err, common.ErrAccountLocked):
			h.metrics.ObserveLogin(metrics.ResultLocked)
		default:
			h.metrics.ObserveLogin(metrics.ResultError)
			h.logger.Error(c.Request.Context(), "login failed", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	sessionID, err := h.sessions.Create(user.ID)
	if err != nil {
		h.logger.Error(c.Request.Context(), "session creation failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	token, err := h.csrf.Issue(sessionID)
	if err != nil {
		h.sessions.Destroy(sessionID)
		h.logger.Error(c.Request.Context(), "csrf issue failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.metrics.ObserveLogin(metrics.ResultSuccess)
	h.metrics.SetActiveSessions(h.sessions.ActiveCount())

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, sessionID, h.cookieMaxAge, "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{
		"username":   user.Username,
		"csrf_token": token,
	})
}

// Logout destroys the current session.
func (h *Handler) Logout(c *gin.Context) {
	session := currentSession(c)

	h.sessions.Destroy(session.ID)
	h.users.RecordLogout(c.Request.Context(), session.UserID, requestInfo(c))
	h.metrics.SetActiveSessions(h.sessions.ActiveCount())

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", true, true)
	c.Status(http.StatusNoContent)
}

// SessionInfo reports the authenticated session's metadata. Reaching the
// handler already counted as activity, so LastActivity reflects this call.
func (h *Handler) SessionInfo(c *gin.Context) {
	session := currentSession(c)

	c.JSON(http.StatusOK, gin.H{
		"user_id":       session.UserID,
		"created_at":    session.CreatedAt,
		"last_activity": session.LastActivity,
	})
}

// IssueCSRF replaces the session's anti-forgery token and returns the new
// value. The previous token stops validating immediately.
func (h *Handler) IssueCSRF(c *gin.Context) {
	session := currentSession(c)

	token, err := h.csrf.Issue(session.ID)
	if err != nil {
		h.logger.Error(c.Request.Context(), "csrf issue failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"csrf_token": token})
}

// Health is a liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
