package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eraverse/sales-admin-service/internal/http/middleware"
	"github.com/eraverse/sales-admin-service/internal/http/response"
	"github.com/eraverse/sales-admin-service/internal/observability"
	"github.com/eraverse/sales-admin-service/internal/security"
	"github.com/eraverse/sales-admin-service/internal/service"
)

type AuthHandler struct {
	auth               *service.AuthService
	sessionCookieName  string
	rememberCookieName string
	cookieSecure       bool
}

func NewAuthHandler(auth *service.AuthService, sessionCookie, rememberCookie string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		auth:               auth,
		sessionCookieName:  sessionCookie,
		rememberCookieName: rememberCookie,
		cookieSecure:       cookieSecure,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type sessionView struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Login exchanges credentials for a session cookie and, when asked,
// a remember-me cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed JSON body", nil)
		return
	}
	if req.Username == "" || req.Password == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "username and password are required", nil)
		return
	}

	sess, err := h.auth.Login(r.Context(), req.Username, req.Password, r.UserAgent(), clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password", nil)
		case errors.Is(err, service.ErrLoginThrottled):
			response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many failed attempts, try again later", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
		}
		return
	}

	security.SetSessionCookie(w, h.sessionCookieName, sess.ID, h.cookieSecure)
	if req.Remember {
		token, err := h.auth.RememberToken(sess, r.UserAgent())
		if err != nil {
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
			return
		}
		security.SetPersistentCookie(w, h.rememberCookieName, token, h.auth.RememberLifetime(), h.cookieSecure)
	}

	observability.Audit(r, "auth.login", "username", sess.Username)
	response.JSON(w, r, http.StatusOK, sessionView{
		UserID: sess.UserID, Username: sess.Username, Role: sess.Role,
	})
}

// Logout destroys the session and both cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := security.GetCookie(r, h.sessionCookieName); id != "" {
		if err := h.auth.Logout(r.Context(), id); err != nil {
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "logout failed", nil)
			return
		}
	}
	security.ExpireCookie(w, h.sessionCookieName, h.cookieSecure)
	security.ExpireCookie(w, h.rememberCookieName, h.cookieSecure)

	observability.Audit(r, "auth.logout")
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me reports the authenticated identity behind the current session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, sessionView{
		UserID: sess.UserID, Username: sess.Username, Role: sess.Role,
	})
}

func clientIP(r *http.Request) string {
	return middleware.ClientIP(r)
}
