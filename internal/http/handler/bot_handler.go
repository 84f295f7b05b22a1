package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/eraverse/sales-admin-service/internal/http/response"
	"github.com/eraverse/sales-admin-service/internal/observability"
	"github.com/eraverse/sales-admin-service/internal/repository"
	"github.com/eraverse/sales-admin-service/internal/security"
)

// BotHandler serves the reporting bot: it trades service credentials for a
// short-lived bearer token, so the bot never holds a browser session.
type BotHandler struct {
	users    repository.UserRepository
	jwt      *security.JWTManager
	tokenTTL time.Duration
}

func NewBotHandler(users repository.UserRepository, jwt *security.JWTManager, tokenTTL time.Duration) *BotHandler {
	return &BotHandler{users: users, jwt: jwt, tokenTTL: tokenTTL}
}

type botTokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *BotHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req botTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed JSON body", nil)
		return
	}

	user, err := h.users.FindByUsername(req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "token issuance failed", nil)
		return
	}
	if !user.IsActive || !security.VerifyPassword(user.PassHash, req.Password) {
		response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password", nil)
		return
	}

	token, err := h.jwt.SignBotToken(user.ID, user.Username, user.Role, h.tokenTTL)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "token issuance failed", nil)
		return
	}
	observability.Audit(r, "bot.token_issued", "username", user.Username)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int(h.tokenTTL / time.Second),
	})
}
