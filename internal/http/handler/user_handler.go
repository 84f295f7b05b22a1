package handler

import (
	"encoding/json"
	"net/http"

	"github.com/eraverse/sales-admin-service/internal/http/middleware"
	"github.com/eraverse/sales-admin-service/internal/http/response"
	"github.com/eraverse/sales-admin-service/internal/observability"
	"github.com/eraverse/sales-admin-service/internal/service"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, users)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in service.UserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "malformed JSON body", nil)
		return
	}
	user, err := h.users.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "user.create", "user_id", user.ID, "username", user.Username, "role", user.Role)
	response.JSON(w, r, http.StatusCreated, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid user id", nil)
		return
	}
	sess, _ := middleware.SessionFromContext(r.Context())
	actingID := uint(0)
	if sess != nil {
		actingID = sess.UserID
	}
	if err := h.users.Delete(r.Context(), id, actingID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "user.delete", "user_id", id)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}
