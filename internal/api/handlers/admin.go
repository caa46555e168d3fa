// admin.go — HTTP handlers административных операций FileDrop.
// Login, Dashboard, принудительное удаление файла.
package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bigkaa/filedrop/internal/api/errors"
	"github.com/bigkaa/filedrop/internal/api/middleware"
	"github.com/bigkaa/filedrop/internal/service"
)

// AdminHandler — обработчик административных endpoints.
type AdminHandler struct {
	adminSvc *service.AdminService
	auth     *middleware.AdminAuth
	secret   string
	tokenTTL time.Duration
}

// NewAdminHandler создаёт обработчик административных endpoints.
func NewAdminHandler(
	adminSvc *service.AdminService,
	auth *middleware.AdminAuth,
	secret string,
	tokenTTL time.Duration,
) *AdminHandler {
	return &AdminHandler{
		adminSvc: adminSvc,
		auth:     auth,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

// loginRequest — тело запроса на вход администратора.
type loginRequest struct {
	Secret string `json:"secret"`
}

// loginResponse — тело ответа с выданным токеном.
type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login обрабатывает POST /api/v1/admin/login.
// Сравнение секрета — за константное время, чтобы исключить timing-атаку.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.ValidationError(w, fmt.Sprintf("Некорректный JSON: %s", err.Error()))
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.secret)) != 1 {
		errors.Forbidden(w, "Неверный секрет администратора")
		return
	}

	token, err := h.auth.IssueToken(h.tokenTTL)
	if err != nil {
		errors.InternalError(w, "Ошибка выдачи токена")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(h.tokenTTL),
	})
}

// Dashboard обрабатывает GET /api/v1/admin/dashboard.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dash, adminErr := h.adminSvc.Dashboard(r.Context())
	if adminErr != nil {
		errors.WriteError(w, adminErr.StatusCode, adminErr.Code, adminErr.Message)
		return
	}

	writeJSON(w, http.StatusOK, dash)
}

// ForceDelete обрабатывает DELETE /api/v1/admin/files/{file_id}.
func (h *AdminHandler) ForceDelete(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDFromRequest(w, r)
	if !ok {
		return
	}

	if adminErr := h.adminSvc.ForceDelete(r.Context(), fileID); adminErr != nil {
		errors.WriteError(w, adminErr.StatusCode, adminErr.Code, adminErr.Message)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
