package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/marketplace-api/internal/service"
)

// AuthHandler serves the login endpoint.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type loginRequest struct {
	Email    string `json:"correo"`
	Password string `json:"contraseña"`
}

// HandleLogin exchanges credentials for a token.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"correo": "ana@x.com", "contraseña": "pw123"}
// RESPONSE:     {"state": true, "token": "<jwt>", "usuario": {"id", "nombre", "correo"}}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	writeOK(w, http.StatusOK, envelope{
		"token":   result.Token,
		"usuario": result.Account,
	})
}
