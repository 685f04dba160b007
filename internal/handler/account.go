package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/marketplace-api/internal/model"
	"github.com/sakif/marketplace-api/internal/service"
)

// AccountHandler serves /api/usuarios.
//
// Every read returns model.Account, whose hash field is tagged json:"-", so
// no route here can leak it.
type AccountHandler struct {
	accounts *service.AccountService
	auth     *service.AuthService
	logger   *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, auth *service.AuthService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, auth: auth, logger: logger}
}

type registerRequest struct {
	Name     string `json:"nombre"`
	Email    string `json:"correo"`
	Password string `json:"contraseña"`
	Phone    string `json:"telefono"`
	Address  string `json:"direccion"`
}

// HandleList → GET /api/usuarios → {state, data: [account...]}
func (h *AccountHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"data": accounts})
}

// HandleMe → GET /api/usuarios/me → {state, usuario, productos}
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	account, products, err := h.accounts.Profile(r.Context(), caller)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"usuario": account, "productos": products})
}

// HandleUpdateMe → PUT /api/usuarios/me → {state, usuario}
func (h *AccountHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	var patch model.AccountPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	account, err := h.accounts.UpdateMe(r.Context(), caller, patch)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"usuario": account})
}

// HandleGet → GET /api/usuarios/{id} → {state, data}
func (h *AccountHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"data": account})
}

// HandleCreate registers a new account. Public.
//
// HTTP: POST /api/usuarios
// REQUEST BODY: {"nombre", "correo", "contraseña", "telefono", "direccion"?}
// RESPONSE:     201 {state, data}
func (h *AccountHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	account, err := h.auth.Register(r.Context(), service.Registration{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"data": account})
}

// HandleUpdate → PUT /api/usuarios/{id} → {state, data}
func (h *AccountHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	var patch model.AccountPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	account, err := h.accounts.Update(r.Context(), caller, chi.URLParam(r, "id"), patch)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"data": account})
}

// HandleDelete → DELETE /api/usuarios/{id} → {state, data: deleted account}
func (h *AccountHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	account, err := h.accounts.Delete(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"data": account})
}
