package handler

// RESPONSE ENVELOPE:
// Every response, success or failure, is a JSON object with a boolean "state":
//
//	{"state": true,  "producto": {...}}
//	{"state": false, "error": "product not found with id abc123"}
//
// The data key differs per route (data, usuario, productos, ...) because the
// existing clients read those names.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/marketplace-api/internal/apperror"
	"github.com/sakif/marketplace-api/internal/auth"
	"github.com/sakif/marketplace-api/internal/model"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// envelope is a success body. writeOK adds "state": true.
type envelope map[string]any

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	State bool   `json:"state"`
	Error string `json:"error"`
}

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader, and the body after it.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already out; all we can do is log
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeOK(w http.ResponseWriter, status int, body envelope) {
	body["state"] = true
	writeJSON(w, status, body)
}

// StatusFor maps an error to its HTTP status by category.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteError converts err into the failure envelope.
//
// Application errors carry a client-safe message. Anything else is a store
// failure or a bug: it is logged here, once, with the request id, and the
// client only gets a generic message, since raw driver errors can contain SQL
// and file paths.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := StatusFor(err)

	var appErr *apperror.AppError
	if status != http.StatusInternalServerError && errors.As(err, &appErr) {
		writeJSON(w, status, ErrorResponse{State: false, Error: appErr.Message})
		return
	}

	logger.LogAttrs(r.Context(), slog.LevelError, "unexpected error",
		slog.String("request_id", chimiddleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	HandleInternalError(w, r)
}

// HandleInternalError writes the generic 500 envelope without logging.
// The panic recoverer uses it after logging the stack itself.
func HandleInternalError(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		State: false,
		Error: "an internal error occurred",
	})
}

// Reject adapts WriteError for the auth guard.
func Reject(logger *slog.Logger) auth.RejectFunc {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		WriteError(w, r, logger, err)
	}
}

// decodeJSON reads a JSON body into dst. Unknown fields are ignored, so a
// client sending usuarioId on a product simply has it dropped.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperror.ValidationFailed("body", "request body is too large")
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			if typeErr.Field == "" {
				return apperror.ValidationFailed("body", "request body must be a JSON object")
			}
			return apperror.ValidationFailed(typeErr.Field, typeErr.Field+" must be "+jsonKind(typeErr.Type))
		}
		return apperror.ValidationFailed("body", "request body must be valid JSON")
	}
	return nil
}

// jsonKind names t the way a client writing JSON would.
func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Slice, reflect.Array:
		return "an array"
	default:
		return "an object"
	}
}

// callerFrom returns the account the guard attached to the request.
func callerFrom(r *http.Request) (*model.Account, error) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthorized(nil, "authentication required")
	}
	return account, nil
}

// HandleRouteNotFound answers paths no route matches.
func HandleRouteNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{State: false, Error: "route " + r.URL.Path + " not found"})
}

// HandleMethodNotAllowed answers a known path with the wrong method.
func HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{State: false, Error: "method " + r.Method + " not allowed"})
}
