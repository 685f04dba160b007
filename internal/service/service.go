// Package service holds the business rules. It sits between the HTTP handlers
// and the repositories:
//
//	Handler (HTTP) → Service (rules, validation) → Repository (store)
//
// Services never see http.Request or status codes. They return apperror
// values and the handler layer decides what each one means on the wire.
// Unexpected store errors are wrapped with context and returned, not logged;
// the handler logs them once, with the request id.
package service

import (
	"strings"

	"github.com/sakif/marketplace-api/internal/apperror"
)

// requiredString trims value and fails with a validation error when nothing is left.
func requiredString(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", apperror.ValidationFailed(field, field+" is required")
	}
	return value, nil
}
