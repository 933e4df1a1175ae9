// Package errors defines the failure taxonomy shared by the catalog layers.
// Callers match with errors.Is; every error returned by the services wraps
// exactly one of these sentinels.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound reports that a referenced entity does not exist.
	ErrNotFound = fmt.Errorf("not found")
	// ErrInvalidInput reports a business-rule violation such as an unresolved
	// parent code or a field outside its limits.
	ErrInvalidInput = fmt.Errorf("invalid input")
	// ErrDuplicateCode reports a (code, parent) uniqueness violation.
	ErrDuplicateCode = fmt.Errorf("duplicate code")
	// ErrStorage reports an unexpected storage or connectivity failure.
	ErrStorage = fmt.Errorf("storage failure")
)

// StatusCode maps err to the HTTP status an outer boundary should answer with.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrDuplicateCode):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
