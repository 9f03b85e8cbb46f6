/*
errors.go - Error classification for HTTP responses

PURPOSE:
  Maps domain errors onto HTTP status codes in one place so handlers only
  ever call writeFailure(w, err).

MAPPING:
  - 400: validation failures, duplicates, salary source loops, future cycles
  - 404: missing records and settings
  - 422: rejected cycle policies (InvalidCycleConfig)
  - 500: everything else (provider failures, database errors)

SEE ALSO:
  - cycle/errors.go: ConfigError
  - factory/factory.go: ValidationError
  - engine/errors.go: ErrFutureCycle, LoadError
*/
package api

import (
	"errors"
	"net/http"

	"github.com/warp/settlement-engine/cycle"
	"github.com/warp/settlement-engine/engine"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/store/sqlite"
)

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, factory.ErrValidation) ||
		errors.Is(err, factory.ErrSalarySourceCycle) ||
		errors.Is(err, factory.ErrUnknownSalarySource) ||
		errors.Is(err, sqlite.ErrDuplicate) ||
		errors.Is(err, engine.ErrFutureCycle)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, sqlite.ErrNotFound)
}

// statusFor picks the response status for err. Config errors are checked
// first: a stored policy that no longer validates is still a config problem.
func statusFor(err error) int {
	switch {
	case cycle.IsConfigError(err):
		return http.StatusUnprocessableEntity
	case IsNotFound(err):
		return http.StatusNotFound
	case IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is the short, stable label sent next to the details.
func errorMessage(status int) string {
	switch status {
	case http.StatusUnprocessableEntity:
		return "Invalid cycle configuration"
	case http.StatusNotFound:
		return "Not found"
	case http.StatusBadRequest:
		return "Invalid request"
	default:
		return "Internal error"
	}
}
