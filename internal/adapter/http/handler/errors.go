package handler

import (
	"errors"
	"net/http"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
)

func errorResponse(w http.ResponseWriter, status int, message any) {
	errorResponseWith(w, status, envelope{"error": message})
}

func errorResponseWith(w http.ResponseWriter, status int, env envelope) {
	if err := writeJSON(w, status, env, nil); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// failedValidationResponse returns 422 UnprocessableEntity status.
// The request was well-formed but its content can not be processed, so
// repeating it unchanged fails again.
func failedValidationResponse(w http.ResponseWriter, errors map[string]string) {
	errorResponse(w, http.StatusUnprocessableEntity, errors)
}

// badRequestResponse returns 400 BadRequest status.
func badRequestResponse(w http.ResponseWriter, message any) {
	errorResponse(w, http.StatusBadRequest, message)
}

// internalErrorResponse hides the cause from the client; it is logged instead.
func internalErrorResponse(w http.ResponseWriter) {
	errorResponse(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

// serviceErrorResponse writes err with the status GetCode picks. A lost
// transition reports the status the ride is actually in.
func serviceErrorResponse(w http.ResponseWriter, err error) {
	code := GetCode(err)
	switch code {
	case http.StatusInternalServerError:
		internalErrorResponse(w)
	case http.StatusConflict:
		env := envelope{"error": err.Error()}
		var conflict *types.ConflictError
		if errors.As(err, &conflict) {
			env["error"] = conflict.Error()
			env["current_status"] = conflict.Current
		}
		errorResponseWith(w, code, env)
	default:
		errorResponse(w, code, err.Error())
	}
}

var errInvalidTimeout = errors.New("timeout_ms must be a non-negative integer")
