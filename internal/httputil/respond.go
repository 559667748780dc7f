// Package httputil provides the HTTP boundary: the response envelope, the
// outcome-to-HTTP mapper, the top-level recovery boundary, and the
// authenticated client for outside-service calls.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/latticeworks/substrate/internal/apperr"
	"github.com/latticeworks/substrate/internal/logging"
	"github.com/latticeworks/substrate/internal/outcome"
)

// Response codes carried in the envelope.
const (
	CodeSuccess            = "SUCCESS"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeBadRequest         = "BAD_REQUEST"
)

// Envelope is the response body shape for every endpoint: code plus either
// the success data or a {message} object.
type Envelope struct {
	Code string `json:"code"`
	Data any    `json:"data"`
}

type messageBody struct {
	Message string `json:"message"`
}

// WriteJSON writes v as the envelope data with the given code and status.
func WriteJSON(w http.ResponseWriter, status int, code string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Code: code, Data: data})
}

// WriteMessage writes a {message} envelope with the given code and status.
func WriteMessage(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, code, messageBody{Message: message})
}

// MapError translates an application error into its status and envelope
// code. Validation detail arising inside the IO layer is deliberately not
// leaked to the caller; it renders as an opaque 500.
func MapError(err *apperr.Error) (status int, code, message string) {
	switch err.Kind {
	case apperr.KindNotFound:
		return http.StatusNotFound, CodeNotFound, err.Message
	case apperr.KindConflict:
		return http.StatusConflict, CodeConflict, err.Message
	case apperr.KindValidation:
		return http.StatusInternalServerError, CodeInternal, "internal server error"
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable, CodeServiceUnavailable, err.Message
	default:
		return http.StatusInternalServerError, CodeInternal, "internal server error"
	}
}

// WriteOutcome renders a terminal outcome: a success uses the
// caller-supplied default status with code SUCCESS; a failure maps through
// MapError. The mapping is total over the error kinds.
func WriteOutcome[T any](w http.ResponseWriter, oc outcome.Outcome[T], successStatus int) {
	if oc.IsOK() {
		WriteJSON(w, successStatus, CodeSuccess, oc.Value())
		return
	}
	status, code, message := MapError(oc.Err())
	WriteMessage(w, status, code, message)
}

// badRequestBody is the envelope for validation failures surfacing at the
// top-level boundary, where issue detail is attached.
type badRequestBody struct {
	Error struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Details []string `json:"details,omitempty"`
	} `json:"error"`
}

// WriteBadRequest writes a 400 with the validation issue list attached.
func WriteBadRequest(w http.ResponseWriter, message string, details []string) {
	var body badRequestBody
	body.Error.Code = CodeBadRequest
	body.Error.Message = message
	body.Error.Details = details

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(body)
}

// Recovery is the top-level boundary: any panic escaping a handler is
// logged at error severity and rendered as a generic 500, except a
// schema-validation failure, which renders as 400 with the issue list.
func Recovery(log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				err, ok := rec.(error)
				if !ok {
					log.WithContext(r.Context()).WithFields(map[string]interface{}{
						"panic": rec,
						"path":  r.URL.Path,
					}).Error("handler panicked")
					WriteMessage(w, http.StatusInternalServerError, CodeInternal, "internal server error")
					return
				}

				var issues *apperr.ValidationIssues
				if errors.As(err, &issues) {
					WriteBadRequest(w, "request validation failed", issues.Issues)
					return
				}

				log.WithContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
					"path": r.URL.Path,
				}).Error("handler panicked")
				WriteMessage(w, http.StatusInternalServerError, CodeInternal, "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
