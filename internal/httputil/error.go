package httputil

import (
	"fmt"
	"net/http"
)

// StatusError is the declared raw-failure shape for outside-service calls
// that completed at the HTTP level with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("service responded %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("service responded %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}
