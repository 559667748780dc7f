// Package retry wraps raw IO operations with transient-failure
// classification and bounded exponential backoff. It is the only place raw
// store and outside-service failures are absorbed; everything above it
// sees outcomes.
package retry

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/latticeworks/substrate/internal/httputil"
	"github.com/latticeworks/substrate/internal/store"
)

// Document store sentinel codes treated as transient.
const (
	CodeDeadlineExceeded  = 4
	CodeResourceExhausted = 8
)

// transientStatuses are the HTTP statuses judged retry-eligible for both
// failure families.
var transientStatuses = map[int]bool{
	http.StatusTooManyRequests:     true, // 429
	http.StatusInternalServerError: true, // 500
	http.StatusBadGateway:          true, // 502
	http.StatusServiceUnavailable:  true, // 503
	http.StatusGatewayTimeout:      true, // 504
}

// transientMarkers are message fragments indicating overload, timeout, or
// a transient network condition.
var transientMarkers = []string{
	"RESOURCE_EXHAUSTED",
	"quota exceeded",
	"timeout",
	"connection reset",
	"connection refused",
	"no such host",
}

// Classifier decides whether a raw failure is retry-eligible. Classifiers
// are pure predicates over the declared failure shape of one IO family.
type Classifier func(error) bool

// TransientStore classifies raw document store failures. It recognizes the
// store transport's *store.RequestError shape, including the store's own
// sentinel codes, before falling back to the shared status and message
// rules.
func TransientStore(err error) bool {
	var reqErr *store.RequestError
	if errors.As(err, &reqErr) {
		if transientStatuses[reqErr.Status] {
			return true
		}
		if reqErr.Code == CodeResourceExhausted || reqErr.Code == CodeDeadlineExceeded {
			return true
		}
		return transientMessage(reqErr.Message)
	}
	return transientNetwork(err)
}

// TransientService classifies raw outside-service failures: HTTP-response
// shaped (*httputil.StatusError) or network shaped.
func TransientService(err error) bool {
	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) {
		if transientStatuses[statusErr.StatusCode] {
			return true
		}
		return transientMessage(statusErr.Message)
	}
	return transientNetwork(err)
}

func transientNetwork(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return transientMessage(err.Error())
}

func transientMessage(msg string) bool {
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
