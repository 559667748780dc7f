package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/latticeworks/substrate/internal/logging"
)

// CorrelationHeaderAliases is the ordered list of headers that may carry
// the request correlation id; the first present one wins. A fresh id is
// synthesized when none is present.
var CorrelationHeaderAliases = []string{"X-Correlation-ID", "X-Request-ID", "X-Trace-ID"}

// TracingMiddleware resolves the correlation id and emits the start and
// end of request log lines.
type TracingMiddleware struct {
	logger *logging.Logger
}

// identitySink collects the authenticated identity established by later
// pipeline steps so the end-of-request line carries user id and role.
type identitySink struct {
	userID string
	role   string
}

type identitySinkKey struct{}

// recordIdentity attaches the authenticated identity to the request log
// lines. No-op when tracing is not in the chain.
func recordIdentity(ctx context.Context, userID, role string) {
	if sink, ok := ctx.Value(identitySinkKey{}).(*identitySink); ok {
		sink.userID = userID
		sink.role = role
	}
}

// NewTracingMiddleware creates the correlation middleware.
func NewTracingMiddleware(logger *logging.Logger) *TracingMiddleware {
	return &TracingMiddleware{logger: logger}
}

// Handler resolves or synthesizes the correlation id, binds the
// request-scoped logger fields, and guarantees the end-of-request line
// fires exactly once, including when the handler panics.
func (m *TracingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := firstHeader(r, CorrelationHeaderAliases)
		if traceID == "" {
			traceID = logging.NewTraceID()
		}

		sink := &identitySink{}
		ctx := logging.WithTraceID(r.Context(), traceID)
		ctx = context.WithValue(ctx, identitySinkKey{}, sink)
		r = r.WithContext(ctx)
		w.Header().Set("X-Correlation-ID", traceID)

		m.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Info("request started")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		defer func() {
			logCtx := ctx
			if sink.userID != "" {
				logCtx = context.WithValue(logCtx, logging.UserIDKey, sink.userID)
			}
			if sink.role != "" {
				logCtx = context.WithValue(logCtx, logging.RoleKey, sink.role)
			}
			m.logger.LogRequest(logCtx, r.Method, r.URL.Path, rw.statusCode, time.Since(start))
		}()

		next.ServeHTTP(rw, r)
	})
}
