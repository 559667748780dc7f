package middleware

import (
	"context"
	"net/http"

	"github.com/latticeworks/substrate/internal/httputil"
	"github.com/latticeworks/substrate/internal/identity"
	"github.com/latticeworks/substrate/internal/logging"
)

// Simple-identity headers for service-to-service calls.
const (
	ServiceIDHeader = "X-Service-ID"
	UserIDHeader    = "X-User-ID"
)

const maxIdentifierLength = 128

// ServiceAuthMiddleware implements the simple-identity mode used on
// internal routes: two required headers, each validated as a well-formed
// identifier. Both missing or invalid halts with 400 listing every issue.
type ServiceAuthMiddleware struct {
	logger *logging.Logger
}

// NewServiceAuthMiddleware creates the simple-identity middleware.
func NewServiceAuthMiddleware(logger *logging.Logger) *ServiceAuthMiddleware {
	return &ServiceAuthMiddleware{logger: logger}
}

// Handler validates both identity headers, collecting issues rather than
// stopping at the first.
func (m *ServiceAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serviceID := r.Header.Get(ServiceIDHeader)
		userID := r.Header.Get(UserIDHeader)

		var issues []string
		if err := validateIdentifier(ServiceIDHeader, serviceID); err != "" {
			issues = append(issues, err)
		}
		if err := validateIdentifier(UserIDHeader, userID); err != "" {
			issues = append(issues, err)
		}
		if len(issues) > 0 {
			m.logger.WithContext(r.Context()).WithFields(map[string]interface{}{
				"issues": issues,
				"path":   r.URL.Path,
			}).Warn("service identity rejected")
			httputil.WriteBadRequest(w, "invalid service identity", issues)
			return
		}

		recordIdentity(r.Context(), userID, "service")

		ctx := context.WithValue(r.Context(), logging.UserIDKey, userID)
		ctx = identity.WithIdentity(ctx, identity.Identity{
			CorrelationID: logging.GetTraceID(ctx),
			Role:          "service",
			UserID:        userID,
		})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validateIdentifier checks that v is a non-empty identifier of sane
// length built from letters, digits, and -._ separators. Returns "" when
// valid, otherwise the issue description.
func validateIdentifier(header, v string) string {
	if v == "" {
		return header + " header is required"
	}
	if len(v) > maxIdentifierLength {
		return header + " exceeds maximum length"
	}
	for _, c := range v {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '.', c == '_':
		default:
			return header + " contains invalid characters"
		}
	}
	return ""
}
