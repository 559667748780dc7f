// Package middleware assembles the per-request context: identity,
// correlation, request-scoped logging, and the guards in front of them.
// The steps are strictly ordered; any failure is terminal for the request.
package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/latticeworks/substrate/internal/httputil"
	"github.com/latticeworks/substrate/internal/identity"
	"github.com/latticeworks/substrate/internal/logging"
)

// IdentityHeaderAliases is the ordered list of headers that may carry the
// caller's claims; the first present one wins.
var IdentityHeaderAliases = []string{"X-Identity-Claims", "X-Auth-Claims"}

// Claims is the fixed shape carried by the identity header: a base64url
// encoded JSON object {"claims":{"user_id","sub","role"}}.
type Claims struct {
	UserID    string `json:"user_id"`
	SubjectID string `json:"sub"`
	Role      string `json:"role"`
}

type claimsEnvelope struct {
	Claims Claims `json:"claims"`
}

// AuthMiddleware authenticates the caller from the identity header.
type AuthMiddleware struct {
	logger *logging.Logger
}

// NewAuthMiddleware creates the identity-decoding middleware.
func NewAuthMiddleware(logger *logging.Logger) *AuthMiddleware {
	return &AuthMiddleware{logger: logger}
}

// Handler halts with 401 unless a recognized identity header decodes to a
// valid claims shape. On success the identity (minus correlation id, which
// the tracing step owns) lands in the request context.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := firstHeader(r, IdentityHeaderAliases)
		if raw == "" {
			httputil.WriteMessage(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "missing identity header")
			return
		}

		claims, err := DecodeClaims(raw)
		if err != nil {
			m.logger.WithContext(r.Context()).WithError(err).Warn("identity header rejected")
			httputil.WriteMessage(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "malformed identity header")
			return
		}

		recordIdentity(r.Context(), claims.UserID, claims.Role)

		ctx := context.WithValue(r.Context(), logging.UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, logging.RoleKey, claims.Role)
		ctx = identity.WithIdentity(ctx, identity.Identity{
			CorrelationID: logging.GetTraceID(ctx),
			Role:          claims.Role,
			UserID:        claims.UserID,
		})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DecodeClaims decodes and validates the identity header payload.
func DecodeClaims(raw string) (Claims, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		// Padded form is accepted too.
		decoded, err = base64.URLEncoding.DecodeString(raw)
		if err != nil {
			return Claims{}, err
		}
	}

	var envelope claimsEnvelope
	if err := json.Unmarshal(decoded, &envelope); err != nil {
		return Claims{}, err
	}
	if err := envelope.Claims.validate(); err != nil {
		return Claims{}, err
	}
	return envelope.Claims, nil
}

func (c Claims) validate() error {
	if c.UserID == "" {
		return errMissingField("user_id")
	}
	if c.SubjectID == "" {
		return errMissingField("sub")
	}
	if c.Role == "" {
		return errMissingField("role")
	}
	return nil
}

type errMissingField string

func (e errMissingField) Error() string {
	return "claims missing required field: " + string(e)
}

func firstHeader(r *http.Request, aliases []string) string {
	for _, name := range aliases {
		if v := r.Header.Get(name); v != "" {
			return v
		}
	}
	return ""
}
