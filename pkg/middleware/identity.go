package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	apperrors "caravan/pkg/errors"
	"caravan/pkg/logger"
	"caravan/pkg/model"
)

const (
	IdentityKey contextKey = "identity"

	HeaderUserID            = "X-User-ID"
	HeaderUserRole          = "X-User-Role"
	HeaderUserName          = "X-User-Name"
	HeaderUserEmail         = "X-User-Email"
	HeaderIdentitySignature = "X-Identity-Signature"
)

// Identity trusts the caller headers set by the authenticating gateway once
// their HMAC-SHA256 signature checks out. The role is resolved here, once
// per request, and carried in the context from then on.
func Identity(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := model.Identity{
				UserID: strings.TrimSpace(r.Header.Get(HeaderUserID)),
				Role:   model.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole)))),
				Name:   strings.TrimSpace(r.Header.Get(HeaderUserName)),
				Email:  strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
			}

			if identity.UserID == "" {
				rejectIdentity(w, log, r, "Missing "+HeaderUserID+" header")
				return
			}

			if identity.Role == "" {
				identity.Role = model.RoleUser
			}
			if identity.Role != model.RoleUser && identity.Role != model.RoleAdmin {
				rejectIdentity(w, log, r, "Unknown role")
				return
			}

			if secret == "" {
				rejectIdentity(w, log, r, "Identity secret not configured")
				return
			}

			signature := extractSignature(r)
			if signature == "" {
				rejectIdentity(w, log, r, "Missing "+HeaderIdentitySignature+" header")
				return
			}

			if !verifySignature(identity, signature, secret) {
				rejectIdentity(w, log, r, "Invalid identity signature")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func extractSignature(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get(HeaderIdentitySignature))
	if signature, found := strings.CutPrefix(header, "sha256="); found {
		return signature
	}
	return header
}

// SignIdentity computes the hex signature the gateway attaches to identity
// headers: HMAC-SHA256 over "user_id\nrole\nname\nemail".
func SignIdentity(identity model.Identity, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join([]string{
		identity.UserID,
		string(identity.Role),
		identity.Name,
		identity.Email,
	}, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

func verifySignature(identity model.Identity, receivedSignature string, secret string) bool {
	expectedSignature := SignIdentity(identity, secret)
	return hmac.Equal([]byte(expectedSignature), []byte(strings.ToLower(receivedSignature)))
}

func rejectIdentity(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Identity verification failed",
		"request_id", RequestIDFromContext(r.Context()),
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)

	if err := apperrors.WriteError(w, apperrors.Unauthorized("Authentication required")); err != nil {
		log.Error("failed to write error response", "middleware", "Identity", "error", err)
	}
}

func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(model.Identity)
	return identity, ok
}
