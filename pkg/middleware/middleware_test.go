package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"caravan/pkg/logger"
	"caravan/pkg/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-identity-secret"

func identityEcho(t *testing.T, got *model.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		*got = identity
		w.WriteHeader(http.StatusOK)
	})
}

func signedRequest(identity model.Identity, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/participants", nil)
	req.Header.Set(HeaderUserID, identity.UserID)
	req.Header.Set(HeaderUserRole, string(identity.Role))
	req.Header.Set(HeaderUserName, identity.Name)
	req.Header.Set(HeaderUserEmail, identity.Email)
	req.Header.Set(HeaderIdentitySignature, "sha256="+SignIdentity(identity, secret))
	return req
}

func TestIdentity(t *testing.T) {
	admin := model.Identity{UserID: "u-1", Role: model.RoleAdmin, Name: "Rina", Email: "rina@example.com"}

	tests := []struct {
		name       string
		request    func() *http.Request
		wantStatus int
		wantRole   model.Role
	}{
		{
			name:       "valid admin",
			request:    func() *http.Request { return signedRequest(admin, testSecret) },
			wantStatus: http.StatusOK,
			wantRole:   model.RoleAdmin,
		},
		{
			name: "role defaults to user",
			request: func() *http.Request {
				identity := model.Identity{UserID: "u-2", Role: model.RoleUser}
				req := signedRequest(identity, testSecret)
				req.Header.Del(HeaderUserRole)
				return req
			},
			wantStatus: http.StatusOK,
			wantRole:   model.RoleUser,
		},
		{
			name: "signature without prefix",
			request: func() *http.Request {
				req := signedRequest(admin, testSecret)
				req.Header.Set(HeaderIdentitySignature, SignIdentity(admin, testSecret))
				return req
			},
			wantStatus: http.StatusOK,
			wantRole:   model.RoleAdmin,
		},
		{
			name:       "wrong secret",
			request:    func() *http.Request { return signedRequest(admin, "other") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "role escalation",
			request: func() *http.Request {
				req := signedRequest(model.Identity{UserID: "u-1", Role: model.RoleUser}, testSecret)
				req.Header.Set(HeaderUserRole, string(model.RoleAdmin))
				return req
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "unknown role",
			request: func() *http.Request {
				return signedRequest(model.Identity{UserID: "u-1", Role: "owner"}, testSecret)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "missing signature",
			request: func() *http.Request {
				req := signedRequest(admin, testSecret)
				req.Header.Del(HeaderIdentitySignature)
				return req
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing user",
			request:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/", nil) },
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got model.Identity
			handler := Identity(testSecret, logger.Discard())(identityEcho(t, &got))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, tt.request())

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantRole, got.Role)
			}
		})
	}
}

func TestIdentity_EmptySecretRejectsEverything(t *testing.T) {
	forged := model.Identity{UserID: "attacker", Role: model.RoleAdmin}

	reached := false
	handler := Identity("", logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, signedRequest(forged, ""))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, reached)
}

func TestIdempotency_ReplaysSuccessfulWrite(t *testing.T) {
	store := NewCacheIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls atomic.Int32
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"call":` + string(rune('0'+n)) + `}}`))
	})
	handler := Idempotency(store, "")(next)

	send := func(identity model.Identity, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/participants", strings.NewReader(`{}`))
		req.Header.Set(DefaultIdempotencyHeader, key)
		req = req.WithContext(WithIdentity(req.Context(), identity))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	user := model.Identity{UserID: "u-1", Role: model.RoleUser}
	first := send(user, "abc")
	second := send(user, "abc")

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))

	other := send(model.Identity{UserID: "u-2", Role: model.RoleUser}, "abc")
	assert.Equal(t, int32(2), calls.Load())
	assert.Empty(t, other.Header().Get("Idempotent-Replayed"))
}

func TestIdempotency_SkipsFailuresAndReads(t *testing.T) {
	store := NewCacheIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls atomic.Int32
	status := http.StatusConflict
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(status)
	})
	handler := Idempotency(store, DefaultIdempotencyHeader)(next)

	for _, method := range []string{http.MethodPost, http.MethodPost, http.MethodGet, http.MethodGet} {
		req := httptest.NewRequest(method, "/api/v1/participants", nil)
		req.Header.Set(DefaultIdempotencyHeader, "same")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		status = http.StatusOK
	}

	assert.Equal(t, int32(4), calls.Load())
}

func TestUserRateLimit(t *testing.T) {
	limiter := NewUserRateLimiter(2, time.Minute, nil, logger.Discard())
	defer limiter.Stop()

	handler := UserRateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/participants", nil)
		req = req.WithContext(WithIdentity(req.Context(), model.Identity{UserID: userID, Role: model.RoleUser}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
		}
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("u-1"))
	assert.Equal(t, http.StatusOK, send("u-1"))
	assert.Equal(t, http.StatusTooManyRequests, send("u-1"))
	assert.Equal(t, http.StatusOK, send("u-2"))
}

func TestDefaultKeyExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "addr:10.0.0.7", DefaultKeyExtractor(req))

	req = req.WithContext(WithIdentity(req.Context(), model.Identity{UserID: "u-1"}))
	assert.Equal(t, "user:u-1", DefaultKeyExtractor(req))
}

func TestRequestLogging_RequestID(t *testing.T) {
	var seen string
	handler := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	incoming := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, incoming, seen)
	assert.Equal(t, incoming, w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", seen)
}

func TestRecovery(t *testing.T) {
	handler := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestRequestTimeout(t *testing.T) {
	handler := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestContentTypeValidation(t *testing.T) {
	handler := ContentTypeValidation(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
