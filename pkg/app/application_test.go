package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"caravan/pkg/client"
	"caravan/pkg/config"
	"caravan/pkg/logger"
	"caravan/pkg/middleware"
	"caravan/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const testSecret = "app-test-secret"

type echoHandler struct{}

func (echoHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/participants", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		identity, _ := middleware.IdentityFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"user_id":"` + identity.UserID + `"}}`))
	})
}

func newTestApplication() *Application {
	cfg := &config.Config{
		Port:              "0",
		IdentitySecret:    testSecret,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1024,
		ReadTimeout:       time.Second,
		WriteTimeout:      time.Second,
		IdleTimeout:       time.Second,
		ShutdownTimeout:   time.Second,
		Log:               logger.Discard(),
		Client:            client.NewClient(),
	}
	a := NewApplication(cfg)
	a.SetApp(echoHandler{})
	return a
}

func signed(req *http.Request, identity model.Identity) *http.Request {
	req.Header.Set(middleware.HeaderUserID, identity.UserID)
	req.Header.Set(middleware.HeaderUserRole, string(identity.Role))
	req.Header.Set(middleware.HeaderIdentitySignature, middleware.SignIdentity(identity, testSecret))
	return req
}

func TestApplication_MiddlewareChain(t *testing.T) {
	a := newTestApplication()
	defer a.idempotencyStore.Stop()
	defer a.rateLimiter.Stop()
	user := model.Identity{UserID: "u-1", Role: model.RoleUser}

	tests := []struct {
		name       string
		request    func() *http.Request
		wantStatus int
	}{
		{
			name: "verified caller",
			request: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/participants", strings.NewReader(`{}`))
				req.Header.Set("Content-Type", "application/json")
				return signed(req, user)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "missing identity",
			request: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/participants", strings.NewReader(`{}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "wrong content type",
			request: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/participants", strings.NewReader(`{}`))
				req.Header.Set("Content-Type", "text/plain")
				return signed(req, user)
			},
			wantStatus: http.StatusUnsupportedMediaType,
		},
		{
			name: "unknown route",
			request: func() *http.Request {
				return signed(httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil), user)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "health needs no identity",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/health", nil)
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			a.Handler().ServeHTTP(w, tt.request())
			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if w.Header().Get(middleware.RequestIDHeader) == "" {
				t.Error("expected a request id header")
			}
		})
	}
}
