package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quizly-backend/internal/handlers"
	"quizly-backend/internal/middleware"
)

func newTestRouter() http.Handler {
	jwt := middleware.NewJWTAuth("secret", 10*time.Minute, 24*time.Hour)
	return New(
		jwt,
		handlers.NewAuthHandler(nil, true, 10*time.Minute),
		handlers.NewQuizHandler(nil, nil),
		func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) },
		"http://localhost:5173",
		Limits{AuthPerMinute: 10, QuizCreatePerMinute: 5},
	)
}

func TestHealth(t *testing.T) {
	r := newTestRouter()

	for _, path := range []string{"/health", "/api/v1/health"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK || rr.Body.String() != `{"status":"ok"}` {
			t.Fatalf("%s: got %d %q", path, rr.Code, rr.Body.String())
		}
	}
}

func TestQuizRoutesRequireAuth(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/quizzes/"},
		{http.MethodGet, "/api/v1/quizzes/"},
		{http.MethodGet, "/api/v1/quizzes/6f1c1f5e-8a52-4d47-9f6e-1f0a3b2c4d5e"},
		{http.MethodPatch, "/api/v1/quizzes/6f1c1f5e-8a52-4d47-9f6e-1f0a3b2c4d5e"},
		{http.MethodDelete, "/api/v1/quizzes/6f1c1f5e-8a52-4d47-9f6e-1f0a3b2c4d5e"},
		{http.MethodPost, "/api/v1/auth/logout"},
	}

	for _, tc := range tests {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, rr.Code)
		}
	}
}

func TestWebSocketRouteIsMounted(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected ws handler to be reached, got %d", rr.Code)
	}
}
