package router_test

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MegaGrindStone/gemini-web-ui/internal/handlers"
	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
	"github.com/MegaGrindStone/gemini-web-ui/internal/router"
)

type echoLLM struct{}

func (echoLLM) Chat(_ context.Context, message string, _ []models.Exchange) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield(message, nil)
	}
}

func newHandler(t *testing.T, creds *router.Credentials) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := handlers.NewMain(echoLLM{}, handlers.Page{Title: "Gemini Chat"}, logger)
	if err != nil {
		t.Fatalf("NewMain() error = %v", err)
	}
	h, err := router.New(m, creds, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return h
}

type request struct {
	method string
	path   string
	body   string
	user   string
	pass   string
	auth   bool
}

func (r request) do(h http.Handler) *httptest.ResponseRecorder {
	var body io.Reader
	if r.body != "" {
		body = strings.NewReader(r.body)
	}
	req := httptest.NewRequest(r.method, r.path, body)
	if r.auth {
		req.SetBasicAuth(r.user, r.pass)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRoutesWithoutAuth(t *testing.T) {
	h := newHandler(t, nil)

	tests := []struct {
		name       string
		req        request
		wantStatus int
		wantBody   string
	}{
		{
			name:       "home",
			req:        request{method: http.MethodGet, path: "/"},
			wantStatus: http.StatusOK,
			wantBody:   "Gemini Chat",
		},
		{
			name:       "health",
			req:        request{method: http.MethodGet, path: "/healthz"},
			wantStatus: http.StatusOK,
			wantBody:   `"status":"ok"`,
		},
		{
			name:       "static script",
			req:        request{method: http.MethodGet, path: "/static/js/chat.js"},
			wantStatus: http.StatusOK,
			wantBody:   "readEvents",
		},
		{
			name:       "chat stream",
			req:        request{method: http.MethodPost, path: "/chat", body: `{"message":"ping"}`},
			wantStatus: http.StatusOK,
			wantBody:   "ping",
		},
		{
			name:       "chat wrong method",
			req:        request{method: http.MethodGet, path: "/chat"},
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "unknown route",
			req:        request{method: http.MethodGet, path: "/missing"},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.req.do(h)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %v, want %v", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want to contain %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRoutesWithAuth(t *testing.T) {
	h := newHandler(t, &router.Credentials{Username: "alice", Password: "s3cret"})

	tests := []struct {
		name       string
		req        request
		wantStatus int
	}{
		{
			name:       "home without credentials",
			req:        request{method: http.MethodGet, path: "/"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "home with wrong password",
			req:        request{method: http.MethodGet, path: "/", auth: true, user: "alice", pass: "nope"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "home with wrong user",
			req:        request{method: http.MethodGet, path: "/", auth: true, user: "bob", pass: "s3cret"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "home with credentials",
			req:        request{method: http.MethodGet, path: "/", auth: true, user: "alice", pass: "s3cret"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "chat without credentials",
			req:        request{method: http.MethodPost, path: "/chat", body: `{"message":"ping"}`},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "chat with credentials",
			req: request{
				method: http.MethodPost, path: "/chat", body: `{"message":"ping"}`,
				auth: true, user: "alice", pass: "s3cret",
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "static without credentials",
			req:        request{method: http.MethodGet, path: "/static/css/style.css"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "health stays open",
			req:        request{method: http.MethodGet, path: "/healthz"},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tt.req.do(h)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %v, want %v", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
		})
	}
}
