package router

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	geminiwebui "github.com/MegaGrindStone/gemini-web-ui"
	"github.com/MegaGrindStone/gemini-web-ui/internal/handlers"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Credentials is a username/password pair required by HTTP basic authentication.
type Credentials struct {
	Username string
	Password string
}

const authRealm = "gemini-web-ui"

// New builds the HTTP handler for the chat application. When creds is not nil, every route except the
// health check requires exactly those credentials.
func New(m handlers.Main, creds *Credentials, logger *slog.Logger) (http.Handler, error) {
	staticFS, err := fs.Sub(geminiwebui.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static assets: %w", err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		if creds != nil {
			r.Use(chimiddleware.BasicAuth(authRealm, map[string]string{
				creds.Username: creds.Password,
			}))
		}

		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
		r.Get("/", m.HandleHome)
		r.Post("/chat", m.HandleChat)
	})

	return r, nil
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("module", "http"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Info("Request served",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", ww.Status()),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
					slog.String("requestID", chimiddleware.GetReqID(r.Context())),
					slog.String("remoteAddr", r.RemoteAddr))
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
