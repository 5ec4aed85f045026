package web

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

const shutdownTimeout = 5 * time.Second

// NewRouter builds the route table wrapped with CORS.
func NewRouter(svc Service, allowedOrigins []string, logger *slog.Logger) http.Handler {
	h := NewHandlers(svc, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.HandleRoot)
	mux.HandleFunc("POST /scrap", h.HandleScrap)
	mux.HandleFunc("POST /simplify", h.HandleSimplify)
	mux.HandleFunc("POST /chat", h.HandleChat)
	mux.HandleFunc("POST /text-completion", h.HandleTextCompletion)

	return cors(allowedOrigins, mux)
}

// NewServer creates the HTTP server.
func NewServer(addr string, svc Service, allowedOrigins []string, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(svc, allowedOrigins, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// cors allows listed origins plus any browser extension when the list
// carries the "chrome-extension://*" wildcard. Preflight requests are
// answered directly.
func cors(allowedOrigins []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && originAllowed(allowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func originAllowed(allowed []string, origin string) bool {
	for _, a := range allowed {
		switch {
		case a == "*":
			return true
		case a == origin:
			return true
		case a == "chrome-extension://*" && strings.HasPrefix(origin, "chrome-extension://"):
			return true
		}
	}
	return false
}

// Run starts the server and shuts it down gracefully on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("listening", "addr", srv.Addr)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
