package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/minigit/pkg/access"
)

// readHeaderTimeout is the timeout for reading request headers.
const readHeaderTimeout = 10 * time.Second

// shutdownTimeout is the timeout for graceful server shutdown.
const shutdownTimeout = 5 * time.Second

// realm is announced in Basic authentication challenges.
const realm = "minigit"

// API represents the HTTP server of minigit.
type API struct {
	Addr        string
	hasHandlers bool
	router      chi.Router
	server      HTTPServer // Optional injected server for testing
}

// Option configures an API.
type Option func(*options)

type options struct {
	server      HTTPServer
	middlewares []func(http.Handler) http.Handler
}

// WithServer injects the server used by Start.
func WithServer(server HTTPServer) Option {
	return func(o *options) {
		o.server = server
	}
}

// WithMiddlewares adds middleware applied to every route.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, mw...)
	}
}

// New is a factory function creating a new API instance listening on addr.
func New(addr string, opts ...Option) *API {
	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(LoggingMiddleware)

	for _, mw := range cfg.middlewares {
		router.Use(mw)
	}

	logrus.WithField("addr", addr).Debug("Initialized new API instance")

	return &API{
		Addr:   addr,
		router: router,
		server: cfg.server,
	}
}

// RegisterFunc registers an HTTP handler function for the given pattern.
func (a *API) RegisterFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	a.router.HandleFunc(pattern, handler)
	a.hasHandlers = true
}

// RegisterHandler registers an HTTP handler for the given pattern.
func (a *API) RegisterHandler(pattern string, handler http.Handler) {
	a.router.Handle(pattern, handler)
	a.hasHandlers = true
}

// Mount attaches a sub-router under pattern.
func (a *API) Mount(pattern string, handler http.Handler) {
	a.router.Mount(pattern, handler)
	a.hasHandlers = true
}

// Handler returns the router serving every registered route.
func (a *API) Handler() http.Handler {
	return a.router
}

// Start starts the HTTP server.
// If blocking is true, it runs in the foreground until ctx is cancelled.
// If blocking is false, it runs in the background and shuts down when ctx is cancelled.
func (a *API) Start(ctx context.Context, blocking bool) error {
	if !a.hasHandlers {
		logrus.Info("No handlers registered, skipping API start")

		return nil
	}

	server := a.server
	if server == nil {
		server = &http.Server{
			Addr:              a.Addr,
			Handler:           a.router,
			ReadHeaderTimeout: readHeaderTimeout,
			BaseContext:       func(_ net.Listener) context.Context { return ctx },
		}
	}

	logrus.WithField("addr", a.Addr).Info("Starting HTTP server")

	if blocking {
		return RunHTTPServer(ctx, server)
	}

	go func() {
		if err := RunHTTPServer(ctx, server); err != nil {
			logrus.WithError(err).Error("HTTP server failed")
		}
	}()

	return nil
}

// RequireBasicAuth returns middleware enforcing HTTP Basic authentication.
// Requests to the open paths skip the check. The authenticated user is stored
// in the request context with access.WithPrincipal.
//
// Parameters:
//   - user: Expected user name.
//   - pass: Expected password.
//   - open: Paths served without authentication.
//
// Returns:
//   - func(http.Handler) http.Handler: Middleware.
func RequireBasicAuth(user, pass string, open ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(open, r.URL.Path) {
				next.ServeHTTP(w, r)

				return
			}

			gotUser, gotPass, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(gotUser), []byte(user)) != 1 ||
				subtle.ConstantTimeCompare([]byte(gotPass), []byte(pass)) != 1 {
				logrus.WithFields(logrus.Fields{
					"path":      r.URL.Path,
					"client_ip": access.ClientAddress(r),
				}).Debug("Rejected unauthenticated request")

				w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`", charset="UTF-8"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)

				return
			}

			next.ServeHTTP(w, r.WithContext(access.WithPrincipal(r.Context(), gotUser)))
		})
	}
}

// LoggingMiddleware logs HTTP requests at debug level.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start),
		}).Debug("Handled HTTP request")
	})
}

// HTTPServer interface for RunHTTPServer.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// RunHTTPServer starts the HTTP server and shuts it down gracefully when ctx is cancelled.
func RunHTTPServer(ctx context.Context, server HTTPServer) error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		return nil
	}
}
