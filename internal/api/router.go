// Package api exposes the JSON HTTP surface consumed by the web dashboard
// and other presentation-layer clients.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/khoward/photos-g-org/internal/api/middleware"
	"github.com/khoward/photos-g-org/internal/event"
	"github.com/khoward/photos-g-org/internal/keyring"
	"github.com/khoward/photos-g-org/internal/organize"
	"github.com/khoward/photos-g-org/internal/photos"
	"github.com/khoward/photos-g-org/internal/settings"
)

// Rate limit applied to every inbound request, per client.
const (
	rateLimit  = 60
	rateWindow = 60 * time.Second
)

// Library is the remote photo library surface the API needs: everything the
// organize engine uses plus album listing.
type Library interface {
	organize.Library
	ListAlbums(ctx context.Context) ([]photos.Album, error)
}

// LibraryFactory builds an authenticated remote library. It fails with a
// photos.AuthError when authorization is missing or expired.
type LibraryFactory func(ctx context.Context) (Library, error)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	Settings *settings.Store
	Keyring  *keyring.Keyring
	Tracker  *organize.Tracker
	Library  LibraryFactory
	EventBus *event.Bus
	Logger   *slog.Logger
}

// Router sets up all HTTP routes for the application.
type Router struct {
	settings *settings.Store
	keyring  *keyring.Keyring
	tracker  *organize.Tracker
	library  LibraryFactory
	eventBus *event.Bus
	logger   *slog.Logger
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		settings: deps.Settings,
		keyring:  deps.Keyring,
		tracker:  deps.Tracker,
		library:  deps.Library,
		eventBus: deps.EventBus,
		logger:   deps.Logger,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
// ctx bounds the rate limiter's cleanup goroutine.
func (r *Router) Handler(ctx context.Context) http.Handler {
	keyMw := middleware.APIKey(r.keyring, r.logger)
	mux := http.NewServeMux()

	// Public routes (rate limited only)
	mux.HandleFunc("GET /api/health", r.handleHealth)
	mux.HandleFunc("GET /api/years", r.handleYears)
	mux.HandleFunc("GET /api/filter-options", r.handleFilterOptions)

	// Loopback-only key management
	mux.HandleFunc("GET /api/key", r.handleGetKey)
	mux.HandleFunc("POST /api/key/regenerate", r.handleRegenerateKey)

	// Key-protected routes
	mux.HandleFunc("GET /api/config", wrapKey(r.handleGetConfig, keyMw))
	mux.HandleFunc("POST /api/config", wrapKey(r.handleSetConfig, keyMw))
	mux.HandleFunc("GET /api/albums", wrapKey(r.handleListAlbums, keyMw))
	mux.HandleFunc("POST /api/organize", wrapKey(r.handleOrganize, keyMw))
	mux.HandleFunc("GET /api/status", wrapKey(r.handleStatus, keyMw))

	limiter := middleware.NewRateLimiter(ctx, rateLimit, rateWindow)

	var handler http.Handler = mux
	handler = limiter.Middleware(handler)
	handler = middleware.SecurityHeaders(handler)
	handler = middleware.Logging(r.logger)(handler)
	return handler
}

// wrapKey applies the API key middleware to a single handler func.
func wrapKey(h http.HandlerFunc, mw func(http.Handler) http.Handler) http.HandlerFunc {
	wrapped := mw(h)
	return func(w http.ResponseWriter, req *http.Request) {
		wrapped.ServeHTTP(w, req)
	}
}
