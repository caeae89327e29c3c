package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/khoward/photos-g-org/internal/api/middleware"
	"github.com/khoward/photos-g-org/internal/event"
	"github.com/khoward/photos-g-org/internal/filter"
	"github.com/khoward/photos-g-org/internal/organize"
	"github.com/khoward/photos-g-org/internal/photos"
	"github.com/khoward/photos-g-org/internal/version"
)

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleYears(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"years": filter.AvailableYears(),
	})
}

func (r *Router) handleFilterOptions(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"media_types": []string{filter.MediaTypeAll, filter.MediaTypePhoto, filter.MediaTypeVideo},
		"categories":  filter.Categories,
	})
}

// Key management never leaves the machine: only loopback clients may read or
// rotate the API key.
func (r *Router) handleGetKey(w http.ResponseWriter, req *http.Request) {
	if !r.requireLoopback(w, req) {
		return
	}

	key, err := r.keyring.GetOrCreate()
	if err != nil {
		r.logger.Error("retrieving API key", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to retrieve API key"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"api_key": key})
}

func (r *Router) handleRegenerateKey(w http.ResponseWriter, req *http.Request) {
	if !r.requireLoopback(w, req) {
		return
	}

	key, err := r.keyring.Rotate()
	if err != nil {
		r.logger.Error("rotating API key", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to regenerate API key"})
		return
	}

	if r.eventBus != nil {
		r.eventBus.Publish(event.Event{
			Type: event.KeyRotated,
			Data: map[string]any{"client": middleware.ClientIP(req)},
		})
	}
	writeJSON(w, http.StatusOK, map[string]string{"api_key": key})
}

func (r *Router) handleGetConfig(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"configured":       r.settings.Configured(),
		"credentials_file": r.settings.CredentialsFilename(),
	})
}

func (r *Router) handleSetConfig(w http.ResponseWriter, req *http.Request) {
	var body struct {
		CredentialsPath string `json:"credentials_path"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := r.settings.SetCredentialsPath(body.CredentialsPath); err != nil {
		// Validation messages are path-free and safe to return.
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	r.logger.Info("credentials path updated",
		slog.String("file", r.settings.CredentialsFilename()),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"configured":       r.settings.Configured(),
		"credentials_file": r.settings.CredentialsFilename(),
	})
}

func (r *Router) handleListAlbums(w http.ResponseWriter, req *http.Request) {
	lib, err := r.library(req.Context())
	if err != nil {
		r.writeLibraryError(w, err, "opening library")
		return
	}

	albums, err := lib.ListAlbums(req.Context())
	if err != nil {
		r.writeLibraryError(w, err, "listing albums")
		return
	}

	out := make([]map[string]string, 0, len(albums))
	for _, a := range albums {
		out = append(out, map[string]string{"id": a.ID, "title": a.Title})
	}
	writeJSON(w, http.StatusOK, map[string]any{"albums": out})
}

type organizeRequest struct {
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
	Year          int      `json:"year"`
	MediaType     string   `json:"media_type"`
	Categories    []string `json:"categories"`
	FavoritesOnly bool     `json:"favorites_only"`
	AlbumID       string   `json:"album_id"`
	AlbumName     string   `json:"album_name"`
	// Pointer so an omitted field is distinguishable from an explicit
	// false: duplicate avoidance is on unless the caller turns it off.
	SkipExisting *bool `json:"skip_existing"`
}

func (r *Router) handleOrganize(w http.ResponseWriter, req *http.Request) {
	var body organizeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	f, target, opts, err := buildJob(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	lib, err := r.library(req.Context())
	if err != nil {
		r.writeLibraryError(w, err, "opening library")
		return
	}

	desc, err := r.tracker.Start(lib, f, target, opts)
	if err != nil {
		if errors.Is(err, organize.ErrJobRunning) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "a job is already running"})
			return
		}
		r.logger.Error("starting organize job", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to start job"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Organization started",
		"filter":  desc,
	})
}

// buildJob validates the request and assembles the filter, target, and
// options for a job. All validation happens here, before any remote call.
func buildJob(body organizeRequest) (filter.Filter, organize.Target, organize.Options, error) {
	var f filter.Filter
	var target organize.Target
	var opts organize.Options

	if body.Year == 0 && body.StartDate == "" && body.EndDate == "" {
		return f, target, opts, &filter.ValidationError{
			Message: "either year or a date range is required",
		}
	}

	start, err := filter.ParseDate("start_date", body.StartDate)
	if err != nil {
		return f, target, opts, err
	}
	end, err := filter.ParseDate("end_date", body.EndDate)
	if err != nil {
		return f, target, opts, err
	}
	mediaType, err := filter.ValidateMediaType(body.MediaType)
	if err != nil {
		return f, target, opts, err
	}
	categories, err := filter.ValidateCategories(body.Categories)
	if err != nil {
		return f, target, opts, err
	}

	f = filter.Filter{
		StartDate:     start,
		EndDate:       end,
		Year:          body.Year,
		MediaType:     mediaType,
		Categories:    categories,
		FavoritesOnly: body.FavoritesOnly,
	}
	if err := f.Validate(); err != nil {
		return f, target, opts, err
	}

	if body.AlbumID == "" {
		if err := filter.ValidateAlbumName(body.AlbumName); err != nil {
			return f, target, opts, err
		}
	}
	target = organize.Target{AlbumID: body.AlbumID, AlbumName: body.AlbumName}
	opts = organize.Options{SkipExisting: body.SkipExisting == nil || *body.SkipExisting}
	return f, target, opts, nil
}

func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.tracker.Snapshot())
}

// writeLibraryError maps remote library failures to responses. Detail stays
// in the log.
func (r *Router) writeLibraryError(w http.ResponseWriter, err error, op string) {
	var authErr *photos.AuthError
	if errors.As(err, &authErr) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error": "not authorized with the photo service, check credentials",
		})
		return
	}
	r.logger.Error(op, "error", err)
	writeJSON(w, http.StatusBadGateway, map[string]string{"error": "photo service request failed"})
}

// requireLoopback rejects requests that do not originate from the local
// machine. It reads the connection's remote address, not forwarding headers,
// which are spoofable.
func (r *Router) requireLoopback(w http.ResponseWriter, req *http.Request) bool {
	ip, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		ip = req.RemoteAddr
	}
	parsed := net.ParseIP(ip)
	if parsed == nil || !parsed.IsLoopback() {
		r.logger.Warn("key endpoint rejected", slog.String("client", ip))
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "key management is only available locally"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
