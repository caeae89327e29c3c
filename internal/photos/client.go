// Package photos is a client for the Google Photos Library API, covering the
// album and media-item operations the organize engine needs.
package photos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/khoward/photos-g-org/internal/filter"
)

const defaultBaseURL = "https://photoslibrary.googleapis.com/v1"

// Remote service limits.
const (
	// BatchLimit is the maximum number of item ids per batch-add call.
	BatchLimit = 50
	// MaxAlbumSize is the maximum number of items the remote service allows
	// in one album. Enforced server-side; documented here for callers.
	MaxAlbumSize = 20000

	albumPageSize  = 50
	searchPageSize = 100
)

// Client communicates with the Photos Library API. The supplied HTTP client
// must carry OAuth credentials (see Authenticator).
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates a Client using the given authenticated HTTP client.
func New(httpClient *http.Client, logger *slog.Logger) *Client {
	return NewWithBaseURL(httpClient, defaultBaseURL, logger)
}

// NewWithBaseURL creates a Client against a custom API endpoint (for testing).
func NewWithBaseURL(httpClient *http.Client, baseURL string, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		// 10 req/s with a small burst keeps bulk jobs under the
		// per-project quota without slowing small ones.
		limiter: rate.NewLimiter(rate.Limit(10), 5),
		logger:  logger.With(slog.String("component", "photos-client")),
	}
}

// ListAlbums returns all albums, following pagination to the end.
func (c *Client) ListAlbums(ctx context.Context) ([]Album, error) {
	var albums []Album
	pageToken := ""
	pages := 0

	for {
		q := url.Values{"pageSize": {fmt.Sprint(albumPageSize)}}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var resp listAlbumsResponse
		if err := c.get(ctx, "/albums?"+q.Encode(), &resp); err != nil {
			return nil, pagedErr(err, "listing albums", pages)
		}
		pages++

		albums = append(albums, resp.Albums...)
		pageToken = resp.NextPageToken
		if pageToken == "" {
			return albums, nil
		}
	}
}

// CreateAlbum creates a new album and returns it.
func (c *Client) CreateAlbum(ctx context.Context, title string) (Album, error) {
	var req createAlbumRequest
	req.Album.Title = title

	var album Album
	if err := c.post(ctx, "/albums", req, &album); err != nil {
		return Album{}, fmt.Errorf("creating album: %w", err)
	}
	return album, nil
}

// GetOrCreateAlbum resolves an album by exact title match, creating it when
// no existing album matches. Title comparison is case-sensitive.
func (c *Client) GetOrCreateAlbum(ctx context.Context, title string) (string, error) {
	albums, err := c.ListAlbums(ctx)
	if err != nil {
		return "", err
	}
	for _, a := range albums {
		if a.Title == title {
			return a.ID, nil
		}
	}

	album, err := c.CreateAlbum(ctx, title)
	if err != nil {
		return "", err
	}
	c.logger.Info("album created", slog.String("title", title), slog.String("id", album.ID))
	return album.ID, nil
}

// SearchMediaItems returns all items matching the compiled filters, following
// pagination to the end. After each page, progress (if non-nil) receives the
// cumulative item count. Any page failure aborts the whole search.
func (c *Client) SearchMediaItems(ctx context.Context, filters *filter.SearchFilters, progress func(found int)) ([]MediaItem, error) {
	req := searchRequest{PageSize: searchPageSize, Filters: filters}

	var items []MediaItem
	pages := 0
	for {
		var resp searchResponse
		if err := c.post(ctx, "/mediaItems:search", req, &resp); err != nil {
			return nil, pagedErr(err, "searching media items", pages)
		}
		pages++

		items = append(items, resp.MediaItems...)
		if progress != nil {
			progress(len(items))
		}

		req.PageToken = resp.NextPageToken
		if req.PageToken == "" {
			return items, nil
		}
	}
}

// ListAlbumItems returns the ids of every item in an album, in album order.
func (c *Client) ListAlbumItems(ctx context.Context, albumID string) ([]string, error) {
	req := searchRequest{AlbumID: albumID, PageSize: searchPageSize}

	var ids []string
	pages := 0
	for {
		var resp searchResponse
		if err := c.post(ctx, "/mediaItems:search", req, &resp); err != nil {
			return nil, pagedErr(err, "listing album items", pages)
		}
		pages++

		for _, item := range resp.MediaItems {
			ids = append(ids, item.ID)
		}

		req.PageToken = resp.NextPageToken
		if req.PageToken == "" {
			return ids, nil
		}
	}
}

// BatchAdd adds up to BatchLimit item ids to an album in one call. Order
// within the batch is preserved in the request body.
func (c *Client) BatchAdd(ctx context.Context, albumID string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	if len(itemIDs) > BatchLimit {
		return fmt.Errorf("batch of %d exceeds remote limit of %d", len(itemIDs), BatchLimit)
	}

	path := "/albums/" + url.PathEscape(albumID) + ":batchAddMediaItems"
	if err := c.post(ctx, path, batchAddRequest{MediaItemIDs: itemIDs}, nil); err != nil {
		return fmt.Errorf("adding batch to album: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &RemoteError{Op: method + " " + path, Err: err}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return &AuthError{Reason: fmt.Sprintf("remote returned status %d", resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		// Response bodies can carry remote error detail; log, never return.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Warn("remote call failed",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("detail", string(detail)),
		)
		return &RemoteError{Op: method + " " + path, StatusCode: resp.StatusCode}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return &RemoteError{Op: method + " " + path, Err: fmt.Errorf("decoding response: %w", err)}
		}
	}
	return nil
}

// pagedErr annotates a page-fetch failure with the page count reached.
func pagedErr(err error, op string, pages int) error {
	var re *RemoteError
	if errors.As(err, &re) {
		re.Op = op
		re.Pages = pages
		return err
	}
	return fmt.Errorf("%s (after %d pages): %w", op, pages, err)
}
