package photos

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/khoward/photos-g-org/internal/filter"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWithBaseURL(srv.Client(), srv.URL, testLogger())
}

func TestListAlbums_Pagination(t *testing.T) {
	calls := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/albums" {
			t.Errorf("path = %q, want /albums", r.URL.Path)
		}
		calls++
		switch r.URL.Query().Get("pageToken") {
		case "":
			writeResp(t, w, listAlbumsResponse{
				Albums:        []Album{{ID: "a1", Title: "One"}, {ID: "a2", Title: "Two"}},
				NextPageToken: "page2",
			})
		case "page2":
			writeResp(t, w, listAlbumsResponse{
				Albums: []Album{{ID: "a3", Title: "Three"}},
			})
		default:
			t.Errorf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	}))

	albums, err := client.ListAlbums(context.Background())
	if err != nil {
		t.Fatalf("ListAlbums() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(albums) != 3 || albums[0].ID != "a1" || albums[2].ID != "a3" {
		t.Errorf("albums = %+v", albums)
	}
}

func TestGetOrCreateAlbum_ExistingMatch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			t.Error("create called for existing album")
		}
		writeResp(t, w, listAlbumsResponse{Albums: []Album{
			{ID: "a1", Title: "Trip"},
			{ID: "a2", Title: "trip"},
		}})
	}))

	id, err := client.GetOrCreateAlbum(context.Background(), "Trip")
	if err != nil {
		t.Fatalf("GetOrCreateAlbum() error = %v", err)
	}
	// Title matching is case-sensitive.
	if id != "a1" {
		t.Errorf("id = %q, want a1", id)
	}
}

func TestGetOrCreateAlbum_CreatesWhenMissing(t *testing.T) {
	var createdTitle string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			writeResp(t, w, listAlbumsResponse{Albums: []Album{{ID: "a1", Title: "Other"}}})
			return
		}
		var req createAlbumRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding create request: %v", err)
		}
		createdTitle = req.Album.Title
		writeResp(t, w, Album{ID: "new-id", Title: req.Album.Title})
	}))

	id, err := client.GetOrCreateAlbum(context.Background(), "Trip")
	if err != nil {
		t.Fatalf("GetOrCreateAlbum() error = %v", err)
	}
	if id != "new-id" {
		t.Errorf("id = %q, want new-id", id)
	}
	if createdTitle != "Trip" {
		t.Errorf("created title = %q, want Trip", createdTitle)
	}
}

func TestSearchMediaItems_PaginationAndProgress(t *testing.T) {
	pages := [][]MediaItem{
		make([]MediaItem, 100),
		{{ID: "last-1"}, {ID: "last-2"}},
	}
	for i := range pages[0] {
		pages[0][i] = MediaItem{ID: "p0-" + string(rune('a'+i%26))}
	}

	call := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mediaItems:search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding search request: %v", err)
		}
		if req.Filters == nil || req.Filters.DateFilter == nil {
			t.Error("search request missing compiled filters")
		}

		resp := searchResponse{MediaItems: pages[call]}
		if call == 0 {
			resp.NextPageToken = "more"
		}
		call++
		writeResp(t, w, resp)
	}))

	f := filter.Filter{Year: 2023}
	var progress []int
	items, err := client.SearchMediaItems(context.Background(), f.Compile(), func(found int) {
		progress = append(progress, found)
	})
	if err != nil {
		t.Fatalf("SearchMediaItems() error = %v", err)
	}
	if len(items) != 102 {
		t.Errorf("items = %d, want 102", len(items))
	}
	if len(progress) != 2 || progress[0] != 100 || progress[1] != 102 {
		t.Errorf("progress = %v, want [100 102]", progress)
	}
}

func TestSearchMediaItems_NilFilterOmitted(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(body, &raw); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if _, present := raw["filters"]; present {
			t.Errorf("filters present in body %s, want omitted", body)
		}
		writeResp(t, w, searchResponse{})
	}))

	if _, err := client.SearchMediaItems(context.Background(), nil, nil); err != nil {
		t.Fatalf("SearchMediaItems() error = %v", err)
	}
}

func TestListAlbumItems(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.AlbumID != "a1" {
			t.Errorf("albumId = %q, want a1", req.AlbumID)
		}
		writeResp(t, w, searchResponse{MediaItems: []MediaItem{{ID: "m1"}, {ID: "m2"}}})
	}))

	ids, err := client.ListAlbumItems(context.Background(), "a1")
	if err != nil {
		t.Fatalf("ListAlbumItems() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "m1" || ids[1] != "m2" {
		t.Errorf("ids = %v", ids)
	}
}

func TestBatchAdd(t *testing.T) {
	var gotPath string
	var gotIDs []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var req batchAddRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		gotIDs = req.MediaItemIDs
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	}))

	if err := client.BatchAdd(context.Background(), "a1", []string{"m1", "m2"}); err != nil {
		t.Fatalf("BatchAdd() error = %v", err)
	}
	if gotPath != "/albums/a1:batchAddMediaItems" {
		t.Errorf("path = %q", gotPath)
	}
	if len(gotIDs) != 2 || gotIDs[0] != "m1" {
		t.Errorf("ids = %v", gotIDs)
	}
}

func TestBatchAdd_EmptyIsNoop(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("remote called for empty batch")
	}))
	if err := client.BatchAdd(context.Background(), "a1", nil); err != nil {
		t.Fatalf("BatchAdd() error = %v", err)
	}
}

func TestBatchAdd_OverLimitRejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("remote called for oversized batch")
	}))
	ids := make([]string, BatchLimit+1)
	if err := client.BatchAdd(context.Background(), "a1", ids); err == nil {
		t.Fatal("oversized batch accepted")
	}
}

func TestDo_AuthError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.ListAlbums(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v (%T), want *AuthError", err, err)
	}
}

func TestDo_RemoteErrorCarriesStatusAndPages(t *testing.T) {
	call := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call++
		if call == 1 {
			writeResp(t, w, listAlbumsResponse{NextPageToken: "p2"})
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"backend unavailable"}}`))
	}))

	_, err := client.ListAlbums(context.Background())
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("error = %v (%T), want *RemoteError", err, err)
	}
	if remoteErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", remoteErr.StatusCode)
	}
	if remoteErr.Pages != 1 {
		t.Errorf("Pages = %d, want 1", remoteErr.Pages)
	}
	if remoteErr.Op != "listing albums" {
		t.Errorf("Op = %q", remoteErr.Op)
	}
}

func writeResp(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encoding response: %v", err)
	}
}
