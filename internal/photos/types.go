package photos

import "github.com/khoward/photos-g-org/internal/filter"

// Album is a remote collection of media items.
type Album struct {
	ID                    string `json:"id"`
	Title                 string `json:"title"`
	ProductURL            string `json:"productUrl,omitempty"`
	MediaItemsCount       string `json:"mediaItemsCount,omitempty"`
	IsWriteable           bool   `json:"isWriteable,omitempty"`
	CoverPhotoBaseURL     string `json:"coverPhotoBaseUrl,omitempty"`
	CoverPhotoMediaItemID string `json:"coverPhotoMediaItemId,omitempty"`
}

// MediaItem is a remote media object. Its ID is opaque and never parsed.
type MediaItem struct {
	ID       string `json:"id"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

type listAlbumsResponse struct {
	Albums        []Album `json:"albums"`
	NextPageToken string  `json:"nextPageToken"`
}

type createAlbumRequest struct {
	Album struct {
		Title string `json:"title"`
	} `json:"album"`
}

type searchRequest struct {
	AlbumID   string                `json:"albumId,omitempty"`
	PageSize  int                   `json:"pageSize"`
	PageToken string                `json:"pageToken,omitempty"`
	Filters   *filter.SearchFilters `json:"filters,omitempty"`
}

type searchResponse struct {
	MediaItems    []MediaItem `json:"mediaItems"`
	NextPageToken string      `json:"nextPageToken"`
}

type batchAddRequest struct {
	MediaItemIDs []string `json:"mediaItemIds"`
}
