// Package organize implements the bulk organization engine: compiling a
// validated filter into a remote search, batching the resulting item ids into
// size-limited concurrent mutations, and tracking the single in-flight job.
package organize

import (
	"context"
	"errors"

	"github.com/khoward/photos-g-org/internal/filter"
	"github.com/khoward/photos-g-org/internal/photos"
)

// ErrJobRunning is returned when a job start is rejected because one is
// already in flight. The running job's state is left untouched.
var ErrJobRunning = errors.New("a job is already running")

// Library is the remote collection capability the engine consumes.
// *photos.Client satisfies it.
type Library interface {
	GetOrCreateAlbum(ctx context.Context, title string) (string, error)
	SearchMediaItems(ctx context.Context, filters *filter.SearchFilters, progress func(found int)) ([]photos.MediaItem, error)
	ListAlbumItems(ctx context.Context, albumID string) ([]string, error)
	BatchAdd(ctx context.Context, albumID string, itemIDs []string) error
}

// Target identifies the destination album, either directly by id or by a
// title to resolve or create.
type Target struct {
	AlbumID   string
	AlbumName string
}

// Options tune a bulk apply.
type Options struct {
	// SkipExisting filters out items already in the target album.
	SkipExisting bool
	// Workers bounds concurrent batch submissions. Defaults to 4.
	Workers int
	// BatchSize caps items per mutation call. Defaults to the remote
	// limit of 50 and may not exceed it.
	BatchSize int
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.BatchSize <= 0 || o.BatchSize > photos.BatchLimit {
		o.BatchSize = photos.BatchLimit
	}
	return o
}

// Progress is one cumulative progress snapshot from an apply run. Snapshots
// arrive in batch completion order; Applied only ever increases.
type Progress struct {
	Applied int
	Total   int
}

// Result summarizes a finished apply run.
type Result struct {
	// Applied is the number of items successfully added.
	Applied int
	// Target is the number of items the run set out to add.
	Target int
	// FailedBatches counts batches whose mutation call failed.
	FailedBatches int
}

// Snapshot is a consistent copy of the job state at one instant.
type Snapshot struct {
	ID       string `json:"id,omitempty"`
	Running  bool   `json:"running"`
	Progress int    `json:"progress"`
	Total    int    `json:"total"`
	Message  string `json:"message"`
	Filter   string `json:"filter,omitempty"`
	Error    string `json:"error,omitempty"`
}
