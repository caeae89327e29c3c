package organize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/khoward/photos-g-org/internal/event"
	"github.com/khoward/photos-g-org/internal/filter"
	"github.com/khoward/photos-g-org/internal/photos"
)

// Tracker owns the single process-wide organize job. At most one job runs at
// a time; its state is readable at any moment as a consistent snapshot.
type Tracker struct {
	logger   *slog.Logger
	eventBus *event.Bus
	defaults Options

	mu    sync.Mutex
	state Snapshot
}

// NewTracker creates a Tracker in the idle state. defaults supply the worker
// count and batch size for jobs that do not override them.
func NewTracker(defaults Options, logger *slog.Logger) *Tracker {
	return &Tracker{
		logger:   logger.With(slog.String("component", "organize-tracker")),
		defaults: defaults.withDefaults(),
	}
}

// SetEventBus sets the bus for publishing job lifecycle events.
func (t *Tracker) SetEventBus(bus *event.Bus) {
	t.eventBus = bus
}

// Snapshot returns a consistent copy of the current job state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start begins an organize job: search the library with the filter, then add
// every match to the target album. Rejected with ErrJobRunning while a job is
// in flight, leaving the running job's state untouched. The filter must
// already be validated. Execution happens on a background goroutine; callers
// observe it via Snapshot.
func (t *Tracker) Start(library Library, f filter.Filter, target Target, opts Options) (string, error) {
	desc := f.Describe()

	t.mu.Lock()
	if t.state.Running {
		t.mu.Unlock()
		return "", ErrJobRunning
	}
	t.state = Snapshot{
		ID:      uuid.New().String(),
		Running: true,
		Message: "Starting...",
		Filter:  desc,
	}
	jobID := t.state.ID
	t.mu.Unlock()

	if opts.Workers <= 0 {
		opts.Workers = t.defaults.Workers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = t.defaults.BatchSize
	}

	t.publish(event.OrganizeStarted, map[string]any{
		"job_id": jobID,
		"filter": desc,
	})

	// A started job runs to completion or failure; there is no cancel.
	go t.run(context.Background(), library, f, target, opts, desc)

	return desc, nil
}

func (t *Tracker) run(ctx context.Context, library Library, f filter.Filter, target Target, opts Options, desc string) {
	status := "failed"
	defer func() {
		snap := t.Snapshot()
		t.publish(event.OrganizeCompleted, map[string]any{
			"job_id":  snap.ID,
			"status":  status,
			"applied": snap.Progress,
			"total":   snap.Total,
			"filter":  desc,
		})
	}()

	t.setState(func(s *Snapshot) {
		s.Message = "Finding or creating album..."
	})

	albumID := target.AlbumID
	if albumID == "" {
		id, err := library.GetOrCreateAlbum(ctx, target.AlbumName)
		if err != nil {
			t.fail(err, "resolving album")
			return
		}
		albumID = id
	}

	t.setState(func(s *Snapshot) {
		s.Message = fmt.Sprintf("Searching for items (%s)...", desc)
	})

	items, err := library.SearchMediaItems(ctx, f.Compile(), func(found int) {
		t.setState(func(s *Snapshot) {
			s.Message = fmt.Sprintf("Found %d items (%s)...", found, desc)
		})
	})
	if err != nil {
		t.fail(err, "searching items")
		return
	}

	itemIDs := make([]string, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
	}

	if len(itemIDs) == 0 {
		status = "completed"
		t.setState(func(s *Snapshot) {
			s.Running = false
			s.Message = fmt.Sprintf("No items found matching filter (%s)", desc)
		})
		return
	}

	t.setState(func(s *Snapshot) {
		s.Total = len(itemIDs)
		s.Message = fmt.Sprintf("Adding %d items to album...", len(itemIDs))
	})

	engine := NewEngine(library, t.logger)
	run, err := engine.Apply(ctx, albumID, itemIDs, opts)
	if err != nil {
		t.fail(err, "preparing batches")
		return
	}

	for p := range run.Progress() {
		t.setState(func(s *Snapshot) {
			s.Progress = p.Applied
			s.Total = p.Total
			s.Message = fmt.Sprintf("Added %d/%d items...", p.Applied, p.Total)
		})
	}

	result := run.Result()
	status = "completed"
	t.setState(func(s *Snapshot) {
		s.Running = false
		s.Progress = result.Applied
		s.Total = result.Target
		if result.Applied < result.Target {
			// Partial completion is reported as such, never as full
			// success.
			s.Message = fmt.Sprintf("Added %d of %d items (%d batches failed)",
				result.Applied, result.Target, result.FailedBatches)
		} else if result.Target == 0 {
			s.Message = "All matching items are already in the album"
		} else {
			s.Message = fmt.Sprintf("Done. Added %d items to album.", result.Applied)
		}
	})

	t.logger.Info("organize job finished",
		slog.Int("applied", result.Applied),
		slog.Int("target", result.Target),
		slog.Int("failed_batches", result.FailedBatches),
	)
}

// fail moves the job to a terminal error state. Detail goes to the log; the
// snapshot carries only a generic message, except for authorization problems
// which callers need to distinguish.
func (t *Tracker) fail(err error, op string) {
	t.logger.Error("organize job failed", slog.String("op", op), "error", err)

	msg := "Organization failed"
	var authErr *photos.AuthError
	if errors.As(err, &authErr) {
		msg = "Authorization required"
	}

	t.setState(func(s *Snapshot) {
		s.Running = false
		s.Error = msg
		s.Message = "Error: " + msg
	})
}

func (t *Tracker) setState(mutate func(*Snapshot)) {
	t.mu.Lock()
	mutate(&t.state)
	t.mu.Unlock()
}

func (t *Tracker) publish(typ event.Type, data map[string]any) {
	if t.eventBus == nil {
		return
	}
	t.eventBus.Publish(event.Event{Type: typ, Data: data})
}
