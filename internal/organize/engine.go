package organize

import (
	"context"
	"log/slog"
	"sync"
)

// Engine applies item-id sets to albums in concurrent, size-bounded batches.
type Engine struct {
	library Library
	logger  *slog.Logger
}

// NewEngine creates an Engine over the given remote library.
func NewEngine(library Library, logger *slog.Logger) *Engine {
	return &Engine{
		library: library,
		logger:  logger.With(slog.String("component", "organize-engine")),
	}
}

// Run is one in-flight apply. Progress snapshots stream on Progress(); once
// the channel closes, Result() holds the final counts.
type Run struct {
	progress chan Progress
	done     chan struct{}
	result   Result
}

// Progress returns the stream of cumulative progress snapshots. The channel
// is buffered for the whole run, so slow consumers never block workers, and
// is closed when the run finishes.
func (r *Run) Progress() <-chan Progress {
	return r.progress
}

// Result blocks until the run finishes and returns the final counts.
func (r *Run) Result() Result {
	<-r.done
	return r.result
}

// Apply starts adding itemIDs to the album. When opts.SkipExisting is set,
// the album membership is fetched first and already-present ids are dropped,
// preserving the relative order of itemIDs; that fetch is the only failure
// mode of Apply itself. Per-batch failures during the run are logged,
// excluded from the applied total, and never abort sibling batches.
func (e *Engine) Apply(ctx context.Context, albumID string, itemIDs []string, opts Options) (*Run, error) {
	opts = opts.withDefaults()

	ids := itemIDs
	if opts.SkipExisting {
		existing, err := e.library.ListAlbumItems(ctx, albumID)
		if err != nil {
			return nil, err
		}
		ids = difference(itemIDs, existing)
	}

	batches := partition(ids, opts.BatchSize)

	run := &Run{
		// One slot per batch plus the empty-input signal.
		progress: make(chan Progress, len(batches)+1),
		done:     make(chan struct{}),
	}

	// Nothing to do is a success, reported as a single terminal (0, 0)
	// snapshot so callers can tell it apart from a silent run.
	if len(ids) == 0 {
		run.progress <- Progress{}
		close(run.progress)
		close(run.done)
		return run, nil
	}

	run.result.Target = len(ids)
	go e.submit(ctx, albumID, batches, len(ids), opts.Workers, run)
	return run, nil
}

func (e *Engine) submit(ctx context.Context, albumID string, batches [][]string, total, workers int, run *Run) {
	jobs := make(chan int)
	workers = min(workers, len(batches))

	var wg sync.WaitGroup
	var mu sync.Mutex // guards applied/failed and orders progress sends

	applied := 0
	failed := 0

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				batch := batches[i]
				if err := e.library.BatchAdd(ctx, albumID, batch); err != nil {
					e.logger.Warn("batch add failed",
						slog.Int("batch", i),
						slog.Int("size", len(batch)),
						"error", err,
					)
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}

				mu.Lock()
				applied += len(batch)
				// Buffered for every batch; never blocks while locked.
				run.progress <- Progress{Applied: applied, Total: total}
				mu.Unlock()
			}
		}()
	}

	for i := range batches {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	run.result.Applied = applied
	run.result.FailedBatches = failed
	close(run.progress)
	close(run.done)
}

// partition splits ids into consecutive slices of at most size, preserving
// order within and across batches.
func partition(ids []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end])
	}
	return batches
}

// difference returns the members of ids not present in existing, in the
// original order of ids.
func difference(ids, existing []string) []string {
	present := make(map[string]bool, len(existing))
	for _, id := range existing {
		present[id] = true
	}

	var out []string
	for _, id := range ids {
		if !present[id] {
			out = append(out, id)
		}
	}
	return out
}
