// Package scheduler runs download batches: it enumerates a remote folder
// tree, fans the image files out to a bounded worker pool, and reconciles
// every result with the persistent download state and the batch's virtual
// album.
package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/framefeed/framefeed/internal/cache"
	"github.com/framefeed/framefeed/internal/config"
	"github.com/framefeed/framefeed/internal/diskspace"
	"github.com/framefeed/framefeed/internal/events"
	"github.com/framefeed/framefeed/internal/logging"
	"github.com/framefeed/framefeed/internal/models"
	"github.com/framefeed/framefeed/internal/remotefs"
	"github.com/framefeed/framefeed/internal/state"
)

var (
	// ErrBatchActive is returned by Start while a previous batch is running.
	ErrBatchActive = errors.New("a download batch is already running")
	// ErrNotDirectory is returned when the start target is a plain file.
	ErrNotDirectory = errors.New("download root must be a directory")

	errEmptyFile = errors.New("remote file is empty")
	errNotImage  = errors.New("remote file is not a valid image")
)

// BrowserFactory selects a remote filesystem backend for a server.
// *remotefs.Factory satisfies it; tests substitute fakes.
type BrowserFactory interface {
	ForServer(server models.NetworkServer) remotefs.Browser
}

// AlbumSink is the album-side collaborator: one virtual album per batch,
// populated photo by photo, plus the flat library ingest.
type AlbumSink interface {
	CreateOrAttach(id, name string) (models.VirtualAlbum, error)
	AppendPhoto(albumID, uri string) error
	AddPhotos(items []models.MediaItem, mode models.AddMode) error
}

// Scheduler coordinates one download batch at a time.
type Scheduler struct {
	cfg     config.DownloadConfig
	factory BrowserFactory
	cache   cache.Cache
	albums  AlbumSink
	store   *state.Store
	bus     *events.Bus
	log     *logging.Logger

	mu        sync.Mutex
	running   bool
	cancelled bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a scheduler. The store carries any state persisted by a
// previous run; call Continue to pick that work back up.
func New(cfg config.DownloadConfig, factory BrowserFactory, c cache.Cache, albums AlbumSink, store *state.Store, bus *events.Bus, log *logging.Logger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		factory: factory,
		cache:   c,
		albums:  albums,
		store:   store,
		bus:     bus,
		log:     log,
	}
}

// Start enumerates the folder tree under root, records a fresh batch in the
// state store, and launches the worker pool. It returns once the workers are
// running; callers observe completion through Wait or the event bus. The
// returned album is created empty (or reattached) before any download runs.
func (s *Scheduler) Start(ctx context.Context, root models.NetworkResource) (models.VirtualAlbum, int, error) {
	if !root.IsDirectory {
		return models.VirtualAlbum{}, 0, ErrNotDirectory
	}

	if err := s.reserve(); err != nil {
		return models.VirtualAlbum{}, 0, err
	}

	albumID := models.StableID(root.Server.ID, root.Path)
	album, err := s.albums.CreateOrAttach(albumID, albumName(root))
	if err != nil {
		s.release()
		return models.VirtualAlbum{}, 0, fmt.Errorf("failed to create album: %w", err)
	}

	result, err := s.Enumerate(ctx, root)
	if err != nil {
		s.release()
		return models.VirtualAlbum{}, 0, fmt.Errorf("failed to scan %q: %w", root.Path, err)
	}
	s.log.Infof("scan of %q found %d images (%d folders unreadable)",
		root.Path, len(result.Images), len(result.FailedDirs))

	var totalBytes int64
	for _, res := range result.Images {
		totalBytes += res.Size
	}
	probe := filepath.Join(s.cache.Path(), "probe")
	if err := diskspace.CheckAvailableSpace(probe, totalBytes, 1.1); err != nil {
		s.release()
		return models.VirtualAlbum{}, 0, err
	}

	if err := s.store.BeginBatch(albumID, result.Images); err != nil {
		s.release()
		return models.VirtualAlbum{}, 0, err
	}
	if len(result.Images) == 0 {
		s.release()
		if err := s.store.FinishBatch(); err != nil {
			return models.VirtualAlbum{}, 0, err
		}
		return album, 0, nil
	}

	s.launch(ctx, albumID, result.Images)
	return album, len(result.Images), nil
}

// Continue resumes the persisted batch: every pending or in-flight entry is
// re-enqueued. A no-op when nothing is resumable.
func (s *Scheduler) Continue(ctx context.Context) (int, error) {
	if err := s.reserve(); err != nil {
		return 0, err
	}

	remaining, err := s.store.Requeue()
	if err != nil {
		s.release()
		return 0, err
	}
	albumID := s.store.ActiveAlbumID()
	if len(remaining) == 0 || albumID == "" {
		s.release()
		s.log.Info().Msg("no interrupted downloads to resume")
		return 0, nil
	}

	resources := make([]models.NetworkResource, 0, len(remaining))
	for _, e := range remaining {
		resources = append(resources, e.Resource)
	}
	if _, err := s.albums.CreateOrAttach(albumID, albumName(resources[0])); err != nil {
		s.release()
		return 0, fmt.Errorf("failed to reattach album: %w", err)
	}

	s.log.Infof("resuming %d downloads", len(resources))
	s.launch(ctx, albumID, resources)
	return len(resources), nil
}

// Cancel aborts the running batch, waits for the workers to stop, and wipes
// the persisted state so nothing resumes later. Safe to call with no batch
// running, and safe to call twice.
func (s *Scheduler) Cancel() error {
	s.mu.Lock()
	s.cancelled = true
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	return s.store.Clear()
}

// Wait blocks until the current batch finishes. Returns immediately when no
// batch is running.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether a batch is in flight.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// reserve claims the single batch slot before any batch setup runs, so a
// second Start or Continue fails with ErrBatchActive even while the first
// is still enumerating. release gives the slot back on setup failure;
// finish gives it back after the workers exit.
func (s *Scheduler) reserve() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrBatchActive
	}
	s.running = true
	return nil
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// launch starts the worker pool over the given resources. Concurrency is
// capped at cfg.Concurrency workers pulling from one shared queue.
func (s *Scheduler) launch(parent context.Context, albumID string, resources []models.NetworkResource) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	s.mu.Lock()
	s.cancelled = false
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	queue := NewQueue(len(resources))
	for _, res := range resources {
		if queue.Enqueue(res) {
			s.bus.Publish(&events.DownloadEvent{
				BaseEvent:  events.NewBaseEvent(events.EventDownloadQueued),
				ResourceID: res.ID(),
				Name:       res.Name,
				Size:       res.Size,
				AlbumID:    albumID,
			})
		}
	}
	queue.Close()

	workers := s.cfg.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(resources) {
		workers = len(resources)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				res, ok := queue.Next(ctx)
				if !ok {
					return
				}
				s.process(ctx, albumID, res)
			}
		}()
	}

	go func() {
		wg.Wait()
		s.finish(ctx, albumID, cancel, done)
	}()
}

// finish closes out the batch after the last worker exits. Cancellation
// skips the completion bookkeeping; Cancel owns the cleanup in that case.
func (s *Scheduler) finish(ctx context.Context, albumID string, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()

	s.mu.Lock()
	s.running = false
	s.cancel = nil
	s.done = nil
	wasCancelled := s.cancelled
	s.mu.Unlock()

	if wasCancelled || ctx.Err() != nil {
		s.log.Info().Msg("download batch cancelled")
		return
	}

	progress := s.store.Progress()
	if !progress.IsActive {
		if err := s.store.FinishBatch(); err != nil {
			s.log.Errorf("failed to finalize batch state: %v", err)
		}
	}
	s.bus.Publish(&events.ProgressEvent{
		BaseEvent: events.NewBaseEvent(events.EventBatchCompleted),
		AlbumID:   albumID,
		Progress:  s.store.Progress(),
	})
	s.log.Infof("download batch finished: %d completed, %d failed of %d",
		progress.Completed, progress.Failed, progress.Total)
}

// process downloads a single resource and records the terminal outcome.
func (s *Scheduler) process(ctx context.Context, albumID string, res models.NetworkResource) {
	id := res.ID()

	if err := s.store.Transition(id, models.StatusDownloading); err != nil {
		s.log.Warnf("skipping %s: %v", res.Name, err)
		return
	}
	s.bus.Publish(&events.DownloadEvent{
		BaseEvent:  events.NewBaseEvent(events.EventDownloadStarted),
		ResourceID: id,
		Name:       res.Name,
		Size:       res.Size,
		AlbumID:    albumID,
	})

	uri, err := s.fetch(ctx, res)
	if err != nil {
		if ctx.Err() != nil {
			// Leave the entry in Downloading; a resume re-queues it.
			return
		}
		s.fail(albumID, res, err)
		return
	}

	if err := s.albums.AppendPhoto(albumID, uri); err != nil {
		s.fail(albumID, res, fmt.Errorf("failed to record photo in album: %w", err))
		return
	}
	item := models.MediaItem{ID: id, URI: uri, Name: res.Name, AddedAt: time.Now()}
	if err := s.albums.AddPhotos([]models.MediaItem{item}, models.AddModeMerge); err != nil {
		s.log.Warnf("library ingest for %s failed: %v", res.Name, err)
	}

	if err := s.store.Transition(id, models.StatusCompleted); err != nil {
		s.log.Errorf("failed to mark %s completed: %v", res.Name, err)
		return
	}
	s.bus.Publish(&events.DownloadEvent{
		BaseEvent:  events.NewBaseEvent(events.EventDownloadCompleted),
		ResourceID: id,
		Name:       res.Name,
		Size:       res.Size,
		AlbumID:    albumID,
	})
	s.bus.Publish(&events.AlbumEvent{
		BaseEvent: events.NewBaseEvent(events.EventAlbumUpdated),
		AlbumID:   albumID,
	})
	s.bus.PublishProgress(albumID, s.store.Progress())
}

func (s *Scheduler) fail(albumID string, res models.NetworkResource, cause error) {
	s.log.Warnf("download of %s failed: %v", res.Name, cause)
	if err := s.store.Transition(res.ID(), models.StatusFailed); err != nil {
		s.log.Errorf("failed to mark %s failed: %v", res.Name, err)
		return
	}
	s.bus.Publish(&events.DownloadEvent{
		BaseEvent:  events.NewBaseEvent(events.EventDownloadFailed),
		ResourceID: res.ID(),
		Name:       res.Name,
		Size:       res.Size,
		AlbumID:    albumID,
		Error:      cause,
	})
	s.bus.PublishProgress(albumID, s.store.Progress())
}

// fetch retrieves one resource with linear-backoff retries. Permanent
// failures (auth, not-found, empty file, non-image content) are not retried.
func (s *Scheduler) fetch(ctx context.Context, res models.NetworkResource) (string, error) {
	browser := s.factory.ForServer(res.Server)

	var lastErr error
	for attempt := 0; attempt <= s.cfg.Retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * s.cfg.BackoffStep
			s.log.Debugf("retrying %s in %s (attempt %d of %d)",
				res.Name, backoff, attempt+1, s.cfg.Retries+1)
			s.bus.Publish(&events.DownloadEvent{
				BaseEvent:  events.NewBaseEvent(events.EventDownloadRetrying),
				ResourceID: res.ID(),
				Name:       res.Name,
				Size:       res.Size,
				Attempt:    attempt,
				Error:      lastErr,
			})
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		uri, err := s.attempt(ctx, browser, res)
		if err == nil {
			return uri, nil
		}
		lastErr = err
		if isPermanent(err) || ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

// attempt performs a single open-validate-store cycle.
func (s *Scheduler) attempt(ctx context.Context, browser remotefs.Browser, res models.NetworkResource) (string, error) {
	rc, _, err := browser.Open(ctx, res)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	// Sniff the first block before committing anything to the cache.
	// Emptiness is judged from the stream, not the reported size: index
	// pages and headerless responses often report 0 for real files.
	header := make([]byte, 512)
	n, err := io.ReadFull(rc, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		if err == io.EOF {
			return "", errEmptyFile
		}
		return "", fmt.Errorf("failed to read %s: %w", res.Name, err)
	}
	contentType := http.DetectContentType(header[:n])
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: detected %s", errNotImage, contentType)
	}

	body := io.MultiReader(bytes.NewReader(header[:n]), rc)
	uri, err := s.cache.Put(body, res.ID(), res.Ext())
	if err != nil {
		return "", fmt.Errorf("failed to cache %s: %w", res.Name, err)
	}
	return uri, nil
}

// isPermanent reports whether retrying the download could not help.
func isPermanent(err error) bool {
	if errors.Is(err, errEmptyFile) || errors.Is(err, errNotImage) {
		return true
	}
	var berr *remotefs.BrowseError
	if errors.As(err, &berr) {
		return berr.Permanent()
	}
	return false
}

// albumName derives a display name for the batch's album from the folder.
func albumName(root models.NetworkResource) string {
	if root.Name != "" {
		return root.Name
	}
	if base := path.Base(strings.Trim(root.Path, "/")); base != "" && base != "." {
		return base
	}
	return root.Server.Name
}
