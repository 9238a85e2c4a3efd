package videos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidfriends/linkresolver/internal/resolver"
)

// ArchiveStorage persists archived provider responses.
type ArchiveStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// ArchiverConfig controls the concurrency characteristics of the archiver.
type ArchiverConfig struct {
	QueueSize int
	Workers   int
	Prefix    string
}

// ArchivedResponse is the document written for each unresolved response.
type ArchivedResponse struct {
	ID         string        `json:"id"`
	VideoURL   string        `json:"videoUrl"`
	ReceivedAt time.Time     `json:"receivedAt"`
	Response   resolver.Node `json:"response"`
}

// ResponseArchiver asynchronously uploads provider responses that yielded no
// download link so new response shapes can be studied later.
type ResponseArchiver struct {
	storage ArchiveStorage
	prefix  string
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	jobs   chan ArchivedResponse
	wg     sync.WaitGroup
	once   sync.Once
}

// NewResponseArchiver starts a worker pool writing to storage.
func NewResponseArchiver(storage ArchiveStorage, cfg ArchiverConfig, logger *slog.Logger) *ResponseArchiver {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &ResponseArchiver{
		storage: storage,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		logger:  logger,
		now:     time.Now,
		jobs:    make(chan ArchivedResponse, cfg.QueueSize),
	}

	a.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go a.worker()
	}

	return a
}

// Offer schedules an upload without waiting; a full queue drops the response.
func (a *ResponseArchiver) Offer(videoURL string, raw resolver.Node) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return errArchiverClosed
	}

	select {
	case a.jobs <- a.newJob(videoURL, raw):
		return nil
	default:
		return ErrArchiveFull
	}
}

// Hook adapts the archiver to the resolver's unresolved-response callback.
func (a *ResponseArchiver) Hook() resolver.UnresolvedHook {
	return func(ctx context.Context, videoURL string, raw resolver.Node) {
		if err := a.Offer(videoURL, raw); err != nil {
			a.logger.Warn("skip archiving unresolved response", "url", videoURL, "error", err)
		}
	}
}

// Shutdown waits for the worker pool to drain outstanding uploads.
func (a *ResponseArchiver) Shutdown(ctx context.Context) error {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.jobs)
		a.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (a *ResponseArchiver) newJob(videoURL string, raw resolver.Node) ArchivedResponse {
	return ArchivedResponse{
		ID:         uuid.NewString(),
		VideoURL:   videoURL,
		ReceivedAt: a.now().UTC(),
		Response:   raw,
	}
}

func (a *ResponseArchiver) worker() {
	defer a.wg.Done()

	// Queued jobs are drained after Shutdown closes the queue.
	for job := range a.jobs {
		a.handleJob(job)
	}
}

func (a *ResponseArchiver) handleJob(job ArchivedResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	location, err := a.save(ctx, job)
	if err != nil {
		a.logger.Error("archive unresolved response", "id", job.ID, "url", job.VideoURL, "error", err)
		return
	}
	a.logger.Info("archived unresolved response", "id", job.ID, "location", location)
}

func (a *ResponseArchiver) save(ctx context.Context, job ArchivedResponse) (string, error) {
	if a.storage == nil {
		return "", ErrArchiveStorageUnavailable
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(job); err != nil {
		return "", fmt.Errorf("encode archived response: %w", err)
	}
	return a.storage.Save(ctx, ArchiveKey(a.prefix, job), &buf)
}

// ArchiveKey names the object for job: <prefix>/<yyyy-mm-dd>/<id>.json.
func ArchiveKey(prefix string, job ArchivedResponse) string {
	return path.Join(prefix, job.ReceivedAt.UTC().Format("2006-01-02"), job.ID+".json")
}
