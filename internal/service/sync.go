package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/receptar-app/backend/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrSyncRunning is returned when a sync is triggered while one is already
// in flight.
var ErrSyncRunning = errors.New("catalog sync already running")

// syncStatusKey is where the running sync publishes its counters.
const syncStatusKey = "catalog:sync:status"

// Scanner buffer sizes. Dump lines are JSON objects that can run into
// megabytes for heavily-annotated products.
const (
	scanInitialBuffer = 1 << 20
	scanMaxBuffer     = 16 << 20
)

// SyncOptions configures one catalog sync run.
type SyncOptions struct {
	BatchSize     int
	TargetLang    string
	FallbackLang  string
	StrictRegion  bool
	RegionTag     string
	ProgressEvery int
}

// SyncResult carries the counters of a finished (or failed) run.
type SyncResult struct {
	Processed int `json:"processed"`
	Saved     int `json:"saved"`
}

// SyncStatus is the externally visible state of the sync job.
type SyncStatus struct {
	Running    bool       `json:"running"`
	Processed  int        `json:"processed"`
	Saved      int        `json:"saved"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// SyncService streams the remote product dump into the local catalog. One
// run is a single sequential consumer: a batch is flushed and awaited before
// the next chunk of input is read, so peak memory stays at one batch of
// rows.
type SyncService struct {
	catalog *CatalogService
	redis   *redis.Client
	log     *zap.Logger
	client  *resty.Client
	dumpURL string

	mu        sync.Mutex
	running   bool
	startedAt time.Time
}

// NewSyncService creates a new SyncService instance. The HTTP client fails
// fast on a dead transport: bounded dial and response-header timeouts
// instead of an overall request timeout, which would kill a legitimate
// multi-hour download.
func NewSyncService(catalog *CatalogService, redisClient *redis.Client, log *zap.Logger, dumpURL string) *SyncService {
	client := resty.New().
		SetRetryCount(0).
		SetDoNotParseResponse(true).
		SetTransport(&http.Transport{
			DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
			ResponseHeaderTimeout: 60 * time.Second,
			IdleConnTimeout:       90 * time.Second,
		})

	return &SyncService{
		catalog: catalog,
		redis:   redisClient,
		log:     log,
		client:  client,
		dumpURL: dumpURL,
	}
}

// Run executes one full catalog sync against the configured dump URL.
// Transport and decompression failures are fatal for the run and returned
// with whatever counts accumulated; the operation is idempotent, so the
// caller may simply re-run it.
func (s *SyncService) Run(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	if !s.tryStart() {
		return SyncResult{}, ErrSyncRunning
	}

	startedAt := s.startTime()
	s.publishStatus(ctx, SyncStatus{Running: true, StartedAt: startedAt})

	result, err := s.runLocked(ctx, opts)

	finishedAt := time.Now()
	status := SyncStatus{
		Processed:  result.Processed,
		Saved:      result.Saved,
		StartedAt:  startedAt,
		FinishedAt: &finishedAt,
	}
	if err != nil {
		status.Error = err.Error()
		s.log.Error("catalog sync failed",
			zap.Int("processed", result.Processed),
			zap.Int("saved", result.Saved),
			zap.Error(err))
	} else {
		s.log.Info("catalog sync finished",
			zap.Int("processed", result.Processed),
			zap.Int("saved", result.Saved),
			zap.Duration("took", finishedAt.Sub(startedAt)))
	}
	// The run's context may already be canceled; the final status still
	// needs to land.
	s.publishStatus(context.Background(), status)
	s.finish()

	return result, err
}

func (s *SyncService) runLocked(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	s.log.Info("starting catalog sync", zap.String("url", s.dumpURL))

	resp, err := s.client.R().SetContext(ctx).Get(s.dumpURL)
	if err != nil {
		return SyncResult{}, fmt.Errorf("fetching dump: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return SyncResult{}, fmt.Errorf("fetching dump: unexpected status %d", resp.StatusCode())
	}

	gz, err := gzip.NewReader(body)
	if err != nil {
		return SyncResult{}, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	return s.syncStream(ctx, gz, opts)
}

// syncStream consumes one line-delimited record stream. It never buffers
// the whole input: lines are parsed one at a time and rows accumulate in a
// single batch that is flushed, and the flush awaited, before reading
// continues.
func (s *SyncService) syncStream(ctx context.Context, r io.Reader, opts SyncOptions) (SyncResult, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 2000
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 10000
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, scanInitialBuffer), scanMaxBuffer)

	var result SyncResult
	batch := make([]model.FoodProduct, 0, opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.catalog.BatchUpsert(ctx, batch); err != nil {
			return err
		}
		result.Saved += len(batch)
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			// Every flushed batch is atomic and idempotent, so stopping
			// mid-run just leaves the catalog partially refreshed.
			return result, ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		result.Processed++

		if product, ok := mapProduct(line, opts); ok {
			batch = append(batch, *product)
			if len(batch) >= opts.BatchSize {
				if err := flush(); err != nil {
					return result, err
				}
			}
		}

		if result.Processed%opts.ProgressEvery == 0 {
			s.log.Info("catalog sync progress",
				zap.Int("processed", result.Processed),
				zap.Int("saved", result.Saved))
			s.publishStatus(ctx, s.progressStatus(result))
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("reading dump stream: %w", err)
	}

	if err := flush(); err != nil {
		return result, err
	}
	return result, nil
}

// Status reads the last published sync status. Returns nil when no sync
// has ever run.
func (s *SyncService) Status(ctx context.Context) (*SyncStatus, error) {
	if s.redis == nil {
		return nil, nil
	}
	data, err := s.redis.Get(ctx, syncStatusKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sync status: %w", err)
	}
	var status SyncStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("decoding sync status: %w", err)
	}
	return &status, nil
}

// Running reports whether a sync is currently in flight in this process.
func (s *SyncService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *SyncService) tryStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.startedAt = time.Now()
	return true
}

func (s *SyncService) startTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// progressStatus builds the mid-run status record. It keeps the run's start
// time so consumers can compute elapsed time from any update.
func (s *SyncService) progressStatus(result SyncResult) SyncStatus {
	return SyncStatus{
		Running:   true,
		Processed: result.Processed,
		Saved:     result.Saved,
		StartedAt: s.startTime(),
	}
}

func (s *SyncService) finish() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *SyncService) publishStatus(ctx context.Context, status SyncStatus) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(status)
	if err != nil {
		return
	}
	// Status is advisory; a cache hiccup must not fail the sync.
	if err := s.redis.Set(ctx, syncStatusKey, data, 0).Err(); err != nil {
		s.log.Warn("publishing sync status", zap.Error(err))
	}
}
