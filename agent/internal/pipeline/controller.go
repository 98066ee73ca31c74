package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/glimpsebox/glimpse/agent/internal/capture"
	"github.com/glimpsebox/glimpse/agent/internal/config"
	"github.com/glimpsebox/glimpse/agent/internal/identity"
	"github.com/glimpsebox/glimpse/agent/internal/permission"
	"github.com/glimpsebox/glimpse/agent/internal/retry"
	"github.com/glimpsebox/glimpse/agent/internal/store"
	"github.com/glimpsebox/glimpse/agent/internal/uploader"
)

// purgeInterval is how often the optional artifact purge pass runs.
const purgeInterval = 1 * time.Hour

// Controller owns the capture-buffer-upload pipeline: the capture schedule,
// the on-disk artifact buffer, the per-artifact upload tasks, and the retry
// queue that redelivers recoverable failures. One Controller is built at
// process start and driven by the shell (tray menu, CLI flags) through
// Start/Stop/CaptureNow/Status.
type Controller struct {
	mu      sync.Mutex
	cfg     config.AgentConfig
	running bool
	cancel  context.CancelFunc

	source capture.Source
	gate   func() permission.Status
	ident  identity.Source
	store  *store.Store
	up     *uploader.Uploader
	queue  *retry.Queue

	now func() time.Time
}

// Status is a point-in-time snapshot of the pipeline, consumed by the tray
// menu and the -check CLI mode.
type Status struct {
	Running            bool          `json:"running"`
	CaptureInterval    time.Duration `json:"captureInterval"`
	StorageDir         string        `json:"storageDir"`
	ArtifactCount      int           `json:"artifactCount"`
	EndpointConfigured bool          `json:"endpointConfigured"`
	QueueDepth         int           `json:"queueDepth"`
	Permission         string        `json:"permission"`
}

// New builds a Controller from cfg using the platform screen backend.
// The controller is idle until Start is called.
func New(cfg config.AgentConfig) *Controller {
	c := &Controller{
		cfg:    cfg,
		source: capture.ScreenSource{},
		gate:   permission.Check,
		ident:  identity.File{Path: cfg.IdentityFile},
		store:  store.New(cfg.StorageDir),
		up:     uploader.New(),
		queue:  retry.New(),
		now:    time.Now,
	}
	c.up.SetTarget(cfg.CollectorEndpoint, cfg.Token())
	return c
}

// Start launches the capture and retry-scan loops. Calling Start on a
// running pipeline logs and returns.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		slog.Info("pipeline: already running")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.running = true
	cfg := c.cfg
	c.mu.Unlock()

	if err := c.store.EnsureDir(); err != nil {
		slog.Error("pipeline: storage directory unavailable",
			"dir", c.store.Dir(), "err", err)
	}

	slog.Info("pipeline: started",
		"capture_interval", cfg.CaptureInterval,
		"retry_scan_interval", cfg.RetryScanInterval,
		"storage_dir", c.store.Dir())

	go c.captureLoop(ctx, cfg.CaptureInterval)
	go c.retryLoop(ctx, cfg.RetryScanInterval)
	if cfg.MaxArtifactAge > 0 {
		go c.purgeLoop(ctx, cfg.MaxArtifactAge)
	}
}

// Stop cancels both periodic loops. An attempt already in flight finishes
// and applies its outcome; queued retries keep their schedule and drain
// again after the next Start. Calling Stop on an idle pipeline logs and
// returns.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		slog.Info("pipeline: not running")
		return
	}
	c.cancel()
	c.cancel = nil
	c.running = false
	slog.Info("pipeline: stopped")
}

// CaptureNow runs one capture pass immediately, outside the schedule, and
// returns the artifacts it produced. Works whether or not the pipeline is
// running.
func (c *Controller) CaptureNow(ctx context.Context) []capture.Artifact {
	return c.captureTick(ctx)
}

// Configure live-replaces the collector target and delete behavior. The
// change applies from the next delivery attempt; queued tasks keep their
// schedule.
func (c *Controller) Configure(endpoint, token string, deleteAfterUpload bool) {
	c.mu.Lock()
	c.cfg.CollectorEndpoint = endpoint
	c.cfg.DeleteAfterUpload = deleteAfterUpload
	c.mu.Unlock()
	c.up.SetTarget(endpoint, token)
	slog.Info("pipeline: reconfigured",
		"endpoint_configured", endpoint != "",
		"delete_after_upload", deleteAfterUpload)
}

// ApplyConfig adopts a reloaded config file. The collector target, retry
// policy, and delete behavior apply immediately; interval and storage
// changes need a restart of the loops and are logged when skipped.
func (c *Controller) ApplyConfig(a config.AgentConfig) {
	c.mu.Lock()
	old := c.cfg
	running := c.running
	c.cfg = a
	c.mu.Unlock()

	c.up.SetTarget(a.CollectorEndpoint, a.Token())

	if running && (old.CaptureInterval != a.CaptureInterval ||
		old.RetryScanInterval != a.RetryScanInterval ||
		old.StorageDir != a.StorageDir ||
		old.MaxArtifactAge != a.MaxArtifactAge) {
		slog.Warn("pipeline: interval and storage changes apply after restart")
	}
}

// TestConnection probes the collector's health endpoint. A nil return means
// the collector answered 2xx within the probe timeout.
func (c *Controller) TestConnection(ctx context.Context) error {
	return c.up.TestConnection(ctx)
}

// Status returns a snapshot of the pipeline state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	running := c.running
	cfg := c.cfg
	c.mu.Unlock()

	_, configured := c.up.Target()
	return Status{
		Running:            running,
		CaptureInterval:    cfg.CaptureInterval,
		StorageDir:         c.store.Dir(),
		ArtifactCount:      c.store.Count(),
		EndpointConfigured: configured,
		QueueDepth:         c.queue.Len(),
		Permission:         c.gate().String(),
	}
}

// captureLoop fires one immediate tick, then one per interval until ctx is
// cancelled. A tick that outlives the interval delays the next one rather
// than overlapping it; the ticker drops missed fires.
func (c *Controller) captureLoop(ctx context.Context, interval time.Duration) {
	c.captureTick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.captureTick(ctx)
		}
	}
}

// retryLoop scans the queue for due tasks once per interval.
func (c *Controller) retryLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.retryScan(ctx)
		}
	}
}

// purgeLoop deletes buffered artifacts older than maxAge once per hour.
// Only started when max_artifact_age is configured.
func (c *Controller) purgeLoop(ctx context.Context, maxAge time.Duration) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.store.PurgeOlderThan(maxAge)
			if err != nil {
				slog.Warn("pipeline: purge failed", "err", err)
				continue
			}
			if n > 0 {
				slog.Info("pipeline: purged stale artifacts",
					"count", n, "max_age", maxAge)
			}
		}
	}
}

// captureTick captures every display once, persists the images, then runs a
// first delivery attempt per artifact in display order. Any per-display
// failure is logged and that display skipped; the tick never aborts the
// schedule.
func (c *Controller) captureTick(ctx context.Context) []capture.Artifact {
	if st := c.gate(); !st.Allowed() {
		slog.Warn("pipeline: capture permission not granted, attempting anyway",
			"status", st.String())
	}

	displays, err := c.source.Displays(ctx)
	if err != nil {
		slog.Error("pipeline: display enumeration failed", "err", err)
		return nil
	}
	if len(displays) == 0 {
		slog.Debug("pipeline: no displays to capture")
		return nil
	}

	if err := c.store.EnsureDir(); err != nil {
		slog.Error("pipeline: storage directory unavailable",
			"dir", c.store.Dir(), "err", err)
		return nil
	}

	ident := c.ident.Identity()
	at := c.now().UTC()

	var artifacts []capture.Artifact
	var tasks []*uploader.Task
	for _, d := range displays {
		img, err := c.source.Capture(ctx, d)
		if err != nil {
			slog.Error("pipeline: capture failed",
				"display", d.Index, "name", d.Name, "err", err)
			continue
		}

		fitted := capture.Fit(img, capture.MaxWidth, capture.MaxHeight)
		data, err := capture.EncodePNG(fitted)
		if err != nil {
			slog.Error("pipeline: encode failed", "display", d.Index, "err", err)
			continue
		}

		path, err := c.store.Write(store.FileName(d.Index, at), data)
		if err != nil {
			slog.Error("pipeline: write failed", "display", d.Index, "err", err)
			continue
		}

		b := fitted.Bounds()
		art := capture.Artifact{
			DisplayIndex: d.Index,
			DisplayID:    d.ID,
			DisplayName:  d.Name,
			CapturedAt:   at,
			Width:        b.Dx(),
			Height:       b.Dy(),
			FilePath:     path,
		}
		artifacts = append(artifacts, art)
		tasks = append(tasks, &uploader.Task{
			Artifact:     art,
			AccountEmail: ident.AccountEmail,
			SubjectName:  ident.SubjectName,
		})
	}

	for _, task := range tasks {
		c.dispatch(ctx, task)
	}

	if len(artifacts) > 0 {
		slog.Debug("pipeline: capture tick complete", "artifacts", len(artifacts))
	}
	return artifacts
}

// retryScan redelivers every task whose backoff has elapsed.
func (c *Controller) retryScan(ctx context.Context) {
	due := c.queue.Due(c.now())
	if len(due) == 0 {
		return
	}
	slog.Debug("pipeline: retrying due uploads", "count", len(due))
	for _, task := range due {
		c.dispatch(ctx, task)
	}
}

// dispatch runs one delivery attempt for task and applies the outcome:
// delete the artifact on success, requeue with backoff on recoverable
// failure, abandon once the retry budget is spent. Rate limiting requeues
// without consuming budget.
func (c *Controller) dispatch(ctx context.Context, task *uploader.Task) {
	out := c.up.Attempt(ctx, task)

	c.mu.Lock()
	cfg := c.cfg
	c.mu.Unlock()

	switch out.Status {
	case uploader.Delivered:
		if cfg.DeleteAfterUpload {
			if err := c.store.Delete(task.Artifact.FilePath); err != nil {
				slog.Warn("pipeline: delete after upload failed",
					"file", task.Artifact.FilePath, "err", err)
			}
		}
		slog.Info("pipeline: capture delivered",
			"display", task.Artifact.DisplayIndex,
			"file", task.Artifact.FilePath)

	case uploader.RateLimited:
		delay := out.RetryAfter
		if delay <= 0 {
			delay = retry.Backoff(cfg.BaseBackoff, cfg.MaxBackoff, task.RetryCount)
		}
		task.NextRetry = c.now().Add(delay)
		c.queue.Upsert(task)
		slog.Warn("pipeline: collector rate limited, retry scheduled",
			"file", task.Artifact.FilePath,
			"delay", delay,
			"retry_count", task.RetryCount)

	case uploader.Failed:
		if !out.Retryable {
			slog.Error("pipeline: dropping undeliverable capture",
				"file", task.Artifact.FilePath, "err", out.Err)
			return
		}
		if task.RetryCount >= cfg.MaxRetries {
			slog.Error("pipeline: retries exhausted, keeping artifact on disk",
				"file", task.Artifact.FilePath,
				"attempts", task.RetryCount+1,
				"err", out.Err)
			return
		}
		delay := retry.Backoff(cfg.BaseBackoff, cfg.MaxBackoff, task.RetryCount)
		task.RetryCount++
		task.NextRetry = c.now().Add(delay)
		c.queue.Upsert(task)
		slog.Warn("pipeline: upload failed, retry scheduled",
			"file", task.Artifact.FilePath,
			"retry_count", task.RetryCount,
			"delay", delay,
			"err", out.Err)

	case uploader.Skipped:
		// No endpoint configured. The artifact stays buffered on disk;
		// no retry is scheduled.
	}
}
