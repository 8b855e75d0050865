// Package updater owns the background update worker. It drives the task
// registry, change detector, and download/install pipeline on a timer and
// exposes start, advisory stop, and force-check controls.
package updater

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/releasehound/releasehound/pkg/detector"
	"github.com/releasehound/releasehound/pkg/internal/logfields"
	"github.com/releasehound/releasehound/pkg/logging"
	"github.com/releasehound/releasehound/pkg/pipeline"
	"github.com/releasehound/releasehound/pkg/platform"
	"github.com/releasehound/releasehound/pkg/task"
)

const (
	// DefaultPollInterval is the time between scheduled update cycles.
	DefaultPollInterval = 600 * time.Second
	// DefaultWarmup delays the first cycle after the worker starts.
	DefaultWarmup = 5 * time.Second
	// errorBackoff is how long the worker pauses after an unexpected
	// cycle failure before resuming.
	errorBackoff = 60 * time.Second
	// defaultGranularity bounds how long stop and force-check requests
	// can go unobserved during a wait.
	defaultGranularity = 1 * time.Second
)

// Config carries the updater's tunables. The zero value selects defaults.
type Config struct {
	// PollInterval is the time between scheduled cycles.
	PollInterval time.Duration
	// Warmup delays the first cycle after Start.
	Warmup time.Duration
	// Bypass forces unconditional reinstall every cycle, skipping change
	// detection.
	Bypass bool
	// MaxTries bounds each download retry chain.
	MaxTries int
	// Granularity is the flag-polling resolution of interruptible waits.
	// Tests shrink it; production uses the default.
	Granularity time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.Warmup <= 0 {
		c.Warmup = DefaultWarmup
	}
	if c.Granularity <= 0 {
		c.Granularity = defaultGranularity
	}
	return c
}

// Updater polls the registered tasks for remote changes and funnels
// detected updates into the pipeline. At most one worker runs per Updater;
// all control methods are safe to call from any goroutine.
type Updater struct {
	log      logging.Logger
	registry *task.Registry
	detector *detector.Detector
	source   platform.Source
	runner   *pipeline.Runner
	notifier platform.Notifier
	cfg      Config

	forceCheck chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an Updater. The worker is not started until Start is called.
func New(log logging.Logger, registry *task.Registry, det *detector.Detector, source platform.Source, runner *pipeline.Runner, notifier platform.Notifier, cfg Config) *Updater {
	return &Updater{
		log:        log,
		registry:   registry,
		detector:   det,
		source:     source,
		runner:     runner,
		notifier:   notifier,
		cfg:        cfg.withDefaults(),
		forceCheck: make(chan struct{}, 1),
	}
}

// Start launches the worker. A second Start while a worker is alive - even
// one that has been asked to stop but has not yet exited - is a warned
// no-op.
func (u *Updater) Start() {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.cancel != nil {
		u.log.Warn("worker is already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	u.cancel = cancel
	u.done = done

	go u.work(ctx, done)
	u.log.Info("worker started")
}

// ForceStop asks the worker to exit. Stopping is advisory: the worker
// observes the request at its next wait poll and exits on its own, clearing
// its handle.
func (u *Updater) ForceStop() {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.cancel == nil {
		u.log.Warn("worker is not running")
		return
	}
	u.cancel()
}

// RequestForceCheck asks the worker to run an immediate check-all cycle
// with user-visible notifications. Observed within one wait poll.
func (u *Updater) RequestForceCheck() {
	u.log.Info("forced update check requested")
	select {
	case u.forceCheck <- struct{}{}:
	default:
		// a force check is already pending
	}
}

// CheckOnce runs a single notified check of every registered task on the
// caller's goroutine, independent of the worker.
func (u *Updater) CheckOnce(ctx context.Context) {
	u.checkAll(ctx, true)
}

// Running reports whether a worker is alive.
func (u *Updater) Running() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cancel != nil
}

func (u *Updater) clearWorker(done chan struct{}) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.cancel = nil
	u.done = nil
	close(done)
}

// work is the worker loop. It exits only through its context; any failure
// inside a cycle is answered with a backoff, never termination.
func (u *Updater) work(ctx context.Context, done chan struct{}) {
	defer u.clearWorker(done)
	defer u.log.Info("worker stopped")

	if !u.sleep(ctx, u.cfg.Warmup) {
		return
	}

	for {
		if err := u.runCycle(ctx); err != nil {
			u.log.WithError(err).Error("update cycle failed")
			if !u.sleep(ctx, errorBackoff) {
				return
			}
			continue
		}
		if !u.waitInterval(ctx) {
			return
		}
	}
}

// runCycle performs one silent scheduled check of every task. Per-task
// failures are contained in checkAll; an error here is a bookkeeping
// failure of the cycle itself.
func (u *Updater) runCycle(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	if u.registry == nil {
		return errors.New("updater has no task registry")
	}
	u.checkAll(ctx, false)
	return nil
}

// waitInterval waits out the poll interval, servicing stop and force-check
// requests at the configured granularity. Returns false when the worker
// should exit.
func (u *Updater) waitInterval(ctx context.Context) bool {
	deadline := time.Now().Add(u.cfg.PollInterval)
	ticker := time.NewTicker(u.cfg.Granularity)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-u.forceCheck:
			u.log.Info("running forced update check")
			u.checkAll(ctx, true)
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return false
		}
		if !time.Now().Before(deadline) {
			return true
		}
	}
}

// sleep waits for d, returning false if the worker was cancelled first.
func (u *Updater) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// checkAll runs a change check across a snapshot of the registry. A single
// task's failure is logged and does not abort the remaining tasks.
func (u *Updater) checkAll(ctx context.Context, notify bool) {
	tasks := u.registry.Snapshot()
	u.log.WithField("tasks", len(tasks)).Debugf("checking for updates (notifications: %t)", notify)

	for _, t := range tasks {
		if ctx.Err() != nil {
			return
		}
		if err := u.checkTask(ctx, t, notify); err != nil {
			u.log.WithFields(logfields.Task(t)).WithError(err).Error("could not check task")
		}
	}
}

// checkTask fetches the task's remote item, decides whether it changed, and
// starts the download/install pipeline when it did. A returned error is
// transient; the task stays registered. Permanently gone items unregister
// the task here.
func (u *Updater) checkTask(ctx context.Context, t task.Task, notify bool) error {
	log := u.log.WithFields(logfields.Task(t))

	item, err := u.source.FetchItem(ctx, t.Channel, t.Item)
	if err != nil {
		if platform.IsNotFound(err) {
			log.Warn("remote item no longer exists, removing task")
			if notify {
				u.notifier.Failure(t.ComponentID, "update check failed: item not found")
			}
			u.registry.Unregister(t.ComponentID)
			return nil
		}
		return errors.WithMessage(err, "unable to fetch remote item")
	}

	if !item.HasPayload() {
		log.Warn("remote item carries no artifact, removing task")
		if notify {
			u.notifier.Failure(t.ComponentID, "update check failed: no artifact")
		}
		u.registry.Unregister(t.ComponentID)
		return nil
	}

	result, err := u.detector.Check(t, item.EditedAt(), u.cfg.Bypass)
	if err != nil {
		return errors.WithMessage(err, "unable to check for changes")
	}

	if result == detector.UpToDate {
		if notify {
			u.notifier.Info(t.ComponentID, "already up to date")
		}
		return nil
	}

	if notify {
		u.notifier.Success(t.ComponentID, "update found")
	}
	u.runner.Enqueue(pipeline.Attempt{
		Item:        item,
		ComponentID: t.ComponentID,
		MaxTries:    u.cfg.MaxTries,
	})
	return nil
}
