// Package pipeline materializes a remote artifact locally and installs it,
// tolerating slow downloads through bounded retry.
package pipeline

import (
	"os"
	"time"

	"github.com/releasehound/releasehound/pkg/internal/logfields"
	"github.com/releasehound/releasehound/pkg/logging"
	"github.com/releasehound/releasehound/pkg/platform"
)

const (
	// DefaultMaxTries bounds how many times an attempt waits for its
	// download before giving up.
	DefaultMaxTries = 10
	// retryDelay is the fixed wait between presence checks.
	retryDelay = 1 * time.Second
)

// Scheduler runs a function once after a delay. It must be callable from
// any goroutine; download completion does not necessarily happen on the
// poller's worker.
type Scheduler interface {
	Schedule(delay time.Duration, fn func())
}

// Attempt is one link in a download/install retry chain. Attempts are
// ephemeral; nothing about them is persisted.
type Attempt struct {
	Item        platform.Item
	ComponentID string
	// CurrentTry counts presence checks performed so far.
	CurrentTry int
	// MaxTries bounds the chain. Zero selects DefaultMaxTries.
	MaxTries int
}

// Runner drives download/install attempts to a terminal state. Every
// failure mode is reported through the notifier and logged; Run never
// panics its caller.
type Runner struct {
	log       logging.Logger
	installer platform.Installer
	notifier  platform.Notifier
	scheduler Scheduler

	delay time.Duration
}

// Option adjusts a Runner.
type Option func(*Runner)

// WithRetryDelay overrides the fixed wait between presence checks.
func WithRetryDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.delay = d
	}
}

// New creates a Runner that installs through installer, reports through
// notifier, and re-enters itself through scheduler.
func New(log logging.Logger, installer platform.Installer, notifier platform.Notifier, scheduler Scheduler, opts ...Option) *Runner {
	r := &Runner{
		log:       log,
		installer: installer,
		notifier:  notifier,
		scheduler: scheduler,
		delay:     retryDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enqueue hands the attempt to the scheduler for immediate execution,
// keeping download/install work off the caller's goroutine.
func (r *Runner) Enqueue(a Attempt) {
	r.scheduler.Schedule(0, func() {
		r.Run(a)
	})
}

// Run advances the attempt one step: install the artifact if it is present
// locally, otherwise request its download and schedule a re-entry after the
// retry delay. The chain terminates when the install finishes (either way)
// or when MaxTries presence checks have failed to find the artifact.
func (r *Runner) Run(a Attempt) {
	if a.MaxTries <= 0 {
		a.MaxTries = DefaultMaxTries
	}
	log := r.log.WithFields(logfields.Attempt(a.ComponentID, a.CurrentTry, a.MaxTries))

	path, err := a.Item.LocalPath()
	if err != nil {
		log.WithError(err).Error("unable to resolve local artifact path")
		r.notifier.Failure(a.ComponentID, "update failed: unusable artifact")
		return
	}

	if _, err := os.Stat(path); err == nil {
		r.install(log, a, path)
		return
	}

	if a.CurrentTry == 0 {
		log.Info("starting artifact download")
	} else {
		log.Info("waiting for artifact download")
	}
	a.Item.RequestDownload()

	if a.CurrentTry >= a.MaxTries {
		log.Error("artifact never materialized, giving up")
		r.notifier.Failure(a.ComponentID, "update failed: download did not complete")
		return
	}

	next := a
	next.CurrentTry++
	r.scheduler.Schedule(r.delay, func() {
		r.Run(next)
	})
}

func (r *Runner) install(log logging.Logger, a Attempt, path string) {
	log.WithField("path", path).Info("installing artifact")
	if err := r.installer.Install(path); err != nil {
		log.WithError(err).Error("install failed")
		r.notifier.Failure(a.ComponentID, "update failed: install error")
		return
	}
	log.Info("installed update")
	r.notifier.Success(a.ComponentID, "updated successfully")
}
