// Package detector decides whether a watched item has changed since the
// last time an update was taken for it.
package detector

import (
	"github.com/pkg/errors"

	"github.com/releasehound/releasehound/pkg/logging"
	"github.com/releasehound/releasehound/pkg/marker"
	"github.com/releasehound/releasehound/pkg/task"
)

// Result is the outcome of a change check.
type Result int

const (
	// UpToDate means the remote item has not changed since the recorded
	// marker.
	UpToDate Result = iota
	// UpdateAvailable means the remote item is newer than the recorded
	// marker (or change detection was bypassed).
	UpdateAvailable
)

func (r Result) String() string {
	if r == UpdateAvailable {
		return "update-available"
	}
	return "up-to-date"
}

// Detector compares remote edit timestamps against the marker store.
type Detector struct {
	log   logging.Logger
	store marker.Store
}

// New creates a Detector backed by the given marker store.
func New(log logging.Logger, store marker.Store) *Detector {
	return &Detector{log: log, store: store}
}

// Check reports whether the remote timestamp constitutes an update for the
// task. With bypass set, every check reports UpdateAvailable and the marker
// store is left untouched (unconditional reinstall mode).
//
// On UpdateAvailable the marker advances to remoteTS immediately, before
// the download or install outcome is known. A failed install therefore
// reads UpToDate on the next cycle; this optimistic write is intended
// behavior inherited from the persisted-timestamp protocol.
func (d *Detector) Check(t task.Task, remoteTS int64, bypass bool) (Result, error) {
	if bypass {
		d.log.WithField("task", t.String()).Info("change detection bypassed, forcing update")
		return UpdateAvailable, nil
	}

	key := t.MarkerKey()
	cached, err := d.store.Get(key)
	if err != nil {
		return UpToDate, errors.WithMessage(err, "unable to read marker")
	}

	if remoteTS <= cached {
		d.log.WithField("task", t.String()).Debugf("no update (remote %d <= cached %d)", remoteTS, cached)
		return UpToDate, nil
	}

	d.log.WithField("task", t.String()).Infof("update available (%d -> %d)", cached, remoteTS)
	if err := d.store.Set(key, remoteTS); err != nil {
		return UpToDate, errors.WithMessage(err, "unable to advance marker")
	}

	return UpdateAvailable, nil
}
