// Package platform declares the contracts between the update pipeline and
// the host environment it runs against: where remote items come from, how
// artifacts are installed, and how outcomes are surfaced to the operator.
package platform

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound reports that a referenced remote item permanently no longer
// exists. Sources must return it (or wrap it) for deleted items so callers
// can distinguish "stop watching this" from a transient fetch failure.
var ErrNotFound = errors.New("referenced item not found")

// IsNotFound reports whether err marks a permanently missing item.
func IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

// Source looks up remotely hosted release items.
type Source interface {
	// FetchItem resolves the item at the given channel coordinates.
	// A permanently missing item yields ErrNotFound; any other error is
	// transient and the caller should try again on a later cycle.
	FetchItem(ctx context.Context, channel, item int64) (Item, error)
}

// Item is a resolved remote release item.
type Item interface {
	// HasPayload reports whether the item carries downloadable content.
	HasPayload() bool
	// EditedAt is the item's last edit time in unix seconds. Items that
	// were never edited report their creation time instead.
	EditedAt() int64
	// LocalPath resolves where the item's artifact lives (or will live)
	// in the local artifact cache.
	LocalPath() (string, error)
	// RequestDownload begins asynchronous materialization of the artifact
	// to LocalPath. It returns immediately; completion is observed by the
	// artifact appearing at LocalPath.
	RequestDownload()
}

// Installer installs a downloaded artifact from its local path.
type Installer interface {
	Install(path string) error
}

// Notifier surfaces user-visible update outcomes. Scheduled update cycles
// run silently; forced checks report through a Notifier.
type Notifier interface {
	Success(component, message string)
	Info(component, message string)
	Failure(component, message string)
}
