package notify

import (
	"time"

	"github.com/karlseguin/ccache"

	"github.com/releasehound/releasehound/pkg/platform"
)

const (
	dedupWindow = 15 * time.Second
)

// Deduper suppresses repeats of an identical bulletin inside a short
// window. Retry chains and forced checks can otherwise emit the same
// message several times in quick succession.
type Deduper struct {
	next   platform.Notifier
	recent *ccache.Cache
	window time.Duration
}

var _ platform.Notifier = (*Deduper)(nil)

// WithDedup wraps a Notifier with duplicate suppression.
func WithDedup(next platform.Notifier) *Deduper {
	return &Deduper{
		next:   next,
		recent: ccache.New(ccache.Configure().MaxSize(1000).ItemsToPrune(100)),
		window: dedupWindow,
	}
}

func (d *Deduper) Success(component, message string) {
	if d.fresh("success", component, message) {
		d.next.Success(component, message)
	}
}

func (d *Deduper) Info(component, message string) {
	if d.fresh("info", component, message) {
		d.next.Info(component, message)
	}
}

func (d *Deduper) Failure(component, message string) {
	if d.fresh("failure", component, message) {
		d.next.Failure(component, message)
	}
}

// fresh records the bulletin and reports whether it was not already seen
// within the window.
func (d *Deduper) fresh(kind, component, message string) bool {
	key := kind + "|" + component + "|" + message
	if item := d.recent.Get(key); item != nil && !item.Expired() {
		return false
	}
	d.recent.Set(key, true, d.window)
	return true
}
