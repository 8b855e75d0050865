// Package notify carries user-visible update bulletins to the operator.
package notify

import (
	"github.com/releasehound/releasehound/pkg/logging"
	"github.com/releasehound/releasehound/pkg/platform"
)

// Bulletin is a Notifier that reports through the structured log. It is the
// daemon's stand-in for the host application's bulletin surface.
type Bulletin struct {
	log logging.Logger
}

var _ platform.Notifier = (*Bulletin)(nil)

// NewBulletin creates a log-backed Notifier.
func NewBulletin(log logging.Logger) *Bulletin {
	return &Bulletin{log: log}
}

func (b *Bulletin) Success(component, message string) {
	b.log.WithField("task", component).Info(message)
}

func (b *Bulletin) Info(component, message string) {
	b.log.WithField("task", component).Info(message)
}

func (b *Bulletin) Failure(component, message string) {
	b.log.WithField("task", component).Error(message)
}
