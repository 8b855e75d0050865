// Package task tracks the set of components watched for updates.
package task

import (
	"fmt"
	"sync"

	"github.com/releasehound/releasehound/pkg/logging"
	"github.com/releasehound/releasehound/pkg/marker"
)

// Task is a watched (component, remote location) pair. The remote location
// is addressed by a release channel and an item within it.
type Task struct {
	// ComponentID uniquely identifies the installed component the task
	// keeps updated.
	ComponentID string
	// Channel is the remote release channel the artifact is published in.
	Channel int64
	// Item addresses the artifact's entry within the channel.
	Item int64
}

// MarkerKey is the key under which the task's last observed edit timestamp
// is recorded.
func (t Task) MarkerKey() marker.Key {
	return marker.ForCoordinates(t.Channel, t.Item)
}

func (t Task) String() string {
	return fmt.Sprintf("%s(%d/%d)", t.ComponentID, t.Channel, t.Item)
}

// Registry is the in-memory set of watched tasks, deduplicated by component
// id. Mutations are serialized; Snapshot returns a copy that is safe to
// iterate while the registry is concurrently mutated.
type Registry struct {
	log logging.Logger

	mu    sync.Mutex
	tasks []Task
}

// NewRegistry creates an empty task registry.
func NewRegistry(log logging.Logger) *Registry {
	return &Registry{log: log}
}

// Register adds the task to the registry. A task whose component id is
// already present is rejected without mutation.
func (r *Registry) Register(t Task) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.tasks {
		if existing.ComponentID == t.ComponentID {
			r.log.WithField("task", t.String()).Warn("task already registered")
			return false
		}
	}

	r.tasks = append(r.tasks, t)
	r.log.WithField("task", t.String()).Info("registered task")
	return true
}

// Unregister removes the task watching the given component id.
func (r *Registry) Unregister(componentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.tasks {
		if existing.ComponentID == componentID {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			r.log.WithField("task", existing.String()).Info("unregistered task")
			return true
		}
	}

	r.log.WithField("task", componentID).Warn("no task registered for component")
	return false
}

// Snapshot copies the registered tasks in registration order.
func (r *Registry) Snapshot() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]Task, len(r.tasks))
	copy(snapshot, r.tasks)
	return snapshot
}

// Len reports the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}
