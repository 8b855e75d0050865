// Package marker persists the last observed edit timestamp for each watched
// remote item. Markers survive process restarts; whether a remote change is
// an update is decided entirely against them.
package marker

import "fmt"

// Key addresses a marker. Keys are derived from the remote coordinates of a
// watched item.
type Key = string

// ForCoordinates builds the Key for a channel/item pair.
func ForCoordinates(channel, item int64) Key {
	return fmt.Sprintf("%d_%d", channel, item)
}

// Store is the durable mapping from Key to the last observed edit
// timestamp, in unix seconds. Implementations must tolerate concurrent
// readers with a single writer.
type Store interface {
	// Get returns the recorded timestamp, or 0 when no marker exists.
	Get(key Key) (int64, error)
	// Set durably records the timestamp for the key.
	Set(key Key, editedAt int64) error
	// Delete removes the marker for the key. Deleting an absent key is not
	// an error. The update path never deletes markers; entries outlive
	// their tasks.
	Delete(key Key) error
	// Close releases the store's resources.
	Close() error
}
