package detector

import (
	"fmt"
	"testing"

	"gotest.tools/assert"

	"github.com/releasehound/releasehound/pkg/internal/testoutput"
	"github.com/releasehound/releasehound/pkg/logging"
	"github.com/releasehound/releasehound/pkg/marker"
	"github.com/releasehound/releasehound/pkg/task"
)

var watched = task.Task{ComponentID: "widget", Channel: 100, Item: 5}

func testDetector(t *testing.T) (*Detector, marker.Store) {
	store := marker.NewMemoryStore()
	d := New(testoutput.Logger(t, logging.New("detector")), store)
	return d, store
}

func TestCheck(t *testing.T) {
	cases := []struct {
		cached     int64
		remote     int64
		want       Result
		wantStored int64
	}{
		// Nothing recorded yet: any nonzero remote timestamp is an update.
		{cached: 0, remote: 1000, want: UpdateAvailable, wantStored: 1000},
		// Remote at or below the marker is not an update.
		{cached: 1000, remote: 1000, want: UpToDate, wantStored: 1000},
		{cached: 1000, remote: 999, want: UpToDate, wantStored: 1000},
		// Newer remote advances the marker.
		{cached: 1000, remote: 1500, want: UpdateAvailable, wantStored: 1500},
		// Remote zero with no marker: nothing to do.
		{cached: 0, remote: 0, want: UpToDate, wantStored: 0},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("cached=%d,remote=%d", tc.cached, tc.remote), func(t *testing.T) {
			d, store := testDetector(t)
			if tc.cached != 0 {
				assert.NilError(t, store.Set(watched.MarkerKey(), tc.cached))
			}

			got, err := d.Check(watched, tc.remote, false)
			assert.NilError(t, err)
			assert.Equal(t, got, tc.want)

			stored, err := store.Get(watched.MarkerKey())
			assert.NilError(t, err)
			assert.Equal(t, stored, tc.wantStored)
		})
	}
}

func TestCheckBypassNeverTouchesStore(t *testing.T) {
	for _, remote := range []int64{0, 500, 1000, 2000} {
		t.Run(fmt.Sprintf("remote=%d", remote), func(t *testing.T) {
			d, store := testDetector(t)
			assert.NilError(t, store.Set(watched.MarkerKey(), 1000))

			got, err := d.Check(watched, remote, true)
			assert.NilError(t, err)
			assert.Equal(t, got, UpdateAvailable)

			stored, err := store.Get(watched.MarkerKey())
			assert.NilError(t, err)
			assert.Equal(t, stored, int64(1000))
		})
	}
}

func TestCheckAdvancesBeforeInstallOutcome(t *testing.T) {
	// The marker moves as soon as the update is detected; a subsequent
	// check reads UpToDate even though nothing was installed in between.
	d, _ := testDetector(t)

	got, err := d.Check(watched, 1000, false)
	assert.NilError(t, err)
	assert.Equal(t, got, UpdateAvailable)

	got, err = d.Check(watched, 1000, false)
	assert.NilError(t, err)
	assert.Equal(t, got, UpToDate)
}
