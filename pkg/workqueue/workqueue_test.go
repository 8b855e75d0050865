package workqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"gotest.tools/assert"

	"github.com/releasehound/releasehound/pkg/internal/testoutput"
	"github.com/releasehound/releasehound/pkg/logging"
)

func testQueue(t *testing.T) (*Queue, context.CancelFunc) {
	q := New(testoutput.Logger(t, logging.New("workqueue")))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = q.Run(ctx)
	}()
	return q, cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestScheduleRunsInOrder(t *testing.T) {
	q, cancel := testQueue(t)
	defer cancel()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		q.Schedule(0, func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 5
	})
	mu.Lock()
	defer mu.Unlock()
	assert.DeepEqual(t, got, []int{0, 1, 2, 3, 4})
}

func TestScheduleHonorsDelay(t *testing.T) {
	q, cancel := testQueue(t)
	defer cancel()

	var mu sync.Mutex
	var ranAt time.Time
	start := time.Now()
	q.Schedule(50*time.Millisecond, func() {
		mu.Lock()
		ranAt = time.Now()
		mu.Unlock()
	})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return !ranAt.IsZero()
	})
	mu.Lock()
	defer mu.Unlock()
	assert.Check(t, ranAt.Sub(start) >= 50*time.Millisecond)
}

func TestScheduleFromManyGoroutines(t *testing.T) {
	q, cancel := testQueue(t)
	defer cancel()

	const jobs = 32
	var mu sync.Mutex
	ran := 0

	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Schedule(time.Millisecond, func() {
				mu.Lock()
				ran++
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return ran == jobs
	})
}

func TestPanickingJobDoesNotKillDrain(t *testing.T) {
	q, cancel := testQueue(t)
	defer cancel()

	var mu sync.Mutex
	survived := false

	q.Schedule(0, func() {
		panic("bad job")
	})
	q.Schedule(0, func() {
		mu.Lock()
		survived = true
		mu.Unlock()
	})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return survived
	})
}

func TestStoppedQueueDiscardsJobs(t *testing.T) {
	q, cancel := testQueue(t)
	cancel()

	waitFor(t, func() bool {
		return q.stopped.Load()
	})

	// Nothing to assert beyond "does not block or panic".
	q.Schedule(0, func() {})
}
