package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/custseg/internal/adapters/mq/queue"
	"github.com/okian/custseg/internal/adapters/mq/worker"
	"github.com/okian/custseg/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

type mockRunner struct {
	mu    sync.Mutex
	seen  []string
	fail  map[string]error
	delay time.Duration
}

func newMockRunner() *mockRunner {
	return &mockRunner{fail: make(map[string]error)}
}

func (m *mockRunner) RunJob(ctx context.Context, job model.Job) error {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, job.ID)
	return m.fail[job.ID]
}

func (m *mockRunner) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading from a queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))
		runner := newMockRunner()
		runner.fail["bad"] = errors.New("boom")
		w := worker.NewInMemoryWorker(q, runner, worker.WithName("w-test"))
		go w.Run(ctx)

		convey.Convey("When jobs are enqueued", func() {
			convey.So(q.Enqueue(ctx, model.Job{ID: "ok"}), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, model.Job{ID: "bad"}), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, model.Job{ID: "ok-2"}), convey.ShouldBeNil)

			convey.Convey("Then every job runs, including those after a failure", func() {
				convey.So(waitFor(func() bool { return runner.count() == 3 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the worker is shut down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()

			convey.Convey("Then it stops and a second shutdown is harmless", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of three workers", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		runner := newMockRunner()
		runner.delay = 10 * time.Millisecond
		pool := worker.NewPool(3, q, runner, worker.WithJobTimeout(time.Second))
		pool.Start(ctx)

		convey.So(pool.Size(), convey.ShouldEqual, 3)

		convey.Convey("When several jobs are submitted", func() {
			for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
				convey.So(q.Enqueue(ctx, model.Job{ID: id}), convey.ShouldBeNil)
			}

			convey.Convey("Then all are processed", func() {
				convey.So(waitFor(func() bool { return pool.Processed() == 6 }), convey.ShouldBeTrue)
				convey.So(runner.count(), convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When the pool shuts down", func() {
			convey.So(q.Enqueue(ctx, model.Job{ID: "last"}), convey.ShouldBeNil)
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()

			convey.Convey("Then queued jobs drain and the queue is closed", func() {
				convey.So(pool.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(runner.count(), convey.ShouldEqual, 1)
			})
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), newMockRunner())
		convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
	})
}
