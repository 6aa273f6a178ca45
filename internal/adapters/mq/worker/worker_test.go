package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/gradelens/internal/adapters/mq/queue"
	"github.com/okian/gradelens/internal/adapters/mq/worker"
	"github.com/okian/gradelens/pkg/logger"
	"github.com/okian/gradelens/pkg/metrics"
)

type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 16)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

// recorder remembers every processed job and fails the paths it is told to.
type recorder struct {
	mu   sync.Mutex
	seen map[int]string
	fail map[string]bool
}

func newRecorder(fail ...string) *recorder {
	r := &recorder{seen: make(map[int]string), fail: make(map[string]bool)}
	for _, f := range fail {
		r.fail[f] = true
	}
	return r
}

func (r *recorder) Process(ctx context.Context, job queue.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[job.Seq] = job.Path
	if r.fail[job.Path] {
		return fmt.Errorf("cannot read %s", job.Path)
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func newMetrics() *metrics.Manager {
	m, _ := newMetricsWithRegistry()
	return m
}

func newMetricsWithRegistry() (*metrics.Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return metrics.NewManager(metrics.WithPrometheusRegistry(reg)), reg
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker reading from a queue", t, func() {
		ctx := context.Background()
		q := newMockQueue()
		rec := newRecorder("bad.csv")
		m := newMetrics()
		w := worker.NewInMemoryWorker(q, rec, worker.WithName("w0"), worker.WithMetrics(m), worker.WithLogger(logger.NewNop()))

		convey.Convey("When jobs are queued and the queue is closed", func() {
			q.jobs <- queue.Job{Seq: 0, Path: "a.csv"}
			q.jobs <- queue.Job{Seq: 1, Path: "bad.csv"}
			q.jobs <- queue.Job{Seq: 2, Path: "c.csv"}
			_ = q.Close()
			w.Run(ctx)

			convey.Convey("Then every job is processed and failures do not stop it", func() {
				convey.So(rec.count(), convey.ShouldEqual, 3)
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When it is shut down while idle", func() {
			go w.Run(ctx)
			sctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			convey.Convey("Then Run returns promptly", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When its context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			go w.Run(cctx)
			cancel()

			convey.Convey("Then the worker stops", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					convey.So("worker did not stop", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestWorkerShutdownTimeout(t *testing.T) {
	convey.Convey("Given a worker stuck on a slow job", t, func() {
		q := newMockQueue()
		release := make(chan struct{})
		started := make(chan struct{})
		slow := worker.ProcessorFunc(func(ctx context.Context, job queue.Job) error {
			close(started)
			<-release
			return nil
		})
		w := worker.NewInMemoryWorker(q, slow, worker.WithMetrics(newMetrics()))
		q.jobs <- queue.Job{Path: "slow.csv"}
		go w.Run(context.Background())
		<-started

		convey.Convey("Then Shutdown gives up at its deadline", func() {
			sctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			err := w.Shutdown(sctx)
			convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			close(release)
			<-w.Done()
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		ctx := context.Background()
		m, reg := newMetricsWithRegistry()
		q := queue.NewInMemoryQueue(queue.WithCapacity(64), queue.WithMetrics(m))
		rec := newRecorder("f3.csv", "f7.csv")
		pool := worker.NewPool(4, q, rec, worker.WithMetrics(m))

		convey.So(pool.Size(), convey.ShouldEqual, 4)

		convey.Convey("When a batch is queued and drained", func() {
			for i := 0; i < 20; i++ {
				convey.So(q.Enqueue(ctx, queue.Job{Seq: i, Path: fmt.Sprintf("f%d.csv", i)}), convey.ShouldBeTrue)
			}
			pool.Start(ctx)
			_ = q.Close()
			pool.Wait()

			convey.Convey("Then every job ran exactly once and outcomes are counted", func() {
				convey.So(rec.count(), convey.ShouldEqual, 20)
				for i := 0; i < 20; i++ {
					convey.So(rec.seen[i], convey.ShouldEqual, fmt.Sprintf("f%d.csv", i))
				}

				convey.So(gaugeValue(reg, "gradelens_ingest_batch_workers"), convey.ShouldEqual, 0)
				convey.So(jobCount(reg, "failed"), convey.ShouldEqual, 2)
				convey.So(jobCount(reg, "ok"), convey.ShouldEqual, 18)
			})
		})

		convey.Convey("When the pool is shut down", func() {
			pool.Start(ctx)
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)

			convey.Convey("Then the queue is closed", func() {
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				convey.So(q.Enqueue(ctx, queue.Job{Path: "late.csv"}), convey.ShouldBeFalse)
			})
		})
	})
}

func TestPoolDefaultSize(t *testing.T) {
	convey.Convey("Given a non-positive worker count", t, func() {
		pool := worker.NewPool(0, newMockQueue(), newRecorder(), worker.WithMetrics(newMetrics()))

		convey.Convey("Then one worker per CPU is created", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}

func gaugeValue(reg *prometheus.Registry, name string) float64 {
	families, _ := reg.Gather()
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return -1
}

func jobCount(reg *prometheus.Registry, outcome string) float64 {
	families, _ := reg.Gather()
	for _, mf := range families {
		if mf.GetName() != "gradelens_ingest_batch_jobs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "outcome" && lp.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
