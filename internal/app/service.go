// Package service wires the segmentation pipeline, the store reports and their collaborators
// into the operations exposed by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/okian/custseg/internal/adapters/mq/queue"
	workerpool "github.com/okian/custseg/internal/adapters/mq/worker"
	"github.com/okian/custseg/internal/domain/dedupe"
	"github.com/okian/custseg/internal/domain/model"
	"github.com/okian/custseg/internal/domain/ranking"
	"github.com/okian/custseg/internal/domain/segmentation"
	"github.com/okian/custseg/pkg/logger"
	"github.com/okian/custseg/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultWorkerCount = 2
	defaultQueueSize   = 16
	defaultDedupeSize  = 1000
)

// CustomerSource provides the input datasets.
type CustomerSource interface {
	ListActiveCustomers(ctx context.Context) ([]model.CustomerRecord, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
}

// ResultSink persists segmentation results and store reports.
type ResultSink interface {
	SaveSegmentation(ctx context.Context, res *model.Result) error
	SaveReport(ctx context.Context, rep *model.Report) error
}

// ResultPublisher announces finished segmentations.
type ResultPublisher interface {
	Publish(ctx context.Context, res *model.Result) error
}

// Service runs segmentations synchronously or through a bounded job queue.
type Service struct {
	mu sync.RWMutex

	source       CustomerSource
	sink         ResultSink
	publisher    ResultPublisher
	pipelineOpts []segmentation.Option

	topCustomers int
	topProducts  int
	denylist     []string
	deny         ranking.Denylist

	workerCount int
	queueSize   int
	dedupeSize  int
	jobTimeout  time.Duration

	deduper dedupe.Deduper
	queue   *jobqueue.InMemoryQueue
	pool    *workerpool.Pool
	cancel  context.CancelFunc
	started bool

	runsMu sync.RWMutex
	runs   map[string]*model.RunStatus
	order  []string // run ids, oldest first

	now    func() time.Time
	logger logger.Logger
}

// New constructs a Service. Workers only run after Start.
func New(opts ...Option) *Service {
	s := &Service{
		topCustomers: ranking.DefaultTopCustomers,
		topProducts:  ranking.DefaultTopProducts,
		denylist:     ranking.DefaultDenylist,
		workerCount:  defaultWorkerCount,
		queueSize:    defaultQueueSize,
		dedupeSize:   defaultDedupeSize,
		runs:         make(map[string]*model.RunStatus),
		now:          time.Now,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.deny = ranking.NewDenylist(s.denylist...)
	return s
}

// Start creates the job queue and the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.source == nil {
		return ErrNoSource
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s,
		workerpool.WithPoolLogger(s.logger),
		workerpool.WithJobTimeout(s.jobTimeout),
	)

	// workers outlive the request that started the service
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "segmentation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// Stop drains queued runs and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	err := s.pool.Shutdown(ctx)
	s.cancel()
	s.started = false
	s.logger.Info(ctx, "segmentation service stopped")
	return err
}

// Segment runs the pipeline over all active customers, stores and publishes the result.
func (s *Service) Segment(ctx context.Context) (*model.Result, error) {
	return s.segment(ctx, "")
}

func (s *Service) segment(ctx context.Context, runID string) (*model.Result, error) {
	if s.source == nil {
		return nil, ErrNoSource
	}
	customers, err := s.source.ListActiveCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}

	opts := append([]segmentation.Option{segmentation.WithLogger(s.logger)}, s.pipelineOpts...)
	if runID != "" {
		opts = append(opts, segmentation.WithRunIDGenerator(func() string { return runID }))
	}
	res, err := segmentation.New(opts...).Run(ctx, customers)
	if err != nil {
		return nil, err
	}

	if s.sink != nil {
		if err := s.sink.SaveSegmentation(ctx, res); err != nil {
			return nil, fmt.Errorf("save segmentation: %w", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, res); err != nil {
			s.logger.Warn(ctx, "publishing result failed", logger.String("run_id", res.RunID), logger.Error(err))
		}
	}
	return res, nil
}

// Report builds the high spender, frequent shopper and best seller reports and stores them.
func (s *Service) Report(ctx context.Context) (*model.Report, error) {
	if s.source == nil {
		return nil, ErrNoSource
	}
	customers, err := s.source.ListActiveCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	orders, err := s.source.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	spenders, err := ranking.HighSpenders(customers, s.topCustomers)
	if err != nil {
		return nil, err
	}
	shoppers, err := ranking.FrequentShoppers(customers, s.topCustomers)
	if err != nil {
		return nil, err
	}
	rep := &model.Report{
		GeneratedAt:      s.now().UTC(),
		HighSpenders:     spenders,
		FrequentShoppers: shoppers,
		BestSellers:      ranking.BestSellers(orders, s.deny, s.topProducts),
	}

	if s.sink != nil {
		if err := s.sink.SaveReport(ctx, rep); err != nil {
			return nil, fmt.Errorf("save report: %w", err)
		}
	}
	s.logger.Info(ctx, "report built",
		logger.Int("customers", len(customers)),
		logger.Int("orders", len(orders)),
	)
	return rep, nil
}

// Submit queues an asynchronous segmentation. A non-empty requestKey makes the call
// idempotent: repeating it returns the run it started and duplicate=true.
func (s *Service) Submit(ctx context.Context, requestKey string) (status model.RunStatus, duplicate bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.RunStatus{}, false, ErrNotStarted
	}

	runID := uuid.Must(uuid.NewV7()).String()
	job := model.Job{ID: runID, RequestKey: requestKey, SubmittedAt: s.now().UTC()}
	// tracked before the key is claimed, so a visible owner always has a status
	s.track(job)

	if requestKey != "" {
		if st, dup := s.claim(ctx, requestKey, runID); dup {
			s.untrack(runID)
			metrics.RecordDuplicateSubmission()
			return st, true, nil
		}
	}

	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.untrack(runID)
		if requestKey != "" {
			s.deduper.Release(ctx, requestKey, runID)
		}
		if errors.Is(err, jobqueue.ErrFull) {
			return model.RunStatus{}, false, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		if errors.Is(err, jobqueue.ErrClosed) {
			return model.RunStatus{}, false, ErrNotStarted
		}
		return model.RunStatus{}, false, err
	}

	s.logger.Debug(ctx, "segmentation queued", logger.String("run_id", runID))
	st, _ := s.Status(runID)
	return st, false, nil
}

// claim binds requestKey to runID. When another run owns the key it returns that run's status
// and true. An owner that aged out of the run registry is replaced, unless a concurrent
// submission takes the key first.
func (s *Service) claim(ctx context.Context, requestKey, runID string) (model.RunStatus, bool) {
	for {
		owner, dup := s.deduper.Claim(ctx, requestKey, runID)
		if !dup {
			return model.RunStatus{}, false
		}
		if st, err := s.Status(owner); err == nil {
			return st, true
		}
		if s.deduper.Replace(ctx, requestKey, owner, runID) {
			return model.RunStatus{}, false
		}
	}
}

// RunJob executes a queued job. It is called by the worker pool.
func (s *Service) RunJob(ctx context.Context, job model.Job) error {
	s.update(job.ID, func(st *model.RunStatus) {
		t := s.now().UTC()
		st.State = model.JobRunning
		st.StartedAt = &t
	})

	res, err := s.segment(ctx, job.ID)

	s.update(job.ID, func(st *model.RunStatus) {
		t := s.now().UTC()
		st.FinishedAt = &t
		if err != nil {
			st.State = model.JobFailed
			st.Error = err.Error()
			return
		}
		st.State = model.JobSucceeded
		st.Result = res
	})
	return err
}

// Status returns a snapshot of a submitted run.
func (s *Service) Status(runID string) (model.RunStatus, error) {
	s.runsMu.RLock()
	defer s.runsMu.RUnlock()

	st, ok := s.runs[runID]
	if !ok {
		return model.RunStatus{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return *st, nil
}

func (s *Service) track(job model.Job) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	s.runs[job.ID] = &model.RunStatus{ID: job.ID, State: model.JobQueued, SubmittedAt: job.SubmittedAt}
	s.order = append(s.order, job.ID)

	// forget the oldest finished runs beyond the retention limit
	for len(s.order) > s.dedupeSize {
		evicted := false
		for i, id := range s.order {
			if st := s.runs[id]; st != nil && st.Done() {
				delete(s.runs, id)
				s.order = append(s.order[:i], s.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			break
		}
	}
}

func (s *Service) untrack(runID string) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	delete(s.runs, runID)
	for i, id := range s.order {
		if id == runID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Service) update(runID string, fn func(*model.RunStatus)) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	if st, ok := s.runs[runID]; ok {
		fn(st)
	}
}

// Ready reports whether the service accepts submissions.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	s.runsMu.RLock()
	counts := make(map[model.JobState]int)
	for _, st := range s.runs {
		counts[st.State]++
	}
	stats["trackedRuns"] = len(s.runs)
	s.runsMu.RUnlock()
	stats["runs"] = counts

	if s.started {
		stats["queueLength"] = s.queue.Len()
		stats["processedJobs"] = s.pool.Processed()
		stats["idempotencyKeys"] = s.deduper.Size()
		metrics.UpdateQueueSize(s.queue.Len())
	}
	return stats
}
