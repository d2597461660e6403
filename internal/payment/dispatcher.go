package payment

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/socialagro/social-agro-backend/internal/metrics"
	"github.com/socialagro/social-agro-backend/pkg/logger"
)

type NotificationJob struct {
	Notification Notification
	TraceID      string
	ReceivedAt   time.Time
}

type Worker struct {
	ID         int
	WorkerPool chan chan NotificationJob
	JobChannel chan NotificationJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan NotificationJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan NotificationJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(NotificationJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing notification", "worker_id", w.ID, "mp_payment_id", job.Notification.PaymentID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type DispatcherConfig struct {
	MaxWorkers int
	QueueSize  int
	JobTimeout time.Duration
}

// Dispatcher runs webhook reconciliation after the notification has been
// acknowledged. Each job gets its own timeout and panic boundary.
type Dispatcher struct {
	reconciler ReconcilerAPI
	metrics    *metrics.Metrics
	logger     *slog.Logger

	jobQueue   chan NotificationJob
	workerPool chan chan NotificationJob
	maxWorkers int
	jobTimeout time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	once     sync.Once
	started  atomic.Bool
	stopping atomic.Bool
	inFlight atomic.Int64
}

func NewDispatcher(reconciler ReconcilerAPI, config DispatcherConfig, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}

	jobTimeout := config.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}

	return &Dispatcher{
		reconciler: reconciler,
		metrics:    m,
		logger:     logger,
		jobQueue:   make(chan NotificationJob, queueSize),
		workerPool: make(chan chan NotificationJob, maxWorkers),
		maxWorkers: maxWorkers,
		jobTimeout: jobTimeout,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (d *Dispatcher) Start() {
	d.once.Do(func() {
		d.started.Store(true)
		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.process)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("webhook dispatcher started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

// Enqueue hands a job to the pool without blocking. It returns false when the
// queue is full or the dispatcher is shutting down.
func (d *Dispatcher) Enqueue(job NotificationJob) bool {
	if d.stopping.Load() {
		return false
	}
	if job.TraceID == "" {
		job.TraceID = uuid.NewString()
	}
	if job.ReceivedAt.IsZero() {
		job.ReceivedAt = time.Now()
	}

	d.inFlight.Add(1)
	select {
	case d.jobQueue <- job:
		d.metrics.SetWebhookQueueLength(len(d.jobQueue))
		return true
	default:
		d.inFlight.Add(-1)
		d.logger.Error("webhook queue full, notification dropped",
			"mp_payment_id", job.Notification.PaymentID,
			"queue_capacity", cap(d.jobQueue))
		return false
	}
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			d.metrics.SetWebhookQueueLength(len(d.jobQueue))
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					d.inFlight.Add(-1)
					d.logger.Info("dispatcher shutting down")
					return
				}
			case <-d.ctx.Done():
				d.inFlight.Add(-1)
				d.logger.Info("dispatcher shutting down")
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("dispatcher shutting down")
			return
		}
	}
}

func (d *Dispatcher) process(job NotificationJob) {
	defer d.inFlight.Add(-1)

	ctx, cancel := context.WithTimeout(context.Background(), d.jobTimeout)
	defer cancel()
	ctx = logger.WithTraceID(ctx, job.TraceID)

	defer func() {
		if r := recover(); r != nil {
			logger.From(ctx).Error("webhook job panicked",
				"mp_payment_id", job.Notification.PaymentID,
				"panic", r)
		}
	}()

	_, _ = d.reconciler.Reconcile(ctx, job.Notification)
}

// Shutdown stops accepting jobs, waits for accepted jobs to finish until ctx
// expires and then stops the workers.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.stopping.Store(true)
	d.logger.Info("shutting down webhook dispatcher", "in_flight", d.inFlight.Load())

	var err error
	if d.started.Load() {
		err = d.drain(ctx)
	}

	if pending := d.inFlight.Load(); pending > 0 {
		d.logger.Warn("webhook dispatcher dropping notifications", "dropped", pending)
	}

	d.cancel()
	d.wg.Wait()
	d.logger.Info("webhook dispatcher shutdown complete")
	return err
}

func (d *Dispatcher) drain(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for d.inFlight.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
