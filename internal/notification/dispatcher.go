package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal/metrics"
)

// Sink receives the jobs workers pull off the queue.
type Sink interface {
	Deliver(ctx context.Context, job Job) error
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing notification", "worker_id", w.ID, "notification_id", job.Notification.ID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Config struct {
	MaxWorkers     int
	JobQueueSize   int
	WorkerPoolSize int
	DeliverTimeout time.Duration
}

// Dispatcher is the notification queue. It is created once at startup, handed to
// whatever needs to notify, and drained by Shutdown.
type Dispatcher struct {
	sink           Sink
	logger         *slog.Logger
	deliverTimeout time.Duration

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	pending    sync.WaitGroup
	mu         sync.RWMutex
	closed     bool
	once       sync.Once
}

func NewDispatcher(config Config, sink Sink, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 256
	}

	workerPoolSize := config.WorkerPoolSize
	if workerPoolSize <= 0 {
		workerPoolSize = maxWorkers
	}

	deliverTimeout := config.DeliverTimeout
	if deliverTimeout <= 0 {
		deliverTimeout = 5 * time.Second
	}

	d := &Dispatcher{
		sink:           sink,
		logger:         logger,
		deliverTimeout: deliverTimeout,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, jobQueueSize),
		workerPool: make(chan chan Job, workerPoolSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	d.start()
	return d
}

func (d *Dispatcher) start() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(d.ctx, &d.wg, d.process)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("notification worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case job := <-d.jobQueue:
			metrics.NotificationQueueDepth.Set(float64(len(d.jobQueue)))

			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- job:
				case <-d.ctx.Done():
					d.pending.Done()
					return
				}
			case <-d.ctx.Done():
				d.pending.Done()
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("notification dispatcher shutting down")
			return
		}
	}
}

// Enqueue queues a job without blocking. A full queue drops the job and reports ErrQueueFull.
func (d *Dispatcher) Enqueue(job Job) error {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrDispatcherClosed
	}
	d.pending.Add(1)
	d.mu.RUnlock()

	select {
	case d.jobQueue <- job:
		metrics.NotificationsEnqueued.WithLabelValues("queued").Inc()
		metrics.NotificationQueueDepth.Set(float64(len(d.jobQueue)))
		return nil
	default:
		d.pending.Done()
		metrics.NotificationsEnqueued.WithLabelValues("dropped").Inc()
		d.logger.Warn("notification queue full, dropping notification",
			"kind", job.Notification.Kind,
			"recipient_id", job.Notification.RecipientID,
			"queue_capacity", cap(d.jobQueue))
		return ErrQueueFull
	}
}

func (d *Dispatcher) process(job Job) {
	defer d.pending.Done()

	ctx, cancel := context.WithTimeout(d.ctx, d.deliverTimeout)
	defer cancel()

	if err := d.sink.Deliver(ctx, job); err != nil {
		metrics.NotificationsEnqueued.WithLabelValues("failed").Inc()
		d.logger.Error("notification delivery failed",
			"notification_id", job.Notification.ID,
			"kind", job.Notification.Kind,
			"error", err)
		return
	}
	metrics.NotificationsEnqueued.WithLabelValues("delivered").Inc()
}

// Shutdown stops accepting jobs, waits for queued ones until ctx expires, then stops the workers.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	d.logger.Info("shutting down notification dispatcher", "queued", len(d.jobQueue))
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		d.pending.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		d.logger.Warn("notification queue not drained before deadline", "remaining", len(d.jobQueue))
	}

	d.cancel()
	d.wg.Wait()
	d.logger.Info("notification dispatcher shutdown complete")
}
