package notification

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/metrics"
)

var (
	ErrQueueFull         = errors.New("notification queue is full")
	ErrDispatcherStopped = errors.New("notification dispatcher is not running")
)

const defaultSendTimeout = 30 * time.Second

// Job is one message waiting for delivery. Kind labels the delivery metric.
type Job struct {
	Kind    string
	Message Message
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
			// register as idle
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker processing notification", "worker_id", w.ID, "kind", job.Kind)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type Config struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher delivers mail in the background through a fixed pool of workers
// fed from a bounded queue.
type Dispatcher struct {
	mailer  Mailer
	metrics *metrics.Metrics
	logger  *slog.Logger

	workers     int
	sendTimeout time.Duration
	jobQueue    chan Job
	workerPool  chan chan Job

	mu      sync.RWMutex
	started bool
	closed  bool

	ctx          context.Context
	cancel       context.CancelFunc
	workerCancel context.CancelFunc
	wg           sync.WaitGroup
	startOnce    sync.Once
	stopOnce     sync.Once
}

func NewDispatcher(mailer Mailer, m *metrics.Metrics, cfg Config, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}

	return &Dispatcher{
		mailer:      mailer,
		metrics:     m,
		logger:      logger,
		workers:     workers,
		sendTimeout: sendTimeout,
		jobQueue:    make(chan Job, queueSize),
		workerPool:  make(chan chan Job, workers),
	}
}

// Start launches the workers. Cancelling ctx abandons queued jobs; Stop drains them.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.ctx, d.cancel = context.WithCancel(ctx)
		var workerCtx context.Context
		workerCtx, d.workerCancel = context.WithCancel(d.ctx)

		for i := 0; i < d.workers; i++ {
			worker := NewWorker(i, d.workerPool, d.logger)
			worker.Start(workerCtx, &d.wg, d.process)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.mu.Lock()
		d.started = true
		d.mu.Unlock()

		d.logger.Info("notification dispatcher started",
			"workers", d.workers,
			"queue_size", cap(d.jobQueue))
	})
}

// Enqueue hands a job to the pool without blocking.
func (d *Dispatcher) Enqueue(job Job) error {
	if err := job.Message.Validate(); err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.started || d.closed {
		return ErrDispatcherStopped
	}

	select {
	case d.jobQueue <- job:
		return nil
	default:
		d.metrics.ObserveDelivery(job.Kind, ErrQueueFull)
		return ErrQueueFull
	}
}

// Stop refuses new jobs, waits for the queued ones to be delivered and shuts the
// workers down.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		started := d.started
		close(d.jobQueue)
		d.mu.Unlock()

		if !started {
			return
		}
		d.logger.Info("draining notification queue", "pending", len(d.jobQueue))
		d.wg.Wait()
		d.cancel()
		d.logger.Info("notification dispatcher stopped")
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()
	defer d.workerCancel()

	for job := range d.jobQueue {
		select {
		case jobChannel := <-d.workerPool:
			select {
			case jobChannel <- job:
			case <-d.ctx.Done():
				d.logger.Warn("dispatcher cancelled, dropping notification", "kind", job.Kind)
				return
			}
		case <-d.ctx.Done():
			d.logger.Warn("dispatcher cancelled, dropping notification", "kind", job.Kind)
			return
		}
	}
}

func (d *Dispatcher) process(job Job) {
	ctx, cancel := internal.WithTimeout(internal.Detach(d.ctx), d.sendTimeout)
	defer cancel()

	err := d.mailer.Send(ctx, job.Message)
	d.metrics.ObserveDelivery(job.Kind, err)
	if err != nil {
		d.logger.Error("notification delivery failed",
			"kind", job.Kind,
			"recipients", len(job.Message.To),
			"error", err)
		return
	}
	d.logger.Debug("notification delivered", "kind", job.Kind, "recipients", len(job.Message.To))
}
