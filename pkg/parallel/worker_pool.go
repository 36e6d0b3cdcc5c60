// Package parallel runs independent render jobs on a bounded set of
// goroutines.
package parallel

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/dd0wney/cluso-flowviz/pkg/logging"
)

// ErrTooManyWorkers is returned when the worker count exceeds the maximum allowed.
var ErrTooManyWorkers = errors.New("worker count exceeds maximum")

// ErrPoolClosed is returned by Submit after Close
var ErrPoolClosed = errors.New("worker pool closed")

// MaxWorkers is the maximum number of workers allowed in a pool.
const MaxWorkers = math.MaxInt / 2

// Task is one unit of work. Its error is collected, not fatal to the pool.
type Task func() error

// WorkerPool runs submitted tasks on a fixed number of goroutines
type WorkerPool struct {
	workers   int
	taskQueue chan Task
	logger    logging.Logger
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // guards taskQueue against close during send
	closed    bool

	errMu sync.Mutex
	errs  []error
}

// NewWorkerPool starts a pool. Non-positive counts mean one worker.
func NewWorkerPool(workers int, logger logging.Logger) (*WorkerPool, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan Task, workers*2),
		logger:    logger.With(logging.Component("worker_pool")),
	}
	for i := 0; i < pool.workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool, nil
}

// Workers returns the number of goroutines in the pool
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		if err := wp.run(task); err != nil {
			wp.errMu.Lock()
			wp.errs = append(wp.errs, err)
			wp.errMu.Unlock()
		}
	}
}

// run converts a panic into an error so one bad job cannot kill a worker
func (wp *WorkerPool) run(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error("task panic recovered", logging.Any("panic", r))
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task()
}

// Submit queues a task, blocking while the queue is full
func (wp *WorkerPool) Submit(task Task) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrPoolClosed
	}
	wp.taskQueue <- task
	return nil
}

// Close stops accepting tasks and waits for queued ones to finish
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}

// Wait closes the pool and returns every task error joined
func (wp *WorkerPool) Wait() error {
	wp.Close()
	wp.errMu.Lock()
	defer wp.errMu.Unlock()
	return errors.Join(wp.errs...)
}
