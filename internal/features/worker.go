package features

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Job is one generation request executed off the dispatch path.
type Job struct {
	Name        string
	CandidateID string
	Run         func(ctx context.Context)
	EnqueuedAt  time.Time
}

// Runner executes jobs asynchronously. Submit reports false when the job was
// not accepted.
type Runner interface {
	Submit(job Job) bool
}

type WorkerConfig struct {
	Size              int
	MaxTasksPerWorker int
	MaxIdleTime       time.Duration
	MaxTaskWaitTime   time.Duration
}

func ReadWorkerConfig() WorkerConfig {
	cfg := WorkerConfig{
		Size:              viper.GetInt("worker.size"),
		MaxTasksPerWorker: viper.GetInt("worker.max_tasks_per_worker"),
		MaxIdleTime:       time.Duration(viper.GetInt("worker.max_idle_time")) * time.Second,
		MaxTaskWaitTime:   time.Duration(viper.GetInt("worker.max_task_wait_time")) * time.Second,
	}
	if cfg.Size <= 0 {
		cfg.Size = 4
	}
	if cfg.MaxTasksPerWorker <= 0 {
		cfg.MaxTasksPerWorker = 8
	}
	if cfg.MaxIdleTime <= 0 {
		cfg.MaxIdleTime = time.Minute
	}
	if cfg.MaxTaskWaitTime <= 0 {
		cfg.MaxTaskWaitTime = 2 * time.Second
	}
	return cfg
}

// GenerationWorkerPool runs jobs on up to Size workers. Workers exit after
// MaxIdleTime without work and are started again on demand.
type GenerationWorkerPool struct {
	jobQueue          chan Job
	workerCount       int
	maxTasksPerWorker int
	maxIdleTime       time.Duration
	maxTaskWaitTime   time.Duration
	logger            *zap.Logger
	ctx               context.Context
	cancel            context.CancelFunc
	wg                sync.WaitGroup
	mu                sync.RWMutex
	closed            bool
	nextWorkerID      int64
	// Metrics
	totalJobsEnqueued  int64
	totalJobsProcessed int64
	totalJobsDropped   int64
	activeWorkers      int64
}

func NewGenerationWorkerPool(cfg WorkerConfig, logger *zap.Logger) *GenerationWorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &GenerationWorkerPool{
		jobQueue:          make(chan Job, cfg.Size*cfg.MaxTasksPerWorker),
		workerCount:       cfg.Size,
		maxTasksPerWorker: cfg.MaxTasksPerWorker,
		maxIdleTime:       cfg.MaxIdleTime,
		maxTaskWaitTime:   cfg.MaxTaskWaitTime,
		logger:            logger,
		ctx:               ctx,
		cancel:            cancel,
	}
}

func (wp *GenerationWorkerPool) Start() {
	wp.logger.Info("Starting generation worker pool",
		zap.Int("workerCount", wp.workerCount),
		zap.Int("queueCapacity", cap(wp.jobQueue)),
		zap.Duration("maxIdleTime", wp.maxIdleTime))

	for i := 0; i < wp.workerCount; i++ {
		wp.ensureWorker()
	}
}

func (wp *GenerationWorkerPool) Stop() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	wp.cancel()
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.logger.Info("Generation worker pool stopped", zap.Any("metrics", wp.GetMetrics()))
}

// ensureWorker starts a worker unless the pool is already at capacity.
func (wp *GenerationWorkerPool) ensureWorker() {
	for {
		n := atomic.LoadInt64(&wp.activeWorkers)
		if int(n) >= wp.workerCount {
			return
		}
		if atomic.CompareAndSwapInt64(&wp.activeWorkers, n, n+1) {
			wp.wg.Add(1)
			go wp.worker(int(atomic.AddInt64(&wp.nextWorkerID, 1)))
			return
		}
	}
}

func (wp *GenerationWorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	idleTimer := time.NewTimer(wp.maxIdleTime)
	defer idleTimer.Stop()

	jobsProcessed := 0

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				atomic.AddInt64(&wp.activeWorkers, -1)
				wp.logger.Debug("Worker stopping - job queue closed",
					zap.Int("workerID", workerID),
					zap.Int("jobsProcessed", jobsProcessed))
				return
			}

			wp.logger.Debug("Worker processing job",
				zap.Int("workerID", workerID),
				zap.String("job", job.Name),
				zap.String("candidateId", job.CandidateID),
				zap.Duration("waitTime", time.Since(job.EnqueuedAt)))

			startTime := time.Now()
			wp.run(job)
			atomic.AddInt64(&wp.totalJobsProcessed, 1)
			jobsProcessed++

			wp.logger.Debug("Worker completed job",
				zap.Int("workerID", workerID),
				zap.String("job", job.Name),
				zap.String("candidateId", job.CandidateID),
				zap.Duration("processingTime", time.Since(startTime)),
				zap.Duration("totalTime", time.Since(job.EnqueuedAt)))

			// Reset idle timer
			if !idleTimer.Stop() {
				select {
				case <-idleTimer.C:
				default:
				}
			}
			idleTimer.Reset(wp.maxIdleTime)

		case <-idleTimer.C:
			atomic.AddInt64(&wp.activeWorkers, -1)
			wp.logger.Debug("Worker idle timeout, exiting",
				zap.Int("workerID", workerID),
				zap.Int("jobsProcessed", jobsProcessed))
			// A job enqueued while this worker was leaving still needs a worker.
			if len(wp.jobQueue) > 0 {
				wp.mu.RLock()
				if !wp.closed {
					wp.ensureWorker()
				}
				wp.mu.RUnlock()
			}
			return

		case <-wp.ctx.Done():
			atomic.AddInt64(&wp.activeWorkers, -1)
			wp.logger.Debug("Worker stopping - context cancelled",
				zap.Int("workerID", workerID),
				zap.Int("jobsProcessed", jobsProcessed))
			return
		}
	}
}

func (wp *GenerationWorkerPool) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error("Job panicked",
				zap.String("job", job.Name),
				zap.String("candidateId", job.CandidateID),
				zap.Any("panic", r))
		}
	}()
	job.Run(wp.ctx)
}

func (wp *GenerationWorkerPool) Submit(job Job) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		atomic.AddInt64(&wp.totalJobsDropped, 1)
		return false
	}

	job.EnqueuedAt = time.Now()
	select {
	case wp.jobQueue <- job:
	default:
		wp.logger.Warn("Job queue is full, waiting",
			zap.String("job", job.Name),
			zap.String("candidateId", job.CandidateID),
			zap.Int("queueSize", len(wp.jobQueue)),
			zap.Int("queueCapacity", cap(wp.jobQueue)))

		wait := time.NewTimer(wp.maxTaskWaitTime)
		defer wait.Stop()
		select {
		case wp.jobQueue <- job:
		case <-wait.C:
			atomic.AddInt64(&wp.totalJobsDropped, 1)
			wp.logger.Error("Job enqueue timeout - queue may be full or workers unavailable",
				zap.String("job", job.Name),
				zap.String("candidateId", job.CandidateID),
				zap.Duration("timeout", wp.maxTaskWaitTime),
				zap.Int64("activeWorkers", atomic.LoadInt64(&wp.activeWorkers)))
			return false
		}
	}

	atomic.AddInt64(&wp.totalJobsEnqueued, 1)
	wp.ensureWorker()
	return true
}

// GetMetrics returns worker pool metrics
func (wp *GenerationWorkerPool) GetMetrics() map[string]interface{} {
	return map[string]interface{}{
		"total_jobs_enqueued":  atomic.LoadInt64(&wp.totalJobsEnqueued),
		"total_jobs_processed": atomic.LoadInt64(&wp.totalJobsProcessed),
		"total_jobs_dropped":   atomic.LoadInt64(&wp.totalJobsDropped),
		"active_workers":       atomic.LoadInt64(&wp.activeWorkers),
		"queue_size":           len(wp.jobQueue),
		"queue_capacity":       cap(wp.jobQueue),
	}
}
