package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vkgeo/pkg/logger"
	"vkgeo/pkg/pipeline"
)

// Job represents a single profile to locate
type Job struct {
	Index     int
	ProfileID string
	Refresh   bool
}

// Result pairs a job with its own outcome
type Result struct {
	Job      Job
	Outcome  *pipeline.Outcome
	Duration time.Duration
}

// Locator resolves one profile into an outcome
type Locator interface {
	Locate(ctx context.Context, profileID string) *pipeline.Outcome
	Refresh(ctx context.Context, profileID string) *pipeline.Outcome
}

// Progress receives per-profile notifications from workers
type Progress interface {
	Start(profileID string)
	Complete(profileID string, records int)
	Fail(profileID string, err error)
}

// WorkerPool runs the locate pipeline for many profiles concurrently
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	locator     Locator
	progress    Progress
	logger      logger.Logger
}

// NewWorkerPool creates a new worker pool bound to ctx
func NewWorkerPool(ctx context.Context, numWorkers int, locator Locator, progress Progress, log logger.Logger) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		locator:     locator,
		progress:    progress,
		logger:      logger.OrDefault(log),
	}
}

// Start launches all workers
func (wp *WorkerPool) Start() {
	wp.logger.InfoWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for in-flight jobs and closes Results
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Debug("Worker pool stopped")
}

// Submit adds a job to the queue
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the channel of finished jobs
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

// Workers returns the number of workers
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()

	wp.logger.DebugWithFields("Worker processing profile", map[string]interface{}{
		"worker_id":  workerID,
		"profile_id": job.ProfileID,
	})

	if wp.progress != nil {
		wp.progress.Start(job.ProfileID)
	}

	var out *pipeline.Outcome
	if job.Refresh {
		out = wp.locator.Refresh(wp.ctx, job.ProfileID)
	} else {
		out = wp.locator.Locate(wp.ctx, job.ProfileID)
	}

	if wp.progress != nil {
		if out.Status == pipeline.UpstreamError {
			wp.progress.Fail(job.ProfileID, out.Err)
		} else {
			wp.progress.Complete(job.ProfileID, len(out.Records))
		}
	}

	return Result{Job: job, Outcome: out, Duration: time.Since(start)}
}

// Run locates every profile and returns results in input order
func Run(ctx context.Context, workers int, locator Locator, progress Progress, profileIDs []string, refresh bool, log logger.Logger) []Result {
	pool := NewWorkerPool(ctx, workers, locator, progress, log)
	pool.Start()

	results := make([]Result, len(profileIDs))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range pool.Results() {
			results[r.Job.Index] = r
		}
	}()

	for i, id := range profileIDs {
		if err := pool.Submit(Job{Index: i, ProfileID: id, Refresh: refresh}); err != nil {
			pool.logger.WithError(err).Warn("profile not submitted")
			break
		}
	}

	pool.Stop()
	<-done

	// profiles skipped after cancellation
	for i, r := range results {
		if r.Outcome == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results[i] = Result{
				Job:     Job{Index: i, ProfileID: profileIDs[i], Refresh: refresh},
				Outcome: &pipeline.Outcome{ProfileID: profileIDs[i], Status: pipeline.UpstreamError, Err: err},
			}
		}
	}

	return results
}
