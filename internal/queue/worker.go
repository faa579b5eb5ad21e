package queue

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	apperrors "github.com/codebuildervaibhav/news-shorts/internal/errors"
	"github.com/codebuildervaibhav/news-shorts/internal/pipeline"
	"github.com/codebuildervaibhav/news-shorts/internal/types"
)

// Runner executes a pipeline request
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// RunDirs hands out a work directory per job
type RunDirs interface {
	RunDir(runID string) (string, error)
}

// WorkerPool manages a pool of workers processing video jobs
type WorkerPool struct {
	jobQueue    chan *Job
	workerCount int
	runner      Runner
	dirs        RunDirs

	mu   sync.RWMutex
	jobs map[string]*Job

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workerCount int, runner Runner, dirs RunDirs) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &WorkerPool{
		jobQueue:    make(chan *Job, 100),
		workerCount: workerCount,
		runner:      runner,
		dirs:        dirs,
		jobs:        make(map[string]*Job),
	}
}

// Start launches the workers. Cancelling ctx aborts running jobs.
func (wp *WorkerPool) Start(ctx context.Context) {
	ctx, wp.cancel = context.WithCancel(ctx)

	log.Printf("Starting worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Stop stops accepting jobs, cancels running ones and waits for the workers to exit
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	if wp.cancel != nil {
		wp.cancel()
	}
	wp.wg.Wait()
	log.Println("Worker pool stopped")
}

// EnqueueJob registers job and adds it to the queue
func (wp *WorkerPool) EnqueueJob(job *Job) error {
	wp.mu.Lock()
	if _, exists := wp.jobs[job.ID]; exists {
		wp.mu.Unlock()
		return apperrors.NewConflictError(fmt.Sprintf("job %s already exists", job.ID), nil)
	}
	job.Status = types.StatusQueued
	job.UpdatedAt = time.Now()
	wp.jobs[job.ID] = job
	wp.mu.Unlock()

	select {
	case wp.jobQueue <- job:
		log.Printf("Job %s enqueued (prompt: %.60q)", job.ID, job.Prompt)
		return nil
	default:
		wp.update(job.ID, func(j *Job) {
			j.Status = types.StatusFailed
			j.Error = apperrors.NewUnavailableError("job queue is full", nil)
		})
		return apperrors.NewUnavailableError("job queue is full", nil)
	}
}

// Status returns a snapshot of the job with the given id
func (wp *WorkerPool) Status(id string) (JobStatus, bool) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	job, ok := wp.jobs[id]
	if !ok {
		return JobStatus{}, false
	}
	return snapshot(job), true
}

func snapshot(job *Job) JobStatus {
	s := JobStatus{
		JobID:     job.ID,
		Status:    job.Status,
		Stage:     string(job.Stage),
		WorkDir:   job.WorkDir,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if job.Error != nil {
		s.Error = job.Error.Error()
		s.ErrorType = string(apperrors.TypeOf(job.Error))
	}
	if job.Result != nil {
		s.VideoPath = job.Result.Final
		if job.Result.Record != nil {
			s.VideoID = job.Result.Record.GlobalID
			s.DriveURL = job.Result.Record.DriveURL
		}
	}
	return s
}

func (wp *WorkerPool) update(id string, fn func(j *Job)) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if job, ok := wp.jobs[id]; ok {
		fn(job)
		job.UpdatedAt = time.Now()
	}
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log.Printf("Worker %d started", id)

	for job := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Worker %d: PANIC processing job %s: %v\n%s",
						id, job.ID, r, string(debug.Stack()))
					wp.update(job.ID, func(j *Job) {
						j.Status = types.StatusFailed
						j.Error = fmt.Errorf("worker panic: %v", r)
					})
				}
			}()

			wp.processJob(ctx, id, job)
		}()
	}
}

// processJob runs the pipeline for job and records the outcome
func (wp *WorkerPool) processJob(ctx context.Context, workerID int, job *Job) {
	log.Printf("Worker %d: Processing job %s", workerID, job.ID)

	workDir, err := wp.dirs.RunDir(job.ID)
	if err != nil {
		wp.fail(workerID, job, err)
		return
	}

	wp.update(job.ID, func(j *Job) {
		j.Status = types.StatusProcessing
		j.WorkDir = workDir
	})

	result, err := wp.runner.Run(ctx, pipeline.Request{
		Prompt:  job.Prompt,
		Article: job.Article,
		WorkDir: workDir,
		OnStage: func(stage pipeline.Stage) {
			wp.update(job.ID, func(j *Job) { j.Stage = stage })
		},
	})
	if err != nil {
		wp.fail(workerID, job, err)
		return
	}

	wp.update(job.ID, func(j *Job) {
		j.Status = types.StatusCompleted
		j.Result = result
	})
	log.Printf("Worker %d: Job %s completed successfully (%s)", workerID, job.ID, result.Final)
}

func (wp *WorkerPool) fail(workerID int, job *Job, err error) {
	log.Printf("Worker %d: Job %s failed: %v", workerID, job.ID, err)
	wp.update(job.ID, func(j *Job) {
		j.Status = types.StatusFailed
		j.Error = err
	})
}
