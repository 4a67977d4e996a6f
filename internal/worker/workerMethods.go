package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/PortfolioChat/internal/config"
	jobmodel "github.com/akolanti/PortfolioChat/internal/domain/jobModel"
	"github.com/akolanti/PortfolioChat/internal/metrics"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, jobTimeout)
	defer cancel()
	log := logger.WithContext(ctx).With("jobId", job.Id)
	log.Debug("Processing job")

	job.Status = jobmodel.JobStatusRunning
	saveJobState(ctx, job)

	if job.JobType != jobmodel.JobTypeIngest {
		log.Error("Unknown job type", "jobType", job.JobType)
		job.Status = jobmodel.JobStatusError
		job.CurrentStep = jobmodel.Error
		job.Error = jobmodel.JobError{Code: 500, Message: "unknown job type"}
		job.EndTime = time.Now()
		saveJobState(ctx, job)
		return
	}

	job = _ingester.IngestBatch(ctx, job)
	log.Info("Job finished", "status", job.Status)
	saveJobState(ctx, job)
}

// removeWorker releases the worker's slot unless tryRetire already did.
func removeWorker(reason string, slotReleased bool) {
	if !slotReleased {
		atomic.AddInt64(&currentWorkerCount, -1)
	}
	workerWaitGroup.Done()
	metrics.DecrementActiveWorkerCount()
	logger.Info("Removed worker", "reason", reason, "workerCount", atomic.LoadInt64(&currentWorkerCount))
}

// saveJobState writes with a fresh deadline so a job that ran out of time still records its outcome.
func saveJobState(ctx context.Context, job jobmodel.Job) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := _jobService.JobStore.SaveJob(sctx, job); err != nil {
		logger.WithContext(ctx).Error("Failed to update job status", "jobId", job.Id, "error", err)
	}
}
