package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/domain/jobModel"
	"github.com/akolanti/PortfolioChat/internal/job"
	"github.com/akolanti/PortfolioChat/internal/metrics"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
)

// BatchIngester runs a queued batch job to completion and returns it with every file's outcome.
type BatchIngester interface {
	IngestBatch(ctx context.Context, job jobModel.Job) jobModel.Job
}

var (
	_jobService        *job.Service
	stopWorkerChannel  chan bool
	workerWaitGroup    *sync.WaitGroup
	dispatcherChannel  chan bool
	currentWorkerCount int64
	logger             = logger_i.NewLogger("WorkerPool")
	_ingester          BatchIngester
	minWorkerCount     = config.MinWorkerCount
	maxWorkerCount     = config.MaxWorkerCount
	idleWorkerTimeout  = config.IdleWorkerTimeout
	jobTimeout         = config.IngestJobTimeout
)

func InitServices(jobService *job.Service, ingester BatchIngester) {
	_jobService = jobService
	_ingester = ingester
	dispatcherChannel = jobService.DispatcherChannel
}

func InitWorkerPool(stopWorkerChan chan bool, waitGroup *sync.WaitGroup) {
	stopWorkerChannel = stopWorkerChan
	workerWaitGroup = waitGroup
	logger.Info("Initializing worker pool")
	go dispatcher()
}

func dispatcher() {
	createWorker()
	logger.Info("Dispatcher started")
	for {
		select {
		case _, ok := <-dispatcherChannel:
			if !ok {
				return
			}
			if atomic.LoadInt64(&currentWorkerCount) < maxWorkerCount {
				logger.Info("Creating new worker", "workerCount", atomic.LoadInt64(&currentWorkerCount))
				createWorker()
			}
		case <-stopWorkerChannel:
			return
		}
	}
}

func createWorker() {
	workerWaitGroup.Add(1)
	atomic.AddInt64(&currentWorkerCount, 1)
	metrics.IncrementActiveWorkerCount()
	go worker()
}

func worker() {
	idle := time.NewTimer(idleWorkerTimeout)
	defer idle.Stop()

	for {
		select {
		case currentJob := <-_jobService.JobChannel:
			metrics.DecrementJobsInQueue()
			executeJob(currentJob)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(idleWorkerTimeout)

		case <-stopWorkerChannel:
			removeWorker("Stop worker signal received", false)
			return

		case <-idle.C:
			if tryRetire() {
				removeWorker("Idle worker timeout", true)
				return
			}
			idle.Reset(idleWorkerTimeout)
		}
	}
}

// tryRetire claims a slot above the minimum pool size so two idle workers can never both
// retire the last one.
func tryRetire() bool {
	for {
		count := atomic.LoadInt64(&currentWorkerCount)
		if count <= minWorkerCount {
			return false
		}
		if atomic.CompareAndSwapInt64(&currentWorkerCount, count, count-1) {
			return true
		}
	}
}
