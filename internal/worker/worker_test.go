package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/PortfolioChat/internal/domain/jobModel"
	"github.com/akolanti/PortfolioChat/internal/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockIngester tracks executed jobs
type MockIngester struct {
	ProcessedCount int32
	OnIngestBatch  func(ctx context.Context, j jobModel.Job) jobModel.Job
}

func (m *MockIngester) IngestBatch(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnIngestBatch != nil {
		return m.OnIngestBatch(ctx, j)
	}
	j.Status = jobModel.JobStatusComplete
	return j
}

type MockJobStore struct {
	mu    sync.Mutex
	saved []jobModel.Job

	OnSaveJob func(ctx context.Context, job jobModel.Job) error
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].Id == jobId {
			return m.saved[i], true
		}
	}
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	m.mu.Lock()
	m.saved = append(m.saved, j)
	m.mu.Unlock()
	if m.OnSaveJob != nil {
		return m.OnSaveJob(ctx, j)
	}
	return nil
}

func (m *MockJobStore) Statuses(jobId string) []jobModel.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []jobModel.JobStatus
	for _, j := range m.saved {
		if j.Id == jobId {
			out = append(out, j.Status)
		}
	}
	return out
}

func resetPool(t *testing.T) {
	t.Helper()
	atomic.StoreInt64(&currentWorkerCount, 0)
	prevIdle, prevMin := idleWorkerTimeout, minWorkerCount
	t.Cleanup(func() {
		idleWorkerTimeout, minWorkerCount = prevIdle, prevMin
	})
}

func TestWorkerPool_Flow(t *testing.T) {
	resetPool(t)
	store := &MockJobStore{}
	jobSvc := job.InitJobService(job.ServiceConfig{BufferLimit: 10, JobStore: store})
	ingester := &MockIngester{}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	InitServices(jobSvc, ingester)
	InitWorkerPool(stopChan, wg)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		jobSvc.DispatcherChannel <- true

		assert.Eventually(t, func() bool {
			return atomic.LoadInt64(&currentWorkerCount) >= 2
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("Worker processes an ingest job", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "test-1", JobType: jobModel.JobTypeIngest, Status: jobModel.JobStatusQueued}

		require.Eventually(t, func() bool {
			return atomic.LoadInt32(&ingester.ProcessedCount) == 1
		}, time.Second, 10*time.Millisecond)
		require.Eventually(t, func() bool {
			return len(store.Statuses("test-1")) == 2
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, []jobModel.JobStatus{jobModel.JobStatusRunning, jobModel.JobStatusComplete}, store.Statuses("test-1"))
	})

	t.Run("Unknown job type is recorded as an error", func(t *testing.T) {
		jobSvc.JobChannel <- jobModel.Job{Id: "test-2", JobType: "Query"}

		require.Eventually(t, func() bool {
			return len(store.Statuses("test-2")) == 2
		}, time.Second, 10*time.Millisecond)
		saved, _ := store.GetJob(context.Background(), "test-2")
		assert.Equal(t, jobModel.JobStatusError, saved.Status)
		assert.Equal(t, int32(1), atomic.LoadInt32(&ingester.ProcessedCount))
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			assert.Equal(t, int64(0), atomic.LoadInt64(&currentWorkerCount))
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestWorker_IdleTimeout(t *testing.T) {
	resetPool(t)
	idleWorkerTimeout = 20 * time.Millisecond
	minWorkerCount = 1

	InitServices(&job.Service{JobChannel: make(chan jobModel.Job)}, &MockIngester{})
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}
	workerWaitGroup = wg
	stopWorkerChannel = stopChan

	for i := 0; i < 3; i++ {
		createWorker()
	}

	// idle workers retire down to the minimum, never below it
	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&currentWorkerCount) == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&currentWorkerCount))

	close(stopChan)
	wg.Wait()
	assert.Equal(t, int64(0), atomic.LoadInt64(&currentWorkerCount))
}
