package store

import (
	"context"
	"sync"
	"time"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/domain/jobModel"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem JobStore")

type storedJob struct {
	job     jobModel.Job
	savedAt time.Time
}

// InMemoryJobStore is the fallback when Redis is offline. Jobs expire after the same TTL
// Redis would apply, so status polling behaves the same on both.
type InMemoryJobStore struct {
	jobMutex *sync.RWMutex
	jobMap   map[string]storedJob
	ttl      time.Duration
	now      func() time.Time
}

func InitInMemoryJobStore() *InMemoryJobStore {
	return NewInMemoryJobStore(config.RedisJobStoreTTL, time.Now)
}

func NewInMemoryJobStore(ttl time.Duration, now func() time.Time) *InMemoryJobStore {
	return &InMemoryJobStore{
		jobMutex: new(sync.RWMutex),
		jobMap:   make(map[string]storedJob),
		ttl:      ttl,
		now:      now,
	}
}

// SaveJob refreshes the job's expiry and drops every job that has already expired.
func (store *InMemoryJobStore) SaveJob(ctx context.Context, jobToStore jobModel.Job) error {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	now := store.now()
	for id, entry := range store.jobMap {
		if store.expired(entry, now) {
			delete(store.jobMap, id)
		}
	}
	store.jobMap[jobToStore.Id] = storedJob{job: jobToStore, savedAt: now}
	inMemLogger.WithContext(ctx).Debug("Saved job to store", "jobId", jobToStore.Id, "status", jobToStore.Status)
	return nil
}

func (store *InMemoryJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	store.jobMutex.RLock()
	defer store.jobMutex.RUnlock()
	entry, found := store.jobMap[jobId]
	if found && store.expired(entry, store.now()) {
		found = false
	}
	inMemLogger.WithContext(ctx).Debug("Get job", "jobId", jobId, "found", found)
	if !found {
		return jobModel.Job{}, false
	}
	return entry.job, true
}

func (store *InMemoryJobStore) DeleteJob(ctx context.Context, jobID string) {
	store.jobMutex.Lock()
	defer store.jobMutex.Unlock()
	delete(store.jobMap, jobID)
}

func (store *InMemoryJobStore) expired(entry storedJob, now time.Time) bool {
	return store.ttl > 0 && now.Sub(entry.savedAt) >= store.ttl
}
