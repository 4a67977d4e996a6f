package store

import (
	"context"
	"encoding/json"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/data/redisStore"
	"github.com/akolanti/PortfolioChat/internal/domain/jobModel"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
)

const jobKeyPrefix = "job:"

type RedisJobStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisJobStore(ctx context.Context, settings config.RedisSettings) (*RedisJobStore, error) {
	s, err := redisStore.GetRedisStore(ctx, redisStore.Options{
		Addr:     settings.Addr,
		Password: settings.Password,
		DB:       config.RedisJobStore,
	})
	if err != nil {
		return nil, err
	}
	return &RedisJobStore{store: s, logger: logger_i.NewLogger("JobStore")}, nil
}

func (s *RedisJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	log := s.logger.WithContext(ctx).With("jobId", job.Id)
	log.Debug("saving job")
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	err = s.store.Set(ctx, jobKeyPrefix+job.Id, data, config.RedisJobStoreTTL)
	if err != nil {
		log.Error("Error saving job to Redis", "error", err)
		return err
	}
	log.Debug("Saved job to Redis", "status", job.Status)
	return nil
}

func (s *RedisJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	var job jobModel.Job
	log := s.logger.WithContext(ctx).With("jobId", jobId)
	val, err := s.store.Get(ctx, jobKeyPrefix+jobId)
	if s.store.IsNil(err) {
		return job, false
	} else if err != nil {
		log.Error("Error reading job from Redis", "error", err)
		return job, false
	}

	if err = json.Unmarshal([]byte(val), &job); err != nil {
		log.Error("Stored job is not valid JSON", "error", err)
		return job, false
	}
	return job, true
}

func (s *RedisJobStore) DeleteJob(ctx context.Context, jobID string) {
	if err := s.store.Del(ctx, jobKeyPrefix+jobID); err != nil {
		s.logger.WithContext(ctx).Error("Error deleting job from Redis", "jobId", jobID, "error", err)
		return
	}
	s.logger.WithContext(ctx).Debug("Job deleted from Redis", "jobId", jobID)
}

func TestJobStore(store *redisStore.Store) *RedisJobStore {
	return &RedisJobStore{
		store:  store,
		logger: logger_i.NewLogger("test redis"),
	}
}
