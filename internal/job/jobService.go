package job

import (
	"github.com/akolanti/PortfolioChat/internal/domain/jobModel"
)

// Service holds the queue shared by the HTTP handlers that enqueue batch ingest jobs and the
// worker pool that drains it.
type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	MessageStore      jobModel.MessageStore
}

type ServiceConfig struct {
	BufferLimit  int
	JobStore     jobModel.JobStore
	MessageStore jobModel.MessageStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        make(chan jobModel.Job, cfg.BufferLimit),
		DispatcherChannel: make(chan bool, cfg.BufferLimit),
		JobStore:          cfg.JobStore,
		MessageStore:      cfg.MessageStore,
	}
}
