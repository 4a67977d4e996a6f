package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/domain/jobModel"
	"github.com/akolanti/PortfolioChat/internal/job"
	"github.com/akolanti/PortfolioChat/internal/metrics"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           = logger_i.NewLogger("JobHandler")
)

type JobHandler struct {
	service *job.Service
}

func InitJobHandler(jobService *job.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService}
		logJH.Info("Starting job handler")
	})
}

// CreateBatchJob queues the spooled files as one ingest job and returns its id.
func CreateBatchJob(ctx context.Context, id string, files []jobModel.IngestFile) {
	traceId, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	_job := jobModel.Job{
		Id:          id,
		TraceId:     traceId,
		JobType:     jobModel.JobTypeIngest,
		JobPayload:  jobModel.JobPayload{Files: files},
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
		CurrentStep: jobModel.IngestInit,
	}
	handlerInstance.pushToJobChannel(ctx, _job)
}

func GetJobStatus(ctx context.Context, id string) (result jobModel.Job, isFound bool) {
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctx, id)
	}
	return result, false
}

// validateChatId reports whether a client supplied chat id refers to a live conversation.
func validateChatId(ctx context.Context, chatId string) bool {
	if handlerInstance == nil || handlerInstance.service.MessageStore == nil {
		return false
	}
	return handlerInstance.service.MessageStore.ValidateChatId(ctx, chatId)
}

func initNewChat(ctx context.Context, chatId string) {
	if handlerInstance == nil || handlerInstance.service.MessageStore == nil {
		return
	}
	if err := handlerInstance.service.MessageStore.InitNewChat(ctx, chatId); err != nil {
		logJH.WithContext(ctx).Error("Error initiating new chat", "chatId", chatId, "error", err)
	}
}

func loadChatHistory(ctx context.Context, chatId string) []commonModels.ChatMessage {
	if handlerInstance == nil || handlerInstance.service.MessageStore == nil {
		return nil
	}
	history, err := handlerInstance.service.MessageStore.GetMessageHistory(ctx, chatId)
	if err != nil {
		logJH.WithContext(ctx).Error("Failed to get message history", "chatId", chatId, "error", err)
		return nil
	}
	return history
}

func saveChatTurn(ctx context.Context, chatId string, question, answer commonModels.ChatMessage) {
	if handlerInstance == nil || handlerInstance.service.MessageStore == nil {
		return
	}
	if err := handlerInstance.service.MessageStore.AppendMessages(ctx, chatId, question, answer); err != nil {
		logJH.WithContext(ctx).Error("Failed to save chat history", "chatId", chatId, "error", err)
	}
}

// private methods
func (h *JobHandler) pushToJobChannel(ctx context.Context, _job jobModel.Job) {
	log := logJH.WithContext(ctx).With("jobId", _job.Id)
	if err := h.service.JobStore.SaveJob(ctx, _job); err != nil {
		log.Error("Failed to save queued job", "error", err)
	}

	metrics.IncrementJobsInQueue()
	h.service.JobChannel <- _job //blocking send keeps the queue bounded
	log.Info("Created new job", "files", len(_job.JobPayload.Files))

	//ingestion is slow and calls external services, so every batch job asks the dispatcher for a
	//worker. idle workers retire on their own
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	metrics.StartDispatcherSignalCount()
	log.Debug("Signalling dispatcher", "requestCount", accurateCount)
	select {
	case h.service.DispatcherChannel <- true:
	default:
		log.Debug("Dispatcher busy, signal dropped")
	}
}
