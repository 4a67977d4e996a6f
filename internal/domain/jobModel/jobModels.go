package jobModel

import (
	"context"
	"time"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	// JobStatusPartial means at least one file failed while others were indexed.
	JobStatusPartial JobStatus = "PARTIAL"
	JobStatusError   JobStatus = "Error"

	IngestInit       InternalStatus = "IngestInit"
	IngestProcessing InternalStatus = "IngestProcessing"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeIngest JobType = "Ingest"

	FileStatusPending FileStatus = "PENDING"
	FileStatusIndexed FileStatus = "INDEXED"
	FileStatusFailed  FileStatus = "FAILED"
)

type FileStatus string

type Job struct {
	Id          string         `json:"id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	Files []IngestFile `json:"files"`
}

// IngestFile points at an uploaded file spooled to disk and records its outcome.
type IngestFile struct {
	DocumentName string                    `json:"document_name"`
	Path         string                    `json:"path"`
	MimeType     string                    `json:"mime_type"`
	Status       FileStatus                `json:"status"`
	Stats        *commonModels.IngestStats `json:"stats,omitempty"`
	Error        string                    `json:"error,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// MessageStore keeps conversation history per chat id.
type MessageStore interface {
	ValidateChatId(ctx context.Context, id string) bool
	InitNewChat(ctx context.Context, id string) error
	AppendMessages(ctx context.Context, id string, messages ...commonModels.ChatMessage) error
	GetMessageHistory(ctx context.Context, chatId string) ([]commonModels.ChatMessage, error)
}
