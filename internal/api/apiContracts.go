package api

import (
	"time"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
)

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type Result struct {
	Status string       `json:"status" example:"PARTIAL"`
	Files  []FileResult `json:"files,omitempty"`
}

type FileResult struct {
	DocumentName string                    `json:"document_name" example:"resume.pdf"`
	Status       string                    `json:"status" example:"INDEXED"`
	Stats        *commonModels.IngestStats `json:"stats,omitempty"`
	Error        string                    `json:"error,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type ErrorResponse struct {
	Id    string           `json:"id,omitempty"`
	Error JobOutgoingError `json:"error"`
}

type ChatJSONResponse struct {
	Response       string    `json:"response" example:"I built a flood forecasting service in Go."`
	Source         string    `json:"source" example:"gemini"`
	ChatId         string    `json:"chat_id" example:"chat_550"`
	RelevantScores []float64 `json:"relevant_scores"`
}

type DocumentInfo struct {
	Name       string    `json:"name" example:"resume.pdf"`
	ChunkCount int       `json:"chunk_count" example:"12"`
	CreatedAt  time.Time `json:"created_at"`
}

type DocumentsResponse struct {
	Documents   []DocumentInfo `json:"documents"`
	TotalChunks int            `json:"total_chunks"`
}

type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

type ClearResponse struct {
	Cleared bool `json:"cleared"`
}

// requests---------------------

type ChatMessage struct {
	Role    string `json:"role" example:"user"`
	Content string `json:"content" example:"What have you built with Go?"`
}

// ChatRequest carries either a single message or the whole conversation. Stream defaults to true.
type ChatRequest struct {
	Message  string        `json:"message,omitempty"`
	Messages []ChatMessage `json:"messages,omitempty"`
	ChatID   string        `json:"chat_id,omitempty"`
	Stream   *bool         `json:"stream,omitempty"`
}

type JobStatusRequest struct {
	JobId string `json:"job_id" validate:"required"`
}
