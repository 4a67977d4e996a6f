package adapter

import (
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/PortfolioChat/internal/api"
	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/domain/jobModel"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	files := make([]api.FileResult, len(job.JobPayload.Files))
	for i, f := range job.JobPayload.Files {
		files[i] = api.FileResult{
			DocumentName: f.DocumentName,
			Status:       string(f.Status),
			Stats:        f.Stats,
			Error:        f.Error,
		}
	}

	return api.JobResponse{
		Id:        job.Id,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    api.Result{Status: string(job.Status), Files: files},
	}
}

func BadRequest(id string, message string, code int) api.ErrorResponse {
	return api.ErrorResponse{
		Id: id,
		Error: api.JobOutgoingError{
			Code:    code,
			Message: message,
			Retry:   false,
		},
	}
}

// ToChatHistory converts the wire conversation. Empty contents are dropped; an unknown role is a validation error.
func ToChatHistory(messages []api.ChatMessage, now time.Time) ([]commonModels.ChatMessage, error) {
	history := make([]commonModels.ChatMessage, 0, len(messages))
	for i, m := range messages {
		role, ok := commonModels.ParseRole(m.Role)
		if !ok {
			return nil, ragErrors.Validation("messages[%d]: unknown role %q", i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		history = append(history, commonModels.ChatMessage{Role: role, Content: m.Content, Timestamp: now})
	}
	return history, nil
}

func ToDocumentsResponse(docs []commonModels.IndexedDocument) api.DocumentsResponse {
	res := api.DocumentsResponse{Documents: make([]api.DocumentInfo, len(docs))}
	for i, d := range docs {
		res.Documents[i] = api.DocumentInfo{Name: d.Name, ChunkCount: d.ChunkCount, CreatedAt: d.CreatedAt}
		res.TotalChunks += d.ChunkCount
	}
	return res
}
