package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/akolanti/PortfolioChat/internal/adapter"
	"github.com/akolanti/PortfolioChat/internal/adapter/utils"
	"github.com/akolanti/PortfolioChat/internal/api"
	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioChat/internal/rag"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
)

var (
	logRH          = logger_i.NewLogger("RequestHandler")
	_ragService    rag.Service
	maxUploadBytes int64 = config.MaxUploadBytes
)

func InitRagHandler(ragService rag.Service, uploadLimit int64) {
	_ragService = ragService
	if uploadLimit > 0 {
		maxUploadBytes = uploadLimit
	}
}

// HealthHandler godoc
// @Summary      Service health
// @Description  Reports the indexed document count and the configured completion providers.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  rag.Health
// @Router       /health [get]
// @Router       /chat [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, _ragService.Health(r.Context()))
}

// ChatHandler godoc
// @Summary      Ask the portfolio assistant
// @Description  Answers from the indexed portfolio. Streams text/plain by default; stream=false returns JSON.
// @Description  The X-Reply-Source header names the layer that answered (a provider, guardrail or cache).
// @Tags         Messaging
// @Accept       json
// @Produce      plain
// @Produce      json
// @Param        request  body      api.ChatRequest       true  "A message or a conversation, with an optional chat_id"
// @Success      200      {object}  api.ChatJSONResponse  "Reply when stream is false"
// @Failure      400      {object}  api.ErrorResponse     "No message or unknown chat_id"
// @Failure      429      {object}  api.ErrorResponse     "Rate limited"
// @Failure      503      {object}  api.ErrorResponse     "No provider could answer"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) {
		return
	}
	ctx := request.Context()
	log := logRH.WithContext(ctx)

	var requestData api.ChatRequest
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			log.Error("Couldn't close the chat request body", "error", err)
		}
	}(request.Body)
	body := http.MaxBytesReader(w, request.Body, config.MaxChatBodyBytes)
	if err := json.NewDecoder(body).Decode(&requestData); err != nil {
		log.Warn("Bad chat request", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteErrorResponse(w, http.StatusRequestEntityTooLarge, "", "Request too large")
			return
		}
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "Bad Request")
		return
	}

	now := time.Now().UTC()
	history, err := adapter.ToChatHistory(requestData.Messages, now)
	if err != nil {
		writeChatError(w, request, requestData.ChatID, err)
		return
	}
	if msg := strings.TrimSpace(requestData.Message); msg != "" {
		history = append(history, commonModels.ChatMessage{Role: commonModels.RoleUser, Content: msg, Timestamp: now})
	}
	question, ok := commonModels.LastUserMessage(history)
	if !ok {
		writeChatError(w, request, requestData.ChatID, ragErrors.Validation("message is required"))
		return
	}

	// the guardrail breaker follows the conversation, else the visitor's address
	chatId := requestData.ChatID
	sessionId := chatId
	switch {
	case chatId == "":
		chatId = utils.GetNewUUID()
		sessionId = ClientIP(request)
		initNewChat(ctx, chatId)
	case !validateChatId(ctx, chatId):
		WriteErrorResponse(w, http.StatusBadRequest, chatId, "unknown chat_id")
		return
	case len(requestData.Messages) == 0:
		// single message clients rely on the stored conversation for context
		history = append(loadChatHistory(ctx, chatId), question)
	}

	stream := requestData.Stream == nil || *requestData.Stream
	reply, err := _ragService.Chat(ctx, rag.ChatRequest{SessionID: sessionId, Messages: history, Stream: stream})
	if err != nil {
		writeChatError(w, request, chatId, err)
		return
	}

	answer := reply.Text()
	saveChatTurn(ctx, chatId, question, commonModels.ChatMessage{Role: commonModels.RoleAssistant, Content: answer, Timestamp: time.Now().UTC()})
	log.Info("Chat answered", "source", reply.Source, "decision", reply.Decision, "replyLength", len(answer))

	if !stream {
		writeJsonResponse(w, http.StatusOK, api.ChatJSONResponse{
			Response:       answer,
			Source:         reply.Source,
			ChatId:         chatId,
			RelevantScores: nonNilScores(reply.Scores),
		})
		return
	}
	writeStream(w, request, chatId, reply)
}

// writeStream sends each fragment as its own flushed write so the browser renders it as it arrives.
// The reply is complete and screened before the first byte goes out, so the visitor waits for the whole
// generation; only the rendering is incremental.
func writeStream(w http.ResponseWriter, r *http.Request, chatId string, reply rag.ChatResponse) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Reply-Source", reply.Source)
	w.Header().Set("X-Chat-Id", chatId)
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	for _, fragment := range reply.Fragments {
		if r.Context().Err() != nil {
			return
		}
		if _, err := io.WriteString(w, fragment); err != nil {
			logRH.WithContext(r.Context()).Warn("Client went away mid stream", "error", err)
			return
		}
		if err := rc.Flush(); err != nil {
			logRH.WithContext(r.Context()).Debug("Flush not supported", "error", err)
		}
	}
}

func nonNilScores(scores []float64) []float64 {
	if scores == nil {
		return []float64{}
	}
	return scores
}

// GetStatusHandler godoc
// @Summary      Get batch ingestion job status
// @Description  Retrieves the status of a batch ingestion job, with each file's outcome.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse    "Current status of the job"
// @Failure      404  {object}  api.ErrorResponse  "Job not found"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	logRH.WithContext(r.Context()).Debug("Get status request", "jobId", idString)

	if idString == "" {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}
	result, isFound := GetJobStatus(r.Context(), idString)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}
