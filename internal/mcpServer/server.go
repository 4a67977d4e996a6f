package mcpServer

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/rag"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	Version = "1.0.0"
	// tool calls without a session share this guardrail session
	defaultSession = "mcp"
)

// Portfolio is the slice of the RAG service the tools need.
type Portfolio interface {
	Chat(ctx context.Context, req rag.ChatRequest) (rag.ChatResponse, error)
	ListDocuments(ctx context.Context) ([]commonModels.IndexedDocument, error)
}

type Server struct {
	portfolio Portfolio
	server    *mcp.Server
	logger    *logger_i.Logger
}

func NewServer(portfolio Portfolio) (*Server, error) {
	if portfolio == nil {
		return nil, errors.New("mcp server needs a portfolio service")
	}
	s := &Server{
		portfolio: portfolio,
		server:    mcp.NewServer(&mcp.Implementation{Name: "portfolio-chat", Version: Version}, nil),
		logger:    logger_i.NewLogger("MCP"),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_portfolio",
		Description: "Ask a question about the portfolio owner's work, projects, skills and experience. Returns the answer and which layer produced it.",
	}, s.askPortfolio)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents indexed in the portfolio knowledge base with their chunk counts.",
	}, s.listDocuments)

	return s, nil
}

// Handler serves the streamable HTTP transport; mount it at /mcp.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

type AskInput struct {
	Question  string `json:"question" jsonschema:"The question to ask, in natural language"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Optional conversation id used for abuse protection"`
}

type AskOutput struct {
	Answer string `json:"answer" jsonschema:"The assistant's reply"`
	Source string `json:"source" jsonschema:"Layer that answered: a provider name, guardrail or cache"`
}

func (s *Server) askPortfolio(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, AskOutput{}, errors.New("question is required")
	}
	session := input.SessionID
	if session == "" {
		session = defaultSession
	}

	reply, err := s.portfolio.Chat(ctx, rag.ChatRequest{
		SessionID: session,
		Messages:  []commonModels.ChatMessage{{Role: commonModels.RoleUser, Content: question, Timestamp: time.Now().UTC()}},
	})
	if err != nil {
		s.logger.WithContext(ctx).Error("ask_portfolio failed", "error", err)
		return nil, AskOutput{}, errors.New("the assistant could not answer right now")
	}
	return nil, AskOutput{Answer: reply.Text(), Source: reply.Source}, nil
}

type ListDocumentsInput struct{}

type DocumentSummary struct {
	Name       string `json:"name"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  string `json:"created_at"`
}

type ListDocumentsOutput struct {
	Documents   []DocumentSummary `json:"documents"`
	TotalChunks int               `json:"total_chunks"`
}

func (s *Server) listDocuments(ctx context.Context, _ *mcp.CallToolRequest, _ ListDocumentsInput) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.portfolio.ListDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	out := ListDocumentsOutput{Documents: make([]DocumentSummary, len(docs))}
	for i, d := range docs {
		out.Documents[i] = DocumentSummary{Name: d.Name, ChunkCount: d.ChunkCount, CreatedAt: d.CreatedAt.Format(time.RFC3339)}
		out.TotalChunks += d.ChunkCount
	}
	return nil, out, nil
}
