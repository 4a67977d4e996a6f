package commonModels

import (
	"strings"
	"time"
)

// Chunk is a contiguous span of a source document. StartChar and EndChar are rune offsets in the normalized text.
type Chunk struct {
	Text      string `json:"text"`
	Index     int    `json:"index"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
	Page      int    `json:"page,omitempty"`
	Source    string `json:"source,omitempty"`
}

type EmbeddedChunk struct {
	Chunk
	Vector       []float32 `json:"vector"`
	DocumentName string    `json:"document_name"`
	CreatedAt    time.Time `json:"created_at"`
}

type ScoredChunk struct {
	Text         string  `json:"text"`
	DocumentName string  `json:"document_name,omitempty"`
	ChunkIndex   int     `json:"chunk_index"`
	Score        float64 `json:"score"`
}

type IndexedDocument struct {
	Name       string    `json:"name"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ParseRole accepts the roles browsers tend to send; "model" is treated as assistant.
func ParseRole(r string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(r)) {
	case "user":
		return RoleUser, true
	case "assistant", "model":
		return RoleAssistant, true
	}
	return "", false
}

// LastUserMessage returns the newest message when it was written by the user.
func LastUserMessage(history []ChatMessage) (ChatMessage, bool) {
	if len(history) == 0 {
		return ChatMessage{}, false
	}
	last := history[len(history)-1]
	return last, last.Role == RoleUser
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var IMAGE DocType = "IMAGE"
var ERR DocType = "ERROR"

type IngestStats struct {
	Pages          int      `json:"pages"`
	Chunks         int      `json:"chunks"`
	TotalTokens    int      `json:"total_tokens"`
	AvgChunkTokens int      `json:"avg_chunk_tokens"`
	BPETokens      int      `json:"bpe_tokens"`
	PeopleCount    int      `json:"people_count,omitempty"`
	ObjectCount    int      `json:"object_count,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}
