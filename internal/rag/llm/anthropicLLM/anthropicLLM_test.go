package anthropicLLM

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akolanti/PortfolioChat/internal/domain/commonModels"
	"github.com/akolanti/PortfolioChat/internal/rag/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_JoinsTextBlocks(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","model":"m",
			"content":[{"type":"text","text":"I design "},{"type":"text","text":"in Figma."}],
			"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":2}}`)
	}))
	defer srv.Close()

	c, err := New("key", "m", srv.URL)
	require.NoError(t, err)

	prompt := llm.NewPrompt("be Ada", []commonModels.ChatMessage{{Role: commonModels.RoleUser, Content: "tools?"}})
	text, err := c.Complete(context.Background(), prompt)

	require.NoError(t, err)
	assert.Equal(t, "I design in Figma.", text)
	assert.NotNil(t, body["system"])
	assert.Len(t, body["messages"], 1)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New("", "", "")
	assert.Error(t, err)
}
