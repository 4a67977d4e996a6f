package openaiEmbedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		data := make([]item, 0, len(body.Input))
		// reverse order to check the client reorders by index
		for i := len(body.Input) - 1; i >= 0; i-- {
			data = append(data, item{Object: "embedding", Index: i, Embedding: []float64{float64(len(body.Input[i])), 1}})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "test",
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

func TestBatchEmbedding_OrdersByIndex(t *testing.T) {
	srv := fakeServer(t)
	defer srv.Close()

	backend, err := NewFactory(srv.URL, "", "mini", 2)(context.Background())
	require.NoError(t, err)

	vectors, err := backend.BatchEmbedding(context.Background(), []string{"a", "bbb", "cc"})

	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(3), vectors[1][0])
	assert.Equal(t, float32(2), vectors[2][0])
}

func TestFactory_FailsWhenServerIsDown(t *testing.T) {
	srv := fakeServer(t)
	url := srv.URL
	srv.Close()

	_, err := NewFactory(url, "", "mini", 2)(context.Background())

	assert.Error(t, err)
}
