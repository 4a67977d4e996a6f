package googleEmbedding

import (
	"errors"
	"fmt"
	"testing"

	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestDoRetry(t *testing.T) {
	log := logger_i.NewLogger("test")
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "api rate limit", err: genai.APIError{Code: 429, Message: "quota"}, want: true},
		{name: "wrapped api rate limit", err: fmt.Errorf("embed: %w", genai.APIError{Code: 429}), want: true},
		{name: "api server error", err: genai.APIError{Code: 500}, want: false},
		{name: "grpc exhausted", err: status.Error(codes.ResourceExhausted, "slow down"), want: true},
		{name: "grpc unavailable", err: status.Error(codes.Unavailable, "down"), want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := doRetry(tt.err, log); got != tt.want {
				t.Errorf("doRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetContent(t *testing.T) {
	contents := getContent([]string{"a", "b"})
	if len(contents) != 2 || contents[1].Parts[0].Text != "b" {
		t.Fatalf("unexpected contents: %+v", contents)
	}
}
