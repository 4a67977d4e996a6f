package chunker

import (
	"sync"

	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

func loadEncoder() *tiktoken.Tiktoken {
	encoderOnce.Do(func() {
		//offline loader so ingestion never downloads BPE ranks at runtime
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			logger_i.NewLogger("chunker").Warn("BPE encoder unavailable, falling back to estimates", "error", err)
			return
		}
		encoder = enc
	})
	return encoder
}

// CountBPETokens counts cl100k_base tokens, or estimates when the encoder cannot load.
func CountBPETokens(text string) int {
	enc := loadEncoder()
	if enc == nil {
		return EstimateTokens(text)
	}
	return len(enc.Encode(text, nil, nil))
}
