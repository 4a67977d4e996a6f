package config

import (
	"log/slog"
	"time"
)

const (
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	//rate limiting on the public chat route
	RateLimitRequests  = 5
	RateLimitWindow    = 60 * time.Second
	RateLimiterIdleTTL = 10 * time.Minute

	//retrieval
	DefaultTopK           = 3
	DefaultScoreThreshold = 0.25
	CacheSimilarityCutoff = 0.97
	AnswerCacheCollection = "portfolio-answer-cache"
	DefaultCollectionName = "portfolio-documents"
	QdrantScrollPageSize  = 256
	EmbeddingBatchSize    = 32
	EmbeddingDimension    = 384
	EmbeddingRetryDelay   = 5 * time.Second

	//chunking, in tokens (1 token ~ 4 characters)
	DefaultChunkSize     = 512
	DefaultChunkOverlap  = 50
	DefaultMinChunkSize  = 100
	CharsPerToken        = 4
	SentenceSearchWindow = 200

	//guardrails
	DefaultBreakerTripCount = 3
	GuardrailSessionTTL     = 24 * time.Hour
	GuardrailJanitorPeriod  = 10 * time.Minute

	//providers
	ProviderTimeout              = 30 * time.Second
	VisionTimeout                = 30 * time.Second
	ModelTemperature     float32 = 0.7
	MaxOutputTokens              = 1024
	GeminiModelName              = "gemini-2.5-flash"
	GoogleEmbeddingModel         = "gemini-embedding-001"
	OpenRouterBaseURL            = "https://openrouter.ai/api/v1"
	OpenRouterModel              = "meta-llama/llama-3.3-70b-instruct:free"
	AnthropicModel               = "claude-3-5-haiku-latest"
	OpenAIEmbeddingModel         = "sentence-transformers/all-MiniLM-L6-v2"

	//ingestion
	MaxUploadBytes         = 50 << 20
	MaxChatBodyBytes       = 64 << 10
	PageExtractTimeout     = 10 * time.Second
	BatchIngestConcurrency = 4
	IngestJobTimeout       = 10 * time.Minute

	MaxWorkerCount    int64 = 10
	MinWorkerCount    int64 = 1
	IdleWorkerTimeout       = 1 * time.Minute

	//serverTimeouts - write timeout has to outlive a full provider failover
	ReadTimeout            = 15 * time.Second
	WriteTimeout           = 90 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//vectorDB
	QdrantHost             = "localhost"
	QdrantGrpcPort         = 6334
	QdrantUseTLS           = false
	QdrantPoolSize         = 1
	QdrantKeepAliveTimeout = 30 * time.Second
	SQLiteBusyTimeoutMs    = 5000

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisJobStore     = 0
	RedisMessageStore = 1
	RedisRateLimit    = 2

	//redis timeouts
	RedisJobStoreTTL      = 24 * time.Hour
	RedisMessageStoreTTL  = 24 * time.Hour
	ChatHistoryWindow     = 10
	RedisRateLimitTimeout = 200 * time.Millisecond
)
