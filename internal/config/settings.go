package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settings is the runtime configuration. Constants in this package are the defaults.
type Settings struct {
	Env         string              `yaml:"env"`
	ListenAddr  string              `yaml:"listen_addr"`
	Server      ServerSettings      `yaml:"server"`
	Retrieval   RetrievalSettings   `yaml:"retrieval"`
	Guardrail   GuardrailSettings   `yaml:"guardrail"`
	RateLimit   RateLimitSettings   `yaml:"rate_limit"`
	VectorStore VectorStoreSettings `yaml:"vector_store"`
	Embedding   EmbeddingSettings   `yaml:"embedding"`
	Providers   ProviderSettings    `yaml:"providers"`
	Vision      VisionSettings      `yaml:"vision"`
	Ingest      IngestSettings      `yaml:"ingest"`
	Persona     PersonaSettings     `yaml:"persona"`
	Redis       RedisSettings       `yaml:"redis"`
	MCP         MCPSettings         `yaml:"mcp"`
}

type ServerSettings struct {
	// TrustedProxies are addresses or CIDR ranges whose X-Forwarded-For and X-Real-IP headers are believed.
	// Requests from anywhere else are keyed on the socket address.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// TrustedProxyPrefixes parses TrustedProxies, widening bare addresses to single-host prefixes.
func (s ServerSettings) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, raw := range s.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if p, err := netip.ParsePrefix(raw); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("server.trusted_proxies: %q is neither an address nor a CIDR range", raw)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

type RetrievalSettings struct {
	TopK           int     `yaml:"top_k"`
	ScoreThreshold float64 `yaml:"score_threshold"`
	AnswerCache    bool    `yaml:"answer_cache"`
}

type GuardrailSettings struct {
	BreakerTripCount int           `yaml:"breaker_trip_count"`
	SessionTTL       time.Duration `yaml:"session_ttl"`
}

type RateLimitSettings struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type VectorStoreSettings struct {
	// Backend is one of qdrant, sqlite, memory.
	Backend    string `yaml:"backend"`
	SQLitePath string `yaml:"sqlite_path"`
	QdrantHost string `yaml:"qdrant_host"`
	QdrantPort int    `yaml:"qdrant_port"`
	Collection string `yaml:"collection"`
}

type EmbeddingSettings struct {
	// Backend is one of openai (any OpenAI compatible server) or google.
	Backend   string `yaml:"backend"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Dimension int    `yaml:"dimension"`
}

type ProviderSettings struct {
	Order      []string           `yaml:"order"`
	Timeout    time.Duration      `yaml:"timeout"`
	Gemini     GeminiSettings     `yaml:"gemini"`
	OpenRouter OpenRouterSettings `yaml:"openrouter"`
	Anthropic  AnthropicSettings  `yaml:"anthropic"`
}

type GeminiSettings struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OpenRouterSettings struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Referer string `yaml:"referer"`
	Title   string `yaml:"title"`
}

type AnthropicSettings struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type VisionSettings struct {
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type IngestSettings struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	ChunkSize      int   `yaml:"chunk_size"`
	ChunkOverlap   int   `yaml:"chunk_overlap"`
	MinChunkSize   int   `yaml:"min_chunk_size"`
	Concurrency    int   `yaml:"concurrency"`
}

type PersonaSettings struct {
	Path          string `yaml:"path"`
	BackupPath    string `yaml:"backup_path"`
	KnowledgePath string `yaml:"knowledge_path"`
	Watch         bool   `yaml:"watch"`
}

type RedisSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

type MCPSettings struct {
	Enabled bool `yaml:"enabled"`
}

func DefaultSettings() *Settings {
	return &Settings{
		Env:        "dev",
		ListenAddr: ServerListenAddr,
		Retrieval: RetrievalSettings{
			TopK:           DefaultTopK,
			ScoreThreshold: DefaultScoreThreshold,
		},
		Guardrail: GuardrailSettings{
			BreakerTripCount: DefaultBreakerTripCount,
			SessionTTL:       GuardrailSessionTTL,
		},
		RateLimit: RateLimitSettings{
			Requests: RateLimitRequests,
			Window:   RateLimitWindow,
		},
		VectorStore: VectorStoreSettings{
			Backend:    "sqlite",
			SQLitePath: "data/vectors.db",
			QdrantHost: QdrantHost,
			QdrantPort: QdrantGrpcPort,
			Collection: DefaultCollectionName,
		},
		Embedding: EmbeddingSettings{
			Backend:   "openai",
			Model:     OpenAIEmbeddingModel,
			BaseURL:   "http://localhost:8080/v1",
			Dimension: EmbeddingDimension,
		},
		Providers: ProviderSettings{
			Order:   []string{"gemini", "openrouter"},
			Timeout: ProviderTimeout,
			Gemini:  GeminiSettings{Model: GeminiModelName},
			OpenRouter: OpenRouterSettings{
				BaseURL: OpenRouterBaseURL,
				Model:   OpenRouterModel,
				Referer: "http://localhost:3000",
				Title:   "Portfolio Chat",
			},
			Anthropic: AnthropicSettings{Model: AnthropicModel},
		},
		Vision: VisionSettings{
			Model:   GeminiModelName,
			Timeout: VisionTimeout,
		},
		Ingest: IngestSettings{
			MaxUploadBytes: MaxUploadBytes,
			ChunkSize:      DefaultChunkSize,
			ChunkOverlap:   DefaultChunkOverlap,
			MinChunkSize:   DefaultMinChunkSize,
			Concurrency:    BatchIngestConcurrency,
		},
		Persona: PersonaSettings{
			Path:          "data/persona.json",
			BackupPath:    "data/persona.backup.json",
			KnowledgePath: "data/portfolio.json",
			Watch:         true,
		},
		Redis: RedisSettings{
			Enabled: true,
			Addr:    RedisAddr,
		},
	}
}

// Load builds Settings from defaults, then the optional YAML file at path, then a .env file, then the environment.
func Load(path string) (*Settings, error) {
	s := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, s); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	//a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()
	s.applyEnv()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) IsProd() bool {
	return strings.EqualFold(s.Env, "prod") || strings.EqualFold(s.Env, "production")
}

func (s *Settings) Validate() error {
	var errs []error
	if _, err := s.Server.TrustedProxyPrefixes(); err != nil {
		errs = append(errs, err)
	}
	if s.Retrieval.TopK <= 0 {
		errs = append(errs, errors.New("retrieval.top_k must be positive"))
	}
	if s.Retrieval.ScoreThreshold < 0 || s.Retrieval.ScoreThreshold > 1 {
		errs = append(errs, errors.New("retrieval.score_threshold must be within [0,1]"))
	}
	if s.Guardrail.BreakerTripCount < 1 {
		errs = append(errs, errors.New("guardrail.breaker_trip_count must be at least 1"))
	}
	if s.RateLimit.Requests < 1 || s.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit needs a positive request count and window"))
	}
	if len(s.Providers.Order) == 0 {
		errs = append(errs, errors.New("providers.order must name at least one provider"))
	}
	if s.Ingest.ChunkSize <= 0 || s.Ingest.MinChunkSize <= 0 || s.Ingest.ChunkOverlap < 0 {
		errs = append(errs, errors.New("ingest chunk sizes must be positive"))
	}
	switch s.VectorStore.Backend {
	case "qdrant", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown vector_store.backend %q", s.VectorStore.Backend))
	}
	switch s.Embedding.Backend {
	case "openai", "google":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding.backend %q", s.Embedding.Backend))
	}
	return errors.Join(errs...)
}

func (s *Settings) applyEnv() {
	envString("APP_ENV", &s.Env)
	envString("LISTEN_ADDR", &s.ListenAddr)
	envList("TRUSTED_PROXIES", &s.Server.TrustedProxies)

	envString("GEMINI_API_KEY", &s.Providers.Gemini.APIKey)
	envString("GEMINI_MODEL", &s.Providers.Gemini.Model)
	envString("OPENROUTER_API_KEY", &s.Providers.OpenRouter.APIKey)
	envString("OPENROUTER_MODEL", &s.Providers.OpenRouter.Model)
	envString("OPENROUTER_REFERER", &s.Providers.OpenRouter.Referer)
	envString("ANTHROPIC_API_KEY", &s.Providers.Anthropic.APIKey)
	envList("PROVIDER_ORDER", &s.Providers.Order)

	envString("EMBEDDING_BACKEND", &s.Embedding.Backend)
	envString("EMBEDDING_MODEL", &s.Embedding.Model)
	envString("EMBEDDING_BASE_URL", &s.Embedding.BaseURL)
	envString("EMBEDDING_API_KEY", &s.Embedding.APIKey)
	envInt("EMBEDDING_DIMENSION", &s.Embedding.Dimension)

	envString("VECTOR_BACKEND", &s.VectorStore.Backend)
	envString("SQLITE_PATH", &s.VectorStore.SQLitePath)
	envString("QDRANT_HOST", &s.VectorStore.QdrantHost)
	envInt("QDRANT_PORT", &s.VectorStore.QdrantPort)

	envFloat("SCORE_THRESHOLD", &s.Retrieval.ScoreThreshold)
	envBool("ANSWER_CACHE", &s.Retrieval.AnswerCache)
	envInt("BREAKER_TRIP_COUNT", &s.Guardrail.BreakerTripCount)

	envString("REDIS_ADDR", &s.Redis.Addr)
	envString("REDIS_PASSWORD", &s.Redis.Password)
	envBool("REDIS_ENABLED", &s.Redis.Enabled)

	envString("PERSONA_PATH", &s.Persona.Path)
	envString("PERSONA_BACKUP_PATH", &s.Persona.BackupPath)
	envString("KNOWLEDGE_PATH", &s.Persona.KnowledgePath)
	envBool("MCP_ENABLED", &s.MCP.Enabled)
}

func envString(key string, target *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*target = v
	}
}

func envInt(key string, target *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func envFloat(key string, target *float64) {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

func envBool(key string, target *bool) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

func envList(key string, target *[]string) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*target = out
}
