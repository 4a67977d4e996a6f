// @title           Portfolio Chat API
// @version         1.0
// @description     Retrieval augmented chat about one person's portfolio, plus document administration.
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/PortfolioChat/internal/bootstrap"
	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/data/redisStore"
	"github.com/akolanti/PortfolioChat/internal/data/store"
	"github.com/akolanti/PortfolioChat/internal/domain/jobModel"
	"github.com/akolanti/PortfolioChat/internal/handlers"
	"github.com/akolanti/PortfolioChat/internal/job"
	"github.com/akolanti/PortfolioChat/internal/mcpServer"
	"github.com/akolanti/PortfolioChat/internal/middleware"
	"github.com/akolanti/PortfolioChat/internal/server"
	"github.com/akolanti/PortfolioChat/internal/worker"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
)

var (
	configPath        string
	listenAddr        string
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	//config
	flag.StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides the config file")
	flag.Parse()

	settings, err := config.Load(configPath)
	if err != nil {
		logger_i.NewLogger("main").Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		settings.ListenAddr = listenAddr
	}

	logger_i.Init(settings.IsProd())
	var logger = logger_i.NewLogger("main")

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	app, err := bootstrap.Build(serviceContext, settings, bootstrap.Options{})
	if err != nil {
		logger.Error("One or more services failed to initialize. Shutting down.", "error", err)
		return
	}
	defer app.Close()
	if app.Personas.Current() == nil {
		logger.Error("No valid persona file, refusing to start", "path", settings.Persona.Path)
		return
	}
	go app.Run(serviceContext)
	go func() {
		if err := app.Embedder.Warm(serviceContext); err != nil {
			logger.Warn("Embedding backend not ready, retrieval falls back to keywords until it is", "error", err)
		}
	}()

	//init job service and stores
	jobStore, messageStore := openStores(serviceContext, settings, logger)
	logger.Info("Starting job service")
	service := job.InitJobService(job.ServiceConfig{
		BufferLimit:  config.BufferLimit,
		JobStore:     jobStore,
		MessageStore: messageStore,
	})

	handlers.InitJobHandler(service)
	handlers.InitRagHandler(app.Rag, settings.Ingest.MaxUploadBytes)
	proxies, _ := settings.Server.TrustedProxyPrefixes() //validated by config.Load
	handlers.InitTrustedProxies(proxies)
	limiter := middleware.InitRateLimiter(settings.RateLimit.Requests, settings.RateLimit.Window)
	if settings.Redis.Enabled {
		if rs, err := redisStore.GetRedisStore(serviceContext, redisStore.Options{
			Addr:     settings.Redis.Addr,
			Password: settings.Redis.Password,
			DB:       config.RedisRateLimit,
		}); err == nil {
			limiter.UseBackend(rs)
		} else {
			logger.Warn("Rate limit windows kept in memory", "error", err)
		}
	}
	go limiter.Run(serviceContext)

	//init worker pool
	stopWorkerChannel = make(chan bool, 1)
	worker.InitServices(service, app.Rag)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	var mcpHandler http.Handler
	if settings.MCP.Enabled {
		mcp, err := mcpServer.NewServer(app.Rag)
		if err != nil {
			logger.Error("MCP server failed to initialize", "error", err)
			return
		}
		mcpHandler = mcp.Handler()
		logger.Info("MCP endpoint enabled", "path", "/mcp")
	}

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(settings.ListenAddr, server.Routes(mcpHandler))

	<-stopExecution
	logger.Info("Server stopped")
}

// openStores prefers Redis and falls back to process memory when it is disabled or offline.
func openStores(ctx context.Context, settings *config.Settings, logger *logger_i.Logger) (jobModel.JobStore, jobModel.MessageStore) {
	if !settings.Redis.Enabled {
		logger.Info("Redis disabled, using in-memory stores")
		return store.InitInMemoryJobStore(), store.InitMessageStore()
	}
	jobStore, err := store.GetRedisJobStore(ctx, settings.Redis)
	if err != nil {
		logger.Error("Redis stores are offline", "error", err)
		return store.InitInMemoryJobStore(), store.InitMessageStore()
	}
	messageStore, err := store.GetRedisMessageStore(ctx, settings.Redis)
	if err != nil {
		logger.Error("Redis stores are offline", "error", err)
		return store.InitInMemoryJobStore(), store.InitMessageStore()
	}
	return jobStore, messageStore
}
