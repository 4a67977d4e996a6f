package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/PortfolioChat/internal/adapter/utils"
	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/middleware"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

// Routes registers the whole HTTP surface on the shared router. mcpHandler may be nil.
func Routes(mcpHandler http.Handler) http.Handler {
	r := utils.GetRouter()

	r.Router.Get("/health", middleware.HealthHandler)
	r.Router.Get("/chat", middleware.HealthHandler)
	r.Router.Post("/chat", middleware.ChatHandler)
	r.Router.Get("/status/{id}", middleware.GetStatusHandler)

	r.Router.Route("/admin", func(admin chi.Router) {
		admin.Post("/ingest", middleware.PostIngestHandler)
		admin.Post("/ingest/batch", middleware.PostIngestBatchHandler)
		admin.Get("/documents", middleware.ListDocumentsHandler)
		admin.Delete("/documents", middleware.ClearDocumentsHandler)
		admin.Delete("/documents/{name}", middleware.DeleteDocumentHandler)
		admin.Get("/persona", middleware.GetPersonaHandler)
		admin.Put("/persona", middleware.PutPersonaHandler)
		admin.Post("/persona/restore", middleware.RestorePersonaHandler)
	})

	if mcpHandler != nil {
		r.Router.Handle("/mcp", mcpHandler)
		r.Router.Handle("/mcp/*", mcpHandler)
	}
	return r.Router
}

func CreateServer(listenAddr string, handler http.Handler) {
	server = &http.Server{
		Addr:         listenAddr,
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			if err := server.Shutdown(ctx); err != nil {
				_logger.Error("Could not shutdown gracefully", "error", err)
			}
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Graceful shutdown complete")
	case <-ctx.Done():
		_logger.Info("Force shut down")
	}
	close(shutdownParams.StopExecution)
}
