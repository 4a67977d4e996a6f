package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/PortfolioChat/internal/handlers"
	"github.com/akolanti/PortfolioChat/internal/metrics"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
	id           string
}

type step func(requestResponseStruct) requestResponseStruct

var logger = logger_i.NewLogger("middleware")

var HealthHandler = Wrap(handlers.HealthHandler)

// ChatHandler is the only rate limited route: it is public and every call can reach a paid provider.
var ChatHandler = Wrap(handlers.ChatHandler, rateLimiter)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)

var PostIngestHandler = Wrap(handlers.PostIngestHandler)
var PostIngestBatchHandler = Wrap(handlers.PostIngestBatchHandler)
var ListDocumentsHandler = Wrap(handlers.ListDocumentsHandler)
var DeleteDocumentHandler = Wrap(handlers.DeleteDocumentHandler)
var ClearDocumentsHandler = Wrap(handlers.ClearDocumentsHandler)
var GetPersonaHandler = Wrap(handlers.GetPersonaHandler)
var PutPersonaHandler = Wrap(handlers.PutPersonaHandler)
var RestorePersonaHandler = Wrap(handlers.RestorePersonaHandler)

// Wrap runs the trace step, then the given steps in order, stopping at the first rejection.
func Wrap(next http.HandlerFunc, steps ...step) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK} //metrics
		defer func() {
			metrics.HttpRequestsTotal.WithLabelValues(routePattern(r), strconv.Itoa(rec.Status)).Inc()
		}()

		re := processRequest(requestResponseStruct{req: r, writer: rec, logger: logger}, steps)
		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return
		}
		next(rec, re.req)
	}
}

func processRequest(re requestResponseStruct, steps []step) requestResponseStruct {
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re.logger.Debug("New request received", "method", re.req.Method, "path", re.req.URL.Path)
	for _, s := range steps {
		if re = s(re); re.badRequest.isBadRequest {
			return re
		}
	}
	return re
}

// routePattern keeps the metric label bounded: /admin/documents/{name} instead of every name.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
