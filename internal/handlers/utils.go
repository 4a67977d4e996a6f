package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/netip"
	"os"
	"path/filepath"
	"strings"

	"github.com/akolanti/PortfolioChat/internal/adapter"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioChat/internal/rag/persona"
)

const (
	genericChatFailure = "Sorry, I can't answer right now. Please try again in a moment."
	genericBusy        = "I'm getting a lot of questions right now. Please try again shortly."
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "error", err)
	}
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.WithContext(ctx).Warn("context error", "error", ctx.Err())
		return false
	}
	return true
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, message string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, message, httpCode))
}

// writeChatError never exposes the cause: chat callers are public visitors.
func writeChatError(w http.ResponseWriter, r *http.Request, chatId string, err error) {
	log := logRH.WithContext(r.Context())
	switch {
	case errors.Is(err, ragErrors.ErrValidation):
		WriteErrorResponse(w, http.StatusBadRequest, chatId, err.Error())
	case errors.Is(err, ragErrors.ErrRateLimited):
		WriteErrorResponse(w, http.StatusTooManyRequests, chatId, genericBusy)
	case errors.Is(err, ragErrors.ErrProviderExhausted):
		log.Error("Chat failed", "error", err)
		WriteErrorResponse(w, http.StatusServiceUnavailable, chatId, genericChatFailure)
	default:
		log.Error("Chat failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, chatId, genericChatFailure)
	}
}

// writeAdminError returns the cause; admin callers are trusted operators.
func writeAdminError(w http.ResponseWriter, r *http.Request, id string, err error) {
	logRH.WithContext(r.Context()).Error("Admin request failed", "path", r.URL.Path, "error", err)
	switch {
	case errors.Is(err, ragErrors.ErrValidation):
		WriteErrorResponse(w, http.StatusBadRequest, id, err.Error())
	case errors.Is(err, persona.ErrNoBackup):
		WriteErrorResponse(w, http.StatusNotFound, id, err.Error())
	case errors.Is(err, ragErrors.ErrModelUnavailable), errors.Is(err, ragErrors.ErrStoreUnavailable):
		WriteErrorResponse(w, http.StatusServiceUnavailable, id, err.Error())
	default:
		WriteErrorResponse(w, http.StatusInternalServerError, id, err.Error())
	}
}

func getTargetDirectory() (string, error) {
	root, err := os.Getwd()
	if err != nil {
		return "", err
	}

	targetDir := filepath.Join(root, "temporary_data")
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", err
	}
	return targetDir, nil
}

var trustedProxies []netip.Prefix

// InitTrustedProxies sets the peers whose forwarding headers ClientIP honours. Nil trusts nobody.
func InitTrustedProxies(prefixes []netip.Prefix) {
	trustedProxies = prefixes
}

func isTrustedProxy(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range trustedProxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP identifies the caller for rate limiting and guardrail sessions. It is the socket peer unless that
// peer is a trusted proxy, in which case X-Forwarded-For is walked right to left past the trusted hops,
// then X-Real-IP is tried.
func ClientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil || !isTrustedProxy(addr) {
		return peer
	}

	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(v, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		if !isTrustedProxy(hop) {
			return hop.Unmap().String()
		}
	}
	if real, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return real.Unmap().String()
	}
	return peer
}
