package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioChat/internal/metrics"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
)

var errEmptyReply = errors.New("provider returned an empty reply")

// Reply is a finished completion. Fragments are in arrival order; a buffered reply has one.
type Reply struct {
	Provider  string
	Fragments []string
}

func (r Reply) Text() string {
	return strings.Join(r.Fragments, "")
}

// Orchestrator tries providers in order and moves to the next one on any failure.
// A provider is never retried within one request.
type Orchestrator struct {
	providers []Provider
	timeout   time.Duration
	logger    *logger_i.Logger
}

func NewOrchestrator(timeout time.Duration, providers ...Provider) (*Orchestrator, error) {
	kept := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil, errors.New("no completion providers configured")
	}
	if timeout <= 0 {
		timeout = config.ProviderTimeout
	}
	return &Orchestrator{providers: kept, timeout: timeout, logger: logger_i.NewLogger("orchestrator")}, nil
}

func (o *Orchestrator) Providers() []string {
	names := make([]string, len(o.providers))
	for i, p := range o.providers {
		names[i] = p.Name()
	}
	return names
}

// Complete returns the first successful reply. With stream set, providers that can stream are
// read fragment by fragment. A failed attempt's partial output is discarded. If the caller's
// context ends, Complete stops without trying further providers.
func (o *Orchestrator) Complete(ctx context.Context, prompt Prompt, stream bool) (Reply, error) {
	log := o.logger.WithContext(ctx)
	var errs []error

	for _, p := range o.providers {
		if err := ctx.Err(); err != nil {
			return Reply{}, err
		}

		start := time.Now()
		fragments, err := o.attempt(ctx, p, prompt, stream)
		metrics.CaptureExecutionMetrics("provider_"+p.Name(), time.Since(start))
		if err == nil {
			log.Info("Completion served", "provider", p.Name(), "fragments", len(fragments), "elapsed", time.Since(start))
			return Reply{Provider: p.Name(), Fragments: fragments}, nil
		}
		if ctx.Err() != nil {
			log.Info("Caller went away during completion", "provider", p.Name())
			return Reply{}, ctx.Err()
		}

		log.Warn("Provider failed, failing over", "provider", p.Name(), "error", err)
		metrics.IncrementProviderFailover(p.Name())
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}

	log.Error("All completion providers failed", "error", errors.Join(errs...))
	return Reply{}, fmt.Errorf("%w: %w", ragErrors.ErrProviderExhausted, errors.Join(errs...))
}

func (o *Orchestrator) attempt(ctx context.Context, p Provider, prompt Prompt, stream bool) ([]string, error) {
	actx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if s, ok := p.(Streamer); ok && stream {
		var fragments []string
		for fragment, err := range s.Stream(actx, prompt) {
			if err != nil {
				return nil, err
			}
			if fragment != "" {
				fragments = append(fragments, fragment)
			}
		}
		if err := actx.Err(); err != nil {
			return nil, err
		}
		if len(fragments) == 0 {
			return nil, errEmptyReply
		}
		return fragments, nil
	}

	text, err := p.Complete(actx, prompt)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errEmptyReply
	}
	return []string{text}, nil
}
