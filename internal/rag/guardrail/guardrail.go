package guardrail

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/PortfolioChat/internal/config"
	"github.com/akolanti/PortfolioChat/internal/metrics"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
)

type Decision string

const (
	DecisionAllow       Decision = "allow"
	DecisionDeflect     Decision = "deflect"
	DecisionCircuitOpen Decision = "circuit_open"
	DecisionSanitized   Decision = "sanitized"
	DecisionCharBreak   Decision = "character_break"
)

// InputVerdict is the outcome of screening one inbound message. When Blocked, Reply is the
// canned answer and nothing else should run for the request.
type InputVerdict struct {
	Blocked  bool
	Decision Decision
	Reply    string
}

type Config struct {
	PersonaName  string
	TripCount    int
	SessionTTL   time.Duration
	WorkKeywords []string
	// Picker returns an index in [0,n). Defaults to a uniform random pick.
	Picker func(n int) int
	Now    func() time.Time
}

type session struct {
	consecutiveMeta int
	lastSeen        time.Time
}

// Engine holds the per-session breaker state and the persona-specific texts.
type Engine struct {
	tripCount int
	ttl       time.Duration
	picker    func(n int) int
	now       func() time.Time
	logger    *logger_i.Logger

	mu       sync.Mutex
	sessions map[string]*session

	personaMu    sync.RWMutex
	personaName  string
	workKeywords []string
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		tripCount: cfg.TripCount,
		ttl:       cfg.SessionTTL,
		picker:    cfg.Picker,
		now:       cfg.Now,
		logger:    logger_i.NewLogger("guardrail"),
		sessions:  make(map[string]*session),
	}
	if e.tripCount <= 0 {
		e.tripCount = config.DefaultBreakerTripCount
	}
	if e.ttl <= 0 {
		e.ttl = config.GuardrailSessionTTL
	}
	if e.picker == nil {
		e.picker = rand.IntN
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.UpdatePersona(cfg.PersonaName, cfg.WorkKeywords)
	return e
}

// UpdatePersona swaps the name used in canned replies and the keywords that mark a reply as on topic.
func (e *Engine) UpdatePersona(name string, workKeywords []string) {
	if strings.TrimSpace(name) == "" {
		name = "the portfolio owner"
	}
	keywords := make([]string, 0, len(genericWorkKeywords)+len(workKeywords)+1)
	keywords = append(keywords, genericWorkKeywords...)
	keywords = append(keywords, strings.ToLower(name))
	for _, k := range workKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); len(k) > 1 {
			keywords = append(keywords, k)
		}
	}

	e.personaMu.Lock()
	e.personaName = name
	e.workKeywords = keywords
	e.personaMu.Unlock()
}

func IsMetaQuery(input string) bool {
	normalized := strings.TrimSpace(input)
	for _, p := range metaPatterns {
		if p.MatchString(normalized) {
			return true
		}
	}
	return false
}

// CheckInput classifies the message, updates the session's breaker count in one step and
// decides whether the request may continue.
func (e *Engine) CheckInput(sessionID, message string) InputVerdict {
	meta := IsMetaQuery(message)

	e.mu.Lock()
	s, ok := e.sessions[sessionID]
	if !ok {
		s = &session{}
		e.sessions[sessionID] = s
	}
	if meta {
		s.consecutiveMeta++
	} else {
		s.consecutiveMeta = 0
	}
	s.lastSeen = e.now()
	count := s.consecutiveMeta
	e.mu.Unlock()

	var verdict InputVerdict
	switch {
	case meta && count >= e.tripCount:
		verdict = InputVerdict{Blocked: true, Decision: DecisionCircuitOpen, Reply: e.CircuitBreakerReply()}
		e.logger.Warn("Circuit breaker triggered", "session", sessionID, "consecutive", count)
	case meta:
		verdict = InputVerdict{Blocked: true, Decision: DecisionDeflect, Reply: e.Deflection()}
		e.logger.Info("Meta query deflected", "session", sessionID, "consecutive", count)
	default:
		verdict = InputVerdict{Decision: DecisionAllow}
	}
	metrics.IncrementGuardrailDecision(string(verdict.Decision))
	return verdict
}

// ScreenOutput returns the reply unchanged, or a deflection when it leaks implementation
// details or drops out of character. The bool reports a replacement.
func (e *Engine) ScreenOutput(reply string) (string, bool) {
	lower := strings.ToLower(reply)
	for _, phrase := range forbiddenPhrases {
		if strings.Contains(lower, phrase) {
			e.logger.Warn("Forbidden phrase in reply", "phrase", phrase, "length", len(reply))
			metrics.IncrementGuardrailDecision(string(DecisionSanitized))
			return e.Deflection(), true
		}
	}
	for _, marker := range uncertaintyMarkers {
		if strings.Contains(lower, marker) && !e.isAboutWork(lower) {
			e.logger.Warn("Character break in reply", "marker", marker, "length", len(reply))
			metrics.IncrementGuardrailDecision(string(DecisionCharBreak))
			return e.Deflection(), true
		}
	}
	return reply, false
}

func (e *Engine) isAboutWork(lower string) bool {
	e.personaMu.RLock()
	defer e.personaMu.RUnlock()
	for _, k := range e.workKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func (e *Engine) Deflection() string {
	e.personaMu.RLock()
	name := e.personaName
	e.personaMu.RUnlock()
	return fmt.Sprintf(deflectionTemplates[e.picker(len(deflectionTemplates))], name)
}

func (e *Engine) CircuitBreakerReply() string {
	e.personaMu.RLock()
	defer e.personaMu.RUnlock()
	return fmt.Sprintf(circuitBreakerTemplate, e.personaName)
}

// Deflections lists every rotating reply for the current persona.
func (e *Engine) Deflections() []string {
	e.personaMu.RLock()
	defer e.personaMu.RUnlock()
	out := make([]string, len(deflectionTemplates))
	for i, t := range deflectionTemplates {
		out[i] = fmt.Sprintf(t, e.personaName)
	}
	return out
}

func (e *Engine) Reset(sessionID string) {
	e.mu.Lock()
	delete(e.sessions, sessionID)
	e.mu.Unlock()
}

func (e *Engine) SessionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

func (e *Engine) consecutive(sessionID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[sessionID]; ok {
		return s.consecutiveMeta
	}
	return 0
}

// Run evicts idle sessions until ctx ends.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(config.GuardrailJanitorPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := e.evictExpired(); n > 0 {
				e.logger.Debug("Evicted idle guardrail sessions", "count", n)
			}
		}
	}
}

func (e *Engine) evictExpired() int {
	cutoff := e.now().Add(-e.ttl)
	e.mu.Lock()
	defer e.mu.Unlock()
	evicted := 0
	for id, s := range e.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(e.sessions, id)
			evicted++
		}
	}
	return evicted
}
