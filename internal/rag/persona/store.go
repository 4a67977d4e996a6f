package persona

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/akolanti/PortfolioChat/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioChat/pkg/logger_i"
)

var ErrNoBackup = errors.New("no persona backup found")

// Store owns the persona file on disk and the in-memory copy every request reads.
type Store struct {
	path       string
	backupPath string
	current    atomic.Pointer[Persona]
	logger     *logger_i.Logger

	writeMu   sync.Mutex
	listenMu  sync.RWMutex
	listeners []func(*Persona)
}

func NewStore(path, backupPath string) *Store {
	return &Store{path: path, backupPath: backupPath, logger: logger_i.NewLogger("persona")}
}

// Load reads and validates the persona file. The previous persona stays active on failure.
func (s *Store) Load() (*Persona, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read persona %s: %w", s.path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	s.current.Store(p)
	s.notify(p)
	s.logger.Info("Persona loaded", "name", p.Name, "projects", len(p.Projects))
	return p, nil
}

func Parse(data []byte) (*Persona, error) {
	var p Persona
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&p); err != nil {
		return nil, ragErrors.Validation("persona is not valid JSON: %v", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Current returns the active persona, or nil before the first successful load.
func (s *Store) Current() *Persona {
	return s.current.Load()
}

// OnChange registers fn to run after every successful load, update or restore.
func (s *Store) OnChange(fn func(*Persona)) {
	s.listenMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenMu.Unlock()
}

func (s *Store) notify(p *Persona) {
	s.listenMu.RLock()
	defer s.listenMu.RUnlock()
	for _, fn := range s.listeners {
		fn(p)
	}
}

// Update validates p, copies the current file to the backup path and writes p in its place.
func (s *Store) Update(p *Persona) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if existing, err := os.ReadFile(s.path); err == nil {
		if err := writeFileAtomic(s.backupPath, existing); err != nil {
			return fmt.Errorf("write persona backup: %w", err)
		}
		s.logger.Info("Created backup of persona", "path", s.backupPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read persona: %w", err)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("write persona: %w", err)
	}
	s.current.Store(p)
	s.notify(p)
	s.logger.Info("Persona updated", "name", p.Name)
	return nil
}

// Restore replaces the persona file with the backup. ErrNoBackup when there is none.
func (s *Store) Restore() (*Persona, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := os.ReadFile(s.backupPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoBackup
	}
	if err != nil {
		return nil, fmt.Errorf("read persona backup: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("persona backup is invalid: %w", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return nil, fmt.Errorf("write persona: %w", err)
	}
	s.current.Store(p)
	s.notify(p)
	s.logger.Info("Restored persona from backup", "name", p.Name)
	return p, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
