package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	logx "teleradio/pkg/logx"
)

// Store owns the durable config. Every speaker/receiver/password mutation is
// written through to disk before the call returns.
type Store struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	// lastHash tracks the last committed config content. Watch uses it to
	// ignore events caused by our own writes.
	lastHash uint64

	// subsMu guards subscriber list and ensures we never send on a channel
	// that is concurrently being closed in Unsubscribe().
	subsMu sync.Mutex
	subs   []chan *Config

	log       logx.Logger
	writeFile func(path string, data []byte) error
}

func NewStore(path string) *Store {
	return &Store{path: path, cfg: &Config{}, writeFile: writeFileAtomic}
}

func (s *Store) SetLogger(log logx.Logger) { s.log = log }

func (s *Store) Path() string { return s.path }

// Parse reads and validates the file without committing it.
func (s *Store) Parse() (*Config, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &LoadError{Path: s.path, Err: err}
	}
	jb, err := coerceToJSONBytes(s.path, b)
	if err != nil {
		return nil, &LoadError{Path: s.path, Err: err}
	}
	cfg, err := decodeStrict(jb)
	if err != nil {
		return nil, &LoadError{Path: s.path, Err: err}
	}
	if err := Validate(cfg); err != nil {
		return nil, &LoadError{Path: s.path, Err: err}
	}
	return cfg, nil
}

// Load parses the file and makes it the in-memory config.
func (s *Store) Load() (*Config, error) {
	cfg, err := s.Parse()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.lastHash = hashConfig(cfg)
	s.mu.Unlock()
	return cfg.Clone(), nil
}

// Validate checks the fields the bot cannot run without.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return errors.New("token is empty")
	}
	seen := make(map[int64]struct{}, len(cfg.Speakers))
	for _, sp := range cfg.Speakers {
		if _, dup := seen[sp.ID]; dup {
			return fmt.Errorf("speakers: duplicate id %d", sp.ID)
		}
		seen[sp.ID] = struct{}{}
	}
	seen = make(map[int64]struct{}, len(cfg.Receivers))
	for _, r := range cfg.Receivers {
		if _, dup := seen[r]; dup {
			return fmt.Errorf("receivers: duplicate id %d", r)
		}
		seen[r] = struct{}{}
	}
	return validateDurations(cfg)
}

// Get returns a deep copy of the current config.
func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Token
}

func (s *Store) Password() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Password
}

func (s *Store) Speakers() []Speaker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Speaker(nil), s.cfg.Speakers...)
}

func (s *Store) Receivers() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int64(nil), s.cfg.Receivers...)
}

func (s *Store) HasSpeaker(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sp := range s.cfg.Speakers {
		if sp.ID == id {
			return true
		}
	}
	return false
}

// Persist replaces the in-memory config with cfg and writes it.
func (s *Store) Persist(cfg *Config) error {
	if cfg == nil {
		return &WriteError{Path: s.path, Err: errors.New("config is nil")}
	}
	cp := cfg.Clone()
	cp.normalize()
	cp.base = 0
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cp
	return s.writeLocked()
}

// Replace swaps in a config that was read from disk (hot reload). Nothing is
// written. A config from Poll is refused once a write-through mutation has
// committed since it was read; the write's own watch event brings the file
// back in. It reports whether cfg was applied.
func (s *Store) Replace(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	cp := cfg.Clone()
	cp.normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	if cp.base != 0 && cp.base != s.lastHash {
		return false
	}
	cp.base = 0
	s.cfg = cp
	s.lastHash = hashConfig(cp)
	return true
}

// Poll parses the file and returns it when it differs from the last
// committed content. The result is stamped for Replace.
func (s *Store) Poll() (*Config, bool, error) {
	s.mu.RLock()
	base := s.lastHash
	s.mu.RUnlock()

	cfg, err := s.Parse()
	if err != nil {
		return nil, false, err
	}
	if h := hashConfig(cfg); h != 0 && h == base {
		return nil, false, nil
	}
	cfg.base = base
	return cfg, true, nil
}

func (s *Store) AppendSpeaker(name string, id int64) error {
	return s.mutate(func(c *Config) {
		c.Speakers = append(c.Speakers, Speaker{Name: name, ID: id})
	})
}

func (s *Store) AppendReceiver(id int64) error {
	return s.mutate(func(c *Config) {
		c.Receivers = append(c.Receivers, id)
	})
}

// RemoveReceiverAt deletes the receiver at index i, keeping order.
func (s *Store) RemoveReceiverAt(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.cfg.Receivers) {
		return fmt.Errorf("receiver index %d out of range [0,%d)", i, len(s.cfg.Receivers))
	}
	s.cfg.Receivers = append(s.cfg.Receivers[:i:i], s.cfg.Receivers[i+1:]...)
	return s.writeLocked()
}

// RotatePassword clears all speakers and sets a new password. It returns the
// speakers that lost access; they are returned even when the write fails.
func (s *Store) RotatePassword(password string) ([]Speaker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.cfg.Speakers
	s.cfg.Speakers = []Speaker{}
	s.cfg.Password = password
	return prev, s.writeLocked()
}

func (s *Store) mutate(fn func(c *Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cfg)
	return s.writeLocked()
}

// writeLocked persists s.cfg. Caller holds s.mu.
func (s *Store) writeLocked() error {
	data, err := encodeFor(s.path, s.cfg)
	if err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	if err := s.writeFile(s.path, data); err != nil {
		if !s.log.IsZero() {
			s.log.Error("config write failed; in-memory state diverges from disk", logx.String("path", s.path), logx.Err(err))
		}
		return &WriteError{Path: s.path, Err: err}
	}
	s.lastHash = hashConfig(s.cfg)
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	mode := os.FileMode(0o600)
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode().Perm()
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
