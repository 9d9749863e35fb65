package timbre

import (
	"fmt"
	"sync"
)

// Store is a table of named timbres with one active selection.
type Store struct {
	mu      sync.RWMutex
	configs map[string]Config
	order   []string
	def     string
	active  string
}

// NewStore validates configs and selects defaultName.
func NewStore(defaultName string, configs ...Config) (*Store, error) {
	s := &Store{configs: make(map[string]Config, len(configs))}
	for _, c := range configs {
		if err := s.add(c); err != nil {
			return nil, err
		}
	}
	if _, ok := s.configs[defaultName]; !ok {
		return nil, fmt.Errorf("%w: default timbre %q not in store", ErrInvalidTimbre, defaultName)
	}
	s.def = defaultName
	s.active = defaultName
	return s, nil
}

// NewBuiltinStore returns a store holding the built-in timbres.
func NewBuiltinStore() *Store {
	s, err := NewStore(DefaultName, Builtin()...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Store) add(c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, ok := s.configs[c.Name]; !ok {
		s.order = append(s.order, c.Name)
	}
	s.configs[c.Name] = c.Clone()
	return nil
}

// Add inserts or replaces a timbre. Invalid timbres leave the store
// untouched.
func (s *Store) Add(c Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(c)
}

// Get resolves name, falling back to the default timbre.
func (s *Store) Get(name string) Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.configs[name]; ok {
		return c.Clone()
	}
	return s.configs[s.def].Clone()
}

func (s *Store) Lookup(name string) (Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.configs[name]
	if !ok {
		return Config{}, false
	}
	return c.Clone(), true
}

// SetActive selects name if it is known and reports whether it did.
func (s *Store) SetActive(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[name]; !ok {
		return false
	}
	s.active = name
	return true
}

func (s *Store) Active() Config {
	return s.Get(s.ActiveName())
}

func (s *Store) ActiveName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Store) DefaultName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.def
}

// Names lists timbres in insertion order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}
