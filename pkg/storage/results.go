// Package storage persists the raw output of a finished run to a Pebble
// database, so experiments can be analyzed offline without re-running the
// simulation.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/poolsim/pkg/agent"
	"github.com/uhyunpark/poolsim/pkg/core"
)

// RunMeta identifies a persisted run.
type RunMeta struct {
	Experiment string    `json:"experiment"`
	Steps      int64     `json:"steps"`
	Seed       int64     `json:"seed"`
	FinishedAt time.Time `json:"finished_at"`
}

// ResultStore writes and reads run artifacts. Values are JSON; keys are
// prefixed by record kind.
type ResultStore struct {
	db *pebble.DB
}

// Open opens (or creates) the result database at path.
func Open(path string) (*ResultStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}
	return &ResultStore{db: db}, nil
}

// Close closes the underlying database.
func (s *ResultStore) Close() error { return s.db.Close() }

// keys: meta, p:<pool-id>, a:<agent-id>
func kMeta() []byte           { return []byte("meta") }
func kPool(id string) []byte  { return append([]byte("p:"), id...) }
func kAgent(id string) []byte { return append([]byte("a:"), id...) }

func (s *ResultStore) set(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.db.Set(key, data, pebble.Sync); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *ResultStore) get(key []byte, v any) (bool, error) {
	data, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	defer closer.Close()
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveRunMeta persists the run identity record.
func (s *ResultStore) SaveRunMeta(m RunMeta) error { return s.set(kMeta(), m) }

// LoadRunMeta reads the run identity record; ok is false when absent.
func (s *ResultStore) LoadRunMeta() (m RunMeta, ok bool, err error) {
	ok, err = s.get(kMeta(), &m)
	return m, ok, err
}

// SavePoolMetrics persists one pool's full metric history.
func (s *ResultStore) SavePoolMetrics(poolID string, m *core.PoolMetrics) error {
	return s.set(kPool(poolID), m)
}

// LoadPoolMetrics reads one pool's metric history; ok is false when absent.
func (s *ResultStore) LoadPoolMetrics(poolID string) (m *core.PoolMetrics, ok bool, err error) {
	m = &core.PoolMetrics{}
	ok, err = s.get(kPool(poolID), m)
	return m, ok, err
}

// SaveAgentHistory persists one agent's portfolio time series.
func (s *ResultStore) SaveAgentHistory(agentID string, h *agent.PortfolioHistory) error {
	return s.set(kAgent(agentID), h)
}

// LoadAgentHistory reads one agent's portfolio time series; ok is false
// when absent.
func (s *ResultStore) LoadAgentHistory(agentID string) (h *agent.PortfolioHistory, ok bool, err error) {
	h = &agent.PortfolioHistory{}
	ok, err = s.get(kAgent(agentID), h)
	return h, ok, err
}
