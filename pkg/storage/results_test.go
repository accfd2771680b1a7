package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/poolsim/pkg/agent"
	"github.com/uhyunpark/poolsim/pkg/core"
)

func openTestStore(t *testing.T) *ResultStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "results"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestResultStore_RunMeta(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.LoadRunMeta()
	require.NoError(t, err)
	assert.False(t, ok, "fresh store has no run meta")

	want := RunMeta{
		Experiment: "baseline",
		Steps:      1000,
		Seed:       42,
		FinishedAt: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveRunMeta(want))

	got, ok, err := store.LoadRunMeta()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Experiment, got.Experiment)
	assert.Equal(t, want.Steps, got.Steps)
	assert.Equal(t, want.Seed, got.Seed)
	assert.True(t, want.FinishedAt.Equal(got.FinishedAt))
}

func TestResultStore_PoolMetrics(t *testing.T) {
	store := openTestStore(t)

	m := core.NewPoolMetrics([]string{"A", "B"})
	m.RecordReserves(map[string]float64{"A": 1000, "B": 2000})
	m.RecordPrice("A", "B", 2.01)
	m.AccumulateFee("A", 3, 0.5)
	m.RecordOrderCount(core.Succeed, 2)
	m.K = append(m.K, 2e6)

	require.NoError(t, store.SavePoolMetrics("pool-ab", m))

	got, ok, err := store.LoadPoolMetrics("pool-ab")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, m.Reserves, got.Reserves)
	assert.Equal(t, m.K, got.K)
	assert.Equal(t, m.Prices, got.Prices)
	assert.Equal(t, m.Fees["A"].Values, got.Fees["A"].Values)
	assert.Equal(t, m.OrderCounts["succeed"], got.OrderCounts["succeed"])

	_, ok, err = store.LoadPoolMetrics("unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResultStore_AgentHistory(t *testing.T) {
	store := openTestStore(t)

	var h agent.PortfolioHistory
	h.Record(0, core.Portfolio{"A": 100})
	h.Record(1, core.Portfolio{"A": 90})

	require.NoError(t, store.SaveAgentHistory("t1", &h))

	got, ok, err := store.LoadAgentHistory("t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, h.Ticks, got.Ticks)
	assert.Equal(t, h.Balances, got.Balances)

	// Pool and agent keyspaces do not collide even on identical ids.
	_, ok, err = store.LoadPoolMetrics("t1")
	require.NoError(t, err)
	assert.False(t, ok)
}
