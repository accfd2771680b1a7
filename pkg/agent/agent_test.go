package agent

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/poolsim/pkg/core"
)

func newTestPool(t *testing.T) *core.Pool {
	t.Helper()
	pool, err := core.NewPool(core.PoolParams{
		ID:   "pool-ab",
		Name: "A/B",
		Tokens: []core.TokenBalance{
			{Name: "A", Quantity: 10000},
			{Name: "B", Quantity: 10000},
		},
		AMM:                   core.AMMParams{Kind: core.ConstantProduct, Fee: 0.003},
		StepsToCheckOrderBook: 1,
		StepToStartSimulation: 0,
	}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return pool
}

func TestNewRandomTrader_Validation(t *testing.T) {
	pool := newTestPool(t)
	rng := rand.New(rand.NewSource(1))
	valid := RandomTraderParams{
		ID:                 "t1",
		Pool:               pool,
		StepsBetweenOrders: 1,
		OrderProbability:   0.5,
		MaxOrderVolume:     10,
	}

	tests := []struct {
		name   string
		mutate func(*RandomTraderParams)
	}{
		{"empty id", func(p *RandomTraderParams) { p.ID = "" }},
		{"nil pool", func(p *RandomTraderParams) { p.Pool = nil }},
		{"zero cadence", func(p *RandomTraderParams) { p.StepsBetweenOrders = 0 }},
		{"probability above one", func(p *RandomTraderParams) { p.OrderProbability = 1.5 }},
		{"negative probability", func(p *RandomTraderParams) { p.OrderProbability = -0.1 }},
		{"zero max volume", func(p *RandomTraderParams) { p.MaxOrderVolume = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			_, err := NewRandomTrader(p, rng, nil)
			assert.Error(t, err)
		})
	}

	_, err := NewRandomTrader(valid, nil, nil)
	assert.Error(t, err, "nil rng must be rejected")

	a, err := NewRandomTrader(valid, rng, nil)
	require.NoError(t, err)
	assert.Equal(t, "t1", a.ID())
	assert.NotNil(t, a.Portfolio())
}

func TestRandomTrader_Cadence(t *testing.T) {
	pool := newTestPool(t)
	a, err := NewRandomTrader(RandomTraderParams{
		ID:                 "t1",
		Pool:               pool,
		Portfolio:          core.Portfolio{"A": 1000, "B": 1000},
		StepsBetweenOrders: 3,
		OrderProbability:   1,
		MaxOrderVolume:     10,
	}, rand.New(rand.NewSource(1)), nil)
	require.NoError(t, err)

	for tick := int64(0); tick <= 3; tick++ {
		a.Act(tick)
	}

	// Probability one and ample balances: an order lands on every eligible
	// tick, which at cadence 3 means ticks 0 and 3 only.
	assert.Equal(t, uint64(2), pool.OrdersAdded())
	assert.Len(t, a.History().Ticks, 4, "history records every tick, order or not")
}

func TestRandomTrader_ZeroProbabilityNeverTrades(t *testing.T) {
	pool := newTestPool(t)
	a, err := NewRandomTrader(RandomTraderParams{
		ID:                 "t1",
		Pool:               pool,
		Portfolio:          core.Portfolio{"A": 1000, "B": 1000},
		StepsBetweenOrders: 1,
		OrderProbability:   0,
		MaxOrderVolume:     10,
	}, rand.New(rand.NewSource(1)), nil)
	require.NoError(t, err)

	for tick := int64(0); tick < 50; tick++ {
		a.Act(tick)
	}
	assert.Zero(t, pool.OrdersAdded())
}

func TestNoiseTrader_SubmitsFlow(t *testing.T) {
	pool := newTestPool(t)
	a, err := NewNoiseTrader(NoiseTraderParams{
		ID:                 "n1",
		Pool:               pool,
		Portfolio:          core.Portfolio{"A": 100, "B": 100},
		StepsBetweenOrders: 1,
		OrderProbability:   1,
		MaxOrderVolume:     20,
		LimitLifetime:      10,
		LimitSkew:          0.1,
	}, rand.New(rand.NewSource(1)), nil)
	require.NoError(t, err)

	for tick := int64(0); tick < 20; tick++ {
		a.Act(tick)
	}

	// Probability one at cadence 1: one order per tick. The noise trader does
	// not check its balances, so the orders may later cancel, but they are
	// always submitted.
	assert.Equal(t, uint64(20), pool.OrdersAdded())
	assert.Len(t, a.History().Ticks, 20)
}

func TestNewNoiseTrader_Validation(t *testing.T) {
	pool := newTestPool(t)
	rng := rand.New(rand.NewSource(1))
	valid := NoiseTraderParams{
		ID:                 "n1",
		Pool:               pool,
		StepsBetweenOrders: 1,
		OrderProbability:   0.5,
		MaxOrderVolume:     10,
		LimitLifetime:      5,
		LimitSkew:          0.2,
	}

	tests := []struct {
		name   string
		mutate func(*NoiseTraderParams)
	}{
		{"zero limit lifetime", func(p *NoiseTraderParams) { p.LimitLifetime = 0 }},
		{"zero limit skew", func(p *NoiseTraderParams) { p.LimitSkew = 0 }},
		{"skew of one", func(p *NoiseTraderParams) { p.LimitSkew = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			_, err := NewNoiseTrader(p, rng, nil)
			assert.Error(t, err)
		})
	}

	_, err := NewNoiseTrader(valid, rng, nil)
	assert.NoError(t, err)
}

func TestMarketMaker_QuotesBothSides(t *testing.T) {
	pool := newTestPool(t)
	a, err := NewMarketMaker(MarketMakerParams{
		ID:            "mm1",
		Pool:          pool,
		Portfolio:     core.Portfolio{"A": 1000, "B": 1000},
		Token:         "A",
		QuoteToken:    "B",
		Interval:      5,
		Spread:        0.01,
		OrderVolume:   2,
		LimitLifetime: 20,
	}, rand.New(rand.NewSource(1)), nil)
	require.NoError(t, err)

	for tick := int64(0); tick <= 5; tick++ {
		a.Act(tick)
	}

	// Two quotes at tick 0, two refreshed at tick 5; nothing in between.
	assert.Equal(t, uint64(4), pool.OrdersAdded())
	assert.Equal(t, 4, pool.BookSize(), "quotes rest in the book until execution")
}

func TestNewMarketMaker_Validation(t *testing.T) {
	pool := newTestPool(t)
	rng := rand.New(rand.NewSource(1))
	valid := MarketMakerParams{
		ID:            "mm1",
		Pool:          pool,
		Token:         "A",
		QuoteToken:    "B",
		Interval:      1,
		Spread:        0.05,
		OrderVolume:   1,
		LimitLifetime: 5,
	}

	tests := []struct {
		name   string
		mutate func(*MarketMakerParams)
	}{
		{"missing token", func(p *MarketMakerParams) { p.Token = "" }},
		{"missing quote token", func(p *MarketMakerParams) { p.QuoteToken = "" }},
		{"identical pair", func(p *MarketMakerParams) { p.QuoteToken = p.Token }},
		{"zero interval", func(p *MarketMakerParams) { p.Interval = 0 }},
		{"zero spread", func(p *MarketMakerParams) { p.Spread = 0 }},
		{"spread of one", func(p *MarketMakerParams) { p.Spread = 1 }},
		{"zero volume", func(p *MarketMakerParams) { p.OrderVolume = 0 }},
		{"zero lifetime", func(p *MarketMakerParams) { p.LimitLifetime = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			_, err := NewMarketMaker(p, rng, nil)
			assert.Error(t, err)
		})
	}
}

func TestPortfolioHistory_Record(t *testing.T) {
	var h PortfolioHistory
	h.Record(0, core.Portfolio{"A": 1, "B": 2})
	h.Record(1, core.Portfolio{"A": 3, "B": 2})

	assert.Equal(t, []int64{0, 1}, h.Ticks)
	assert.Equal(t, []float64{1, 3}, h.Balances["A"])
	assert.Equal(t, []float64{2, 2}, h.Balances["B"])
}
