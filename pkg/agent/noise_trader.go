package agent

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/uhyunpark/poolsim/pkg/core"
)

// NoiseTraderParams configures a NoiseTrader.
type NoiseTraderParams struct {
	ID                 string
	Pool               *core.Pool
	Portfolio          core.Portfolio
	StepsBetweenOrders int64
	OrderProbability   float64
	MaxOrderVolume     float64
	// LimitLifetime bounds how long this agent's limit orders may rest.
	LimitLifetime int64
	// LimitSkew scales how far limit prices wander from spot, e.g. 0.1
	// places limits within +/-10% of the current unit price.
	LimitSkew float64
}

func (p NoiseTraderParams) validate() error {
	if p.StepsBetweenOrders < 1 {
		return fmt.Errorf("agent %s: steps_to_make_new_transaction has to be >= 1, got %d", p.ID, p.StepsBetweenOrders)
	}
	if p.OrderProbability < 0 || p.OrderProbability > 1 {
		return fmt.Errorf("agent %s: probability_to_make_order has to be in [0, 1], got %v", p.ID, p.OrderProbability)
	}
	if p.MaxOrderVolume <= 0 {
		return fmt.Errorf("agent %s: max_order_volume has to be positive, got %v", p.ID, p.MaxOrderVolume)
	}
	if p.LimitLifetime < 1 {
		return fmt.Errorf("agent %s: limit_lifetime has to be >= 1, got %d", p.ID, p.LimitLifetime)
	}
	if p.LimitSkew <= 0 || p.LimitSkew >= 1 {
		return fmt.Errorf("agent %s: limit_skew has to be in (0, 1), got %v", p.ID, p.LimitSkew)
	}
	return nil
}

// NoiseTrader submits random market and limit orders without checking its
// own balances first, so a share of its flow ends up canceled. Useful for
// exercising the cancel paths and for stressing fee accounting.
type NoiseTrader struct {
	base
	steps         int64
	prob          float64
	maxVolume     float64
	limitLifetime int64
	limitSkew     float64
	lastAction    int64
}

// NewNoiseTrader validates params and builds the agent.
func NewNoiseTrader(p NoiseTraderParams, rng *rand.Rand, log *zap.SugaredLogger) (*NoiseTrader, error) {
	b, err := newBase(p.ID, p.Pool, p.Portfolio, rng, log)
	if err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &NoiseTrader{
		base:          b,
		steps:         p.StepsBetweenOrders,
		prob:          p.OrderProbability,
		maxVolume:     p.MaxOrderVolume,
		limitLifetime: p.LimitLifetime,
		limitSkew:     p.LimitSkew,
		lastAction:    -p.StepsBetweenOrders, // eligible from tick 0
	}, nil
}

// Act maybe submits one order (market or limit, coin flip), then records
// the portfolio snapshot.
func (t *NoiseTrader) Act(tick int64) {
	defer t.history.Record(tick, t.portfolio)
	if tick-t.lastAction < t.steps {
		return
	}
	if t.rng.Float64() >= t.prob {
		return
	}
	t.lastAction = tick

	tokens := t.pool.Tokens()
	token := tokens[t.rng.Intn(len(tokens))]
	second := t.otherToken(token)
	side := core.Buy
	if t.rng.Intn(2) == 1 {
		side = core.Sell
	}

	params := core.OrderParams{
		CreatedAt:   tick,
		Side:        side,
		Type:        core.Market,
		Token:       token,
		SecondToken: second,
		Volume:      t.randomVolume(t.maxVolume),
		Priority:    1,
	}

	if t.rng.Intn(2) == 1 {
		spot, err := t.pool.SpotPrice(token, second, 1)
		if err != nil {
			// No usable quote; fall back to a market order.
			t.submit(params)
			return
		}
		params.Type = core.Limit
		params.LimitPrice = spot * (1 + t.limitSkew*(2*t.rng.Float64()-1))
		params.Lifetime = t.limitLifetime
	}
	t.submit(params)
}
