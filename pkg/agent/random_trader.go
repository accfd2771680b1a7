package agent

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/uhyunpark/poolsim/pkg/core"
)

// RandomTraderParams configures a RandomTrader.
type RandomTraderParams struct {
	ID        string
	Pool      *core.Pool
	Portfolio core.Portfolio
	// StepsBetweenOrders is the minimum tick gap between two order attempts.
	StepsBetweenOrders int64
	// OrderProbability is the chance an attempt actually submits an order.
	OrderProbability float64
	// MaxOrderVolume caps the size of a single order.
	MaxOrderVolume float64
}

func (p RandomTraderParams) validate() error {
	if p.StepsBetweenOrders < 1 {
		return fmt.Errorf("agent %s: steps_to_make_new_transaction has to be >= 1, got %d", p.ID, p.StepsBetweenOrders)
	}
	if p.OrderProbability < 0 || p.OrderProbability > 1 {
		return fmt.Errorf("agent %s: probability_to_make_order has to be in [0, 1], got %v", p.ID, p.OrderProbability)
	}
	if p.MaxOrderVolume <= 0 {
		return fmt.Errorf("agent %s: max_order_volume has to be positive, got %v", p.ID, p.MaxOrderVolume)
	}
	return nil
}

// RandomTrader submits random market orders against a single pool at a
// throttled cadence. Sells are capped at the trader's balance, so this agent
// mostly produces fillable flow.
type RandomTrader struct {
	base
	steps      int64
	prob       float64
	maxVolume  float64
	lastAction int64
}

// NewRandomTrader validates params and builds the agent.
func NewRandomTrader(p RandomTraderParams, rng *rand.Rand, log *zap.SugaredLogger) (*RandomTrader, error) {
	b, err := newBase(p.ID, p.Pool, p.Portfolio, rng, log)
	if err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &RandomTrader{
		base:       b,
		steps:      p.StepsBetweenOrders,
		prob:       p.OrderProbability,
		maxVolume:  p.MaxOrderVolume,
		lastAction: -p.StepsBetweenOrders, // eligible from tick 0
	}, nil
}

// Act maybe submits one market order, then records the portfolio snapshot.
func (t *RandomTrader) Act(tick int64) {
	defer t.history.Record(tick, t.portfolio)
	if tick-t.lastAction < t.steps {
		return
	}
	if t.rng.Float64() >= t.prob {
		return
	}
	t.lastAction = tick
	t.makeOrder(tick)
}

func (t *RandomTrader) makeOrder(tick int64) {
	tokens := t.pool.Tokens()
	token := tokens[t.rng.Intn(len(tokens))]
	second := t.otherToken(token)

	side := core.Buy
	if t.rng.Intn(2) == 1 {
		side = core.Sell
	}
	volume := t.randomVolume(t.maxVolume)
	if side == core.Sell {
		balance := t.portfolio.Balance(token)
		if balance <= 0 {
			return
		}
		if volume > balance {
			volume = balance
		}
	}

	t.submit(core.OrderParams{
		CreatedAt:   tick,
		Side:        side,
		Type:        core.Market,
		Token:       token,
		SecondToken: second,
		Volume:      volume,
		Priority:    1,
	})
}
