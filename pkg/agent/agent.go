// Package agent holds the trading agents that drive order flow in a
// simulation. Agents own their portfolios and decide when to trade; the
// engine only ever sees them through the core.Trader interface.
package agent

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/uhyunpark/poolsim/pkg/core"
)

// Agent is a portfolio holder with a per-tick action hook. Act both decides
// whether to submit orders and appends the agent's metrics for the tick;
// the scheduler invokes it exactly once per tick.
type Agent interface {
	core.Trader
	Act(tick int64)
	History() *PortfolioHistory
}

// PortfolioHistory is an agent's token balance time series, one point per
// tick. Safe to record inside Act: portfolios only mutate during pool
// execution, which the scheduler always runs before agent actions.
type PortfolioHistory struct {
	Ticks    []int64              `json:"ticks"`
	Balances map[string][]float64 `json:"balances"`
}

// Record appends a snapshot of p at tick.
func (h *PortfolioHistory) Record(tick int64, p core.Portfolio) {
	if h.Balances == nil {
		h.Balances = make(map[string][]float64, len(p))
	}
	h.Ticks = append(h.Ticks, tick)
	for token, qty := range p {
		h.Balances[token] = append(h.Balances[token], qty)
	}
}

// base carries the state every concrete agent shares.
type base struct {
	id        string
	pool      *core.Pool
	portfolio core.Portfolio
	rng       *rand.Rand
	log       *zap.SugaredLogger
	history   PortfolioHistory
}

func newBase(id string, pool *core.Pool, portfolio core.Portfolio, rng *rand.Rand, log *zap.SugaredLogger) (base, error) {
	if id == "" {
		return base{}, fmt.Errorf("agent requires an id")
	}
	if pool == nil {
		return base{}, fmt.Errorf("agent %s requires a pool", id)
	}
	if rng == nil {
		return base{}, fmt.Errorf("agent %s requires a random source", id)
	}
	if portfolio == nil {
		portfolio = make(core.Portfolio)
	}
	return base{id: id, pool: pool, portfolio: portfolio, rng: rng, log: log}, nil
}

func (b *base) ID() string                 { return b.id }
func (b *base) Portfolio() core.Portfolio  { return b.portfolio }
func (b *base) History() *PortfolioHistory { return &b.history }

// submit builds an order from params and places it in the agent's pool.
// A rejected order is the agent's mistake, not the simulation's: log it
// and move on.
func (b *base) submit(params core.OrderParams) {
	params.Trader = b
	order, err := core.NewOrder(params)
	if err != nil {
		if b.log != nil {
			b.log.Warnw("order_rejected", "agent", b.id, "err", err)
		}
		return
	}
	if err := b.pool.AddOrder(order); err != nil {
		if b.log != nil {
			b.log.Warnw("order_rejected", "agent", b.id, "pool", b.pool.ID, "err", err)
		}
		return
	}
	if b.log != nil {
		b.log.Debugw("order_submitted",
			"agent", b.id, "pool", b.pool.ID, "order", order.ID,
			"side", order.Side.String(), "type", order.Type.String(),
			"token", order.Token, "volume", order.Volume)
	}
}

// otherToken picks a random pool token different from token.
func (b *base) otherToken(token string) string {
	tokens := b.pool.Tokens()
	others := tokens[:0:0]
	for _, t := range tokens {
		if t != token {
			others = append(others, t)
		}
	}
	if len(others) == 0 {
		return ""
	}
	return others[b.rng.Intn(len(others))]
}

// randomVolume draws a trade size in (0.1, 1] * max, never zero.
func (b *base) randomVolume(max float64) float64 {
	return max * (0.1 + 0.9*b.rng.Float64())
}
