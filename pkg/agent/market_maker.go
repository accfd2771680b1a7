package agent

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/uhyunpark/poolsim/pkg/core"
)

// MarketMakerParams configures a MarketMaker.
type MarketMakerParams struct {
	ID        string
	Pool      *core.Pool
	Portfolio core.Portfolio
	// Token/QuoteToken is the pair the maker quotes, with limit prices
	// denominated in QuoteToken.
	Token      string
	QuoteToken string
	// Interval is how often (in ticks) the maker refreshes its quotes.
	Interval int64
	// Spread is the half-width around spot, e.g. 0.01 quotes at +/-1%.
	Spread float64
	// OrderVolume is the fixed size of each quote.
	OrderVolume float64
	// LimitLifetime expires stale quotes after this many ticks.
	LimitLifetime int64
}

func (p MarketMakerParams) validate() error {
	if p.Token == "" || p.QuoteToken == "" {
		return fmt.Errorf("agent %s: market maker requires token and quote_token", p.ID)
	}
	if p.Token == p.QuoteToken {
		return fmt.Errorf("agent %s: token and quote_token must differ", p.ID)
	}
	if p.Interval < 1 {
		return fmt.Errorf("agent %s: interval has to be >= 1, got %d", p.ID, p.Interval)
	}
	if p.Spread <= 0 || p.Spread >= 1 {
		return fmt.Errorf("agent %s: spread has to be in (0, 1), got %v", p.ID, p.Spread)
	}
	if p.OrderVolume <= 0 {
		return fmt.Errorf("agent %s: order_volume has to be positive, got %v", p.ID, p.OrderVolume)
	}
	if p.LimitLifetime < 1 {
		return fmt.Errorf("agent %s: limit_lifetime has to be >= 1, got %d", p.ID, p.LimitLifetime)
	}
	return nil
}

// MarketMaker keeps a two-sided quote on one pair: a buy limit below spot
// and a sell limit above, refreshed on a fixed interval. Old quotes expire
// through their lifetime rather than being actively canceled.
type MarketMaker struct {
	base
	token      string
	quote      string
	interval   int64
	spread     float64
	volume     float64
	lifetime   int64
	lastQuoted int64
}

// NewMarketMaker validates params and builds the agent.
func NewMarketMaker(p MarketMakerParams, rng *rand.Rand, log *zap.SugaredLogger) (*MarketMaker, error) {
	b, err := newBase(p.ID, p.Pool, p.Portfolio, rng, log)
	if err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &MarketMaker{
		base:       b,
		token:      p.Token,
		quote:      p.QuoteToken,
		interval:   p.Interval,
		spread:     p.Spread,
		volume:     p.OrderVolume,
		lifetime:   p.LimitLifetime,
		lastQuoted: -p.Interval,
	}, nil
}

// Act refreshes the two-sided quote when the interval has elapsed, then
// records the portfolio snapshot.
func (m *MarketMaker) Act(tick int64) {
	defer m.history.Record(tick, m.portfolio)
	if tick-m.lastQuoted < m.interval {
		return
	}
	spot, err := m.pool.SpotPrice(m.token, m.quote, 1)
	if err != nil {
		return
	}
	m.lastQuoted = tick

	m.submit(core.OrderParams{
		CreatedAt:   tick,
		Side:        core.Buy,
		Type:        core.Limit,
		Token:       m.token,
		SecondToken: m.quote,
		Volume:      m.volume,
		Priority:    1,
		LimitPrice:  spot * (1 - m.spread),
		Lifetime:    m.lifetime,
	})
	m.submit(core.OrderParams{
		CreatedAt:   tick,
		Side:        core.Sell,
		Type:        core.Limit,
		Token:       m.token,
		SecondToken: m.quote,
		Volume:      m.volume,
		Priority:    1,
		LimitPrice:  spot * (1 + m.spread),
		Lifetime:    m.lifetime,
	})
}
