package core

import (
	"fmt"
	"math/rand"
)

// TokenBalance seeds one reserve at pool construction.
type TokenBalance struct {
	Name     string
	Quantity float64
}

// PoolParams configures a pool and its engine. Validation is eager: a bad
// value refuses construction before any simulation tick runs.
type PoolParams struct {
	ID     string
	Name   string
	Tokens []TokenBalance
	AMM    AMMParams
	// StepsToCheckOrderBook throttles matching: the engine only runs once
	// every this many ticks (>= 1), decoupling settlement frequency from the
	// global tick resolution.
	StepsToCheckOrderBook int64
	// StepToStartSimulation is the first tick this pool participates in (>= 0).
	StepToStartSimulation int64
}

// Pool owns token reserves, an order book and one AMM engine. Reserves
// mutate only through engine-executed trades and stay non-negative; the
// engine rejects any trade that would breach that.
type Pool struct {
	ID       string
	Name     string
	Reserves map[string]float64
	Metrics  *PoolMetrics

	book         []*Order
	engine       *Engine
	stepsToCheck int64
	lastChecked  int64
	startStep    int64
	ordersAdded  uint64
}

// NewPool validates params, builds the reserve map and the engine.
func NewPool(params PoolParams, rng *rand.Rand) (*Pool, error) {
	if params.ID == "" {
		return nil, fmt.Errorf("pool requires an id")
	}
	if len(params.Tokens) < 2 {
		return nil, fmt.Errorf("pool %s is expected to have 2 or more tokens, got %d", params.ID, len(params.Tokens))
	}
	if params.StepsToCheckOrderBook < 1 {
		return nil, fmt.Errorf("pool %s: steps_to_check_orderbook has to be >= 1, got %d", params.ID, params.StepsToCheckOrderBook)
	}
	if params.StepToStartSimulation < 0 {
		return nil, fmt.Errorf("pool %s: step_to_start_simulation has to be >= 0, got %d", params.ID, params.StepToStartSimulation)
	}

	reserves := make(map[string]float64, len(params.Tokens))
	tokens := make([]string, 0, len(params.Tokens))
	for _, token := range params.Tokens {
		if token.Name == "" {
			return nil, fmt.Errorf("pool %s has a token without a name", params.ID)
		}
		if _, dup := reserves[token.Name]; dup {
			return nil, fmt.Errorf("found identical token name %q in pool %s", token.Name, params.ID)
		}
		if token.Quantity <= 0 {
			return nil, fmt.Errorf("pool %s: start quantity of token %q has to be more than zero, got %v", params.ID, token.Name, token.Quantity)
		}
		reserves[token.Name] = token.Quantity
		tokens = append(tokens, token.Name)
	}

	p := &Pool{
		ID:           params.ID,
		Name:         params.Name,
		Reserves:     reserves,
		Metrics:      NewPoolMetrics(tokens),
		stepsToCheck: params.StepsToCheckOrderBook,
		startStep:    params.StepToStartSimulation,
		// First eligible pass lands exactly on the start step.
		lastChecked: params.StepToStartSimulation - params.StepsToCheckOrderBook,
	}

	engine, err := newEngine(p, params.AMM, rng)
	if err != nil {
		return nil, err
	}
	p.engine = engine
	return p, nil
}

// Engine returns the pool's owned AMM engine.
func (p *Pool) Engine() *Engine { return p.engine }

// Tokens returns the pool's token names in sorted order.
func (p *Pool) Tokens() []string {
	out := make([]string, len(p.engine.tokens))
	copy(out, p.engine.tokens)
	return out
}

// AddOrder appends an Awaiting order to the book. Orders referencing tokens
// the pool does not hold, or missing a counter token the engine needs, are
// configuration errors and rejected outright.
func (p *Pool) AddOrder(o *Order) error {
	if o == nil {
		return fmt.Errorf("pool %s: nil order", p.ID)
	}
	if o.IsFinal() {
		return fmt.Errorf("pool %s: order %s is already %s", p.ID, o.ID, o.Status())
	}
	if _, ok := p.Reserves[o.Token]; !ok {
		return fmt.Errorf("pool %s does not hold token %q", p.ID, o.Token)
	}
	if o.SecondToken != "" {
		if _, ok := p.Reserves[o.SecondToken]; !ok {
			return fmt.Errorf("pool %s does not hold token %q", p.ID, o.SecondToken)
		}
	} else if p.engine.kind == ConstantProduct {
		return fmt.Errorf("pool %s: constant-product orders require a second token", p.ID)
	}
	p.book = append(p.book, o)
	p.ordersAdded++
	return nil
}

// ExecuteOrders records a reserve snapshot and, when the throttle allows,
// runs one engine matching pass at tick. A skipped pass still snapshots, so
// the reserve history has a point for every call.
func (p *Pool) ExecuteOrders(tick int64) {
	p.Metrics.RecordReserves(p.Reserves)
	if tick < p.startStep {
		return
	}
	if tick-p.lastChecked < p.stepsToCheck {
		return
	}
	p.lastChecked = tick
	p.engine.ExecuteOrders(tick)
}

// WriteMetrics appends the engine's per-tick snapshot (invariant, prices).
func (p *Pool) WriteMetrics() { p.engine.WriteMetrics() }

// SpotPrice quotes the fee-inclusive cost in currency of buying amount of
// asset at current reserves.
func (p *Pool) SpotPrice(asset, currency string, amount float64) (float64, error) {
	return p.engine.SpotPrice(asset, currency, amount)
}

// BookSize returns the number of orders currently resting in the book.
func (p *Pool) BookSize() int { return len(p.book) }

// OrdersAdded returns the count of orders ever added to this pool.
func (p *Pool) OrdersAdded() uint64 { return p.ordersAdded }
