package core

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"go.uber.org/zap"
)

// AMMKind selects the pricing invariant an engine runs.
type AMMKind int8

const (
	// ConstantProduct is the two-asset x*y=k invariant (Uniswap V2 style).
	ConstantProduct AMMKind = iota
	// WeightedGeometric is the N-asset k = prod(R_i^w_i) invariant.
	WeightedGeometric
)

func (k AMMKind) String() string {
	switch k {
	case ConstantProduct:
		return "uniswap-v2"
	case WeightedGeometric:
		return "weighted"
	default:
		return "unknown"
	}
}

// ParseAMMKind maps a config string to an AMMKind.
func ParseAMMKind(s string) (AMMKind, error) {
	switch s {
	case "uniswap-v2", "constant-product":
		return ConstantProduct, nil
	case "weighted", "weighted-geometric":
		return WeightedGeometric, nil
	default:
		return 0, fmt.Errorf("amm type %q is not supported", s)
	}
}

// AMMParams configures the engine owned by a pool.
type AMMParams struct {
	Kind AMMKind
	// Fee is the trade fee rate, 0 <= Fee < 1.
	Fee float64
	// Weights are the per-token weights for the weighted variant. They must
	// cover exactly the pool's tokens and sum to 1. Nil means equal weights.
	// Ignored by the constant-product variant.
	Weights map[string]float64
}

// engineOps is the per-variant dispatch table. One shared ExecuteOrders
// orchestration drives these; only the invariant math differs per kind.
type engineOps struct {
	// settle executes o as a market trade against the reserves, finalizing
	// its status either way. Liquidity and balance failures cancel the order.
	settle func(e *Engine, o *Order, tick int64)
	// spot returns the fee-inclusive cost in currency of buying amount of
	// asset at current reserves. Errors when amount >= the asset reserve.
	spot func(e *Engine, asset, currency string, amount float64) (float64, error)
	// invariant derives k from current reserves.
	invariant func(e *Engine) float64
}

var engineTable = map[AMMKind]engineOps{
	ConstantProduct: {
		settle:    (*Engine).settleConstantProduct,
		spot:      (*Engine).spotConstantProduct,
		invariant: (*Engine).invariantConstantProduct,
	},
	WeightedGeometric: {
		settle:    (*Engine).settleWeighted,
		spot:      (*Engine).spotWeighted,
		invariant: (*Engine).invariantWeighted,
	},
}

// Engine prices and executes orders against one pool's reserves.
// Exactly one engine exists per pool; the back-reference is non-owning.
type Engine struct {
	kind    AMMKind
	pool    *Pool
	fee     float64
	weights map[string]float64
	tokens  []string // pool token names, sorted for deterministic iteration
	k       float64
	rng     *rand.Rand
	ops     engineOps

	Logger  *zap.SugaredLogger
	Verbose bool // if false, only log fills and errors
}

// newEngine validates params against the pool's token set and builds the
// engine. All configuration errors surface here, before any tick runs.
func newEngine(pool *Pool, params AMMParams, rng *rand.Rand) (*Engine, error) {
	ops, ok := engineTable[params.Kind]
	if !ok {
		return nil, fmt.Errorf("amm kind %d is not supported", params.Kind)
	}
	if params.Fee < 0 || params.Fee >= 1 {
		return nil, fmt.Errorf("fee rate must be in [0, 1), got %v", params.Fee)
	}
	if rng == nil {
		return nil, fmt.Errorf("engine requires a random source")
	}

	tokens := make([]string, 0, len(pool.Reserves))
	for token := range pool.Reserves {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	e := &Engine{
		kind:   params.Kind,
		pool:   pool,
		fee:    params.Fee,
		tokens: tokens,
		rng:    rng,
		ops:    ops,
	}

	switch params.Kind {
	case ConstantProduct:
		if len(tokens) != 2 {
			return nil, fmt.Errorf("constant-product amm requires exactly 2 tokens, got %d", len(tokens))
		}
	case WeightedGeometric:
		weights, err := normalizeWeights(tokens, params.Weights)
		if err != nil {
			return nil, err
		}
		e.weights = weights
	}

	e.k = e.ops.invariant(e)
	return e, nil
}

// normalizeWeights validates explicit weights or derives equal ones.
func normalizeWeights(tokens []string, weights map[string]float64) (map[string]float64, error) {
	out := make(map[string]float64, len(tokens))
	if weights == nil {
		for _, token := range tokens {
			out[token] = 1 / float64(len(tokens))
		}
		return out, nil
	}
	if len(weights) != len(tokens) {
		return nil, fmt.Errorf("weights must cover exactly the pool tokens: got %d weights for %d tokens", len(weights), len(tokens))
	}
	sum := 0.0
	for _, token := range tokens {
		w, ok := weights[token]
		if !ok {
			return nil, fmt.Errorf("missing weight for token %q", token)
		}
		if w <= 0 {
			return nil, fmt.Errorf("weight for token %q must be positive, got %v", token, w)
		}
		out[token] = w
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		return nil, fmt.Errorf("weights must sum to 1, got %v", sum)
	}
	return out, nil
}

// Kind returns the engine's AMM variant.
func (e *Engine) Kind() AMMKind { return e.kind }

// Fee returns the engine's fee rate.
func (e *Engine) Fee() float64 { return e.fee }

// K returns the invariant value stored after the last successful trade.
func (e *Engine) K() float64 { return e.k }

// ExecuteOrders runs one matching pass at tick: limit orders whose trigger is
// already met fill first, then market orders in sorted sequence with resting
// limits re-checked after every fill (a market trade can move the price past
// a limit's trigger). Finished orders are purged from the book afterwards.
func (e *Engine) ExecuteOrders(tick int64) {
	e.sortOrders()

	var limits, markets []*Order
	for _, o := range e.pool.book {
		switch o.Type {
		case Limit:
			limits = append(limits, o)
		case Market:
			markets = append(markets, o)
		default:
			panic(fmt.Sprintf("order %s has unsupported type %d", o.ID, o.Type))
		}
	}

	e.checkLimits(limits, tick)
	for _, o := range markets {
		if o.IsFinal() {
			continue
		}
		e.executeOrder(o, tick)
		e.checkLimits(limits, tick)
	}

	e.cleanOrderBook()
}

// executeOrder settles a single order: market orders immediately, limit
// orders via their trigger check. An unsupported type is a fatal defect
// (NewOrder refuses to construct one), never a silent skip.
func (e *Engine) executeOrder(o *Order, tick int64) {
	switch o.Type {
	case Market:
		e.ops.settle(e, o, tick)
	case Limit:
		e.checkLimits([]*Order{o}, tick)
	default:
		panic(fmt.Sprintf("order %s has unsupported type %d", o.ID, o.Type))
	}
}

// checkLimits expires and triggers resting limit orders.
func (e *Engine) checkLimits(limits []*Order, tick int64) {
	for _, o := range limits {
		if o.IsFinal() {
			continue
		}
		if o.Expired(tick) {
			e.cancel(o, "lifetime exceeded")
			continue
		}
		price, err := e.ops.spot(e, o.Token, o.SecondToken, 1)
		if err != nil {
			// Price undefined at current reserves; the order keeps resting.
			continue
		}
		triggered := (o.Side == Buy && price <= o.LimitPrice) ||
			(o.Side == Sell && price >= o.LimitPrice)
		if triggered {
			e.ops.settle(e, o, tick)
		}
	}
}

// sortOrders shuffles the whole book with the run RNG, then stably sorts by
// (creation tick, priority) ascending. Orders with distinct keys always end
// up in key order; the shuffle only randomizes ties, so same-key orders get
// a fair, seed-reproducible sequence.
func (e *Engine) sortOrders() {
	book := e.pool.book
	e.rng.Shuffle(len(book), func(i, j int) {
		book[i], book[j] = book[j], book[i]
	})
	sort.SliceStable(book, func(i, j int) bool {
		if book[i].CreatedAt != book[j].CreatedAt {
			return book[i].CreatedAt < book[j].CreatedAt
		}
		return book[i].Priority < book[j].Priority
	})
}

// cleanOrderBook records per-status counts and evicts finished orders, so
// the book only ever carries Awaiting orders between passes.
func (e *Engine) cleanOrderBook() {
	counts := make(map[OrderStatus]int, len(Statuses))
	kept := e.pool.book[:0]
	for _, o := range e.pool.book {
		counts[o.Status()]++
		if o.Status() == Awaiting {
			kept = append(kept, o)
		}
	}
	for _, status := range Statuses {
		e.pool.Metrics.RecordOrderCount(status, counts[status])
	}
	e.pool.book = kept
}

// SpotPrice returns the fee-inclusive cost in currency of buying amount of
// asset. It fails when amount meets or exceeds the asset reserve, where the
// invariant price is undefined.
func (e *Engine) SpotPrice(asset, currency string, amount float64) (float64, error) {
	return e.ops.spot(e, asset, currency, amount)
}

// WriteMetrics appends the per-tick engine snapshot: invariant value and the
// unit spot price of every ordered token pair. Called once per scheduler
// tick, by the scheduler.
func (e *Engine) WriteMetrics() {
	m := e.pool.Metrics
	m.K = append(m.K, e.ops.invariant(e))
	for _, asset := range e.tokens {
		for _, currency := range e.tokens {
			if asset == currency {
				continue
			}
			price, err := e.ops.spot(e, asset, currency, 1)
			if err != nil {
				price = 0 // reserve drained below one unit; price undefined
			}
			m.RecordPrice(asset, currency, price)
		}
	}
}

// cancel finalizes o as Canceled. Cancels are terminal: the engine never
// retries or resubmits.
func (e *Engine) cancel(o *Order, reason string) {
	o.finalize(Canceled)
	if e.Logger != nil && e.Verbose {
		e.Logger.Debugw("order_canceled",
			"pool", e.pool.ID, "order", o.ID, "trader", o.Trader.ID(),
			"side", o.Side.String(), "token", o.Token, "volume", o.Volume,
			"reason", reason)
	}
}

// succeed finalizes o as Succeed and records the fee profit earned on the
// trade's input token.
func (e *Engine) succeed(o *Order, tick int64, inToken string, fee float64, outToken string, amountIn, amountOut float64) {
	o.finalize(Succeed)
	e.pool.Metrics.AccumulateFee(inToken, tick, fee)
	if e.Logger != nil {
		e.Logger.Infow("order_filled",
			"pool", e.pool.ID, "order", o.ID, "trader", o.Trader.ID(),
			"side", o.Side.String(), "in", inToken, "amount_in", amountIn,
			"out", outToken, "amount_out", amountOut, "fee", fee, "tick", tick)
	}
}
