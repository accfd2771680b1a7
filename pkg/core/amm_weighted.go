package core

import (
	"fmt"
	"math"
)

// Weighted-geometric variant: k = prod_i R_i^w_i over all reserves, weights
// fixed at construction and summing to 1.
//
// Trades touch exactly two reserves. A buy of a fixed output amount funds
// itself from whichever token minimizes the fee-inclusive input; a sell
// routes to whichever destination token maximizes the output. This is a
// deliberate local optimization, not a proportional multi-asset split.
// k is recomputed and stored after every successful trade; small drift
// across many trades is expected from the floating-point pow round trips.

func (e *Engine) invariantWeighted() float64 {
	k := 1.0
	for _, token := range e.tokens {
		k *= math.Pow(e.pool.Reserves[token], e.weights[token])
	}
	return k
}

// solveWeightedReserve returns the reserve of target that keeps k at its
// stored value, given the other reserves with overrides applied:
//
//	R_target = (k / prod_{i != target} R_i^{w_i})^(1/w_target)
func (e *Engine) solveWeightedReserve(target string, overrides map[string]float64) float64 {
	prod := 1.0
	for _, token := range e.tokens {
		if token == target {
			continue
		}
		r := e.pool.Reserves[token]
		if v, ok := overrides[token]; ok {
			r = v
		}
		prod *= math.Pow(r, e.weights[token])
	}
	return math.Pow(e.k/prod, 1/e.weights[target])
}

// candidateTokens returns the tokens a trade may route through: the order's
// second token when set, otherwise every other pool token in sorted order.
func (e *Engine) candidateTokens(o *Order) []string {
	if o.SecondToken != "" {
		return []string{o.SecondToken}
	}
	out := make([]string, 0, len(e.tokens)-1)
	for _, token := range e.tokens {
		if token != o.Token {
			out = append(out, token)
		}
	}
	return out
}

func (e *Engine) settleWeighted(o *Order, tick int64) {
	reserves := e.pool.Reserves
	portfolio := o.Trader.Portfolio()

	switch o.Side {
	case Buy:
		want := o.Token
		amountOut := o.Volume
		if amountOut >= reserves[want] {
			e.cancel(o, "requested output exceeds reserve")
			return
		}
		wantTarget := reserves[want] - amountOut

		// Pick the funding token requiring the least fee-inclusive input.
		var give string
		var giveNew, bestIn, bestInNoFee float64
		for _, cand := range e.candidateTokens(o) {
			candNew := e.solveWeightedReserve(cand, map[string]float64{want: wantTarget})
			inNoFee := candNew - reserves[cand]
			if inNoFee <= 0 || math.IsNaN(inNoFee) || math.IsInf(inNoFee, 0) {
				continue
			}
			in := inNoFee / (1 - e.fee)
			if give == "" || in < bestIn {
				give, giveNew, bestIn, bestInNoFee = cand, candNew, in, inNoFee
			}
		}
		if give == "" {
			e.cancel(o, "no feasible funding token")
			return
		}
		if portfolio.Balance(give) < bestIn {
			e.cancel(o, "insufficient trader balance")
			return
		}
		portfolio.Debit(give, bestIn)
		portfolio.Credit(want, amountOut)
		reserves[give] = giveNew
		reserves[want] = wantTarget
		e.k = e.invariantWeighted()
		e.succeed(o, tick, give, bestIn-bestInNoFee, want, bestIn, amountOut)

	case Sell:
		sell := o.Token
		amountIn := o.Volume
		if portfolio.Balance(sell) < amountIn {
			e.cancel(o, "insufficient trader balance")
			return
		}
		netIn := amountIn * (1 - e.fee)
		sellNew := reserves[sell] + netIn

		// Pick the destination token yielding the most output.
		var buy string
		var buyNew, bestOut float64
		for _, cand := range e.candidateTokens(o) {
			candNew := e.solveWeightedReserve(cand, map[string]float64{sell: sellNew})
			out := reserves[cand] - candNew
			if out <= 0 || out >= reserves[cand] || math.IsNaN(out) {
				continue
			}
			if buy == "" || out > bestOut {
				buy, buyNew, bestOut = cand, candNew, out
			}
		}
		if buy == "" {
			e.cancel(o, "no feasible destination token")
			return
		}
		portfolio.Debit(sell, amountIn)
		portfolio.Credit(buy, bestOut)
		reserves[sell] = sellNew
		reserves[buy] = buyNew
		e.k = e.invariantWeighted()
		e.succeed(o, tick, sell, amountIn-netIn, buy, amountIn, bestOut)
	}
}

func (e *Engine) spotWeighted(asset, currency string, amount float64) (float64, error) {
	if asset == currency {
		return 0, fmt.Errorf("asset and currency must differ, got %q", asset)
	}
	ar, ok := e.pool.Reserves[asset]
	if !ok {
		return 0, fmt.Errorf("unknown asset %q in pool %s", asset, e.pool.ID)
	}
	cr, ok := e.pool.Reserves[currency]
	if !ok {
		return 0, fmt.Errorf("unknown currency %q in pool %s", currency, e.pool.ID)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("price amount must be positive, got %v", amount)
	}
	if amount >= ar {
		return 0, fmt.Errorf("price undefined: amount %v >= reserve %v of %q", amount, ar, asset)
	}
	currencyNew := e.solveWeightedReserve(currency, map[string]float64{asset: ar - amount})
	costNoFee := currencyNew - cr
	if costNoFee <= 0 || math.IsNaN(costNoFee) || math.IsInf(costNoFee, 0) {
		return 0, fmt.Errorf("price undefined for %q/%q at amount %v", asset, currency, amount)
	}
	return costNoFee / (1 - e.fee), nil
}
