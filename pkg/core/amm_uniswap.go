package core

import (
	"fmt"
	"math"
)

// Constant-product variant: two reserves x and y with x*y = k.
//
// Buying dy of the output token costs dx = (k/(y-dy) - x) / (1-fee) of the
// input token. Selling dx of the input token yields dy = y - k/(x + dx')
// where dx' = dx*(1-fee). Reserves absorb the fee-free leg of each trade, so
// k is preserved up to floating-point error; the fee margin is tracked in
// the pool's fee-profit metric instead of the reserves.

func (e *Engine) invariantConstantProduct() float64 {
	k := 1.0
	for _, token := range e.tokens {
		k *= e.pool.Reserves[token]
	}
	return k
}

func (e *Engine) settleConstantProduct(o *Order, tick int64) {
	reserves := e.pool.Reserves
	portfolio := o.Trader.Portfolio()
	k := e.invariantConstantProduct()

	switch o.Side {
	case Buy:
		in, out := o.SecondToken, o.Token
		x, y := reserves[in], reserves[out]
		dy := o.Volume
		if x <= 0 || y <= 0 {
			e.cancel(o, "drained reserve")
			return
		}
		if dy >= y {
			e.cancel(o, "requested output exceeds reserve")
			return
		}
		dxNoFee := k/(y-dy) - x
		if dxNoFee <= 0 || math.IsInf(dxNoFee, 0) || math.IsNaN(dxNoFee) {
			e.cancel(o, "computed input out of bounds")
			return
		}
		dx := dxNoFee / (1 - e.fee)
		if portfolio.Balance(in) < dx {
			e.cancel(o, "insufficient trader balance")
			return
		}
		// All checks passed: apply both legs together.
		portfolio.Debit(in, dx)
		portfolio.Credit(out, dy)
		reserves[in] += dxNoFee
		reserves[out] -= dy
		e.k = e.invariantConstantProduct()
		e.succeed(o, tick, in, dx-dxNoFee, out, dx, dy)

	case Sell:
		in, out := o.Token, o.SecondToken
		x, y := reserves[in], reserves[out]
		dx := o.Volume
		if x <= 0 || y <= 0 {
			e.cancel(o, "drained reserve")
			return
		}
		if portfolio.Balance(in) < dx {
			e.cancel(o, "insufficient trader balance")
			return
		}
		dxFee := dx * (1 - e.fee)
		dy := y - k/(x+dxFee)
		if dy <= 0 || dy >= y || math.IsNaN(dy) {
			e.cancel(o, "computed output out of bounds")
			return
		}
		portfolio.Debit(in, dx)
		portfolio.Credit(out, dy)
		reserves[in] += dxFee
		reserves[out] -= dy
		e.k = e.invariantConstantProduct()
		e.succeed(o, tick, in, dx-dxFee, out, dx, dy)
	}
}

// spotConstantProduct: cost = (currencyReserve * amount) / ((assetReserve - amount) * (1-fee)).
func (e *Engine) spotConstantProduct(asset, currency string, amount float64) (float64, error) {
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
	return (cr * amount) / ((ar - amount) * (1 - e.fee)), nil
}
