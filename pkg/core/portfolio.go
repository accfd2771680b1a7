package core

// Portfolio maps token name to held quantity. It is owned by the agent that
// created it; the engine mutates it only while settling that agent's order.
type Portfolio map[string]float64

// Balance returns the held quantity of token (zero if absent).
func (p Portfolio) Balance(token string) float64 { return p[token] }

// Credit adds amount of token to the portfolio.
func (p Portfolio) Credit(token string, amount float64) {
	p[token] += amount
}

// Debit removes amount of token. The caller checks sufficiency first; a
// portfolio never goes negative during settlement.
func (p Portfolio) Debit(token string, amount float64) {
	p[token] -= amount
}

// Clone returns an independent copy, used for metrics snapshots.
func (p Portfolio) Clone() Portfolio {
	out := make(Portfolio, len(p))
	for token, qty := range p {
		out[token] = qty
	}
	return out
}
