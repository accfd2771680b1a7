package core

// FeeSeries is a cumulative fee-profit history for one token: parallel
// timestamp/value slices, one point per tick that saw at least one fill.
// Values are running totals, so the last point is the lifetime fee profit.
type FeeSeries struct {
	Ticks  []int64   `json:"ticks"`
	Values []float64 `json:"values"`
}

// Accumulate folds a fee amount earned at tick into the series. Multiple
// fills on the same tick coalesce into a single point.
func (s *FeeSeries) Accumulate(tick int64, fee float64) {
	n := len(s.Ticks)
	if n > 0 && s.Ticks[n-1] == tick {
		s.Values[n-1] += fee
		return
	}
	total := fee
	if n > 0 {
		total += s.Values[n-1]
	}
	s.Ticks = append(s.Ticks, tick)
	s.Values = append(s.Values, total)
}

// Total returns the cumulative fee profit recorded so far.
func (s *FeeSeries) Total() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return s.Values[len(s.Values)-1]
}

// PoolMetrics holds every per-pool time series the simulation exposes to
// offline analysis. All slices are indexed by recording order: Reserves gains
// a point per ExecuteOrders call, K and Prices per scheduler tick, and
// OrderCounts per book cleanup pass.
type PoolMetrics struct {
	// Reserves maps token name to its reserve snapshot history.
	Reserves map[string][]float64 `json:"reserves"`
	// K is the engine invariant value history.
	K []float64 `json:"k"`
	// Prices maps "asset/currency" to the unit spot price history.
	// Zero marks a tick where the price was undefined (drained reserve).
	Prices map[string][]float64 `json:"prices"`
	// Fees maps input token to its cumulative fee-profit series.
	Fees map[string]*FeeSeries `json:"fees"`
	// OrderCounts maps order status name to per-cleanup-pass book counts.
	OrderCounts map[string][]int `json:"order_counts"`
}

// NewPoolMetrics initializes the metric containers for the given tokens.
func NewPoolMetrics(tokens []string) *PoolMetrics {
	m := &PoolMetrics{
		Reserves:    make(map[string][]float64, len(tokens)),
		Prices:      make(map[string][]float64),
		Fees:        make(map[string]*FeeSeries, len(tokens)),
		OrderCounts: make(map[string][]int, len(Statuses)),
	}
	for _, token := range tokens {
		m.Reserves[token] = nil
		m.Fees[token] = &FeeSeries{}
	}
	for _, status := range Statuses {
		m.OrderCounts[status.String()] = nil
	}
	return m
}

// RecordReserves appends a snapshot of the given reserve map.
func (m *PoolMetrics) RecordReserves(reserves map[string]float64) {
	for token, qty := range reserves {
		m.Reserves[token] = append(m.Reserves[token], qty)
	}
}

// RecordPrice appends a point to the asset/currency price history.
func (m *PoolMetrics) RecordPrice(asset, currency string, price float64) {
	key := asset + "/" + currency
	m.Prices[key] = append(m.Prices[key], price)
}

// RecordOrderCount appends a book count for one status.
func (m *PoolMetrics) RecordOrderCount(status OrderStatus, n int) {
	key := status.String()
	m.OrderCounts[key] = append(m.OrderCounts[key], n)
}

// AccumulateFee records fee profit earned in token at tick.
func (m *PoolMetrics) AccumulateFee(token string, tick int64, fee float64) {
	series, ok := m.Fees[token]
	if !ok {
		series = &FeeSeries{}
		m.Fees[token] = series
	}
	series.Accumulate(tick, fee)
}
