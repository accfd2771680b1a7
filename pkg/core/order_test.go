package core

import (
	"testing"
)

// testTrader is a minimal portfolio holder for engine tests.
type testTrader struct {
	id        string
	portfolio Portfolio
}

func (t *testTrader) ID() string           { return t.id }
func (t *testTrader) Portfolio() Portfolio { return t.portfolio }

func newTestTrader(id string, balances map[string]float64) *testTrader {
	p := make(Portfolio, len(balances))
	for token, qty := range balances {
		p[token] = qty
	}
	return &testTrader{id: id, portfolio: p}
}

func validOrderParams(trader Trader) OrderParams {
	return OrderParams{
		Trader:      trader,
		CreatedAt:   0,
		Side:        Buy,
		Type:        Market,
		Token:       "A",
		SecondToken: "B",
		Volume:      10,
		Priority:    1,
	}
}

func TestNewOrder_Validation(t *testing.T) {
	trader := newTestTrader("t1", map[string]float64{"A": 100, "B": 100})

	tests := []struct {
		name    string
		mutate  func(*OrderParams)
		wantErr bool
	}{
		{
			name:   "valid market order",
			mutate: func(p *OrderParams) {},
		},
		{
			name: "valid limit order",
			mutate: func(p *OrderParams) {
				p.Type = Limit
				p.LimitPrice = 1.5
				p.Lifetime = 10
			},
		},
		{
			name:    "nil trader",
			mutate:  func(p *OrderParams) { p.Trader = nil },
			wantErr: true,
		},
		{
			name:    "unsupported operation type",
			mutate:  func(p *OrderParams) { p.Side = Side(9) },
			wantErr: true,
		},
		{
			name:    "unsupported order type",
			mutate:  func(p *OrderParams) { p.Type = OrderType(9) },
			wantErr: true,
		},
		{
			name:    "missing token",
			mutate:  func(p *OrderParams) { p.Token = "" },
			wantErr: true,
		},
		{
			name:    "second token equals token",
			mutate:  func(p *OrderParams) { p.SecondToken = p.Token },
			wantErr: true,
		},
		{
			name:    "zero volume",
			mutate:  func(p *OrderParams) { p.Volume = 0 },
			wantErr: true,
		},
		{
			name:    "negative volume",
			mutate:  func(p *OrderParams) { p.Volume = -5 },
			wantErr: true,
		},
		{
			name:    "priority below one",
			mutate:  func(p *OrderParams) { p.Priority = 0 },
			wantErr: true,
		},
		{
			name:    "negative creation tick",
			mutate:  func(p *OrderParams) { p.CreatedAt = -1 },
			wantErr: true,
		},
		{
			name: "limit order without limit price",
			mutate: func(p *OrderParams) {
				p.Type = Limit
				p.LimitPrice = 0
			},
			wantErr: true,
		},
		{
			name: "limit order without second token",
			mutate: func(p *OrderParams) {
				p.Type = Limit
				p.LimitPrice = 1
				p.SecondToken = ""
			},
			wantErr: true,
		},
		{
			name: "limit order with negative lifetime",
			mutate: func(p *OrderParams) {
				p.Type = Limit
				p.LimitPrice = 1
				p.Lifetime = -1
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validOrderParams(trader)
			tt.mutate(&p)
			o, err := NewOrder(p)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewOrder() expected error, got order %+v", o)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewOrder() unexpected error: %v", err)
			}
			if o.Status() != Awaiting {
				t.Errorf("new order status = %v, want awaiting", o.Status())
			}
			if o.ID == "" {
				t.Errorf("new order has empty ID")
			}
		})
	}
}

func TestOrder_StatusMonotonicity(t *testing.T) {
	trader := newTestTrader("t1", map[string]float64{"A": 100})
	o, err := NewOrder(validOrderParams(trader))
	if err != nil {
		t.Fatalf("NewOrder() error: %v", err)
	}

	o.finalize(Succeed)
	if o.Status() != Succeed {
		t.Fatalf("status = %v, want succeed", o.Status())
	}

	// A final status never changes again, whatever is attempted.
	o.finalize(Canceled)
	if o.Status() != Succeed {
		t.Errorf("status flipped to %v after second finalize", o.Status())
	}
	o.finalize(Awaiting)
	if o.Status() != Succeed {
		t.Errorf("status reverted to %v", o.Status())
	}
}

func TestOrder_Expired(t *testing.T) {
	trader := newTestTrader("t1", map[string]float64{"A": 100})
	p := validOrderParams(trader)
	p.Type = Limit
	p.LimitPrice = 1
	p.Lifetime = 5
	o, err := NewOrder(p)
	if err != nil {
		t.Fatalf("NewOrder() error: %v", err)
	}

	for tick := int64(0); tick <= 5; tick++ {
		if o.Expired(tick) {
			t.Errorf("order expired at tick %d, lifetime 5", tick)
		}
	}
	if !o.Expired(6) {
		t.Errorf("order not expired at tick 6, lifetime 5")
	}

	// Market orders and zero-lifetime limits never expire.
	m, _ := NewOrder(validOrderParams(trader))
	if m.Expired(1000) {
		t.Errorf("market order reported expired")
	}
	p.Lifetime = 0
	forever, _ := NewOrder(p)
	if forever.Expired(1000) {
		t.Errorf("zero-lifetime limit order reported expired")
	}
}
