package core

import (
	"fmt"

	"github.com/google/uuid"
)

// Side is the direction of an order: buying or selling the order's token.
type Side int8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// OrderType distinguishes immediate execution from price-triggered execution.
type OrderType int8

const (
	Market OrderType = iota
	Limit
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "market"
	case Limit:
		return "limit"
	default:
		return "unknown"
	}
}

// OrderStatus is the lifecycle state of an order.
// Transitions exactly once: Awaiting -> Succeed or Awaiting -> Canceled.
type OrderStatus int8

const (
	Awaiting OrderStatus = iota
	Succeed
	Canceled
)

func (s OrderStatus) String() string {
	switch s {
	case Awaiting:
		return "awaiting"
	case Succeed:
		return "succeed"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Statuses lists all order statuses, used when counting book contents.
var Statuses = []OrderStatus{Awaiting, Succeed, Canceled}

// Trader is the view of an agent the engine needs for settlement:
// an identity and a mutable token balance map. The engine never holds a
// standing reference beyond the order being settled.
type Trader interface {
	ID() string
	Portfolio() Portfolio
}

// OrderParams collects the fields needed to create an order.
type OrderParams struct {
	Trader    Trader
	CreatedAt int64 // tick the order was created on
	Side      Side
	Type      OrderType
	Token     string // primary asset the volume is denominated in
	// SecondToken is the counter asset. Required by two-asset engines and by
	// all limit orders (the trigger price is quoted in it). The weighted
	// engine picks its own counter asset for market orders when empty.
	SecondToken string
	// Volume semantics depend on Side: amount of Token desired for Buy,
	// amount of Token offered for Sell.
	Volume   float64
	Priority int // >= 1; lower value sorts later among same-tick orders
	// LimitPrice triggers a Limit order: Buy fills when spot <= LimitPrice,
	// Sell fills when spot >= LimitPrice. Ignored for Market orders.
	LimitPrice float64
	// Lifetime caps how long a Limit order may rest, in ticks. Zero means no
	// expiry. An order expires once tick - CreatedAt > Lifetime.
	Lifetime int64
}

// Order is an immutable trade request with a mutable status.
// Create via NewOrder; construction validates every field.
type Order struct {
	ID          string
	Trader      Trader
	CreatedAt   int64
	Side        Side
	Type        OrderType
	Token       string
	SecondToken string
	Volume      float64
	Priority    int
	LimitPrice  float64
	Lifetime    int64

	status OrderStatus
}

// NewOrder validates p and returns a new Awaiting order.
func NewOrder(p OrderParams) (*Order, error) {
	if p.Trader == nil {
		return nil, fmt.Errorf("order requires a trader")
	}
	if p.Side != Buy && p.Side != Sell {
		return nil, fmt.Errorf("unsupported operation type %d", p.Side)
	}
	if p.Type != Market && p.Type != Limit {
		return nil, fmt.Errorf("unsupported order type %d", p.Type)
	}
	if p.Token == "" {
		return nil, fmt.Errorf("order requires a token")
	}
	if p.SecondToken == p.Token && p.SecondToken != "" {
		return nil, fmt.Errorf("second token must differ from token %q", p.Token)
	}
	if p.Volume <= 0 {
		return nil, fmt.Errorf("order volume must be positive, got %v", p.Volume)
	}
	if p.Priority < 1 {
		return nil, fmt.Errorf("order priority must be >= 1, got %d", p.Priority)
	}
	if p.CreatedAt < 0 {
		return nil, fmt.Errorf("creation timestamp must be >= 0, got %d", p.CreatedAt)
	}
	if p.Type == Limit {
		if p.LimitPrice <= 0 {
			return nil, fmt.Errorf("limit order requires a positive limit price, got %v", p.LimitPrice)
		}
		if p.SecondToken == "" {
			return nil, fmt.Errorf("limit order requires a second token to quote the limit price in")
		}
		if p.Lifetime < 0 {
			return nil, fmt.Errorf("limit order lifetime must be >= 0, got %d", p.Lifetime)
		}
	}

	return &Order{
		ID:          uuid.NewString(),
		Trader:      p.Trader,
		CreatedAt:   p.CreatedAt,
		Side:        p.Side,
		Type:        p.Type,
		Token:       p.Token,
		SecondToken: p.SecondToken,
		Volume:      p.Volume,
		Priority:    p.Priority,
		LimitPrice:  p.LimitPrice,
		Lifetime:    p.Lifetime,
	}, nil
}

// Status returns the current lifecycle state.
func (o *Order) Status() OrderStatus { return o.status }

// IsFinal returns true once the order has left the Awaiting state.
func (o *Order) IsFinal() bool { return o.status != Awaiting }

// Expired reports whether a resting limit order has outlived its lifetime.
func (o *Order) Expired(tick int64) bool {
	return o.Type == Limit && o.Lifetime > 0 && tick-o.CreatedAt > o.Lifetime
}

// finalize moves the order out of Awaiting. The transition happens at most
// once; later calls are ignored so a settled order can never flip state.
func (o *Order) finalize(status OrderStatus) {
	if o.status != Awaiting || status == Awaiting {
		return
	}
	o.status = status
}
