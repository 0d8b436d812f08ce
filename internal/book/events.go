package book

import "time"

// Trade is the immutable result of one match step. The execution price is
// the ask side's price: the aggressor receives no price improvement.
type Trade struct {
	ID          string
	Symbol      string
	BuyOrderID  uint64
	SellOrderID uint64
	Price       int64 // ticks
	Quantity    int64
	Timestamp   time.Time
}

// Quote is the derived top of book. Quantities are the front order's
// remaining quantity on each side.
type Quote struct {
	Symbol      string
	BidPrice    int64
	BidQuantity int64
	AskPrice    int64
	AskQuantity int64
	Timestamp   time.Time
}

// EventSink receives trades and quotes as the book produces them. Calls are
// made synchronously in emission order while the book holds its write lock;
// sinks that may block should be wrapped in an asynchronous dispatcher.
// Delivery is fire-and-forget: a sink must not corrupt book state.
type EventSink interface {
	OnTrade(Trade)
	OnQuote(Quote)
}

// TradeRecorder is an optional durable log for executed trades. Fields are
// raw ticks; no float conversion happens on this path.
type TradeRecorder interface {
	Append(timestamp int64, buyID, sellID uint64, price, qty int64, symbol string) error
}

// NopSink discards all events. Used when a book runs without a consumer.
type NopSink struct{}

func (NopSink) OnTrade(Trade) {}
func (NopSink) OnQuote(Quote) {}
