package sink

import (
	"github.com/rs/zerolog"

	"tradeflow/internal/book"
)

// LogSink writes every event as a structured log line. Trades log at info,
// quotes at debug since they fire after every top-of-book change.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{log: logger}
}

func (s *LogSink) OnTrade(tr book.Trade) {
	s.log.Info().
		Str("trade_id", tr.ID).
		Str("symbol", tr.Symbol).
		Uint64("buy_order_id", tr.BuyOrderID).
		Uint64("sell_order_id", tr.SellOrderID).
		Int64("price", tr.Price).
		Int64("quantity", tr.Quantity).
		Time("executed_at", tr.Timestamp).
		Msg("trade")
}

func (s *LogSink) OnQuote(q book.Quote) {
	s.log.Debug().
		Str("symbol", q.Symbol).
		Int64("bid_price", q.BidPrice).
		Int64("bid_quantity", q.BidQuantity).
		Int64("ask_price", q.AskPrice).
		Int64("ask_quantity", q.AskQuantity).
		Msg("quote")
}
