package sink

import "tradeflow/internal/book"

// Multi fans each event out to every sink in order.
type Multi []book.EventSink

func (m Multi) OnTrade(tr book.Trade) {
	for _, s := range m {
		s.OnTrade(tr)
	}
}

func (m Multi) OnQuote(q book.Quote) {
	for _, s := range m {
		s.OnQuote(q)
	}
}
