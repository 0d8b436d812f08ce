// Package market hands out one order book per instrument. Each book carries
// its own lock, so activity on one symbol never blocks matching on another.
package market

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"tradeflow/internal/book"
)

type Registry struct {
	mode     book.MatchingMode
	sink     book.EventSink
	recorder book.TradeRecorder

	mu    sync.RWMutex
	books map[string]*book.OrderBook

	// nextID issues engine-assigned order ids, strictly monotonic across
	// every book in the registry.
	nextID atomic.Uint64
}

func NewRegistry(mode book.MatchingMode, sink book.EventSink, recorder book.TradeRecorder) *Registry {
	return &Registry{
		mode:     mode,
		sink:     sink,
		recorder: recorder,
		books:    make(map[string]*book.OrderBook),
	}
}

// Get returns the book for symbol, creating it on first use.
func (r *Registry) Get(symbol string) *book.OrderBook {
	r.mu.RLock()
	b := r.books[symbol]
	r.mu.RUnlock()
	if b != nil {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.books[symbol]; ok {
		return b
	}
	b = book.New(symbol, r.mode)
	b.SetSink(r.sink)
	b.SetRecorder(r.recorder)
	r.books[symbol] = b
	log.Debug().Str("symbol", symbol).Stringer("mode", r.mode).Msg("order book created")
	return b
}

func (r *Registry) lookup(symbol string) (*book.OrderBook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[symbol]
	return b, ok
}

// NextOrderID returns a fresh engine-assigned order id.
func (r *Registry) NextOrderID() uint64 { return r.nextID.Add(1) }

// Submit assigns an engine id, places the order on the symbol's book and
// drains any resulting cross in the same exclusive section.
func (r *Registry) Submit(symbol string, side book.Side, qty, price int64, client string) (uint64, error) {
	id := r.NextOrderID()
	if err := r.Get(symbol).Submit(id, side, qty, price, client); err != nil {
		return 0, err
	}
	return id, nil
}

// Cancel removes an order from the symbol's book. Unknown symbols and
// unknown ids both report false.
func (r *Registry) Cancel(symbol string, id uint64) bool {
	b, ok := r.lookup(symbol)
	if !ok {
		return false
	}
	return b.Cancel(id)
}

// Modify re-prices or re-sizes an order on the symbol's book, forfeiting
// its queue position.
func (r *Registry) Modify(symbol string, id uint64, qty, price int64) bool {
	b, ok := r.lookup(symbol)
	if !ok {
		return false
	}
	return b.Modify(id, qty, price)
}

// Symbols lists the instruments with live books.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.books))
	for sym := range r.books {
		out = append(out, sym)
	}
	return out
}

// Each visits every live book. Used by the housekeeping tick.
func (r *Registry) Each(fn func(*book.OrderBook)) {
	r.mu.RLock()
	books := make([]*book.OrderBook, 0, len(r.books))
	for _, b := range r.books {
		books = append(books, b)
	}
	r.mu.RUnlock()

	for _, b := range books {
		fn(b)
	}
}
