package book

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/btree"
)

var (
	ErrDuplicateOrderID = errors.New("duplicate order id")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidPrice     = errors.New("invalid price")
)

type levels = btree.BTreeG[*priceLevel]

// OrderBook holds the resting liquidity for a single instrument. It is the
// sole owner of order storage; price levels reference orders only by id.
//
// All mutating calls take the write lock. Readers (BidLevels, AskLevels,
// TopOfBook, Orders) take the read lock and may run concurrently with each
// other, never with a mutator, so a reader can never observe a level
// mid-mutation or a half-drained cross.
type OrderBook struct {
	symbol string
	mode   MatchingMode

	mu sync.RWMutex
	// Bids sort greatest-first and asks least-first, so Min of either tree
	// is that side's best level.
	bids *levels
	asks *levels
	// table is order storage and order index in one: the entry's Side and
	// Price are the order's current location. Table and level queues are
	// always mutated together under the write lock.
	table map[uint64]*Order
	seq   uint64

	sink     EventSink
	recorder TradeRecorder
	now      func() time.Time
}

func New(symbol string, mode MatchingMode) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price > b.price
	})
	asks := btree.NewBTreeG(func(a, b *priceLevel) bool {
		return a.price < b.price
	})
	return &OrderBook{
		symbol: symbol,
		mode:   mode,
		bids:   bids,
		asks:   asks,
		table:  make(map[uint64]*Order),
		sink:   NopSink{},
		now:    time.Now,
	}
}

func (b *OrderBook) Symbol() string { return b.symbol }

func (b *OrderBook) Mode() MatchingMode { return b.mode }

// SetSink replaces the event sink. Must be called before the book is shared.
func (b *OrderBook) SetSink(s EventSink) {
	if s == nil {
		s = NopSink{}
	}
	b.sink = s
}

// SetRecorder attaches an optional durable trade log. The book functions
// identically with no recorder attached.
func (b *OrderBook) SetRecorder(r TradeRecorder) { b.recorder = r }

// Add places a new resting order at the back of its (side, price) level,
// creating the level if absent. It does not trigger matching; use Submit
// for the composed add-and-drain path, or call TriggerMatching explicitly.
func (b *OrderBook) Add(id uint64, side Side, qty, price int64, client string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.addLocked(id, side, qty, price, client); err != nil {
		return err
	}
	b.emitQuoteLocked()
	return nil
}

// Submit adds the order and immediately drains any crossed state under a
// single exclusive section, so no reader can observe the book crossed
// between insert and match.
func (b *OrderBook) Submit(id uint64, side Side, qty, price int64, client string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.addLocked(id, side, qty, price, client); err != nil {
		return err
	}
	b.matchLocked()
	b.emitQuoteLocked()
	return nil
}

// Cancel removes the order from its level and from storage. Cancelling an
// unknown or already-gone id is a normal outcome, not an error: it returns
// false and leaves the book untouched.
func (b *OrderBook) Cancel(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.cancelLocked(id) {
		return false
	}
	b.emitQuoteLocked()
	return true
}

// Modify is cancel-then-re-add: the order keeps its id, side and client but
// receives a fresh arrival sequence and goes to the back of the queue at
// its new price. Changing price or quantity always forfeits time priority.
// Returns false for an unknown id or non-positive quantity/price.
func (b *OrderBook) Modify(id uint64, qty, price int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.table[id]
	if !ok || qty <= 0 || price <= 0 {
		return false
	}
	side, client := o.Side, o.Client
	b.cancelLocked(id)
	if err := b.addLocked(id, side, qty, price, client); err != nil {
		// The id was just freed by cancelLocked; a failure here means the
		// table and levels disagree.
		log.Panic().Err(err).Uint64("order_id", id).Msg("modify reinsert failed")
	}
	b.emitQuoteLocked()
	return true
}

// TriggerMatching drains all crossed interest until the best bid is below
// the best ask or one side is empty. Calling it on an uncrossed book is a
// no-op and emits nothing.
func (b *OrderBook) TriggerMatching() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if trades := b.matchLocked(); len(trades) > 0 {
		b.emitQuoteLocked()
	}
}

// BidLevels returns (price, aggregate quantity) snapshots, best bid first.
func (b *OrderBook) BidLevels() []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collectLevels(b.bids)
}

// AskLevels returns (price, aggregate quantity) snapshots, best ask first.
func (b *OrderBook) AskLevels() []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collectLevels(b.asks)
}

// TopOfBook derives the current quote. The second return is false when
// either side is empty.
func (b *OrderBook) TopOfBook() (Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.quoteLocked()
}

// Orders returns a consistent copy of every live order, bids best-first
// then asks best-first, FIFO within each level.
func (b *OrderBook) Orders() []Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Order, 0, len(b.table))
	walk := func(lvl *priceLevel) bool {
		for _, id := range lvl.queue {
			out = append(out, *b.table[id])
		}
		return true
	}
	b.bids.Scan(walk)
	b.asks.Scan(walk)
	return out
}

// ---- mutations (write lock held) ----

func (b *OrderBook) addLocked(id uint64, side Side, qty, price int64, client string) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if price <= 0 {
		return ErrInvalidPrice
	}
	if _, live := b.table[id]; live {
		return ErrDuplicateOrderID
	}

	b.seq++
	o := &Order{ID: id, Side: side, Price: price, Quantity: qty, Seq: b.seq, Client: client}
	b.table[id] = o
	b.levelFor(side, price).push(id, qty)
	return nil
}

func (b *OrderBook) cancelLocked(id uint64) bool {
	o, ok := b.table[id]
	if !ok {
		return false
	}
	tree := b.sideTree(o.Side)
	if lvl, found := tree.GetMut(&priceLevel{price: o.Price}); found {
		lvl.remove(id, o.Quantity)
		if lvl.empty() {
			tree.Delete(lvl)
		}
	}
	delete(b.table, id)
	return true
}

// matchLocked runs the configured allocation policy against the top of book
// until the cross clears. Each iteration either empties a level or fills at
// least one order; a pass producing no fills (possible under pro-rata
// truncation) ends the drain.
func (b *OrderBook) matchLocked() []Trade {
	var trades []Trade
	for {
		bestBid, bidOK := b.bids.MinMut()
		bestAsk, askOK := b.asks.MinMut()
		if !bidOK || !askOK || bestBid.price < bestAsk.price {
			break
		}

		var step []Trade
		switch b.mode {
		case ProRata:
			step = b.matchProRata(bestBid, bestAsk)
		default:
			step = b.matchPriceTime(bestBid, bestAsk)
		}

		if bestBid.empty() {
			b.bids.Delete(bestBid)
		}
		if bestAsk.empty() {
			b.asks.Delete(bestAsk)
		}
		if len(step) == 0 {
			break
		}
		trades = append(trades, step...)
	}

	for _, tr := range trades {
		b.sink.OnTrade(tr)
		b.record(tr)
	}
	return trades
}

func (b *OrderBook) sideTree(side Side) *levels {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) levelFor(side Side, price int64) *priceLevel {
	tree := b.sideTree(side)
	if lvl, ok := tree.GetMut(&priceLevel{price: price}); ok {
		return lvl
	}
	lvl := &priceLevel{price: price}
	tree.Set(lvl)
	return lvl
}

func (b *OrderBook) quoteLocked() (Quote, bool) {
	bestBid, bidOK := b.bids.Min()
	bestAsk, askOK := b.asks.Min()
	if !bidOK || !askOK {
		return Quote{}, false
	}
	return Quote{
		Symbol:      b.symbol,
		BidPrice:    bestBid.price,
		BidQuantity: b.table[bestBid.queue[0]].Quantity,
		AskPrice:    bestAsk.price,
		AskQuantity: b.table[bestAsk.queue[0]].Quantity,
		Timestamp:   b.now(),
	}, true
}

func (b *OrderBook) emitQuoteLocked() {
	if q, ok := b.quoteLocked(); ok {
		b.sink.OnQuote(q)
	}
}

func (b *OrderBook) record(tr Trade) {
	if b.recorder == nil {
		return
	}
	err := b.recorder.Append(
		tr.Timestamp.UnixMilli(),
		tr.BuyOrderID,
		tr.SellOrderID,
		tr.Price,
		tr.Quantity,
		tr.Symbol,
	)
	if err != nil {
		log.Error().
			Err(err).
			Str("symbol", tr.Symbol).
			Str("trade_id", tr.ID).
			Msg("trade recorder append failed")
	}
}

func collectLevels(tree *levels) []Level {
	out := make([]Level, 0, tree.Len())
	tree.Scan(func(lvl *priceLevel) bool {
		out = append(out, Level{Price: lvl.price, Quantity: lvl.totalQty})
		return true
	})
	return out
}
