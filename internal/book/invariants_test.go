package book_test

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"tradeflow/internal/book"
)

// Property: after any sequence of submits and cancels, the book is never
// left crossed, every level's aggregate equals the sum of its orders'
// remaining quantities, and quantity is conserved across resting, traded
// and cancelled interest.
func TestPropertyBookInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := book.New("TEST", book.PriceTimePriority)
		sink := &captureSink{}
		b.SetSink(sink)

		var (
			nextID     uint64
			liveIDs    []uint64
			totalAdded int64
			cancelled  int64
		)

		numOps := rapid.IntRange(1, 60).Draw(t, "numOps")
		for i := 0; i < numOps; i++ {
			doCancel := len(liveIDs) > 0 && rapid.Bool().Draw(t, fmt.Sprintf("cancel-%d", i))
			if doCancel {
				idx := rapid.IntRange(0, len(liveIDs)-1).Draw(t, fmt.Sprintf("cancelIdx-%d", i))
				id := liveIDs[idx]
				for _, o := range b.Orders() {
					if o.ID == id {
						cancelled += o.Quantity
					}
				}
				// False is fine: the order may have fully filled already,
				// in which case the snapshot loop above added nothing.
				b.Cancel(id)
				liveIDs = append(liveIDs[:idx], liveIDs[idx+1:]...)
				continue
			}

			nextID++
			side := book.Buy
			if rapid.Bool().Draw(t, fmt.Sprintf("sell-%d", i)) {
				side = book.Sell
			}
			price := rapid.Int64Range(9900, 10100).Draw(t, fmt.Sprintf("price-%d", i))
			qty := rapid.Int64Range(1, 50).Draw(t, fmt.Sprintf("qty-%d", i))
			if err := b.Submit(nextID, side, qty, price, "prop"); err != nil {
				t.Fatalf("submit %d: %v", nextID, err)
			}
			totalAdded += qty
			liveIDs = append(liveIDs, nextID)
		}

		checkUncrossed(t, b)
		checkAggregates(t, b)

		// Conservation: every traded unit left a buy and a sell, so traded
		// quantity counts twice against the total added.
		var resting int64
		for _, o := range b.Orders() {
			resting += o.Quantity
		}
		var traded int64
		for _, tr := range sink.trades {
			traded += tr.Quantity
		}
		if resting+cancelled+2*traded != totalAdded {
			t.Fatalf("quantity not conserved: resting=%d cancelled=%d traded=%d added=%d",
				resting, cancelled, traded, totalAdded)
		}
	})
}

// Property: trades always print at the ask side's price, and a drained book
// stays drained on a repeat trigger.
func TestPropertyExecutionPriceAndIdempotence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		askPrice := rapid.Int64Range(100, 5000).Draw(t, "askPrice")
		bidPrice := askPrice + rapid.Int64Range(0, 500).Draw(t, "premium")
		qty := rapid.Int64Range(1, 100).Draw(t, "qty")

		b := book.New("TEST", book.PriceTimePriority)
		sink := &captureSink{}
		b.SetSink(sink)

		if err := b.Add(1, book.Sell, qty, askPrice, "s"); err != nil {
			t.Fatalf("add ask: %v", err)
		}
		if err := b.Add(2, book.Buy, qty, bidPrice, "b"); err != nil {
			t.Fatalf("add bid: %v", err)
		}
		b.TriggerMatching()

		if len(sink.trades) == 0 {
			t.Fatalf("expected a trade with bid=%d >= ask=%d", bidPrice, askPrice)
		}
		for i, tr := range sink.trades {
			if tr.Price != askPrice {
				t.Fatalf("trade[%d]: price %d != ask price %d", i, tr.Price, askPrice)
			}
		}

		before := len(sink.trades)
		b.TriggerMatching()
		if len(sink.trades) != before {
			t.Fatalf("second trigger produced trades on an uncrossed book")
		}
	})
}

func checkUncrossed(t *rapid.T, b *book.OrderBook) {
	bids, asks := b.BidLevels(), b.AskLevels()
	if len(bids) > 0 && len(asks) > 0 && bids[0].Price >= asks[0].Price {
		t.Fatalf("book left crossed: best bid %d >= best ask %d", bids[0].Price, asks[0].Price)
	}
}

func checkAggregates(t *rapid.T, b *book.OrderBook) {
	sums := map[string]int64{}
	for _, o := range b.Orders() {
		sums[fmt.Sprintf("%d/%d", o.Side, o.Price)] += o.Quantity
	}
	for _, lvl := range b.BidLevels() {
		key := fmt.Sprintf("%d/%d", book.Buy, lvl.Price)
		if sums[key] != lvl.Quantity {
			t.Fatalf("bid level %d: aggregate %d != order sum %d", lvl.Price, lvl.Quantity, sums[key])
		}
	}
	for _, lvl := range b.AskLevels() {
		key := fmt.Sprintf("%d/%d", book.Sell, lvl.Price)
		if sums[key] != lvl.Quantity {
			t.Fatalf("ask level %d: aggregate %d != order sum %d", lvl.Price, lvl.Quantity, sums[key])
		}
	}
}
