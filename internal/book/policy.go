package book

import "github.com/google/uuid"

// Allocation policies for one crossed (bid level, ask level) pair. Both run
// with the write lock held and operate only on the levels handed to them.

// matchPriceTime fills front against front until one level empties. The
// execution price is always the ask level's price.
func (b *OrderBook) matchPriceTime(bid, ask *priceLevel) []Trade {
	var trades []Trade
	for !bid.empty() && !ask.empty() {
		buy := b.table[bid.queue[0]]
		sell := b.table[ask.queue[0]]

		qty := min(buy.Quantity, sell.Quantity)
		trades = append(trades, b.executed(buy.ID, sell.ID, ask.price, qty))

		buy.Quantity -= qty
		sell.Quantity -= qty
		bid.reduce(qty)
		ask.reduce(qty)

		if buy.Quantity == 0 {
			bid.popFront()
			delete(b.table, buy.ID)
		}
		if sell.Quantity == 0 {
			ask.popFront()
			delete(b.table, sell.ID)
		}
	}
	return trades
}

// matchProRata allocates the crossed quantity across the bid level in
// proportion to each order's share of the level total, truncated with floor
// division, then walks the ask queue in FIFO order to satisfy each
// allocation. Truncation can leave a residual quantity unmatched at the
// level; that residual is a documented property of this policy and is not
// reconciled here. Filled orders are purged after the pass, not during it.
func (b *OrderBook) matchProRata(bid, ask *priceLevel) []Trade {
	totalBid := bid.totalQty
	matchQty := min(totalBid, ask.totalQty)
	if matchQty == 0 || totalBid == 0 {
		return nil
	}

	var trades []Trade
	for _, buyID := range bid.queue {
		buy := b.table[buyID]
		alloc := buy.Quantity * matchQty / totalBid
		if alloc == 0 {
			continue
		}
		for _, sellID := range ask.queue {
			sell := b.table[sellID]
			if sell.Quantity == 0 {
				continue
			}
			fill := min(alloc, sell.Quantity)
			trades = append(trades, b.executed(buy.ID, sell.ID, ask.price, fill))
			buy.Quantity -= fill
			sell.Quantity -= fill
			alloc -= fill
			if alloc == 0 {
				break
			}
		}
	}

	b.purgeFilled(bid)
	b.purgeFilled(ask)
	return trades
}

// purgeFilled drops zero-quantity orders from the level and from storage,
// then resets the aggregate to the sum of what remains.
func (b *OrderBook) purgeFilled(lvl *priceLevel) {
	kept := lvl.queue[:0]
	var total int64
	for _, id := range lvl.queue {
		o := b.table[id]
		if o.Quantity == 0 {
			delete(b.table, id)
			continue
		}
		kept = append(kept, id)
		total += o.Quantity
	}
	lvl.queue = kept
	lvl.totalQty = total
}

func (b *OrderBook) executed(buyID, sellID uint64, price, qty int64) Trade {
	return Trade{
		ID:          uuid.NewString(),
		Symbol:      b.symbol,
		BuyOrderID:  buyID,
		SellOrderID: sellID,
		Price:       price,
		Quantity:    qty,
		Timestamp:   b.now(),
	}
}
