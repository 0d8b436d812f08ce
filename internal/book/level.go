package book

// priceLevel is the FIFO queue of resting orders at one price on one side.
// The queue holds order ids resolved through the book's order table, never
// order pointers, so a stale queue entry can at worst miss a lookup rather
// than touch freed state. totalQty always equals the sum of the queued
// orders' remaining quantities.
type priceLevel struct {
	price    int64
	queue    []uint64
	totalQty int64
}

// Level is the externally visible (price, aggregate quantity) snapshot of a
// price level.
type Level struct {
	Price    int64
	Quantity int64
}

func (lvl *priceLevel) push(id uint64, qty int64) {
	lvl.queue = append(lvl.queue, id)
	lvl.totalQty += qty
}

// remove erases id from the queue, keeping FIFO order for the rest.
// Returns false if the id is not queued at this level.
func (lvl *priceLevel) remove(id uint64, qty int64) bool {
	for i, qid := range lvl.queue {
		if qid == id {
			lvl.queue = append(lvl.queue[:i], lvl.queue[i+1:]...)
			lvl.reduce(qty)
			return true
		}
	}
	return false
}

func (lvl *priceLevel) popFront() {
	lvl.queue = lvl.queue[1:]
}

// reduce lowers the aggregate quantity, flooring at zero so a bookkeeping
// slip can never drive the aggregate negative.
func (lvl *priceLevel) reduce(qty int64) {
	lvl.totalQty -= qty
	if lvl.totalQty < 0 {
		lvl.totalQty = 0
	}
}

func (lvl *priceLevel) empty() bool {
	return len(lvl.queue) == 0
}
