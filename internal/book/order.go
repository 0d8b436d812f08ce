package book

// Order is a resting intent to trade. Prices are integer ticks; the book
// never compares or adds prices in floating point. Quantity is the remaining
// open quantity and only ever moves downward as fills occur.
type Order struct {
	ID       uint64
	Side     Side
	Price    int64 // ticks
	Quantity int64 // remaining
	Seq      uint64
	Client   string
}
