package book

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

type MatchingMode int

const (
	// PriceTimePriority fills the earliest-arrived order at the best price
	// first. This is the default allocation rule.
	PriceTimePriority MatchingMode = iota
	// ProRata distributes the crossed quantity across a level in proportion
	// to each resting order's size, truncating to whole units.
	ProRata
)

func (m MatchingMode) String() string {
	if m == ProRata {
		return "pro-rata"
	}
	return "price-time"
}
