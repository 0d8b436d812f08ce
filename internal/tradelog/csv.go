// Package tradelog provides durable TradeRecorder implementations. All
// fields are recorded as raw integer ticks; no float conversion happens on
// this path.
package tradelog

import (
	"fmt"
	"os"
	"sync"
)

// CSV appends one comma-separated line per trade:
// timestamp,buy_id,sell_id,price,qty,symbol.
type CSV struct {
	mu sync.Mutex
	f  *os.File
}

func OpenCSV(path string) (*CSV, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	return &CSV{f: f}, nil
}

func (l *CSV) Append(ts int64, buyID, sellID uint64, price, qty int64, symbol string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := fmt.Fprintf(l.f, "%d,%d,%d,%d,%d,%s\n", ts, buyID, sellID, price, qty, symbol)
	return err
}

func (l *CSV) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
