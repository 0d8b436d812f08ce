package tradelog

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
)

const keyPrefix = "trade/"

// Entry is one recorded trade as stored.
type Entry struct {
	Seq         uint64
	Timestamp   int64
	BuyOrderID  uint64
	SellOrderID uint64
	Price       int64
	Quantity    int64
	Symbol      string
}

// Pebble stores trades under zero-padded sequence keys so an iterator walks
// them in append order. Every write is synced: a trade acknowledged to the
// recorder survives a crash.
type Pebble struct {
	db  *pebble.DB
	seq atomic.Uint64
}

func OpenPebble(dir string) (*Pebble, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open trade store: %w", err)
	}

	p := &Pebble{db: db}
	if err := p.recoverSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Pebble) Append(ts int64, buyID, sellID uint64, price, qty int64, symbol string) error {
	seq := p.seq.Add(1)
	value := encodeEntry(ts, buyID, sellID, price, qty, symbol)
	return p.db.Set(keyFor(seq), value, pebble.Sync)
}

// Scan visits every recorded trade in append order.
func (p *Pebble) Scan(fn func(Entry) error) error {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		e, err := decodeEntry(iter.Value())
		if err != nil {
			return err
		}
		e.Seq = seq
		if err := fn(e); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (p *Pebble) Close() error {
	return p.db.Close()
}

// recoverSeq positions the sequence after the last stored key so appends
// continue where the previous process stopped.
func (p *Pebble) recoverSeq() error {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	if iter.Last() && iter.Valid() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		p.seq.Store(seq)
	}
	return iter.Error()
}

// binary encoding: [ts:8][buy:8][sell:8][price:8][qty:8][symbol...]
func encodeEntry(ts int64, buyID, sellID uint64, price, qty int64, symbol string) []byte {
	buf := make([]byte, 40+len(symbol))
	binary.BigEndian.PutUint64(buf[0:8], uint64(ts))
	binary.BigEndian.PutUint64(buf[8:16], buyID)
	binary.BigEndian.PutUint64(buf[16:24], sellID)
	binary.BigEndian.PutUint64(buf[24:32], uint64(price))
	binary.BigEndian.PutUint64(buf[32:40], uint64(qty))
	copy(buf[40:], symbol)
	return buf
}

func decodeEntry(b []byte) (Entry, error) {
	if len(b) < 40 {
		return Entry{}, errors.New("invalid trade entry length")
	}
	return Entry{
		Timestamp:   int64(binary.BigEndian.Uint64(b[0:8])),
		BuyOrderID:  binary.BigEndian.Uint64(b[8:16]),
		SellOrderID: binary.BigEndian.Uint64(b[16:24]),
		Price:       int64(binary.BigEndian.Uint64(b[24:32])),
		Quantity:    int64(binary.BigEndian.Uint64(b[32:40])),
		Symbol:      string(b[40:]),
	}, nil
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte(keyPrefix))), "%d", &seq)
	return seq, err
}
