// Package sink provides EventSink implementations: an ordered asynchronous
// dispatcher, a zerolog sink, a Kafka publisher and a fan-out.
package sink

import (
	tomb "gopkg.in/tomb.v2"

	"tradeflow/internal/book"
)

type event struct {
	trade *book.Trade
	quote *book.Quote
}

// Dispatcher decouples the book's synchronous emission from its consumers.
// The book enqueues while holding its write lock; a supervised goroutine
// delivers downstream after the lock is released. A single channel keeps
// trades and quotes in exact emission order and nothing is dropped: a full
// buffer applies backpressure to the mutator instead of reordering.
type Dispatcher struct {
	next   book.EventSink
	events chan event
	t      tomb.Tomb
}

func NewDispatcher(next book.EventSink, buffer int) *Dispatcher {
	d := &Dispatcher{
		next:   next,
		events: make(chan event, buffer),
	}
	d.t.Go(d.loop)
	return d
}

func (d *Dispatcher) OnTrade(tr book.Trade) {
	select {
	case d.events <- event{trade: &tr}:
	case <-d.t.Dying():
	}
}

func (d *Dispatcher) OnQuote(q book.Quote) {
	select {
	case d.events <- event{quote: &q}:
	case <-d.t.Dying():
	}
}

// Close stops the delivery goroutine after flushing everything queued.
func (d *Dispatcher) Close() error {
	d.t.Kill(nil)
	return d.t.Wait()
}

func (d *Dispatcher) loop() error {
	for {
		select {
		case <-d.t.Dying():
			// Drain what the mutators already enqueued, then exit.
			for {
				select {
				case ev := <-d.events:
					d.deliver(ev)
				default:
					return nil
				}
			}
		case ev := <-d.events:
			d.deliver(ev)
		}
	}
}

func (d *Dispatcher) deliver(ev event) {
	switch {
	case ev.trade != nil:
		d.next.OnTrade(*ev.trade)
	case ev.quote != nil:
		d.next.OnQuote(*ev.quote)
	}
}
