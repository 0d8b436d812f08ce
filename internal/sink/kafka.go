package sink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"tradeflow/internal/book"
)

const publishTimeout = 5 * time.Second

// Kafka publishes trades and quotes to a single topic as JSON envelopes
// keyed by symbol, so every consumer sees each instrument's event stream in
// emission order. Publish failures are logged and otherwise swallowed:
// event delivery is fire-and-forget from the engine's point of view.
type Kafka struct {
	writer *kafka.Writer
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

type tradeEnvelope struct {
	Type        string `json:"type"`
	TradeID     string `json:"trade_id"`
	Symbol      string `json:"symbol"`
	BuyOrderID  uint64 `json:"buy_order_id"`
	SellOrderID uint64 `json:"sell_order_id"`
	Price       int64  `json:"price"`
	Quantity    int64  `json:"quantity"`
	Timestamp   int64  `json:"timestamp_ms"`
}

type quoteEnvelope struct {
	Type        string `json:"type"`
	Symbol      string `json:"symbol"`
	BidPrice    int64  `json:"bid_price"`
	BidQuantity int64  `json:"bid_quantity"`
	AskPrice    int64  `json:"ask_price"`
	AskQuantity int64  `json:"ask_quantity"`
	Timestamp   int64  `json:"timestamp_ms"`
}

func (k *Kafka) OnTrade(tr book.Trade) {
	k.publish(tr.Symbol, tradeEnvelope{
		Type:        "trade",
		TradeID:     tr.ID,
		Symbol:      tr.Symbol,
		BuyOrderID:  tr.BuyOrderID,
		SellOrderID: tr.SellOrderID,
		Price:       tr.Price,
		Quantity:    tr.Quantity,
		Timestamp:   tr.Timestamp.UnixMilli(),
	})
}

func (k *Kafka) OnQuote(q book.Quote) {
	k.publish(q.Symbol, quoteEnvelope{
		Type:        "quote",
		Symbol:      q.Symbol,
		BidPrice:    q.BidPrice,
		BidQuantity: q.BidQuantity,
		AskPrice:    q.AskPrice,
		AskQuantity: q.AskQuantity,
		Timestamp:   q.Timestamp.UnixMilli(),
	})
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

func (k *Kafka) publish(key string, payload any) {
	value, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("symbol", key).Msg("kafka sink marshal failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		log.Error().Err(err).Str("symbol", key).Msg("kafka sink publish failed")
	}
}
