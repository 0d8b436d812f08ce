package main

import (
	"context"
	"flag"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"tradeflow/internal/book"
	"tradeflow/internal/market"
	"tradeflow/internal/sink"
	"tradeflow/internal/tradelog"
)

func main() {
	var (
		symbols      = flag.String("symbols", "AAPL", "comma-separated instruments to pre-create books for")
		mode         = flag.String("mode", "price-time", "matching mode: price-time or pro-rata")
		kafkaBrokers = flag.String("kafka-brokers", "", "comma-separated Kafka brokers; empty disables publishing")
		kafkaTopic   = flag.String("kafka-topic", "tradeflow.events", "Kafka topic for trade and quote events")
		tradeStore   = flag.String("trade-store", "", "directory for the durable trade store; empty disables")
		tradeCSV     = flag.String("trade-csv", "", "path of a CSV trade log; empty disables")
		tick         = flag.Duration("housekeeping-tick", time.Second, "interval of the background matching sweep; 0 disables")
		debug        = flag.Bool("debug", false, "log at debug level")
	)
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	matchingMode := book.PriceTimePriority
	if *mode == "pro-rata" {
		matchingMode = book.ProRata
	}

	// Events flow book -> dispatcher -> log sink (+ Kafka when configured).
	downstream := sink.Multi{sink.NewLogSink(log.Logger)}
	var kafkaSink *sink.Kafka
	if *kafkaBrokers != "" {
		kafkaSink = sink.NewKafka(strings.Split(*kafkaBrokers, ","), *kafkaTopic)
		downstream = append(downstream, kafkaSink)
	}
	dispatcher := sink.NewDispatcher(downstream, 1024)

	var recorder book.TradeRecorder
	switch {
	case *tradeStore != "":
		p, err := tradelog.OpenPebble(*tradeStore)
		if err != nil {
			log.Fatal().Err(err).Str("dir", *tradeStore).Msg("unable to open trade store")
		}
		defer func() {
			if err := p.Close(); err != nil {
				log.Error().Err(err).Msg("unable to close trade store")
			}
		}()
		recorder = p
	case *tradeCSV != "":
		c, err := tradelog.OpenCSV(*tradeCSV)
		if err != nil {
			log.Fatal().Err(err).Str("path", *tradeCSV).Msg("unable to open trade log")
		}
		defer func() {
			if err := c.Close(); err != nil {
				log.Error().Err(err).Msg("unable to close trade log")
			}
		}()
		recorder = c
	}

	registry := market.NewRegistry(matchingMode, dispatcher, recorder)
	for _, sym := range strings.Split(*symbols, ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			registry.Get(sym)
		}
	}

	t, ctx := tomb.WithContext(ctx)
	if *tick > 0 {
		t.Go(func() error {
			return housekeeping(t, registry, *tick)
		})
	}

	log.Info().
		Stringer("mode", matchingMode).
		Strs("symbols", registry.Symbols()).
		Msg("engine running")

	<-ctx.Done()
	log.Info().Msg("engine shutting down")

	t.Kill(nil)
	if err := t.Wait(); err != nil {
		log.Error().Err(err).Msg("housekeeping exited with error")
	}
	if err := dispatcher.Close(); err != nil {
		log.Error().Err(err).Msg("event dispatcher close failed")
	}
	if kafkaSink != nil {
		if err := kafkaSink.Close(); err != nil {
			log.Error().Err(err).Msg("kafka sink close failed")
		}
	}
}

// housekeeping periodically re-triggers matching on every live book.
// Submits drain their own crosses already; this sweep only picks up books
// mutated through bare Add calls, so a long interval is fine.
func housekeeping(t *tomb.Tomb, registry *market.Registry, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.Dying():
			return nil
		case <-ticker.C:
			registry.Each(func(b *book.OrderBook) {
				b.TriggerMatching()
			})
		}
	}
}
