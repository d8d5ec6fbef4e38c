package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tierbook/config"
	"tierbook/domain/orderbook"
	"tierbook/infra/kafka"
	"tierbook/infra/logging"
	"tierbook/infra/metrics"
	"tierbook/infra/outbox"
	"tierbook/infra/sequence"
	"tierbook/infra/wal"
	"tierbook/jobs/broadcaster"
	"tierbook/jobs/prioritizer"
	"tierbook/jobs/simulator"
	"tierbook/service"
	"tierbook/snapshot"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	simulate := flag.Int("simulate", 0, "submit this many random orders per second (0 disables)")
	flag.Parse()

	// ---------------- Config ----------------

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	// ---------------- Logger ----------------

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// ---------------- Metrics ----------------

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	metricsSrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server exited", zap.Error(err))
		}
	}()

	// ---------------- Journal + replay ----------------

	var lastTradeID uint64
	var journal *wal.WAL
	if cfg.Journal.Enabled {
		replayed, err := wal.ReplayTrades(cfg.Journal.Dir, func(_ uint64, t *orderbook.Trade) error {
			lastTradeID = max(lastTradeID, t.ID)
			return nil
		})
		if err != nil {
			logger.Fatal("journal replay failed", zap.Error(err))
		}
		logger.Info("journal replayed", zap.Uint64("last_seq", replayed), zap.Uint64("last_trade_id", lastTradeID))

		journal, err = wal.Open(wal.Config{
			Dir:            cfg.Journal.Dir,
			SegmentSize:    cfg.Journal.SegmentSize,
			SyncEveryWrite: cfg.Journal.SyncEveryWrite,
		})
		if err != nil {
			logger.Fatal("journal init failed", zap.Error(err))
		}
	}

	// ---------------- Outbox ----------------

	var ob *outbox.Outbox
	if cfg.Outbox.Enabled {
		ob, err = outbox.Open(cfg.Outbox.Dir)
		if err != nil {
			logger.Fatal("outbox init failed", zap.Error(err))
		}
	}

	// ---------------- Kafka (direct) ----------------

	var direct *kafka.Producer
	if cfg.Kafka.Enabled && cfg.Kafka.Mode == config.ModeDirect {
		direct = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}

	// ---------------- Sequencers ----------------

	tradeIDs := sequence.New(lastTradeID)
	matcher := orderbook.NewMatcher(tradeIDs)

	// ---------------- Processors ----------------

	pool, err := service.NewWorkerPool(cfg.Pool.Size, logger)
	if err != nil {
		logger.Fatal("worker pool init failed", zap.Error(err))
	}
	factory := service.NewProcessorFactory(pool, logger, m)

	// ---------------- Books ----------------

	market, err := service.NewMarket()
	if err != nil {
		logger.Fatal("market init failed", zap.Error(err))
	}
	recents := make(map[string]*orderbook.RecentSink, len(cfg.Instruments))
	for _, symbol := range cfg.Instruments {
		inst, err := orderbook.NewInstrument(symbol)
		if err != nil {
			logger.Fatal("bad instrument", zap.String("symbol", symbol), zap.Error(err))
		}

		recent := orderbook.NewRecentSink(cfg.Ledger.RecentTrades)
		recents[inst.Symbol] = recent
		sinks := orderbook.MultiSink{recent, m}
		if journal != nil {
			sinks = append(sinks, wal.NewSink(journal))
		}
		if ob != nil {
			sinks = append(sinks, ob)
		}
		if direct != nil {
			sinks = append(sinks, direct)
		}

		c, err := service.NewCollections(inst, matcher, orderbook.NewTradeLedger(inst, sinks))
		if err != nil {
			logger.Fatal("book init failed", zap.String("instrument", symbol), zap.Error(err))
		}
		book, err := service.NewBook(c, nil, logger, m)
		if err != nil {
			logger.Fatal("book init failed", zap.String("instrument", symbol), zap.Error(err))
		}
		if err := market.Add(book); err != nil {
			logger.Fatal("book registration failed", zap.Error(err))
		}
	}

	// ---------------- Snapshot restore ----------------

	var lastOrderID uint64
	if cfg.Snapshot.Enabled {
		res, err := snapshot.Load(cfg.Snapshot.Dir, market)
		if err != nil {
			logger.Fatal("snapshot load failed", zap.Error(err))
		}
		lastOrderID = res.MaxOrderID
		logger.Info("snapshot restored",
			zap.Int("orders", res.Orders),
			zap.Uint64("last_order_id", lastOrderID),
			zap.Strings("skipped", res.Skipped),
		)
	}
	orderIDs := sequence.New(lastOrderID)

	// ---------------- Background Jobs ----------------

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	var jobs sync.WaitGroup

	prio, err := prioritizer.New(market, factory, service.Thresholds{
		DedicatedPercentage: cfg.Prioritizer.DedicatedThreadsPercentage,
		PooledPercentage:    cfg.Prioritizer.ThreadPooledPercentage,
	}, cfg.Prioritizer.Interval, logger)
	if err != nil {
		logger.Fatal("prioritizer init failed", zap.Error(err))
	}
	jobs.Add(1)
	go func() {
		defer jobs.Done()
		prio.Run(ctx)
	}()

	var bc *broadcaster.Broadcaster
	if cfg.Kafka.Enabled && cfg.Kafka.Mode == config.ModeOutbox {
		producer, err := broadcaster.NewProducer(cfg.Kafka.Brokers)
		if err != nil {
			logger.Fatal("kafka producer init failed", zap.Error(err))
		}
		bc, err = broadcaster.New(ob, producer, cfg.Kafka.Topic, cfg.Kafka.RelayInterval, cfg.Kafka.MaxRetries, logger)
		if err != nil {
			logger.Fatal("broadcaster init failed", zap.Error(err))
		}
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			bc.Run(ctx)
		}()
	}

	if *simulate > 0 {
		sim, err := simulator.New(market, orderIDs, simulator.Config{Rate: *simulate}, logger)
		if err != nil {
			logger.Fatal("simulator init failed", zap.Error(err))
		}
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			sim.Run(ctx)
		}()
	}

	logger.Info("tierbook running",
		zap.Strings("instruments", cfg.Instruments),
		zap.String("metrics", cfg.Metrics.Addr),
	)

	// ---------------- Shutdown ----------------

	<-ctx.Done()
	logger.Info("shutting down")

	jobs.Wait()
	market.Close()
	pool.Release()

	if cfg.Snapshot.Enabled {
		n, err := (&snapshot.Writer{Dir: cfg.Snapshot.Dir}).Write(market)
		if err != nil {
			logger.Error("snapshot write failed", zap.Error(err))
		} else {
			logger.Info("snapshot written", zap.Int("orders", n))
		}
	}

	if bc != nil {
		if err := bc.Close(); err != nil {
			logger.Warn("kafka producer close failed", zap.Error(err))
		}
	}
	if direct != nil {
		if err := direct.Close(); err != nil {
			logger.Warn("kafka writer close failed", zap.Error(err))
		}
	}
	if ob != nil {
		if err := ob.Close(); err != nil {
			logger.Warn("outbox close failed", zap.Error(err))
		}
	}
	if journal != nil {
		if err := journal.Close(); err != nil {
			logger.Warn("journal close failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	for _, b := range market.Books() {
		fields := []zap.Field{
			zap.String("instrument", b.Instrument().Symbol),
			zap.Int("bids", b.BuyOrders().Len()),
			zap.Int("asks", b.SellOrders().Len()),
			zap.Uint64("trades", b.Trades().Count()),
		}
		if last := recents[b.Instrument().Symbol].Last(); last != nil {
			fields = append(fields, zap.String("last_price", last.Price.String()))
		}
		logger.Info("book closed", fields...)
	}
}
