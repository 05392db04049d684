package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spotforge/matchengine/config"
	pkgengine "github.com/spotforge/matchengine/pkg/engine"
	"github.com/spotforge/matchengine/pkg/ledger"
	"github.com/spotforge/matchengine/pkg/orderbook"
	kafka_wrapper "github.com/spotforge/matchengine/pkg/transport/kafka"
	redis_wrapper "github.com/spotforge/matchengine/pkg/transport/redis"
)

func main() {
	go func() {
		_ = http.ListenAndServe("localhost:6060", nil)
	}()

	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	redisClient, err := redis_wrapper.InitWithBackoff(*cfg.Redis, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}

	kafkaProducer := kafka_wrapper.NewProducer(kafka_wrapper.ProducerConfig{Brokers: cfg.Kafka.Brokers})

	broadcast := redis_wrapper.NewPublisher(redisClient, log)
	persistence := kafka_wrapper.NewPersistencePublisher(kafkaProducer, log)
	emitter := pkgengine.FanoutEmitter{Broadcast: broadcast, Persistence: persistence}

	eng := bootstrapEngine(cfg, emitter, log)

	stopSnapshots := startSnapshotTicker(ctx, eng, cfg.Snapshot, log)
	defer stopSnapshots()

	consumer := redis_wrapper.NewQueueConsumer(redisClient)
	go runCommandLoop(ctx, eng, consumer, log)

	fmt.Println("Matching engine started. Press Ctrl+C to exit.")

	<-sigs
	fmt.Println("Shutting down...")
	cancel()

	writeFinalSnapshot(eng, cfg.Snapshot, log)
	_ = kafkaProducer.Close(context.Background())

	fmt.Println("Exited cleanly.")
}

// bootstrapEngine restores from a snapshot file if WITH_SNAPSHOT is set and
// one exists, otherwise starts cold and seeds the configured markets.
func bootstrapEngine(cfg *config.AppConfig, emitter pkgengine.Emitter, log *zap.Logger) *pkgengine.Engine {
	snapshotPath := snapshotFilePath(cfg.Snapshot)

	if cfg.Snapshot.WithSnapshot {
		snap, err := pkgengine.ReadSnapshot(snapshotPath)
		if err == nil {
			log.Info("restored engine from snapshot", zap.String("path", snapshotPath))
			return pkgengine.Restore(snap, emitter, log)
		}
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("failed to read snapshot, starting cold", zap.Error(err))
		}
	}

	registry := orderbook.NewRegistry()
	eng := pkgengine.New(registry, ledger.New(), emitter, log)
	for _, m := range cfg.Markets {
		eng.SeedMarket(pkgengine.MarketConfig{
			Market:     m.Market,
			BaseAsset:  m.BaseAsset,
			QuoteAsset: m.QuoteAsset,
			STPMode:    orderbook.STPMode(m.STPMode),
		})
	}
	return eng
}

func snapshotFilePath(cfg config.SnapshotConfig) string {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	return dir + "/engine.snapshot.json"
}

// startSnapshotTicker fires WriteSnapshot on a fixed interval; the engine
// keeps dispatching commands while a snapshot is being written, since
// Snapshot() only holds each component's lock for the duration of its own
// copy.
func startSnapshotTicker(ctx context.Context, eng *pkgengine.Engine, cfg config.SnapshotConfig, log *zap.Logger) func() {
	interval := time.Duration(cfg.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snap := eng.Snapshot()
				if err := pkgengine.WriteSnapshot(snapshotFilePath(cfg), snap); err != nil {
					log.Error("periodic snapshot write failed", zap.Error(err))
				}
			}
		}
	}()

	return func() {
		ticker.Stop()
		<-done
	}
}

func writeFinalSnapshot(eng *pkgengine.Engine, cfg config.SnapshotConfig, log *zap.Logger) {
	snap := eng.Snapshot()
	if err := pkgengine.WriteSnapshot(snapshotFilePath(cfg), snap); err != nil {
		log.Error("final snapshot write failed", zap.Error(err))
	}
}

// runCommandLoop is the dispatcher: it pops one command at a time off the
// Redis request queue and applies it, so no two commands are ever in
// flight concurrently.
func runCommandLoop(ctx context.Context, eng *pkgengine.Engine, consumer *redis_wrapper.QueueConsumer, log *zap.Logger) {
	err := consumer.Run(ctx, func(raw redis_wrapper.RawCommand) {
		cmd, err := decodeCommand(raw)
		if err != nil {
			log.Error("failed to decode command", zap.Error(err), zap.String("client_id", raw.ClientID))
			return
		}
		eng.ApplyCommand(cmd)
	})
	if err != nil && ctx.Err() == nil {
		log.Error("command loop exited unexpectedly", zap.Error(err))
	}
}
