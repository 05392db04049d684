package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spotforge/matchengine/config"
	"github.com/spotforge/matchengine/pkg/engine/repo"
	postgres_wrapper "github.com/spotforge/matchengine/pkg/infra/postgres"
	kafka_wrapper "github.com/spotforge/matchengine/pkg/transport/kafka"
)

// projector is the read-side of the persistence channel: it drains
// trades.added and orders.updated into Postgres so the rest of the system
// can query history without ever touching the dispatcher.
func main() {
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

	db := postgres_wrapper.InitPostgresWithBackoff(cfg.EngineDB)
	ingester := repo.NewIngester(repo.NewRepo(db), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tradesGroup, err := kafka_wrapper.NewConsumerGroup(kafka_wrapper.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: "projector-trades",
		Topic:   kafka_wrapper.TopicTradesAdded,
	})
	if err != nil {
		log.Fatal("failed to start trades consumer", zap.Error(err))
	}
	defer tradesGroup.Close()

	ordersGroup, err := kafka_wrapper.NewConsumerGroup(kafka_wrapper.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: "projector-orders",
		Topic:   kafka_wrapper.TopicOrdersUpdated,
	})
	if err != nil {
		log.Fatal("failed to start orders consumer", zap.Error(err))
	}
	defer ordersGroup.Close()

	go func() {
		if err := tradesGroup.Run(ctx, ingester.HandleTrades); err != nil && ctx.Err() == nil {
			log.Error("trades consumer exited", zap.Error(err))
		}
	}()
	go func() {
		if err := ordersGroup.Run(ctx, ingester.HandleOrderUpdates); err != nil && ctx.Err() == nil {
			log.Error("orders consumer exited", zap.Error(err))
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println("Projector started. Press Ctrl+C to exit.")
	<-sigs
	fmt.Println("Shutting down...")
	cancel()
	fmt.Println("Exited cleanly.")
}
