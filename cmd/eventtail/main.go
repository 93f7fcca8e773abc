package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/room-sessions/internal/command"
	"github.com/example/room-sessions/internal/config"
	"github.com/example/room-sessions/internal/infrastructure/kafka"
	"github.com/example/room-sessions/internal/logger"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	roomFilter := flag.String("room", "", "only show events of this room")
	batch := flag.Int("batch", 20, "events per printed table")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateTail(); err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	brokers := cfg.Brokers()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := kafka.NewConsumer(brokers, cfg.KafkaTopic, cfg.KafkaGroupID, log)
	defer consumer.Close()

	printer := newTablePrinter(os.Stdout, *batch)
	defer printer.Flush()

	log.Info("tailing events", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	err = consumer.Consume(ctx, func(ctx context.Context, evt command.Event) error {
		if *roomFilter != "" && evt.RoomID != command.SanitizeRoomID(*roomFilter) {
			return nil
		}
		printer.Add(evt)
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
