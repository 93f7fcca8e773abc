package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/room-sessions/internal/api"
	"github.com/example/room-sessions/internal/auth"
	"github.com/example/room-sessions/internal/command"
	"github.com/example/room-sessions/internal/config"
	"github.com/example/room-sessions/internal/domain/room"
	"github.com/example/room-sessions/internal/infrastructure/kafka"
	"github.com/example/room-sessions/internal/logger"
	"github.com/example/room-sessions/internal/query"
	"github.com/example/room-sessions/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rooms, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()
	log.Info("room store ready", zap.String("driver", cfg.StoreDriver))

	tokens := auth.NewJWTService(cfg.JWTSecret, cfg.TokenExpiry)
	registry, err := room.NewRegistry(room.Deps{
		Passwords: auth.NewPasswordHasher(cfg.BcryptCost),
		Tokens:    tokens,
	})
	if err != nil {
		return fmt.Errorf("failed to build command registry: %w", err)
	}
	processor := command.NewProcessor(registry, rooms, room.New,
		command.WithLogger[room.Room](log.Named("processor")))

	var publisher session.Publisher
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		producer := kafka.NewProducer(brokers, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
		log.Info("publishing events", zap.Strings("brokers", brokers), zap.String("topic", cfg.KafkaTopic))
	}

	hub := session.NewHub(log.Named("hub"))
	dispatcher := session.NewDispatcher(processor, hub, publisher, log.Named("dispatcher"))
	handlers := api.NewHandlers(dispatcher, query.NewHandler(rooms, tokens, log.Named("query")), log.Named("api"))

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(handlers, log.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server started", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server exited")
	return nil
}
