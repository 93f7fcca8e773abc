package main

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/example/room-sessions/internal/config"
	"github.com/example/room-sessions/internal/domain/room"
	"github.com/example/room-sessions/internal/infrastructure/store"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type closer func() error

func noClose() error { return nil }

// openStore connects the room store selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Store[room.Room], closer, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		log.Warn("rooms are kept in memory and lost on restart")
		return store.NewMemoryStore[room.Room](room.AggregateType), noClose, nil

	case config.DriverPostgres:
		db, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewPostgresStore[room.Room](db, room.AggregateType)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil

	case config.DriverSQLite:
		db, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		s := store.NewSQLiteStore[room.Room](db, room.AggregateType)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil

	case config.DriverBadger:
		db, err := store.OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return store.NewBadgerStore[room.Room](db, room.AggregateType), db.Close, nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return store.NewRedisStore[room.Room](client, cfg.RoomTTL, room.AggregateType), client.Close, nil

	case config.DriverDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load aws config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg)
		return store.NewDynamoStore[room.Room](client, cfg.DynamoTable, room.AggregateType), noClose, nil

	case config.DriverMongo:
		client, err := store.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		s, err := store.NewMongoStore[room.Room](ctx, client, cfg.MongoDatabase, room.AggregateType)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return s, func() error { return client.Disconnect(context.Background()) }, nil
	}
	return nil, nil, fmt.Errorf("%w %q", config.ErrUnknownDriver, cfg.StoreDriver)
}
