package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverBadger   = "badger"
	DriverRedis    = "redis"
	DriverDynamoDB = "dynamodb"
	DriverMongo    = "mongo"

	minSecretLength = 32
)

var drivers = []string{DriverMemory, DriverPostgres, DriverSQLite, DriverBadger, DriverRedis, DriverDynamoDB, DriverMongo}

var (
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrWeakSecret    = fmt.Errorf("JWT_SECRET must be at least %d characters long", minSecretLength)
	ErrDatabaseURL   = errors.New("DATABASE_URL is required for the postgres store")
	ErrNoBrokers     = errors.New("KAFKA_BROKERS is required")
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR,default=:8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	StoreDriver   string        `env:"STORE_DRIVER,default=memory"`
	DatabaseURL   string        `env:"DATABASE_URL"`
	SQLitePath    string        `env:"SQLITE_PATH,default=rooms.db"`
	BadgerPath    string        `env:"BADGER_PATH,default=data/rooms"`
	RedisAddr     string        `env:"REDIS_ADDR,default=localhost:6379"`
	RoomTTL       time.Duration `env:"ROOM_TTL,default=720h"`
	DynamoTable   string        `env:"DYNAMO_TABLE,default=rooms"`
	MongoURI      string        `env:"MONGO_URI,default=mongodb://localhost:27017"`
	MongoDatabase string        `env:"MONGO_DATABASE,default=rooms"`

	// Events are not published when KAFKA_BROKERS is empty.
	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC,default=room-events"`
	KafkaGroupID string `env:"KAFKA_GROUP_ID,default=eventtail"`

	JWTSecret   string        `env:"JWT_SECRET"`
	TokenExpiry time.Duration `env:"TOKEN_EXPIRY,default=720h"`
	BcryptCost  int           `env:"BCRYPT_COST,default=12"`
}

// Load reads an optional .env file and then the process environment.
// Each binary validates the settings it uses.
func Load() (Config, error) {
	_ = godotenv.Load()
	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return Parse(es)
}

func Parse(es env.EnvSet) (Config, error) {
	var cfg Config
	if err := env.Unmarshal(es, &cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings of the server.
func (c Config) Validate() error {
	if !lo.Contains(drivers, c.StoreDriver) {
		return fmt.Errorf("%w %q, want one of %s", ErrUnknownDriver, c.StoreDriver, strings.Join(drivers, ", "))
	}
	if len(c.JWTSecret) < minSecretLength {
		return ErrWeakSecret
	}
	if c.StoreDriver == DriverPostgres && c.DatabaseURL == "" {
		return ErrDatabaseURL
	}
	return nil
}

// ValidateTail checks the settings of the event tail.
func (c Config) ValidateTail() error {
	if len(c.Brokers()) == 0 {
		return ErrNoBrokers
	}
	return nil
}

// Brokers splits KAFKA_BROKERS on commas.
func (c Config) Brokers() []string {
	return lo.Compact(lo.Map(strings.Split(c.KafkaBrokers, ","), func(b string, _ int) string {
		return strings.TrimSpace(b)
	}))
}
