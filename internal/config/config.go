package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"go-market-ledger/internal/model"
)

type Config struct {
	AppName string `env:"APP_NAME" envDefault:"Market Ledger v1.0"`
	Port    string `env:"PORT" envDefault:"3000"`

	DB        DBConfig
	JWT       JWTConfig
	Log       LogConfig
	Ledger    LedgerConfig
	Reconcile ReconcileConfig
}

type DBConfig struct {
	URL             string        `env:"DATABASE_URL"`
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	User            string        `env:"DB_USER"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_NAME"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	Timezone        string        `env:"DB_TIMEZONE" envDefault:"UTC"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"100"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	SlowThreshold   time.Duration `env:"DB_SLOW_THRESHOLD" envDefault:"1s"`
	AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from
// the individual DB_* variables.
func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.Timezone,
	)
}

type JWTConfig struct {
	Secret string        `env:"JWT_SECRET" envDefault:"your-super-secret-key-change-in-production"`
	Issuer string        `env:"JWT_ISSUER" envDefault:"go-market-ledger"`
	TTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Encoding    string `env:"LOG_ENCODING" envDefault:"console"`
	Development bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

type LedgerConfig struct {
	// Unset means model.DefaultCommissionRate.
	DefaultCommissionRate decimal.Decimal `env:"DEFAULT_COMMISSION_RATE"`
}

type ReconcileConfig struct {
	Workers   int `env:"RECONCILE_WORKERS" envDefault:"1"`
	BatchSize int `env:"RECONCILE_BATCH_SIZE" envDefault:"200"`
}

// Load parses the process environment. Call godotenv.Load first to pick up
// a local .env file.
func Load() (Config, error) {
	cfg := Config{
		Ledger: LedgerConfig{DefaultCommissionRate: model.DefaultCommissionRate},
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	rate := c.Ledger.DefaultCommissionRate
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("DEFAULT_COMMISSION_RATE must be within [0, 100], got %s", rate)
	}
	if !rate.Equal(rate.Round(2)) {
		return fmt.Errorf("DEFAULT_COMMISSION_RATE allows at most two decimal places, got %s", rate)
	}
	if c.Reconcile.Workers < 1 {
		return fmt.Errorf("RECONCILE_WORKERS must be at least 1, got %d", c.Reconcile.Workers)
	}
	if c.Reconcile.BatchSize < 1 {
		return fmt.Errorf("RECONCILE_BATCH_SIZE must be at least 1, got %d", c.Reconcile.BatchSize)
	}
	return nil
}
