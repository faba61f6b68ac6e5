package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	LedgerCurrency string `env:"LEDGER_CURRENCY" envDefault:"EUR"`

	ProcessorURL        string `env:"PROCESSOR_URL" envDefault:"http://mock-processor:8081"`
	ProcessorAPIKey     string `env:"PROCESSOR_API_KEY,required"`
	ProcessorMaxRetries int    `env:"PROCESSOR_MAX_RETRIES" envDefault:"3"`

	ReconcileToleranceMinor int64 `env:"RECONCILE_TOLERANCE_MINOR" envDefault:"100"`
	ReconcileIntervalS      int   `env:"RECONCILE_INTERVAL_S" envDefault:"86400"`

	JWTExpiryMinutes int `env:"JWT_EXPIRY_MINUTES" envDefault:"60"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}
