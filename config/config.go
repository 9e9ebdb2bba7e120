package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	App    AppConfig
	HTTP   ServerConfig
	MySQL  MySQLConfig
	Log    LogConfig
	Auth   AuthConfig
	Stripe StripeConfig
	Orders OrdersConfig
	Jobs   JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type AuthConfig struct {
	IntrospectionURL string
	HTTPTimeout      time.Duration
}

type StripeConfig struct {
	SecretKey                 string
	WebhookSecret             string
	SignatureToleranceSeconds int64
	HTTPTimeout               time.Duration
}

type OrdersConfig struct {
	Currency                  string
	DefaultCommissionRate     decimal.Decimal
	PlatformFeePercent        decimal.Decimal
	WebhookStaleAfter         time.Duration
	StalePendingAfter         time.Duration
	JobBatchSize              int32
	CheckoutSuccessURL        string
	CheckoutCancelURL         string
	PayoutStatementDescriptor string
}

type JobsConfig struct {
	RecoverInterval         time.Duration
	RevenueInterval         time.Duration
	WithdrawalCheckInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "orders-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			IntrospectionURL: getEnv("AUTH_INTROSPECTION_URL", ""),
			HTTPTimeout:      getSecondsEnv("AUTH_HTTP_TIMEOUT_SECONDS", 5*time.Second),
		},
		Stripe: StripeConfig{
			SecretKey:                 getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:             getEnv("STRIPE_WEBHOOK_SECRET", ""),
			SignatureToleranceSeconds: int64(getIntEnv("STRIPE_SIGNATURE_TOLERANCE_SECONDS", 300)),
			HTTPTimeout:               getSecondsEnv("STRIPE_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Orders: OrdersConfig{
			Currency:                  getEnv("ORDERS_CURRENCY", "eur"),
			DefaultCommissionRate:     getDecimalEnv("ORDERS_DEFAULT_COMMISSION_RATE", decimal.NewFromInt(10)),
			PlatformFeePercent:        getDecimalEnv("ORDERS_PLATFORM_FEE_PERCENT", decimal.NewFromInt(10)),
			WebhookStaleAfter:         getMinutesEnv("ORDERS_WEBHOOK_STALE_AFTER_MINUTES", 10*time.Minute),
			StalePendingAfter:         getMinutesEnv("ORDERS_STALE_PENDING_AFTER_MINUTES", 48*time.Hour),
			JobBatchSize:              int32(getIntEnv("ORDERS_JOB_BATCH_SIZE", 100)),
			CheckoutSuccessURL:        getEnv("ORDERS_CHECKOUT_SUCCESS_URL", ""),
			CheckoutCancelURL:         getEnv("ORDERS_CHECKOUT_CANCEL_URL", ""),
			PayoutStatementDescriptor: getEnv("ORDERS_PAYOUT_STATEMENT_DESCRIPTOR", "retrait revenus"),
		},
		Jobs: JobsConfig{
			RecoverInterval:         getMinutesEnv("ORDERS_RECOVER_INTERVAL_MINUTES", 10*time.Minute),
			RevenueInterval:         getMinutesEnv("ORDERS_REVENUE_INTERVAL_MINUTES", 60*time.Minute),
			WithdrawalCheckInterval: getMinutesEnv("ORDERS_WITHDRAWAL_CHECK_INTERVAL_MINUTES", 15*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getDecimalEnv(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
