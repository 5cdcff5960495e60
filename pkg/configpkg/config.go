// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"time"

	"github.com/spf13/viper"
)

// Supported values of Config.DBDriver.
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverMemory   = "memory"
)

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environment variables.
type Config struct {
	DBDriver            string        `mapstructure:"DB_DRIVER"`
	DBSource            string        `mapstructure:"DB_SOURCE"`
	ServerAddress       string        `mapstructure:"SERVER_ADDRESS"`
	TokenType           string        `mapstructure:"TOKEN_TYPE"`
	TokenSymmetricKey   string        `mapstructure:"TOKEN_SYMMETRIC_KEY"`
	AccessTokenDuration time.Duration `mapstructure:"ACCESS_TOKEN_DURATION"`
	PayloadCodec        string        `mapstructure:"PAYLOAD_CODEC"`
	PayloadSecretKey    string        `mapstructure:"PAYLOAD_SECRET_KEY"`
	UserAccountPrefix   string        `mapstructure:"USER_ACCOUNT_PREFIX"`
	MerchantPrefix      string        `mapstructure:"MERCHANT_ACCOUNT_PREFIX"`
	UserInitialBalance  string        `mapstructure:"USER_INITIAL_BALANCE"`
	AllocatorAttempts   int           `mapstructure:"ALLOCATOR_MAX_ATTEMPTS"`
	LockTimeout         time.Duration `mapstructure:"LOCK_TIMEOUT"`
	RedisAddress        string        `mapstructure:"REDIS_ADDRESS"`
	IdempotencyTTL      time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	Environement        string        `mapstructure:"GO_ENV"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("TOKEN_TYPE", "paseto")
	v.SetDefault("ACCESS_TOKEN_DURATION", 15*time.Minute)
	v.SetDefault("PAYLOAD_CODEC", "cbc")
	v.SetDefault("USER_ACCOUNT_PREFIX", "2")
	v.SetDefault("MERCHANT_ACCOUNT_PREFIX", "3")
	v.SetDefault("USER_INITIAL_BALANCE", "100")
	v.SetDefault("ALLOCATOR_MAX_ATTEMPTS", 10)
	v.SetDefault("LOCK_TIMEOUT", 5*time.Second)
	v.SetDefault("IDEMPOTENCY_TTL", 24*time.Hour)
}

// Load reads configuration from app.env in path, overridden by environment variables.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}
