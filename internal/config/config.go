// Package config loads runtime settings from the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"postingcore/internal/core/types"
	"postingcore/internal/domain/posting"
	"postingcore/pkg/logger"
)

// EnvPrefix is prepended to every key, e.g. POSTINGCORE_RULES_FILE.
const EnvPrefix = "POSTINGCORE"

// Config holds all runtime settings.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	AppEnv   string `mapstructure:"APP_ENV" validate:"oneof=development production test"`

	FailurePolicy      string `mapstructure:"FAILURE_POLICY" validate:"oneof=fail_closed fail_open"`
	BalanceTolerance   string `mapstructure:"BALANCE_TOLERANCE" validate:"required,numeric"`
	CurrencyPrecision  int    `mapstructure:"CURRENCY_PRECISION" validate:"min=-1,max=8"`
	CurrencyPrecisions string `mapstructure:"CURRENCY_PRECISIONS"`

	DatabaseURL   string `mapstructure:"DATABASE_URL" validate:"required_without=RulesFile"`
	RulesFile     string `mapstructure:"RULES_FILE" validate:"required_without=DatabaseURL"`
	NotifyChannel string `mapstructure:"NOTIFY_CHANNEL" validate:"required"`
	MetricsAddr   string `mapstructure:"METRICS_ADDR" validate:"omitempty,hostname_port"`
}

var keys = map[string]any{
	"LOG_LEVEL":           "info",
	"APP_ENV":             "production",
	"FAILURE_POLICY":      string(posting.FailClosed),
	"BALANCE_TOLERANCE":   types.DefaultTolerance.String(),
	"CURRENCY_PRECISION":  -1,
	"CURRENCY_PRECISIONS": "",
	"DATABASE_URL":        "",
	"RULES_FILE":          "",
	"NOTIFY_CHANNEL":      "posting_rules_changed",
	"METRICS_ADDR":        "",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads .env (if present) and the environment. Overrides are applied
// last and win over both; the CLI passes its flags this way.
func Load(overrides map[string]any) (*Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	for key, def := range keys {
		v.SetDefault(key, def)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.AutomaticEnv()
	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.FailurePolicy = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(cfg.FailurePolicy)), "-", "_")
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags and the values the tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	tol, err := decimal.NewFromString(c.BalanceTolerance)
	if err != nil {
		return fmt.Errorf("invalid config: BALANCE_TOLERANCE: %w", err)
	}
	if tol.IsNegative() {
		return errors.New("invalid config: BALANCE_TOLERANCE must not be negative")
	}
	if _, err := parsePrecisions(c.CurrencyPrecisions); err != nil {
		return fmt.Errorf("invalid config: CURRENCY_PRECISIONS: %w", err)
	}
	return nil
}

// Development reports whether APP_ENV is development.
func (c *Config) Development() bool { return c.AppEnv == "development" }

// LoggerConfig returns the logger settings. Logs go to stderr so stdout
// stays free for command output.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:       c.LogLevel,
		Development: c.Development(),
		OutputPaths: []string{"stderr"},
	}
}

// Policy returns the parsed failure policy.
func (c *Config) Policy() posting.FailurePolicy {
	p, err := posting.ParseFailurePolicy(c.FailurePolicy)
	if err != nil {
		return posting.FailClosed
	}
	return p
}

// BalanceOptions translates the tolerance settings. CURRENCY_PRECISION sets
// the base tolerance to one minor unit; -1 keeps BALANCE_TOLERANCE.
// CURRENCY_PRECISIONS ("JPY=0,KWD=3") sets it per currency.
func (c *Config) BalanceOptions() []posting.BalanceOption {
	var opts []posting.BalanceOption
	if c.CurrencyPrecision >= 0 {
		opts = append(opts, posting.WithTolerance(types.MinorUnit(int32(c.CurrencyPrecision))))
	} else if tol, err := decimal.NewFromString(c.BalanceTolerance); err == nil {
		opts = append(opts, posting.WithTolerance(tol))
	}

	precisions, _ := parsePrecisions(c.CurrencyPrecisions)
	for currency, places := range precisions {
		opts = append(opts, posting.WithCurrencyPrecision(currency, places))
	}
	return opts
}

func parsePrecisions(raw string) (map[string]int32, error) {
	out := make(map[string]int32)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		currency, places, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("%q: expected CURRENCY=PLACES", item)
		}
		currency = strings.ToUpper(strings.TrimSpace(currency))
		if len(currency) != 3 {
			return nil, fmt.Errorf("%q: currency must have three letters", item)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(places), 10, 32)
		if err != nil || n < 0 || n > 8 {
			return nil, fmt.Errorf("%q: places must be between 0 and 8", item)
		}
		out[currency] = int32(n)
	}
	return out, nil
}
