package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // display.timezone must resolve on hosts without zoneinfo

	"klinefetch/pkg/binance"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// KLINEFETCH_BINANCE_REST_BASE_URL.
const EnvPrefix = "KLINEFETCH"

type Config struct {
	Binance BinanceConfig `mapstructure:"binance"`
	Display DisplayConfig `mapstructure:"display"`
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	SSM     SSMConfig     `mapstructure:"ssm"`
}

type BinanceConfig struct {
	REST RESTConfig `mapstructure:"rest"`
}

type RESTConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	ProxyURL string        `mapstructure:"proxy_url"`
}

// Client returns the REST client configuration.
func (c RESTConfig) Client() binance.Config {
	return binance.Config{BaseURL: c.BaseURL, Timeout: c.Timeout, ProxyURL: c.ProxyURL}
}

// DisplayConfig holds defaults for what is fetched and how it is shown.
type DisplayConfig struct {
	Timezone   string           `mapstructure:"timezone"` // IANA name, "UTC" or "Local"
	Interval   binance.Interval `mapstructure:"interval"`
	Limit      int              `mapstructure:"limit"`
	Rows       int              `mapstructure:"rows"`
	Columns    []string         `mapstructure:"columns"`
	EMAPeriods []int            `mapstructure:"ema_periods"`
}

// Location resolves Timezone. An empty name is UTC.
func (d DisplayConfig) Location() (*time.Location, error) {
	if d.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid display timezone %q: %w", d.Timezone, err)
	}
	return loc, nil
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	CatalogQuote   string        `mapstructure:"catalog_quote"` // quote asset preloaded for /api/symbols
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
	Output      string `mapstructure:"output"`      // console stream: "stdout" or "stderr"
}

// SSMConfig enables AWS Parameter Store overrides in the prod environment.
type SSMConfig struct {
	Prefix string `mapstructure:"prefix"`
}

// flagKeys maps CLI flag names onto configuration keys.
var flagKeys = map[string]string{
	"interval":  "display.interval",
	"limit":     "display.limit",
	"rows":      "display.rows",
	"columns":   "display.columns",
	"ema":       "display.ema_periods",
	"tz":        "display.timezone",
	"base-url":  "binance.rest.base_url",
	"timeout":   "binance.rest.timeout",
	"proxy":     "binance.rest.proxy_url",
	"addr":      "server.addr",
	"log-level": "log.level",
	"log-file":  "log.output_file",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("binance.rest.base_url", binance.DefaultBaseURL)
	v.SetDefault("binance.rest.timeout", binance.DefaultTimeout)
	v.SetDefault("binance.rest.proxy_url", "")

	v.SetDefault("display.timezone", "UTC")
	v.SetDefault("display.interval", string(binance.Interval5Min))
	v.SetDefault("display.limit", 50)
	v.SetDefault("display.rows", 20)
	v.SetDefault("display.columns", []string{})
	v.SetDefault("display.ema_periods", []int{9, 21})

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.catalog_quote", "USDT")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "dev")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("ssm.prefix", "")
}

// Load builds the configuration from, lowest precedence first: defaults,
// config.yaml (or the file at path), a .env file, KLINEFETCH_* environment
// variables and the flags in fs that were set. A missing config.yaml is
// only an error when path names it explicitly.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
	}

	// Support environment variables with dot notation (e.g., KLINEFETCH_DISPLAY_LIMIT)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %q: %w", name, err)
			}
		}
	}

	var cfg Config
	hooks := mapstructure.ComposeDecodeHookFunc(
		intervalHookFunc(),
		intSliceHookFunc(","),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hooks)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Log.Environment == "prod" && cfg.SSM.Prefix != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := applyParameterStore(ctx, &cfg, nil); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// Validate checks values the decoder cannot.
func (c *Config) Validate() error {
	if !c.Display.Interval.IsValid() {
		return fmt.Errorf("display.interval: %w: %q", binance.ErrInvalidInterval, c.Display.Interval)
	}
	if c.Display.Limit < 0 || c.Display.Limit > binance.MaxLimit {
		return fmt.Errorf("display.limit must be between 0 and %d, got %d", binance.MaxLimit, c.Display.Limit)
	}
	if c.Display.Rows < 0 {
		return fmt.Errorf("display.rows must not be negative, got %d", c.Display.Rows)
	}
	for _, p := range c.Display.EMAPeriods {
		if p < 2 {
			return fmt.Errorf("display.ema_periods: period %d is shorter than 2", p)
		}
	}
	if _, err := c.Display.Location(); err != nil {
		return err
	}
	if c.Binance.REST.Timeout <= 0 {
		return fmt.Errorf("binance.rest.timeout must be positive, got %s", c.Binance.REST.Timeout)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	switch c.Log.Output {
	case "stdout", "stderr":
	default:
		return fmt.Errorf("log.output must be stdout or stderr, got %q", c.Log.Output)
	}
	return nil
}

// intervalHookFunc parses strings into binance.Interval, rejecting unknown
// intervals at load time.
func intervalHookFunc() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(binance.Interval(""))
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != target || f.Kind() != reflect.String {
			return data, nil
		}
		return binance.ParseInterval(reflect.ValueOf(data).String())
	}
}

// intSliceHookFunc splits a delimited string into []int, for list values
// coming from the environment.
func intSliceHookFunc(sep string) mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf([]int(nil))
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != target || f.Kind() != reflect.String {
			return data, nil
		}
		raw := strings.TrimSpace(reflect.ValueOf(data).String())
		if raw == "" {
			return []int{}, nil
		}
		parts := strings.Split(raw, sep)
		out := make([]int, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, fmt.Errorf("invalid integer %q in list", p)
			}
			out = append(out, n)
		}
		return out, nil
	}
}
