package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	Exchange struct {
		Name           string        `yaml:"name" default:"bitget" validate:"oneof=bitget binance"`
		BaseURL        string        `yaml:"base_url"`
		APIKey         string        `yaml:"api_key"`
		APISecret      string        `yaml:"api_secret"`
		QuoteCurrency  string        `yaml:"quote_currency" default:"USDT" validate:"required"`
		ContractType   string        `yaml:"contract_type" default:"perpetual" validate:"required"`
		CandleLimit    int           `yaml:"candle_limit" default:"120" validate:"gte=1,lte=1000"`
		MinBars        int           `yaml:"min_bars" default:"100" validate:"gte=2,ltefield=CandleLimit"`
		RequestDelay   time.Duration `yaml:"request_delay" default:"50ms" validate:"gte=0"`
		RequestTimeout time.Duration `yaml:"request_timeout" default:"15s" validate:"gt=0"`
	} `yaml:"exchange"`
	Scan struct {
		Timeframes              []string `yaml:"timeframes" default:"[\"1h\",\"4h\",\"1d\"]" validate:"min=1,unique,dive,oneof=1m 5m 15m 30m 1h 4h 6h 12h 1d 1w"`
		UniverseSize            int      `yaml:"universe_size" default:"100" validate:"gte=1"`
		VWMAGapThreshold        float64  `yaml:"vwma_gap_threshold" default:"3.5" validate:"gt=0"`
		CompositeScoreThreshold int      `yaml:"composite_score_threshold" default:"5" validate:"gte=1"`
		ChannelBandLow          float64  `yaml:"channel_band_low" default:"-2"`
		ChannelBandHigh         float64  `yaml:"channel_band_high" default:"3" validate:"gtfield=ChannelBandLow"`
	} `yaml:"scan"`
	Report struct {
		Caps struct {
			Composite int `yaml:"composite" default:"15" validate:"gte=1"`
			Channel   int `yaml:"channel" default:"7" validate:"gte=1"`
			VWMA      int `yaml:"vwma" default:"5" validate:"gte=1"`
		} `yaml:"caps"`
		MaxMessageLen int    `yaml:"max_message_len" default:"4000" validate:"gte=100,lte=4096"`
		Timezone      string `yaml:"timezone" default:"Asia/Seoul"`
	} `yaml:"report"`
	Memory struct {
		Backend       string `yaml:"backend" default:"file" validate:"oneof=file redis"`
		StateFile     string `yaml:"state_file" default:"data/scan_memory.json" validate:"required_if=Backend file"`
		RedisAddr     string `yaml:"redis_addr" validate:"required_if=Backend redis"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db" validate:"gte=0"`
		RedisKey      string `yaml:"redis_key" default:"channelscout:memory"`
	} `yaml:"memory"`
	Schedule struct {
		// Cron is a 6-field spec with seconds; empty runs a single scan and exits.
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

var validate = validator.New()

// Load fills defaults, overlays the YAML file and then environment variable
// overrides. A missing file is not an error; everything can come from the
// environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// defaults first so keys present in the file, zero included, win
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	// later entries win when both spellings are set
	overrides := []struct {
		key string
		dst *string
	}{
		{"TELEGRAM_TOKEN", &c.Telegram.BotToken},
		{"TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken},
		{"CHAT_ID", &c.Telegram.ChatID},
		{"TELEGRAM_CHAT_ID", &c.Telegram.ChatID},
		{"EXCHANGE", &c.Exchange.Name},
		{"EXCHANGE_BASE_URL", &c.Exchange.BaseURL},
		{"BINANCE_API_KEY", &c.Exchange.APIKey},
		{"BINANCE_API_SECRET", &c.Exchange.APISecret},
		{"HTTPS_PROXY", &c.Proxy},
		{"MEMORY_BACKEND", &c.Memory.Backend},
		{"STATE_FILE", &c.Memory.StateFile},
		{"REDIS_ADDR", &c.Memory.RedisAddr},
		{"SQLITE_PATH", &c.Database.SQLitePath},
		{"SCAN_CRON", &c.Schedule.Cron},
		{"METRICS_ADDR", &c.Metrics.Addr},
		{"LOG_LEVEL", &c.Log.Level},
		{"LOG_FORMAT", &c.Log.Format},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.dst = v
		}
	}

	if v := os.Getenv("UNIVERSE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("UNIVERSE_SIZE: %w", err)
		}
		c.Scan.UniverseSize = n
	}
	if v := os.Getenv("VWMA_GAP_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("VWMA_GAP_THRESHOLD: %w", err)
		}
		c.Scan.VWMAGapThreshold = f
	}
	if v := os.Getenv("TIMEFRAMES"); v != "" {
		var tfs []string
		for _, tf := range strings.Split(v, ",") {
			if tf = strings.TrimSpace(tf); tf != "" {
				tfs = append(tfs, tf)
			}
		}
		c.Scan.Timeframes = tfs
	}
	return nil
}

// Validate checks field constraints and the report time zone.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s %s", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		return fmt.Errorf("report.timezone: %w", err)
	}
	return nil
}

// Location returns the report time zone, UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TelegramEnabled reports whether Telegram credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
