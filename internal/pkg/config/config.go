package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendAppsScript = "appsscript"
	BackendPostgres   = "postgres"

	ModePolling = "polling"
	ModeWebhook = "webhook"
)

type Config struct {
	TelegramCfg  TelegramCfg   `yaml:"telegram"`
	AdminChatIDs []int64       `yaml:"admin_chat_ids" env:"ADMIN_CHAT_IDS" envSeparator:","`
	Storage      StorageCfg    `yaml:"storage"`
	Sheets       SheetsCfg     `yaml:"sheets"`
	Shop         ShopCfg       `yaml:"shop"`
	Broadcast    BroadcastCfg  `yaml:"broadcast"`
	Reconciler   ReconcilerCfg `yaml:"reconciler"`
	Server       ServerCfg     `yaml:"server"`
	Log          LogCfg        `yaml:"log"`
}

type TelegramCfg struct {
	Token         string        `yaml:"token" env:"BOT_TOKEN"`
	Mode          string        `yaml:"mode" env:"BOT_MODE"`
	WebhookURL    string        `yaml:"webhook_url" env:"WEBHOOK_URL"`
	WebhookSecret string        `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
	PollTimeout   time.Duration `yaml:"poll_timeout"`
}

type StorageCfg struct {
	Backend    string        `yaml:"backend" env:"STORAGE_BACKEND"`
	AppsScript AppsScriptCfg `yaml:"apps_script"`
	Postgres   PostgresCfg   `yaml:"postgres"`
}

type AppsScriptCfg struct {
	URL     string        `yaml:"url" env:"APPS_SCRIPT_URL"`
	Timeout time.Duration `yaml:"timeout"`
}

type PostgresCfg struct {
	DSN string `yaml:"dsn" env:"DATABASE_URL"`
}

type SheetsCfg struct {
	CredentialsFile string `yaml:"credentials_file" env:"GOOGLE_CREDENTIALS_FILE"`
	SpreadsheetID   string `yaml:"spreadsheet_id" env:"SPREADSHEET_ID"`
	UsersRange      string `yaml:"users_range"`
}

// Enabled reports whether users should be read straight from the spreadsheet.
func (c SheetsCfg) Enabled() bool {
	return c.CredentialsFile != "" && c.SpreadsheetID != ""
}

type ShopCfg struct {
	UnitPrice      string `yaml:"unit_price" env:"UNIT_PRICE"`
	Currency       string `yaml:"currency"`
	PaymentDetails string `yaml:"payment_details"`
	OperatorPhone  string `yaml:"operator_phone" env:"OPERATOR_PHONE"`
	OperatorName   string `yaml:"operator_name"`
	ContentPath    string `yaml:"content_path"`
	AssetsDir      string `yaml:"assets_dir"`
}

type BroadcastCfg struct {
	PerSecond int `yaml:"per_second"`
}

type ReconcilerCfg struct {
	Interval time.Duration `yaml:"interval"`
}

type ServerCfg struct {
	Addr string `yaml:"addr" env:"HTTP_ADDR"`
}

type LogCfg struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// Load reads the yaml file at path (a missing file is not an error), then an
// optional .env file, then environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.TelegramCfg.Mode == "" {
		c.TelegramCfg.Mode = ModePolling
	}
	if c.TelegramCfg.PollTimeout == 0 {
		c.TelegramCfg.PollTimeout = time.Minute
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendAppsScript
	}
	if c.Storage.AppsScript.Timeout == 0 {
		c.Storage.AppsScript.Timeout = 15 * time.Second
	}
	if c.Sheets.UsersRange == "" {
		c.Sheets.UsersRange = "Users!A1:Z1000"
	}
	if c.Shop.UnitPrice == "" {
		c.Shop.UnitPrice = "8500"
	}
	if c.Shop.Currency == "" {
		c.Shop.Currency = "грн"
	}
	if c.Shop.OperatorName == "" {
		c.Shop.OperatorName = "Оператор"
	}
	if c.Shop.ContentPath == "" {
		c.Shop.ContentPath = "content.yaml"
	}
	if c.Shop.AssetsDir == "" {
		c.Shop.AssetsDir = "assets"
	}
	if c.Broadcast.PerSecond == 0 {
		c.Broadcast.PerSecond = 1
	}
	if c.Reconciler.Interval == 0 {
		c.Reconciler.Interval = time.Hour
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.TelegramCfg.Token == "" {
		return errors.New("telegram token is required")
	}
	if len(c.AdminChatIDs) == 0 {
		return errors.New("at least one admin chat id is required")
	}
	switch c.TelegramCfg.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.TelegramCfg.WebhookURL == "" {
			return errors.New("webhook mode requires telegram.webhook_url")
		}
	default:
		return fmt.Errorf("unknown telegram mode %q", c.TelegramCfg.Mode)
	}
	switch c.Storage.Backend {
	case BackendAppsScript:
		if c.Storage.AppsScript.URL == "" {
			return errors.New("apps script backend requires storage.apps_script.url")
		}
	case BackendPostgres:
		if c.Storage.Postgres.DSN == "" {
			return errors.New("postgres backend requires storage.postgres.dsn")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}
