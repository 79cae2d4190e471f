package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeStream Mode = "stream"
	ModePaper  Mode = "paper"
)

const (
	SourceAlpaca  = "alpaca"
	SourceBinance = "binance"
)

type Instrument struct {
	Name     string `yaml:"name"`
	Exchange string `yaml:"exchange"`
}

type Config struct {
	Mode        Mode         `yaml:"mode"`
	Strategy    string       `yaml:"strategy"`
	Source      string       `yaml:"source"`
	Feed        string       `yaml:"feed"`
	BinanceURL  string       `yaml:"binance_url"`
	Instruments []Instrument `yaml:"instruments"`

	WalletSize            decimal.Decimal `yaml:"wallet_size"`
	BandPercentage        decimal.Decimal `yaml:"band_percentage"`
	TMAPeriod             int             `yaml:"tma_period"`
	RiskPercentage        decimal.Decimal `yaml:"risk_percentage"`
	GridSpacingPercentage decimal.Decimal `yaml:"grid_spacing_percentage"`
	MaxGridLevels         int             `yaml:"max_grid_levels"`
	PriceHistoryLength    int             `yaml:"price_history_length"`
	RSIPeriod             int             `yaml:"rsi_period"`
	RSIWindow             time.Duration   `yaml:"rsi_window"`
	VWAPResetPeriod       time.Duration   `yaml:"vwap_reset_period"`

	DecisionInterval  time.Duration   `yaml:"decision_interval"`
	ReconcileInterval time.Duration   `yaml:"reconcile_interval"`
	MaxNotional       decimal.Decimal `yaml:"max_notional"`
	KillSwitch        bool            `yaml:"kill_switch"`
	OrdersPerSecond   float64         `yaml:"orders_per_second"`

	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file"`
	DecisionsPath string `yaml:"decisions_path"`
	MetricsAddr   string `yaml:"metrics_addr"`
	PaperBaseURL  string `yaml:"paper_base_url"`

	APIKey    string `yaml:"-"`
	APISecret string `yaml:"-"`
}

func Default() Config {
	return Config{
		Mode:                  ModeStream,
		Strategy:              "grid",
		Source:                SourceAlpaca,
		Feed:                  "iex",
		BinanceURL:            "wss://stream.binance.com:9443/stream",
		Instruments:           []Instrument{{Name: "AAPL", Exchange: "alpaca"}},
		WalletSize:            decimal.NewFromInt(10000),
		BandPercentage:        decimal.RequireFromString("0.05"),
		TMAPeriod:             14,
		RiskPercentage:        decimal.RequireFromString("0.005"),
		GridSpacingPercentage: decimal.RequireFromString("0.01"),
		MaxGridLevels:         15,
		PriceHistoryLength:    50,
		RSIPeriod:             14,
		RSIWindow:             180 * time.Second,
		VWAPResetPeriod:       24 * time.Hour,
		DecisionInterval:      time.Second,
		ReconcileInterval:     10 * time.Second,
		OrdersPerSecond:       3,
		LogLevel:              "info",
		DecisionsPath:         "decisions.ndjson",
		MetricsAddr:           ":9102",
		PaperBaseURL:          "https://paper-api.alpaca.markets",
	}
}

// Load resolves configuration from defaults, .env, the YAML file and flags,
// in increasing precedence. Credentials only ever come from the environment.
func Load() (Config, error) {
	if err := loadDotEnv(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var (
		path       string
		mode       string
		strategy   string
		killSwitch bool
		logLevel   string
		decisions  string
	)
	flag.StringVar(&path, "config", "config.yaml", "path to YAML config")
	flag.StringVar(&mode, "mode", string(ModeStream), "run mode: stream or paper")
	flag.StringVar(&strategy, "strategy", "grid", "strategy: grid or vwap_rsi")
	flag.BoolVar(&killSwitch, "kill-switch", false, "if true, never place orders")
	flag.StringVar(&logLevel, "log-level", "info", "log level")
	flag.StringVar(&decisions, "decisions-path", "decisions.ndjson", "path to decisions log")
	flag.Parse()

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		return cfg, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Mode = Mode(mode)
		case "strategy":
			cfg.Strategy = strategy
		case "kill-switch":
			cfg.KillSwitch = killSwitch
		case "log-level":
			cfg.LogLevel = logLevel
		case "decisions-path":
			cfg.DecisionsPath = decisions
		}
	})

	cfg.APIKey = os.Getenv("APCA_API_KEY_ID")
	cfg.APISecret = os.Getenv("APCA_API_SECRET_KEY")

	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadDotEnv never overrides variables already set in the environment.
func loadDotEnv(path string) error {
	return godotenv.Load(path)
}

// loadFile overlays the YAML file onto cfg. A missing file keeps cfg as is.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func validate(cfg Config) error {
	if cfg.Mode != ModeStream && cfg.Mode != ModePaper {
		return fmt.Errorf("invalid mode: %s", cfg.Mode)
	}
	if cfg.Strategy != "grid" && cfg.Strategy != "vwap_rsi" {
		return fmt.Errorf("invalid strategy: %s", cfg.Strategy)
	}
	if cfg.Source != SourceAlpaca && cfg.Source != SourceBinance {
		return fmt.Errorf("invalid source: %s", cfg.Source)
	}
	if cfg.Mode == ModePaper && (cfg.APIKey == "" || cfg.APISecret == "") {
		return fmt.Errorf("APCA_API_KEY_ID and APCA_API_SECRET_KEY are required in paper mode")
	}
	if cfg.Source == SourceAlpaca && (cfg.APIKey == "" || cfg.APISecret == "") {
		return fmt.Errorf("APCA_API_KEY_ID and APCA_API_SECRET_KEY are required for the alpaca source")
	}
	if len(cfg.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	for i, inst := range cfg.Instruments {
		if inst.Name == "" {
			return fmt.Errorf("instrument %d has no name", i)
		}
	}
	if !cfg.WalletSize.IsPositive() {
		return fmt.Errorf("wallet_size must be > 0")
	}
	if cfg.TMAPeriod <= 0 {
		return fmt.Errorf("tma_period must be > 0")
	}
	if cfg.RSIPeriod <= 0 {
		return fmt.Errorf("rsi_period must be > 0")
	}
	if cfg.MaxGridLevels <= 0 {
		return fmt.Errorf("max_grid_levels must be > 0")
	}
	if cfg.PriceHistoryLength <= 0 {
		return fmt.Errorf("price_history_length must be > 0")
	}
	if cfg.DecisionInterval <= 0 {
		return fmt.Errorf("decision_interval must be > 0")
	}
	if cfg.ReconcileInterval <= 0 {
		return fmt.Errorf("reconcile_interval must be > 0")
	}
	if cfg.MaxNotional.IsNegative() {
		return fmt.Errorf("max_notional must be >= 0")
	}
	return nil
}
