package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Logging    LoggingConfig    `toml:"logging"`
	Data       DataConfig       `toml:"data"`
	Split      SplitConfig      `toml:"split"`
	Tournament TournamentConfig `toml:"tournament"`
	Validation ValidationConfig `toml:"validation"`
	Decision   DecisionConfig   `toml:"decision"`
	Storage    StorageConfig    `toml:"storage"`
	FRED       FREDConfig       `toml:"fred"`
	Server     ServerConfig     `toml:"server"`
	Output     OutputConfig     `toml:"output"`
}

type LoggingConfig struct {
	Level string `toml:"level" validate:"oneof=trace debug info warn error"`
}

// DataConfig selects the panel window and the traded asset.
type DataConfig struct {
	Start       string `toml:"start" validate:"required,datetime=2006-01-02"`
	End         string `toml:"end" validate:"required,datetime=2006-01-02"`
	Asset       string `toml:"asset" validate:"required"`
	PanelCSV    string `toml:"panel_csv"`    // read the panel from this file instead of the observation store
	RegimeDir   string `toml:"regime_dir"`   // optional regime probability CSVs (<column>.csv)
	FFillLimit  int    `toml:"ffill_limit" validate:"gte=0"`
	UseFixtures bool   `toml:"use_fixtures"` // synthetic panel, for demos and smoke runs
}

type SplitConfig struct {
	InSampleEnd      string `toml:"in_sample_end" validate:"required,datetime=2006-01-02"`
	OutOfSampleStart string `toml:"out_of_sample_start" validate:"required,datetime=2006-01-02"`
}

type TournamentConfig struct {
	Leads     []int    `toml:"leads" validate:"required,dive,gte=0"`
	Families  []string `toml:"families" validate:"required,dive,oneof=LONG_CASH SIGNAL_STRENGTH LONG_SHORT"`
	Workers   int      `toml:"workers" validate:"gte=0"` // 0 = one per CPU
	Shortlist int      `toml:"shortlist" validate:"gte=1"`
}

type ValidationConfig struct {
	BootstrapResamples int       `toml:"bootstrap_resamples" validate:"gte=100"`
	BootstrapSeed      uint64    `toml:"bootstrap_seed"`
	CostsBps           []float64 `toml:"costs_bps" validate:"required,dive,gte=0"`
	MaxExtraDelay      int       `toml:"max_extra_delay" validate:"gte=0,lte=21"`
}

// DecisionConfig holds the validity and robustness thresholds.
type DecisionConfig struct {
	MinSharpe         float64 `toml:"min_sharpe"`
	MaxTurnover       float64 `toml:"max_turnover" validate:"gt=0"`
	MinTrades         int     `toml:"min_trades" validate:"gte=0"`
	MaxPValue         float64 `toml:"max_p_value" validate:"gt=0,lte=1"`
	MinBreakevenBps   float64 `toml:"min_breakeven_bps" validate:"gte=0"`
	MinPositiveYears  float64 `toml:"min_positive_years" validate:"gte=0,lte=1"`
	MinDelayedSharpe  float64 `toml:"min_delayed_sharpe"`
	MinFullOOSExcess  float64 `toml:"min_full_oos_excess"`
	RequireStressWins bool    `toml:"require_stress_wins"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend       string `toml:"backend" validate:"oneof=memory sql"`
	PostgresDSN   string `toml:"postgres_dsn" validate:"required_if=Backend sql"`
	ClickhouseDSN string `toml:"clickhouse_dsn" validate:"required_if=Backend sql"`
}

type FREDConfig struct {
	BaseURL   string  `toml:"base_url" validate:"required,url"`
	RateLimit float64 `toml:"rate_limit" validate:"gt=0"` // requests per second
	Timeout   string  `toml:"timeout" validate:"required"`
}

type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port" validate:"gte=1,lte=65535"`
	Schedule string `toml:"schedule"` // cron expression for scheduled runs; empty disables
}

type OutputConfig struct {
	Dir string `toml:"dir" validate:"required"`
}

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Data: DataConfig{
			Start:      "2005-01-01",
			End:        "2025-12-31",
			Asset:      "spy",
			FFillLimit: 5,
		},
		Split: SplitConfig{
			InSampleEnd:      "2017-12-31",
			OutOfSampleStart: "2018-01-01",
		},
		Tournament: TournamentConfig{
			Leads:     []int{0, 1, 5, 10, 21, 63},
			Families:  []string{"LONG_CASH", "SIGNAL_STRENGTH", "LONG_SHORT"},
			Shortlist: 5,
		},
		Validation: ValidationConfig{
			BootstrapResamples: 10000,
			BootstrapSeed:      42,
			CostsBps:           []float64{0, 5, 10, 20, 50},
			MaxExtraDelay:      5,
		},
		Decision: DecisionConfig{
			MinSharpe:        0,
			MaxTurnover:      24,
			MinTrades:        30,
			MaxPValue:        0.05,
			MinBreakevenBps:  20,
			MinPositiveYears: 0.5,
			MinDelayedSharpe: 0,
			MinFullOOSExcess: -0.25,
		},
		Storage: StorageConfig{Backend: "memory"},
		FRED: FREDConfig{
			BaseURL:   "https://fred.stlouisfed.org/graph/fredgraph.csv",
			RateLimit: 2,
			Timeout:   "30s",
		},
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     8090,
			Schedule: "0 22 * * 1-5",
		},
		Output: OutputConfig{Dir: "reports"},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files. CLI flags are applied by the caller afterwards.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if level := os.Getenv("CSL_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if dsn := os.Getenv("CSL_POSTGRES_DSN"); dsn != "" {
		config.Storage.PostgresDSN = dsn
	}
	if dsn := os.Getenv("CSL_CLICKHOUSE_DSN"); dsn != "" {
		config.Storage.ClickhouseDSN = dsn
	}
	if backend := os.Getenv("CSL_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}
	if url := os.Getenv("CSL_FRED_BASE_URL"); url != "" {
		config.FRED.BaseURL = url
	}
	if dir := os.Getenv("CSL_OUTPUT_DIR"); dir != "" {
		config.Output.Dir = dir
	}
	if workers := os.Getenv("CSL_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil {
			config.Tournament.Workers = n
		}
	}
	if port := os.Getenv("CSL_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
}

// Validate checks struct constraints, date ordering and the cron schedule.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	start, end := c.Data.StartDate(), c.Data.EndDate()
	isEnd, oosStart := c.Split.InSampleEndDate(), c.Split.OutOfSampleStartDate()
	if !start.Before(end) {
		return fmt.Errorf("invalid config: data.start %s must precede data.end %s", c.Data.Start, c.Data.End)
	}
	if !isEnd.Before(oosStart) {
		return fmt.Errorf("invalid config: split.in_sample_end %s must precede split.out_of_sample_start %s",
			c.Split.InSampleEnd, c.Split.OutOfSampleStart)
	}
	if _, err := c.FRED.TimeoutDuration(); err != nil {
		return fmt.Errorf("invalid config: fred.timeout: %w", err)
	}
	if c.Server.Schedule != "" {
		if err := ValidateSchedule(c.Server.Schedule); err != nil {
			return err
		}
	}
	return nil
}

// ValidateSchedule validates a five-field cron expression.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// StartDate returns the parsed panel start. Call after Validate.
func (d DataConfig) StartDate() time.Time { return mustDate(d.Start) }

// EndDate returns the parsed panel end. Call after Validate.
func (d DataConfig) EndDate() time.Time { return mustDate(d.End) }

// InSampleEndDate returns the parsed last in-sample date.
func (s SplitConfig) InSampleEndDate() time.Time { return mustDate(s.InSampleEnd) }

// OutOfSampleStartDate returns the parsed first out-of-sample date.
func (s SplitConfig) OutOfSampleStartDate() time.Time { return mustDate(s.OutOfSampleStart) }

// TimeoutDuration parses the FRED HTTP timeout.
func (f FREDConfig) TimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(f.Timeout)
}

// ExtraDelays returns 0..MaxExtraDelay.
func (v ValidationConfig) ExtraDelays() []int {
	out := make([]int, v.MaxExtraDelay+1)
	for i := range out {
		out[i] = i
	}
	return out
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func mustDate(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
