package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"pooled_fund/contract/board"
	"pooled_fund/contract/fund"
	"pooled_fund/sdk"
)

// StoreKind selects where fund and board state live.
type StoreKind string

const (
	StoreMemory StoreKind = "memory" // lost on exit
	StoreFile   StoreKind = "file"   // memory with a JSON snapshot file
	StoreBadger StoreKind = "badger"
)

func (k StoreKind) Valid() bool {
	switch k {
	case StoreMemory, StoreFile, StoreBadger:
		return true
	default:
		return false
	}
}

const envPrefix = "fund"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Store        StoreKind `yaml:"store"`
	DataDir      string    `yaml:"dataDir"      split_words:"true"`
	SnapshotFile string    `yaml:"snapshotFile" split_words:"true"`
	LogLevel     string    `yaml:"logLevel"     split_words:"true"`
	MetricsAddr  string    `yaml:"metricsAddr"  split_words:"true"`
	// Debug wires the in-memory collaborators instead of a host.
	Debug bool `yaml:"debug"`

	Name              string `yaml:"name"`
	Symbol            string `yaml:"symbol"`
	ShareDecimals     uint8  `yaml:"shareDecimals"     split_words:"true"`
	FundAddress       string `yaml:"fundAddress"       split_words:"true"`
	BoardAddress      string `yaml:"boardAddress"      split_words:"true"`
	Manager           string `yaml:"manager"`
	DenominationToken string `yaml:"denominationToken" split_words:"true"`
	Ticker            string `yaml:"ticker"`
	Registry          string `yaml:"registry"`
	// seconds
	MinimumLockupDuration uint64   `yaml:"minimumLockupDuration" split_words:"true"`
	MinimumPayoutDuration uint64   `yaml:"minimumPayoutDuration" split_words:"true"`
	RecomputationDelay    uint64   `yaml:"recomputationDelay"    split_words:"true"`
	ApprovedTokens        []string `yaml:"approvedTokens"        split_words:"true"`

	Directors      []string `yaml:"directors"`
	MotionDuration uint64   `yaml:"motionDuration" split_words:"true"`
}

// DefaultConfig is a runnable single director debug setup.
func DefaultConfig() *Config {
	return &Config{
		Store:                 StoreMemory,
		DataDir:               ".pooled_fund",
		SnapshotFile:          "pooled_fund.json",
		LogLevel:              "info",
		MetricsAddr:           "",
		Debug:                 true,
		Name:                  "Pooled Fund",
		Symbol:                "PF",
		ShareDecimals:         18,
		FundAddress:           "0x00000000000000000000000000000000000000f0",
		BoardAddress:          "0x00000000000000000000000000000000000000b0",
		Manager:               "0x00000000000000000000000000000000000000aa",
		DenominationToken:     "0x00000000000000000000000000000000000000d0",
		Ticker:                "0x0000000000000000000000000000000000000071",
		Registry:              "0x0000000000000000000000000000000000000072",
		MinimumLockupDuration: 30 * 24 * 3600,
		MinimumPayoutDuration: 30 * 24 * 3600,
		RecomputationDelay:    3600,
		Directors:             []string{"0x0000000000000000000000000000000000000101"},
		MotionDuration:        7 * 24 * 3600,
	}
}

// LoadConfig overlays the YAML file at configFile (if any) and then FUND_*
// environment variables onto the defaults, and validates the result.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engines would refuse later anyway.
func (c *Config) Validate() error {
	if !c.Store.Valid() {
		return fmt.Errorf("%w: unknown store %q (must be 'memory', 'file' or 'badger')", ErrInvalidConfig, c.Store)
	}
	if c.Store == StoreFile && c.SnapshotFile == "" {
		return fmt.Errorf("%w: file store needs snapshotFile", ErrInvalidConfig)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Symbol) == "" {
		return fmt.Errorf("%w: name and symbol are required", ErrInvalidConfig)
	}
	p, err := c.FundParameters()
	if err != nil {
		return err
	}
	durations := []struct {
		name  string
		value uint64
		max   uint64
	}{
		{"minimumLockupDuration", c.MinimumLockupDuration, fund.MaxDuration},
		{"minimumPayoutDuration", c.MinimumPayoutDuration, fund.MaxDuration},
		{"recomputationDelay", c.RecomputationDelay, fund.MaxDuration},
		{"motionDuration", c.MotionDuration, board.MaxMotionDuration},
	}
	for _, d := range durations {
		if d.value > d.max {
			return fmt.Errorf("%w: %s %d above %d", ErrInvalidConfig, d.name, d.value, d.max)
		}
	}
	if p.Address == p.Owner {
		return fmt.Errorf("%w: fund and board share an address", ErrInvalidConfig)
	}
	directors, err := c.DirectorAddresses()
	if err != nil {
		return err
	}
	if len(directors) == 0 {
		return fmt.Errorf("%w: at least one director is required", ErrInvalidConfig)
	}
	seen := map[sdk.Address]bool{}
	for _, d := range directors {
		if seen[d] {
			return fmt.Errorf("%w: duplicate director %s", ErrInvalidConfig, d.Hex())
		}
		seen[d] = true
	}
	if _, err := c.ApprovedTokenAddresses(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel, empty means info.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel)
	}
	return l, nil
}

func address(field, s string) (sdk.Address, error) {
	a, err := sdk.AddressFromString(s)
	if err != nil {
		return sdk.ZeroAddress, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, field, err)
	}
	if !sdk.IsValid(a) {
		return sdk.ZeroAddress, fmt.Errorf("%w: %s is the zero address", ErrInvalidConfig, field)
	}
	return a, nil
}

// FundParameters resolves the fund settings. The owner is always the board.
func (c *Config) FundParameters() (fund.Parameters, error) {
	p := fund.Parameters{
		Name:                  c.Name,
		Symbol:                c.Symbol,
		ShareDecimals:         c.ShareDecimals,
		MinimumLockupDuration: c.MinimumLockupDuration,
		MinimumPayoutDuration: c.MinimumPayoutDuration,
		RecomputationDelay:    c.RecomputationDelay,
	}
	fields := []struct {
		name string
		src  string
		dst  *sdk.Address
	}{
		{"fundAddress", c.FundAddress, &p.Address},
		{"boardAddress", c.BoardAddress, &p.Owner},
		{"manager", c.Manager, &p.Manager},
		{"denominationToken", c.DenominationToken, &p.DenominationToken},
		{"ticker", c.Ticker, &p.Ticker},
		{"registry", c.Registry, &p.Registry},
	}
	for _, f := range fields {
		a, err := address(f.name, f.src)
		if err != nil {
			return fund.Parameters{}, err
		}
		*f.dst = a
	}
	return p, nil
}

func (c *Config) DirectorAddresses() ([]sdk.Address, error) {
	return addresses("directors", c.Directors)
}

func (c *Config) ApprovedTokenAddresses() ([]sdk.Address, error) {
	return addresses("approvedTokens", c.ApprovedTokens)
}

func addresses(field string, in []string) ([]sdk.Address, error) {
	trimmed := make([]string, len(in))
	for i, s := range in {
		trimmed[i] = strings.TrimSpace(s)
	}
	out, err := sdk.AddressesFromStrings(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, field, err)
	}
	for i, a := range out {
		if !sdk.IsValid(a) {
			return nil, fmt.Errorf("%w: %s[%d] is the zero address", ErrInvalidConfig, field, i)
		}
	}
	return out, nil
}
