// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/coinfun/internal/curve"
	"github.com/rovshanmuradov/coinfun/internal/logger"
)

type Config struct {
	ProgramID         string          `mapstructure:"program_id"`
	Ledger            LedgerConfig    `mapstructure:"ledger"`
	Curve             CurveConfig     `mapstructure:"curve"`
	Storage           StorageConfig   `mapstructure:"storage"`
	API               ListenConfig    `mapstructure:"api"`
	Metrics           ListenConfig    `mapstructure:"metrics"`
	Workers           int             `mapstructure:"workers"`
	Retries           int             `mapstructure:"retries"`
	RetryMaxElapsedMs int             `mapstructure:"retry_max_elapsed_ms"`
	EventBuffer       int             `mapstructure:"event_buffer"`
	Log               LogConfig       `mapstructure:"log"`
	TasksFile         string          `mapstructure:"tasks_file"`
	WalletsFile       string          `mapstructure:"wallets_file"`
	JournalFile       string          `mapstructure:"journal_file"`
	Bootstrap         BootstrapConfig `mapstructure:"bootstrap"`
}

type LedgerConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type CurveConfig struct {
	InitialVirtualTokenReserves  uint64 `mapstructure:"initial_virtual_token_reserves"`
	InitialVirtualNativeReserves uint64 `mapstructure:"initial_virtual_native_reserves"`
	TotalSupply                  uint64 `mapstructure:"total_supply"`
	PlatformFeeBps               uint64 `mapstructure:"platform_fee_bps"`
	ReserveFeeBps                uint64 `mapstructure:"reserve_fee_bps"`
	GraduationThreshold          uint64 `mapstructure:"graduation_threshold"`
	VaultMinBalance              uint64 `mapstructure:"vault_min_balance"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type ListenConfig struct {
	Listen string `mapstructure:"listen"`
}

// BootstrapConfig seeds a fresh ledger for local runs: the global config is
// initialized by the operator wallet, every task's mint gets a curve and
// every wallet is funded with Airdrop native units.
type BootstrapConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Operator string `mapstructure:"operator"`
	Airdrop  uint64 `mapstructure:"airdrop"`
}

type LogConfig struct {
	File        string `mapstructure:"file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
	Development bool   `mapstructure:"development"`
	Pretty      bool   `mapstructure:"pretty"`
}

const (
	LedgerMemory  = "memory"
	LedgerLevelDB = "leveldb"

	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"

	DefaultProgramID         = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M4uBEwF6P"
	DefaultWorkers           = 5
	DefaultRetries           = 3
	DefaultRetryMaxElapsedMs = 2000
	DefaultEventBuffer       = 1000

	EnvPrefix = "COINFUN"
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"program_id":                            DefaultProgramID,
		"ledger.driver":                         LedgerMemory,
		"ledger.path":                           "data/ledger",
		"curve.initial_virtual_token_reserves":  uint64(1_073_000_000_000_000),
		"curve.initial_virtual_native_reserves": uint64(30_000_000_000),
		"curve.total_supply":                    uint64(1_000_000_000_000_000),
		"curve.platform_fee_bps":                uint64(100),
		"curve.reserve_fee_bps":                 uint64(0),
		"curve.graduation_threshold":            uint64(85_000_000_000),
		"curve.vault_min_balance":               uint64(1_461_600),
		"storage.driver":                        "",
		"storage.dsn":                           "",
		"api.listen":                            ":8080",
		"metrics.listen":                        ":9090",
		"workers":                               DefaultWorkers,
		"retries":                               DefaultRetries,
		"retry_max_elapsed_ms":                  DefaultRetryMaxElapsedMs,
		"event_buffer":                          DefaultEventBuffer,
		"log.file":                              "logs/coinfun.log",
		"log.max_size":                          100,
		"log.max_backups":                       3,
		"log.max_age":                           7,
		"log.compress":                          true,
		"log.development":                       false,
		"log.pretty":                            false,
		"tasks_file":                            "",
		"wallets_file":                          "",
		"journal_file":                          "",
		"bootstrap.enabled":                     false,
		"bootstrap.operator":                    "operator",
		"bootstrap.airdrop":                     uint64(10_000_000_000),
	}
}

// LoadConfig reads path (any format viper understands) and applies COINFUN_*
// environment overrides. An empty path loads defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if _, err := cfg.Program(); err != nil {
		return err
	}
	switch cfg.Ledger.Driver {
	case LedgerMemory:
	case LedgerLevelDB:
		if cfg.Ledger.Path == "" {
			return errors.New("ledger.path is required for the leveldb driver")
		}
	default:
		return fmt.Errorf("unknown ledger driver %q", cfg.Ledger.Driver)
	}
	switch cfg.Storage.Driver {
	case "":
	case StoragePostgres, StorageSQLite:
		if cfg.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the %s driver", cfg.Storage.Driver)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err := cfg.Curve.Fees().Validate(); err != nil {
		return err
	}
	c := cfg.Curve
	if c.TotalSupply == 0 || c.InitialVirtualTokenReserves == 0 || c.InitialVirtualNativeReserves == 0 {
		return curve.ErrInvalidTokenReserveConfiguration
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.Workers < 0 {
		return errors.New("invalid workers count")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if cfg.RetryMaxElapsedMs < 0 {
		return errors.New("invalid retry_max_elapsed_ms")
	}
	if cfg.EventBuffer < 0 {
		return errors.New("invalid event_buffer")
	}
	return nil
}

// Program parses the configured program id.
func (c *Config) Program() (solana.PublicKey, error) {
	id, err := solana.PublicKeyFromBase58(c.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program_id %q: %w", c.ProgramID, err)
	}
	return id, nil
}

// RetryMaxElapsed is the total time a busy trade may be retried.
func (c *Config) RetryMaxElapsed() time.Duration {
	return time.Duration(c.RetryMaxElapsedMs) * time.Millisecond
}

// Logger converts the log section for the logger package.
func (c *Config) Logger() *logger.Config {
	return &logger.Config{
		File:        c.Log.File,
		MaxSize:     c.Log.MaxSize,
		MaxAge:      c.Log.MaxAge,
		MaxBackups:  c.Log.MaxBackups,
		Compress:    c.Log.Compress,
		Development: c.Log.Development,
		Pretty:      c.Log.Pretty,
	}
}

func (c CurveConfig) Fees() curve.Fees {
	return curve.Fees{PlatformBps: c.PlatformFeeBps, ReserveBps: c.ReserveFeeBps}
}
