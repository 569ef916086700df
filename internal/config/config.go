package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Backend modes.
const (
	ModeLocal = "local" // balances booked in the SQLite database
	ModeEVM   = "evm"   // sale assets are ERC-20 contracts, payouts are native transfers
)

const (
	defaultMode           = ModeLocal
	defaultLogLevel       = "info"
	defaultReceiptTimeout = 180 // seconds
	defaultWatchInterval  = 5   // seconds

	configFile  = "config.json"
	walletsFile = "wallets.json"
	dbFile      = "launchpad.db"
	keysDir     = "keys"
)

// Config holds all launchpad configuration. Values come from config.json
// and are overridden by LAUNCHPAD_* environment variables.
type Config struct {
	Mode           string `json:"mode"            env:"LAUNCHPAD_MODE"`
	DBPath         string `json:"db_path"         env:"LAUNCHPAD_DB_PATH"`
	RPCURL         string `json:"rpc_url"         env:"LAUNCHPAD_RPC_URL"`
	ChainID        int64  `json:"chain_id"        env:"LAUNCHPAD_CHAIN_ID"`
	Custody        string `json:"custody"         env:"LAUNCHPAD_CUSTODY"`        // address of the custody identity
	CustodyWallet  string `json:"custody_wallet"  env:"LAUNCHPAD_CUSTODY_WALLET"` // signing wallet, evm mode
	Admin          string `json:"admin"           env:"LAUNCHPAD_ADMIN"`          // first admin, used on init only
	LogLevel       string `json:"log_level"       env:"LAUNCHPAD_LOG_LEVEL"`
	ReceiptTimeout int    `json:"receipt_timeout" env:"LAUNCHPAD_RECEIPT_TIMEOUT"` // seconds
	WatchInterval  int    `json:"watch_interval"  env:"LAUNCHPAD_WATCH_INTERVAL"`  // seconds

	KeystorePassphrase string `json:"-" env:"LAUNCHPAD_KEYSTORE_PASSPHRASE"`

	// internal: config dir path used for Save()
	configDir string
}

// Load reads config from dir (or creates defaults), then applies
// environment overrides. dir defaults to ~/.launchpad.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".launchpad")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	data, err := os.ReadFile(filepath.Join(dir, configFile))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	cfg.configDir = dir
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(dir, dbFile)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables into target.
// Unset variables leave the current field values alone.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks that the settings are usable together.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeLocal:
	case ModeEVM:
		if c.RPCURL == "" {
			return fmt.Errorf("mode %q requires rpc_url", c.Mode)
		}
		if c.ChainID <= 0 {
			return fmt.Errorf("mode %q requires a positive chain_id", c.Mode)
		}
	default:
		return fmt.Errorf("unknown mode %q (want %q or %q)", c.Mode, ModeLocal, ModeEVM)
	}
	if c.ReceiptTimeout <= 0 {
		return fmt.Errorf("receipt_timeout must be positive, got %d", c.ReceiptTimeout)
	}
	if c.WatchInterval <= 0 {
		return fmt.Errorf("watch_interval must be positive, got %d", c.WatchInterval)
	}
	return nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Dir returns the config directory.
func (c *Config) Dir() string { return c.configDir }

// WalletsPath is where wallet metadata is stored.
func (c *Config) WalletsPath() string { return filepath.Join(c.configDir, walletsFile) }

// KeysDir is the directory of the file-backed keystore.
func (c *Config) KeysDir() string { return filepath.Join(c.configDir, keysDir) }

// ReceiptWait is ReceiptTimeout as a duration.
func (c *Config) ReceiptWait() time.Duration {
	return time.Duration(c.ReceiptTimeout) * time.Second
}

// WatchEvery is WatchInterval as a duration.
func (c *Config) WatchEvery() time.Duration {
	return time.Duration(c.WatchInterval) * time.Second
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		Mode:           defaultMode,
		LogLevel:       defaultLogLevel,
		ReceiptTimeout: defaultReceiptTimeout,
		WatchInterval:  defaultWatchInterval,
		configDir:      dir,
	}
}
