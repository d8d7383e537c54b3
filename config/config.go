// Package config handles trdwalletd configuration.
//
// Settings come from three layers, later ones winning:
//   - Per-network defaults
//   - The trdwallet.conf file in the data directory
//   - Command-line flags
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Klingon-tech/trd-wallet/pkg/types"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// =============================================================================
// Wallet daemon configuration
// =============================================================================

// Config holds trdwalletd runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Remote indexer
	Indexer IndexerConfig

	// Wallet identity and spend policy
	Wallet WalletConfig

	// Task cadences
	Poll PollConfig

	// Snapshot storage
	Storage StorageConfig

	// RPC server
	RPC RPCConfig

	// Logging
	Log LogConfig
}

// IndexerConfig holds the remote indexer settings. Only the first URL is
// used; the rest are kept for operators that rotate servers by hand.
type IndexerConfig struct {
	URLs    []string      `conf:"indexer.url"`
	Timeout time.Duration `conf:"indexer.timeout"`
}

// WalletConfig holds the watched wallet and its spend policy.
type WalletConfig struct {
	XPub       string       `conf:"wallet.xpub"`       // Master public key (required)
	Derivation string       `conf:"wallet.derivation"` // bip32 or reference
	Primary    string       `conf:"wallet.primary"`
	Tokens     []string     `conf:"wallet.tokens"` // Supported token codes
	DefaultFee types.Amount `conf:"wallet.defaultfee"`
	GapLimit   int          `conf:"wallet.gaplimit"`
	SigningKey string       `conf:"wallet.signingkey"` // Optional path to a hex private key
}

// PollConfig holds the cadence of each background task.
type PollConfig struct {
	Address     time.Duration `conf:"poll.address"`
	Transaction time.Duration `conf:"poll.transaction"`
	Height      time.Duration `conf:"poll.height"`
	Save        time.Duration `conf:"poll.save"`
}

// StorageConfig selects where the wallet snapshot is kept.
type StorageConfig struct {
	Backend    string `conf:"storage.backend"`
	Passphrase string `conf:"storage.passphrase"` // Empty = snapshot stored in the clear
	Redis      RedisConfig
}

// RedisConfig holds the redis backend settings.
type RedisConfig struct {
	Addr     string `conf:"storage.redis.addr"`
	Password string `conf:"storage.redis.password"`
	DB       int    `conf:"storage.redis.db"`
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`

	// SetJSON records that log.json was given explicitly, so the daemon
	// does not pick the format from the terminal.
	SetJSON bool
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.trdwallet
//	macOS:   ~/Library/Application Support/TRDWallet
//	Windows: %APPDATA%\TRDWallet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".trdwallet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "TRDWallet")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "TRDWallet")
		}
		return filepath.Join(home, "AppData", "Roaming", "TRDWallet")
	default:
		return filepath.Join(home, ".trdwallet")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// WalletDBDir returns the badger directory for the wallet snapshot.
func (c *Config) WalletDBDir() string {
	return filepath.Join(c.NetworkDataDir(), "walletdb")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "trdwallet.conf")
}

// IndexerURL returns the indexer in use, or "" when none is configured.
func (c *Config) IndexerURL() string {
	if len(c.Indexer.URLs) == 0 {
		return ""
	}
	return c.Indexer.URLs[0]
}

// AddressHRP returns the bech32 prefix for the configured network.
func (c *Config) AddressHRP() string {
	if c.Network == Testnet {
		return types.TestnetHRP
	}
	return types.MainnetHRP
}
