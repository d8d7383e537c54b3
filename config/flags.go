package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// PassphraseEnv names the environment variable that overrides
// storage.passphrase, so the secret need not sit in the config file.
const PassphraseEnv = "TRDWALLET_PASSPHRASE"

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// Indexer
	Indexer string

	// Wallet
	XPub       string
	Derivation string
	Tokens     string
	SigningKey string

	// Storage
	Backend string

	// RPC
	RPC        bool
	RPCAddr    string
	RPCPort    int
	RPCAllowed string
	RPCCORS    string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetRPC     bool
	SetLogJSON bool
}

// ParseFlags parses command-line flags (without the program name).
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("trdwalletd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet or testnet)")
	testnet := fs.Bool("testnet", false, "Use testnet (shorthand for --network=testnet)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Indexer
	fs.StringVar(&f.Indexer, "indexer", "", "Indexer base URLs (comma-separated)")

	// Wallet
	fs.StringVar(&f.XPub, "xpub", "", "Master public key to watch")
	fs.StringVar(&f.Derivation, "derivation", "", "Address derivation (bip32 or reference)")
	fs.StringVar(&f.Tokens, "tokens", "", "Supported token codes (comma-separated)")
	fs.StringVar(&f.SigningKey, "signing-key", "", "Path to a hex private key used to sign spends")

	// Storage
	fs.StringVar(&f.Backend, "storage", "", "Storage backend (badger, redis, memory)")

	// RPC
	fs.BoolVar(&f.RPC, "rpc", true, "Enable RPC server")
	fs.StringVar(&f.RPCAddr, "rpc-addr", "", "RPC listen address")
	fs.IntVar(&f.RPCPort, "rpc-port", 0, "RPC listen port")
	fs.StringVar(&f.RPCAllowed, "rpc-allowed", "", "Allowed IPs for RPC")
	fs.StringVar(&f.RPCCORS, "rpc-cors", "", "Allowed CORS origins for RPC (comma-separated)")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *testnet {
		f.Network = string(Testnet)
	}
	f.SetRPC = isFlagSet(fs, "rpc")
	f.SetLogJSON = isFlagSet(fs, "log-json")

	f.Args = fs.Args()

	// A positional argument stops the parser; anything flag-like after it
	// would be silently ignored.
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", arg)
		}
	}

	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(f.Network)
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Indexer
	if f.Indexer != "" {
		cfg.Indexer.URLs = parseStringList(f.Indexer)
	}

	// Wallet
	if f.XPub != "" {
		cfg.Wallet.XPub = f.XPub
	}
	if f.Derivation != "" {
		cfg.Wallet.Derivation = strings.ToLower(f.Derivation)
	}
	if f.Tokens != "" {
		cfg.Wallet.Tokens = parseStringList(f.Tokens)
	}
	if f.SigningKey != "" {
		cfg.Wallet.SigningKey = f.SigningKey
	}

	// Storage
	if f.Backend != "" {
		cfg.Storage.Backend = strings.ToLower(f.Backend)
	}

	// RPC
	if f.SetRPC {
		cfg.RPC.Enabled = f.RPC
	}
	if f.RPCAddr != "" {
		cfg.RPC.Addr = f.RPCAddr
	}
	if f.RPCPort != 0 {
		cfg.RPC.Port = f.RPCPort
	}
	if f.RPCAllowed != "" {
		cfg.RPC.AllowedIPs = parseStringList(f.RPCAllowed)
	}
	if f.RPCCORS != "" {
		cfg.RPC.CORSOrigins = parseStringList(f.RPCCORS)
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
		cfg.Log.SetJSON = true
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// PrintUsage writes the daemon help text to w.
func PrintUsage(w io.Writer) {
	usage := `TRD Wallet Daemon - watches an HD wallet through a TRD indexer

Usage:
  trdwalletd [options]
  trdwalletd --help

Commands:
  --help, -h      Show this help message
  --version, -v   Show version information

Core Options:
  --network       Network type: mainnet (default) or testnet
  --testnet       Shorthand for --network=testnet
  --datadir       Data directory (default: ~/.trdwallet)
  --config, -c    Config file path (default: <datadir>/trdwallet.conf)

Indexer Options:
  --indexer       Indexer base URLs, comma-separated (first is used)

Wallet Options:
  --xpub          Master public key to watch (required)
  --derivation    Address derivation: bip32 (default) or reference
  --tokens        Supported token codes (comma-separated)
  --signing-key   Path to a hex private key used to sign spends

Storage Options:
  --storage       Snapshot backend: badger (default), redis or memory
                  (set ` + PassphraseEnv + ` to encrypt the snapshot)

RPC Options:
  --rpc           Enable RPC server (default: true)
  --rpc-addr      RPC listen address (default: 127.0.0.1)
  --rpc-port      RPC port (mainnet: 9545, testnet: 9645)
  --rpc-allowed   Allowed IPs for RPC (comma-separated)
  --rpc-cors      Allowed CORS origins for RPC (comma-separated)

Logging Options:
  --log-level     Log level: trace, debug, info, warn, error (default: info)
  --log-file      Log file path (default: <datadir>/logs/trdwallet.log)
  --log-json      Output logs as JSON (default: JSON unless stdout is a terminal)

Examples:
  # Watch a wallet on mainnet
  trdwalletd --xpub=xpub6...

  # Testnet with a local indexer and redis storage
  trdwalletd --testnet --indexer=http://127.0.0.1:8081 --storage=redis
`
	fmt.Fprint(w, usage)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Environment (passphrase only)
// 5. Command-line flags
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, &Flags{Help: true}, nil
		}
		return nil, nil, err
	}
	if flags.Help || flags.Version {
		return nil, flags, nil
	}
	cfg, err := Resolve(flags)
	if err != nil {
		return nil, nil, err
	}
	return cfg, flags, nil
}

// Resolve builds the configuration for already-parsed flags.
func Resolve(flags *Flags) (*Config, error) {
	// Determine network first (needed for defaults)
	network := Mainnet
	if strings.ToLower(flags.Network) == string(Testnet) {
		network = Testnet
	}

	cfg := Default(network)
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, fmt.Errorf("applying config file: %w", err)
	}

	if pass, ok := os.LookupEnv(PassphraseEnv); ok {
		cfg.Storage.Passphrase = pass
	}

	// Apply flags (highest precedence)
	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Safe to call on every startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
