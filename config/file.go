package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Klingon-tech/trd-wallet/pkg/types"
)

// LoadFile loads wallet configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(value)
	case "datadir":
		cfg.DataDir = value

	// Indexer
	case "indexer.url", "indexer":
		cfg.Indexer.URLs = parseStringList(value)
	case "indexer.timeout":
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		cfg.Indexer.Timeout = d

	// Wallet
	case "wallet.xpub", "xpub":
		cfg.Wallet.XPub = value
	case "wallet.derivation":
		cfg.Wallet.Derivation = strings.ToLower(value)
	case "wallet.primary":
		cfg.Wallet.Primary = value
	case "wallet.tokens":
		cfg.Wallet.Tokens = parseStringList(value)
	case "wallet.defaultfee":
		fee, err := types.ParseAmount(value)
		if err != nil {
			return err
		}
		cfg.Wallet.DefaultFee = fee
	case "wallet.gaplimit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Wallet.GapLimit = n
	case "wallet.signingkey":
		cfg.Wallet.SigningKey = value

	// Poll cadences
	case "poll.address", "poll.transaction", "poll.height", "poll.save":
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		switch key {
		case "poll.address":
			cfg.Poll.Address = d
		case "poll.transaction":
			cfg.Poll.Transaction = d
		case "poll.height":
			cfg.Poll.Height = d
		default:
			cfg.Poll.Save = d
		}

	// Storage
	case "storage.backend":
		cfg.Storage.Backend = strings.ToLower(value)
	case "storage.passphrase":
		cfg.Storage.Passphrase = value
	case "storage.redis.addr":
		cfg.Storage.Redis.Addr = value
	case "storage.redis.password":
		cfg.Storage.Redis.Password = value
	case "storage.redis.db":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Storage.Redis.DB = n

	// RPC
	case "rpc.enabled", "rpc":
		cfg.RPC.Enabled = parseBool(value)
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.RPC.Port = port
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)
		cfg.Log.SetJSON = true

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// parseDuration accepts Go durations ("20s", "1m") or a bare number of
// milliseconds.
func parseDuration(s string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default wallet configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	cfg := Default(network)
	content := `# TRD Wallet Daemon Configuration

# Network: mainnet or testnet
network = ` + string(network) + `

# Data directory (default: ~/.trdwallet)
# datadir = ~/.trdwallet

# ============================================================================
# Indexer
# ============================================================================

# Indexer base URLs (comma-separated, the first one is used)
indexer.url = ` + strings.Join(cfg.Indexer.URLs, ",") + `
indexer.timeout = 10s

# ============================================================================
# Wallet
# ============================================================================

# Account-level extended public key to watch (required)
# wallet.xpub = xpub...

# Address derivation: bip32 or reference
wallet.derivation = bip32
wallet.primary = TRD
# Supported token codes (comma-separated)
# wallet.tokens =
wallet.defaultfee = 50000
wallet.gaplimit = 10

# Path to a hex-encoded private key used to sign spends
# wallet.signingkey = ~/.trdwallet/signing.key

# ============================================================================
# Polling
# ============================================================================

poll.address = 20s
poll.transaction = 3s
poll.height = 60s
poll.save = 10s

# ============================================================================
# Storage
# ============================================================================

# Backend: badger, redis or memory
storage.backend = badger
# Encrypt the snapshot at rest
# storage.passphrase =
# storage.redis.addr = 127.0.0.1:6379
# storage.redis.password =
# storage.redis.db = 0

# ============================================================================
# RPC Server
# ============================================================================

rpc.enabled = true
rpc.addr = 127.0.0.1
rpc.port = ` + strconv.Itoa(cfg.RPC.Port) + `
rpc.allowed = 127.0.0.1
# CORS allowed origins ("*" for all)
# rpc.cors = http://localhost:3000

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
# log.json = false
`
	return os.WriteFile(path, []byte(content), 0600)
}
