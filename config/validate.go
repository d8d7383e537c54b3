package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks the config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}

	if len(cfg.Indexer.URLs) == 0 {
		return fmt.Errorf("indexer.url is required")
	}
	for i, raw := range cfg.Indexer.URLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("indexer.url[%d] must be an http(s) URL", i)
		}
	}
	if cfg.Indexer.Timeout <= 0 {
		return fmt.Errorf("indexer.timeout must be positive")
	}

	if strings.TrimSpace(cfg.Wallet.XPub) == "" {
		return fmt.Errorf("wallet.xpub is required")
	}
	switch cfg.Wallet.Derivation {
	case "bip32", "reference":
	default:
		return fmt.Errorf("wallet.derivation must be bip32 or reference")
	}
	if cfg.Wallet.Primary == "" {
		return fmt.Errorf("wallet.primary is required")
	}
	if err := validateTokens(cfg.Wallet.Tokens, cfg.Wallet.Primary); err != nil {
		return err
	}
	if cfg.Wallet.DefaultFee.IsNegative() {
		return fmt.Errorf("wallet.defaultfee must not be negative")
	}
	if cfg.Wallet.GapLimit < 1 {
		return fmt.Errorf("wallet.gaplimit must be at least 1")
	}

	polls := []struct {
		name string
		d    time.Duration
	}{
		{"poll.address", cfg.Poll.Address},
		{"poll.transaction", cfg.Poll.Transaction},
		{"poll.height", cfg.Poll.Height},
		{"poll.save", cfg.Poll.Save},
	}
	for _, p := range polls {
		if p.d <= 0 {
			return fmt.Errorf("%s must be positive", p.name)
		}
	}

	switch cfg.Storage.Backend {
	case BackendBadger, BackendMemory:
	case BackendRedis:
		if cfg.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis backend")
		}
		if cfg.Storage.Redis.DB < 0 {
			return fmt.Errorf("storage.redis.db must not be negative")
		}
	default:
		return fmt.Errorf("storage.backend must be %s, %s or %s", BackendBadger, BackendRedis, BackendMemory)
	}

	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}

	return nil
}

func validateTokens(codes []string, primary string) error {
	seen := make(map[string]struct{}, len(codes))
	for i, code := range codes {
		if code == "" {
			return fmt.Errorf("wallet.tokens[%d] is empty", i)
		}
		if code == primary {
			return fmt.Errorf("wallet.tokens lists the primary currency %q", code)
		}
		if _, ok := seen[code]; ok {
			return fmt.Errorf("wallet.tokens has duplicate code %q", code)
		}
		seen[code] = struct{}{}
	}
	return nil
}
