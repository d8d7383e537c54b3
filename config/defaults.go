package config

import (
	"time"

	"github.com/Klingon-tech/trd-wallet/pkg/types"
)

// DefaultMainnet returns the default wallet configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Indexer: IndexerConfig{
			URLs:    []string{"http://127.0.0.1:8080"},
			Timeout: 10 * time.Second,
		},
		Wallet: WalletConfig{
			Derivation: "bip32",
			Primary:    "TRD",
			DefaultFee: types.NewAmount(50000),
			GapLimit:   10,
		},
		Poll: PollConfig{
			Address:     20 * time.Second,
			Transaction: 3 * time.Second,
			Height:      60 * time.Second,
			Save:        10 * time.Second,
		},
		Storage: StorageConfig{
			Backend: BackendBadger,
			Redis: RedisConfig{
				Addr: "127.0.0.1:6379",
			},
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       9545,
			AllowedIPs: []string{"127.0.0.1"},
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default wallet configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.Indexer.URLs = []string{"http://127.0.0.1:8081"}
	cfg.RPC.Port = 9645
	return cfg
}

// Default returns the default wallet configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
