package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/trd-wallet/config"
	"github.com/Klingon-tech/trd-wallet/internal/storage"
	"github.com/Klingon-tech/trd-wallet/pkg/crypto"
)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// loadSigningKey reads a hex-encoded 32-byte private key from a file.
func loadSigningKey(path string) (*crypto.PrivateKey, error) {
	return crypto.LoadPrivateKey(expandHome(path))
}

// openDB opens the configured snapshot backend.
func openDB(cfg *config.Config) (storage.DB, error) {
	switch cfg.Storage.Backend {
	case config.BackendBadger, "":
		db, err := storage.NewBadger(cfg.WalletDBDir())
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		return db, nil
	case config.BackendRedis:
		db, err := storage.NewRedis(storage.RedisOptions{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
			Timeout:  cfg.Indexer.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		return db, nil
	case config.BackendMemory:
		return storage.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
