// Package node assembles a wallet daemon from its configuration: snapshot
// storage, indexer client, sync engine and RPC server.
package node

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Klingon-tech/trd-wallet/config"
	"github.com/Klingon-tech/trd-wallet/internal/engine"
	"github.com/Klingon-tech/trd-wallet/internal/indexer"
	klog "github.com/Klingon-tech/trd-wallet/internal/log"
	"github.com/Klingon-tech/trd-wallet/internal/rpc"
	"github.com/Klingon-tech/trd-wallet/internal/storage"
	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/Klingon-tech/trd-wallet/pkg/crypto"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Node is a fully-initialized wallet daemon.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	db         storage.DB
	engine     *engine.Engine
	rpcServer  *rpc.Server // nil when RPC is disabled
	signingKey *crypto.PrivateKey
}

// New creates and initializes a Node. It performs all setup steps (logger,
// storage, deriver, indexer client, engine, RPC) but does NOT start the sync
// tasks or the RPC listener. Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0700); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "trdwallet.log")
	}
	if err := klog.Init(cfg.Log.Level, jsonLogs(cfg.Log), logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("indexer", cfg.IndexerURL()).
		Str("storage", cfg.Storage.Backend).
		Msg("Starting wallet daemon")

	n := &Node{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			n.close()
		}
	}()

	// ── 2. Storage ──────────────────────────────────────────────────
	var err error
	n.db, err = openDB(cfg)
	if err != nil {
		return nil, err
	}
	store := wallet.NewStore(n.db, cfg.Storage.Passphrase, wallet.DefaultParams())

	// ── 3. Deriver and indexer ──────────────────────────────────────
	deriver, err := wallet.NewDeriver(cfg.Wallet.Derivation, cfg.Wallet.XPub, cfg.AddressHRP())
	if err != nil {
		return nil, fmt.Errorf("address deriver: %w", err)
	}
	idx := indexer.New(cfg.IndexerURL(), cfg.Indexer.Timeout)

	// ── 4. Engine ───────────────────────────────────────────────────
	opts := []engine.Option{engine.WithNotifier(newLogNotifier(logger))}
	if cfg.Wallet.SigningKey != "" {
		n.signingKey, err = loadSigningKey(cfg.Wallet.SigningKey)
		if err != nil {
			return nil, fmt.Errorf("signing key: %w", err)
		}
		opts = append(opts, engine.WithSigner(engine.NewSchnorrSigner(n.signingKey)))
		logger.Info().Msg("Spend signing enabled")
	}

	n.engine, err = engine.New(engineConfig(cfg), cfg.Wallet.XPub, deriver, idx, store, opts...)
	if err != nil {
		return nil, err
	}

	// ── 5. RPC ──────────────────────────────────────────────────────
	if cfg.RPC.Enabled {
		addr := net.JoinHostPort(cfg.RPC.Addr, strconv.Itoa(cfg.RPC.Port))
		n.rpcServer = rpc.New(addr, n.engine, cfg.RPC)
	}

	ok = true
	return n, nil
}

// engineConfig maps daemon settings onto the engine.
func engineConfig(cfg *config.Config) engine.Config {
	return engine.Config{
		Primary:             cfg.Wallet.Primary,
		Tokens:              cfg.Wallet.Tokens,
		GapLimit:            cfg.Wallet.GapLimit,
		DefaultFee:          cfg.Wallet.DefaultFee,
		AddressInterval:     cfg.Poll.Address,
		TransactionInterval: cfg.Poll.Transaction,
		HeightInterval:      cfg.Poll.Height,
		SaveInterval:        cfg.Poll.Save,
	}
}

// jsonLogs picks JSON output when asked to, or when stdout is not a
// terminal and the operator did not choose.
func jsonLogs(cfg config.LogConfig) bool {
	if cfg.SetJSON {
		return cfg.JSON
	}
	return !term.IsTerminal(int(os.Stdout.Fd()))
}

// Start launches the sync tasks and the RPC listener.
func (n *Node) Start() error {
	if err := n.engine.Start(); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return err
		}
	}

	n.logger.Info().
		Int64("height", n.engine.BlockHeight()).
		Bool("rpc", n.rpcServer != nil).
		Msg("Wallet daemon started")
	return nil
}

// Stop performs graceful shutdown in reverse order. The engine writes a
// final snapshot before storage is closed.
func (n *Node) Stop() {
	if n.rpcServer != nil {
		if err := n.rpcServer.Stop(); err != nil {
			n.logger.Warn().Err(err).Msg("RPC shutdown")
		}
	}
	if err := n.engine.Stop(); err != nil {
		n.logger.Error().Err(err).Msg("Engine shutdown")
	}
	n.close()

	n.logger.Info().Msg("Goodbye!")
}

func (n *Node) close() {
	if n.signingKey != nil {
		n.signingKey.Zero()
		n.signingKey = nil
	}
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			n.logger.Warn().Err(err).Msg("Closing storage")
		}
		n.db = nil
	}
}

// Done is closed when the sync tasks exit on their own.
func (n *Node) Done() <-chan struct{} {
	return n.engine.Done()
}

// Err returns the fatal error that stopped the sync tasks, if any.
func (n *Node) Err() error {
	return n.engine.Wait()
}

// Engine returns the wallet engine.
func (n *Node) Engine() *engine.Engine {
	return n.engine
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}
