// Package engine runs the wallet's periodic sync tasks against a remote
// indexer and exposes the host command surface.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Klingon-tech/trd-wallet/internal/indexer"
	"github.com/Klingon-tech/trd-wallet/internal/log"
	"github.com/Klingon-tech/trd-wallet/internal/storage"
	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/Klingon-tech/trd-wallet/pkg/types"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Default task cadences.
const (
	DefaultAddressInterval     = 20 * time.Second
	DefaultTransactionInterval = 3 * time.Second
	DefaultHeightInterval      = 60 * time.Second
	DefaultSaveInterval        = 10 * time.Second
)

var (
	// ErrNotSupported is returned by capabilities this engine does not provide.
	ErrNotSupported = errors.New("not supported")
	// ErrRunning is returned when starting an engine that is already running.
	ErrRunning = errors.New("engine already running")
)

// Indexer is the remote service the engine syncs from.
type Indexer interface {
	Height(ctx context.Context) (int64, error)
	Address(ctx context.Context, address string) (*indexer.AddressResponse, error)
	Transaction(ctx context.Context, txid string) (*indexer.TransactionResponse, error)
	Spend(ctx context.Context, body indexer.SpendRequest) (*indexer.SpendResponse, error)
}

// Config holds engine settings.
type Config struct {
	Primary             string
	Tokens              []string
	GapLimit            int
	DefaultFee          types.Amount
	AddressInterval     time.Duration
	TransactionInterval time.Duration
	HeightInterval      time.Duration
	SaveInterval        time.Duration
}

// DefaultConfig returns the reference cadences and fee.
func DefaultConfig() Config {
	return Config{
		Primary:             wallet.PrimaryCurrency,
		GapLimit:            wallet.GapLimit,
		DefaultFee:          types.NewAmount(wallet.DefaultFee),
		AddressInterval:     DefaultAddressInterval,
		TransactionInterval: DefaultTransactionInterval,
		HeightInterval:      DefaultHeightInterval,
		SaveInterval:        DefaultSaveInterval,
	}
}

// Option customizes an Engine.
type Option func(*Engine)

// WithNotifier sets the event receiver.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notify = n }
}

// WithSigner sets the transaction signer. Without one SignTx returns
// ErrNotSupported.
func WithSigner(s Signer) Option {
	return func(e *Engine) { e.signer = s }
}

func withTickerFactory(f func(time.Duration) ticker.Ticker) Option {
	return func(e *Engine) { e.newTicker = f }
}

// Engine owns the wallet state and its four periodic tasks.
type Engine struct {
	cfg       Config
	state     *wallet.State
	deriver   wallet.Deriver
	idx       Indexer
	notify    Notifier
	signer    Signer
	fees      wallet.FeePolicy
	newTicker func(time.Duration) ticker.Ticker
	logger    zerolog.Logger

	height  *heightPoller
	scanner *scanner
	fetcher *txFetcher
	saver   *persister

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// New loads the wallet snapshot from store, or starts a fresh one, and
// returns an engine ready to Start. A stored snapshot for a different master
// public key is an error.
func New(cfg Config, masterPublicKey string, deriver wallet.Deriver, idx Indexer, store *wallet.Store, opts ...Option) (*Engine, error) {
	if cfg.Primary == "" {
		cfg.Primary = wallet.PrimaryCurrency
	}
	if cfg.GapLimit <= 0 {
		cfg.GapLimit = wallet.GapLimit
	}
	if masterPublicKey == "" {
		return nil, fmt.Errorf("empty master public key")
	}

	state, err := loadState(store, masterPublicKey, cfg)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		state:   state,
		deriver: deriver,
		idx:     idx,
		notify:  NopNotifier{},
		fees:    wallet.FeePolicy{Default: cfg.DefaultFee},
		newTicker: func(d time.Duration) ticker.Ticker {
			return ticker.New(d)
		},
		logger: log.Engine,
		done:   make(chan struct{}),
	}
	close(e.done)
	for _, opt := range opts {
		opt(e)
	}

	e.height = &heightPoller{state: state, idx: idx, notify: e.notify, logger: log.Height}
	e.scanner = &scanner{state: state, deriver: deriver, idx: idx, notify: e.notify, gapLimit: cfg.GapLimit, logger: log.Scanner}
	e.fetcher = &txFetcher{state: state, idx: idx, notify: e.notify, logger: log.Fetcher}
	e.saver = &persister{state: state, store: store, logger: log.Persist}
	return e, nil
}

func loadState(store *wallet.Store, mpk string, cfg Config) (*wallet.State, error) {
	data, err := store.Load()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		log.Engine.Info().Msg("No stored wallet snapshot, starting fresh")
		return wallet.NewState(wallet.NewSnapshot(mpk, cfg.Primary), cfg.Primary, cfg.Tokens)
	case err != nil:
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	state, err := wallet.LoadState(data, mpk, cfg.Primary, cfg.Tokens)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	log.Engine.Info().
		Int64("height", state.BlockHeight()).
		Int("unused_index", state.UnusedAddressIndex()).
		Msg("Wallet snapshot loaded")
	return state, nil
}

// State returns the wallet aggregate.
func (e *Engine) State() *wallet.State {
	return e.state
}

// Start delivers the initial callbacks and launches the periodic tasks.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrRunning
	}
	e.running = true
	e.mu.Unlock()

	e.initialCallbacks()

	e.mu.Lock()
	defer e.mu.Unlock()
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.loop(gctx, "height", e.cfg.HeightInterval, e.height.cycle) })
	g.Go(func() error { return e.loop(gctx, "scanner", e.cfg.AddressInterval, e.scanner.cycle) })
	g.Go(func() error { return e.loop(gctx, "txfetch", e.cfg.TransactionInterval, e.fetcher.cycle) })
	g.Go(func() error { return e.loop(gctx, "persist", e.cfg.SaveInterval, e.saver.cycle) })

	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	e.err = nil

	go func() {
		err := g.Wait()
		cancel()
		if err != nil {
			e.logger.Error().Err(err).Msg("Engine halted on fatal error")
		}
		e.mu.Lock()
		e.err = err
		e.running = false
		e.mu.Unlock()
		close(done)
	}()

	e.logger.Info().
		Str("primary", e.cfg.Primary).
		Int("gap_limit", e.cfg.GapLimit).
		Msg("Engine started")
	return nil
}

// loop runs cycle once immediately and then on every tick. A returned error
// is fatal and stops every task.
func (e *Engine) loop(ctx context.Context, name string, interval time.Duration, cycle func(context.Context) error) error {
	t := e.newTicker(interval)
	t.Resume()
	defer t.Stop()

	for {
		if err := cycle(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.Ticks():
		}
	}
}

func (e *Engine) initialCallbacks() {
	e.notify.OnBlockHeightChanged(e.state.BlockHeight())
	for _, code := range e.state.Supported() {
		e.notify.OnTransactionsChanged(e.state.Transactions(code, 0, 0))
		e.notify.OnBalanceChanged(code, e.state.Balance(code))
	}
}

// Stop cancels the tasks, waits for them to exit and flushes the snapshot.
func (e *Engine) Stop() error {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-done

	if err := e.saver.flush(); err != nil {
		e.logger.Error().Err(err).Msg("Final snapshot save failed")
		return err
	}
	e.logger.Info().Msg("Engine stopped")
	return nil
}

// Done is closed when the tasks have exited.
func (e *Engine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// Wait blocks until the tasks exit and returns the fatal error that stopped
// them, if any.
func (e *Engine) Wait() error {
	<-e.Done()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Running reports whether the tasks are active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}
