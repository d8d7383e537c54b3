package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Klingon-tech/trd-wallet/internal/indexer"
	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// errWrongAddress is a batch-level failure: the indexer answered for an
// address other than the one queried.
var errWrongAddress = errors.New("indexer returned a different address")

// scanner walks derived addresses up to the gap limit past the last used one
// and rebuilds balances from the indexer's answers.
type scanner struct {
	state    *wallet.State
	deriver  wallet.Deriver
	idx      Indexer
	notify   Notifier
	gapLimit int
	logger   zerolog.Logger

	mu      sync.Mutex
	checked bool
}

// addressesChecked reports whether a full scan has completed.
func (s *scanner) addressesChecked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checked
}

func (s *scanner) cycle(ctx context.Context) error {
	addrs, err := s.state.PrepareScan(s.deriver, s.gapLimit)
	if err != nil {
		var ce *wallet.ConsistencyError
		if errors.As(err, &ce) {
			return err
		}
		s.logger.Error().Err(err).Msg("Failed to prepare address scan")
		return nil
	}

	total := len(addrs)
	results := make([]*indexer.AddressResponse, total)
	var (
		progressMu sync.Mutex
		resolved   int
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, addr := range addrs {
		g.Go(func() error {
			resp, err := s.idx.Address(gctx, addr)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Debug().Err(err).Str("address", addr).Msg("Address lookup failed")
				return nil
			}
			if resp.Address != addr {
				return fmt.Errorf("%w: queried %s, got %s", errWrongAddress, addr, resp.Address)
			}
			results[i] = resp

			progressMu.Lock()
			resolved++
			n := resolved
			progressMu.Unlock()
			if n < total {
				s.notify.OnAddressesChecked(float64(n) / float64(total))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() == nil {
			s.logger.Warn().Err(err).Msg("Address scan aborted")
		}
		return nil
	}

	var queued, done int
	for i, resp := range results {
		if resp == nil {
			continue
		}
		n, err := s.state.ApplyAddress(i, resp.Txids, resp.Balances())
		if err != nil {
			s.logger.Error().Err(err).Int("index", i).Msg("Failed to store address")
			continue
		}
		queued += n
		done++
	}

	changed := s.state.RecomputeBalances()
	codes := make([]string, 0, len(changed))
	for code := range changed {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		s.notify.OnBalanceChanged(code, changed[code])
	}

	s.logger.Debug().
		Int("probed", total).
		Int("resolved", done).
		Int("queued", queued).
		Int("unused_index", s.state.UnusedAddressIndex()).
		Msg("Address scan complete")

	if done == total {
		s.mu.Lock()
		first := !s.checked
		s.checked = true
		s.mu.Unlock()
		if first {
			s.logger.Info().Int("addresses", total).Msg("All addresses checked")
			s.notify.OnAddressesChecked(1)
		}
	}
	return nil
}
