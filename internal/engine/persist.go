package engine

import (
	"context"

	"github.com/Klingon-tech/trd-wallet/internal/log"
	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/rs/zerolog"
)

// persister writes the wallet snapshot whenever it is dirty. It is the only
// component doing durable I/O of the aggregate.
type persister struct {
	state  *wallet.State
	store  *wallet.Store
	logger zerolog.Logger
}

func (p *persister) cycle(context.Context) error {
	if err := p.flush(); err != nil {
		p.logger.Warn().Err(err).Msg("Snapshot save failed, will retry")
	}
	return nil
}

// flush saves the snapshot if dirty. The dirty mark is cleared only for the
// version that was written.
func (p *persister) flush() error {
	data, version, dirty, err := p.state.MarshalDirty()
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}
	defer log.Benchmark(p.logger, "save snapshot")()
	if err := p.store.Save(data); err != nil {
		return err
	}
	p.state.MarkSaved(version)
	p.logger.Debug().Int("bytes", len(data)).Uint64("version", version).Msg("Snapshot saved")
	return nil
}
