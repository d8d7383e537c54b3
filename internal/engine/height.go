package engine

import (
	"context"

	"github.com/Klingon-tech/trd-wallet/internal/wallet"
	"github.com/rs/zerolog"
)

// heightPoller keeps the wallet's block height in step with the indexer.
type heightPoller struct {
	state  *wallet.State
	idx    Indexer
	notify Notifier
	logger zerolog.Logger
}

func (h *heightPoller) cycle(ctx context.Context) error {
	height, err := h.idx.Height(ctx)
	if err != nil {
		if ctx.Err() == nil {
			h.logger.Warn().Err(err).Msg("Failed to fetch block height")
		}
		return nil
	}
	if h.state.SetBlockHeight(height) {
		h.logger.Debug().Int64("height", height).Msg("Block height changed")
		h.notify.OnBlockHeightChanged(height)
	}
	return nil
}
