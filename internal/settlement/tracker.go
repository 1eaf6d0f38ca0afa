package settlement

import (
	"context"
	"time"

	"github.com/MoonChainX/atlas-cipher/internal/chain"

	"github.com/ethereum/go-ethereum/common"
)

const defaultPollInterval = 2 * time.Second

// Tracker observes a submitted call's receipt lifecycle. Each Watch call is
// an independent, restartable poll of the receipt source.
type Tracker struct {
	receipts chain.ReceiptSource
	interval time.Duration
}

func NewTracker(receipts chain.ReceiptSource, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Tracker{receipts: receipts, interval: interval}
}

// Watch polls until the handle resolves. The channel delivers statuses in
// order — pending first, then exactly one terminal status — and is closed
// after the terminal status. A receipt-source error or a cancelled context
// resolves as failed; callers never see a raw transport error.
func (t *Tracker) Watch(ctx context.Context, handle common.Hash) <-chan chain.ReceiptStatus {
	out := make(chan chain.ReceiptStatus, 4)

	go func() {
		defer close(out)

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		emittedPending := false
		for {
			status, err := t.receipts.TransactionStatus(ctx, handle)
			if err != nil {
				if !emittedPending {
					out <- chain.ReceiptPending
				}
				out <- chain.ReceiptFailed
				return
			}

			switch status {
			case chain.ReceiptConfirmed, chain.ReceiptFailed:
				if !emittedPending {
					out <- chain.ReceiptPending
				}
				out <- status
				return
			default:
				if !emittedPending {
					out <- chain.ReceiptPending
					emittedPending = true
				}
			}

			select {
			case <-ctx.Done():
				out <- chain.ReceiptFailed
				return
			case <-ticker.C:
			}
		}
	}()

	return out
}
