package wallet

import (
	"context"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	chain "github.com/solpocket/solpocket/service/solana"
)

// AwaitOptions bounds a confirmation wait.
type AwaitOptions struct {
	// Interval is the polling interval; defaults to 2s.
	Interval time.Duration

	// Timeout is the overall deadline; defaults to 60s.
	Timeout time.Duration
}

// AwaitConfirmation polls the confirmation status of a signature with a
// fixed interval until it is confirmed, failed, or the overall timeout
// elapses. On timeout it returns StatusPending with ErrConfirmationTimeout
// so the caller can direct the user to a block explorer instead of blocking
// indefinitely.
func AwaitConfirmation(ctx context.Context, reader chain.ChainReader, sig solana.Signature, opts AwaitOptions, logger *slog.Logger) (ConfirmationStatus, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := reader.GetSignatureStatus(ctx, sig)
		if err != nil {
			// Transient status-check failures are retried until the deadline.
			logger.DebugContext(ctx, "signature status check failed, retrying",
				"signature", sig.String(),
				"error", err,
			)
		} else if status != nil {
			if status.Err != nil {
				return StatusFailed, nil
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				return StatusConfirmed, nil
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return StatusPending, ErrConfirmationTimeout
		}
	}
}
