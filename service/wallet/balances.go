package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solpocket/solpocket/service/metrics"
	chain "github.com/solpocket/solpocket/service/solana"
)

// defaultInterCallDelay spaces the native and token balance queries to
// reduce burst rate against the RPC endpoint.
const defaultInterCallDelay = 150 * time.Millisecond

// BalanceSynchronizer produces an eventually-consistent view of native and
// fungible token balances for one account, resilient to partial RPC failure.
type BalanceSynchronizer struct {
	chain          chain.ChainReader
	store          *Store
	owner          solana.PublicKey
	ownerTokenAcct solana.PublicKey // associated token address, zero when no token configured
	token          TokenConfig
	interCallDelay time.Duration
	gen            atomic.Uint64
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// NewBalanceSynchronizer creates a synchronizer for the given account address.
// The address is validated up front; a syntactically invalid address fails
// with ErrInvalidAccount before any network access. If metrics is nil, no
// metrics are recorded.
func NewBalanceSynchronizer(reader chain.ChainReader, store *Store, address string, token TokenConfig, m *metrics.Metrics, logger *slog.Logger) (*BalanceSynchronizer, error) {
	owner, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAccount, address)
	}

	s := &BalanceSynchronizer{
		chain:          reader,
		store:          store,
		owner:          owner,
		token:          token,
		interCallDelay: defaultInterCallDelay,
		logger:         logger,
		metrics:        m,
	}

	if token.Enabled() {
		ata, _, err := solana.FindAssociatedTokenAddress(owner, token.Mint)
		if err != nil {
			return nil, fmt.Errorf("failed to derive associated token address: %w", err)
		}
		s.ownerTokenAcct = ata
	}

	return s, nil
}

// Refresh fetches both balances and publishes a new snapshot.
//
// The native query is load-bearing: if it fails, the whole refresh fails
// with BalanceFetchError and the shared snapshot is left untouched. A token
// query failure is soft: the refresh succeeds, reporting the last-known
// token amount (zero if none yet) with the snapshot flagged stale.
//
// Overlapping refreshes are not queued. Each call takes a generation token
// at start; a result whose generation is no longer current is returned to
// the caller but never committed to the shared snapshot, so a slow in-flight
// result cannot overwrite a newer one.
func (s *BalanceSynchronizer) Refresh(ctx context.Context) (BalanceSnapshot, error) {
	if s.owner.IsZero() {
		return BalanceSnapshot{}, ErrInvalidAccount
	}

	gen := s.gen.Add(1)

	start := time.Now()
	native, err := s.chain.GetNativeBalance(ctx, s.owner)
	s.recordRPC("GetNativeBalance", err, start)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch native balance",
			"account", s.owner.String(),
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.RecordBalanceRefresh("error")
		}
		return BalanceSnapshot{}, &BalanceFetchError{Err: err}
	}

	snapshot := BalanceSnapshot{
		Native:    native,
		FetchedAt: time.Now().UTC(),
	}

	if s.token.Enabled() {
		// Space out the two queries to avoid bursting the endpoint.
		select {
		case <-time.After(s.interCallDelay):
		case <-ctx.Done():
			return BalanceSnapshot{}, ctx.Err()
		}

		start = time.Now()
		tokenAmount, err := s.chain.GetTokenBalance(ctx, s.ownerTokenAcct)
		s.recordRPC("GetTokenBalance", err, start)
		if err != nil {
			// A missing or misconfigured token account must not block core
			// wallet usability. Keep the last-known value and flag it stale.
			prior := s.store.Balance()
			snapshot.Token = prior.Token
			snapshot.TokenStale = true
			s.logger.WarnContext(ctx, "token balance fetch failed, keeping last-known value",
				"account", s.owner.String(),
				"token_account", s.ownerTokenAcct.String(),
				"last_known", prior.Token,
				"error", err,
			)
		} else {
			snapshot.Token = tokenAmount
		}
	}

	if s.gen.Load() != gen {
		s.logger.DebugContext(ctx, "discarding stale balance refresh result",
			"account", s.owner.String(),
		)
		return snapshot, nil
	}

	s.store.SetBalance(snapshot)

	if s.metrics != nil {
		if snapshot.TokenStale {
			s.metrics.RecordBalanceRefresh("stale_token")
		} else {
			s.metrics.RecordBalanceRefresh("success")
		}
	}

	s.logger.DebugContext(ctx, "balance refreshed",
		"account", s.owner.String(),
		"native", snapshot.Native,
		"token", snapshot.Token,
		"token_stale", snapshot.TokenStale,
	)

	return snapshot, nil
}

func (s *BalanceSynchronizer) recordRPC(method string, err error, start time.Time) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordRPCCall(method, status, time.Since(start).Seconds())
}
