package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solpocket/solpocket/service/wallet"
)

// Store archives resolved transaction records in Postgres. The archive is an
// optional write-behind of the in-memory history: the daemon upserts each
// refresh result so records survive restarts and can be queried beyond the
// in-memory cap.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS transaction_records (
	signature     TEXT PRIMARY KEY,
	wallet_address TEXT NOT NULL,
	block_time    TIMESTAMPTZ,
	amount        BIGINT NOT NULL,
	counterparty  TEXT NOT NULL DEFAULT '',
	token         TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_transaction_records_wallet
	ON transaction_records (wallet_address, block_time DESC);
`

// EnsureSchema creates the archive table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

const upsertRecordSQL = `
INSERT INTO transaction_records
	(signature, wallet_address, block_time, amount, counterparty, token, status, description, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
ON CONFLICT (signature) DO UPDATE SET
	block_time  = EXCLUDED.block_time,
	amount      = EXCLUDED.amount,
	counterparty = EXCLUDED.counterparty,
	token       = EXCLUDED.token,
	status      = EXCLUDED.status,
	description = EXCLUDED.description,
	updated_at  = now()
`

// UpsertRecord inserts or updates one archived record. Re-archiving the same
// signature is the normal path: a pending record is upgraded in place once a
// later refresh resolves it.
func (s *Store) UpsertRecord(ctx context.Context, address string, r wallet.TransactionRecord) error {
	_, err := s.pool.Exec(ctx, upsertRecordSQL,
		r.Signature,
		address,
		r.Timestamp,
		r.Amount,
		r.Counterparty,
		r.Token,
		string(r.Status),
		r.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", r.Signature, err)
	}
	return nil
}

// ArchiveHistory upserts every record from a refresh result. Failures are
// reported but the batch continues; the archive is best-effort.
func (s *Store) ArchiveHistory(ctx context.Context, address string, records []wallet.TransactionRecord) error {
	var firstErr error
	for _, r := range records {
		if err := s.UpsertRecord(ctx, address, r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

const listRecordsSQL = `
SELECT signature, block_time, amount, counterparty, token, status, description
FROM transaction_records
WHERE wallet_address = $1
ORDER BY block_time DESC NULLS LAST
LIMIT $2 OFFSET $3
`

// ListRecords returns archived records for a wallet, newest first.
func (s *Store) ListRecords(ctx context.Context, address string, limit, offset int) ([]wallet.TransactionRecord, error) {
	rows, err := s.pool.Query(ctx, listRecordsSQL, address, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []wallet.TransactionRecord
	for rows.Next() {
		var r wallet.TransactionRecord
		var status string
		if err := rows.Scan(&r.Signature, &r.Timestamp, &r.Amount, &r.Counterparty, &r.Token, &status, &r.Description); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		r.Status = wallet.ConfirmationStatus(status)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

const getRecordSQL = `
SELECT signature, block_time, amount, counterparty, token, status, description
FROM transaction_records
WHERE signature = $1
`

// GetRecord returns one archived record by signature, or nil when absent.
func (s *Store) GetRecord(ctx context.Context, signature string) (*wallet.TransactionRecord, error) {
	var r wallet.TransactionRecord
	var status string
	err := s.pool.QueryRow(ctx, getRecordSQL, signature).
		Scan(&r.Signature, &r.Timestamp, &r.Amount, &r.Counterparty, &r.Token, &status, &r.Description)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", signature, err)
	}
	r.Status = wallet.ConfirmationStatus(status)
	return &r, nil
}
