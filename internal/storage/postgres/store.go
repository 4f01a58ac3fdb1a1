package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"proposalScope/internal/model"
	"proposalScope/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS proposal_seeds (
	chain_id   TEXT        NOT NULL,
	governor   TEXT        NOT NULL,
	l2_block   BIGINT      NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, governor, l2_block)
);
CREATE TABLE IF NOT EXISTS indexer_state (
	name              TEXT        PRIMARY KEY,
	last_processed_ts BIGINT      NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for the proposal seed dataset and run state.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.SeedSource = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables the store uses when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// UpsertSeeds inserts proposal seeds, ignoring ones already present.
func (s *Store) UpsertSeeds(ctx context.Context, seeds []model.ProposalSeed) error {
	if len(seeds) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, seed := range seeds {
		batch.Queue(`
			INSERT INTO proposal_seeds (chain_id, governor, l2_block, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
			ON CONFLICT (chain_id, governor, l2_block)
			DO UPDATE SET updated_at = now()
		`,
			seed.ChainID,
			seed.Governor,
			int64(seed.L2Block),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range seeds {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadSeeds returns every stored seed ordered by chain and block.
func (s *Store) LoadSeeds(ctx context.Context) ([]model.ProposalSeed, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chain_id, l2_block, governor
		FROM proposal_seeds
		ORDER BY chain_id, l2_block, governor
	`)
	if err != nil {
		return nil, err
	}
	seeds, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ProposalSeed, error) {
		var (
			seed  model.ProposalSeed
			block int64
		)
		if err := row.Scan(&seed.ChainID, &block, &seed.Governor); err != nil {
			return model.ProposalSeed{}, err
		}
		seed.L2Block = uint64(block)
		return seed, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load seeds: %w", err)
	}
	return seeds, nil
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(ts), true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, int64(ts))
	return err
}
