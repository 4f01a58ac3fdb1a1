package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposalScope/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("PROPOSALS_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("PROPOSALS_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.EnsureSchema(ctx))
	_, err = store.pool.Exec(ctx, `TRUNCATE proposal_seeds, indexer_state`)
	require.NoError(t, err)
	return store
}

func TestNewStoreRequiresDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	assert.Error(t, err)
}

func TestSeedsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seeds := []model.ProposalSeed{
		{ChainID: "0xa4b1", L2Block: 200, Governor: "0x789fC99093B09aD01C34DC7251D0C89ce743e5a4"},
		{ChainID: "0xa4b1", L2Block: 100, Governor: "0xf07DeD9dC292157749B6Fd268E37DF6EA38395B9"},
	}
	require.NoError(t, store.UpsertSeeds(ctx, seeds))
	require.NoError(t, store.UpsertSeeds(ctx, seeds[:1]))

	got, err := store.LoadSeeds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.ProposalSeed{seeds[1], seeds[0]}, got)
}

func TestStateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.LoadState(ctx, "proposals:0xa4b1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveState(ctx, "proposals:0xa4b1", 1_700_000_000))
	ts, ok, err := store.LoadState(ctx, "proposals:0xa4b1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1_700_000_000), ts)
}
