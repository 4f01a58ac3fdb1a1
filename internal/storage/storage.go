package storage

import (
	"context"

	"proposalScope/internal/model"
)

// Storage defines a sink for decoded proposals.
type Storage interface {
	PutProposalBatch(records []model.ProposalRecord) error
}

// DecodeErrorSink quarantines logs that could not be decoded.
type DecodeErrorSink interface {
	PutDecodeErrors(errs []model.DecodeError) error
}

// SeedSource loads the proposal seed dataset.
type SeedSource interface {
	LoadSeeds(ctx context.Context) ([]model.ProposalSeed, error)
}
