package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"proposalScope/internal/dispatch"
	"proposalScope/internal/governance"
	"proposalScope/internal/metrics"
	"proposalScope/internal/model"
	"proposalScope/internal/queue"
	"proposalScope/internal/storage"
)

// ChainReader is the part of the chain client the runner needs.
type ChainReader interface {
	ChainID() uint64
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// BlockLocator resolves wall clock windows to block ranges.
type BlockLocator interface {
	Range(ctx context.Context, start, end time.Time) (uint64, uint64, error)
}

// LogDecoder turns raw logs into proposal records.
type LogDecoder interface {
	CanDecode(topic0 string) bool
	Decode(log model.LogRecord) (*model.ProposalRecord, error)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	Start        time.Time
	End          time.Time
	Window       time.Duration
	MaxBlockSpan uint64
	Governors    []common.Address
	Dispatch     dispatch.Config
}

// Runner fetches ProposalCreated logs window by window, Monday windows
// first, and writes decoded proposals to storage.
type Runner struct {
	cfg        RunConfig
	chain      ChainReader
	blocks     BlockLocator
	decoder    LogDecoder
	storage    storage.Storage
	errSink    storage.DecodeErrorSink
	checkpoint Checkpoint
	logger     *zap.Logger
	metrics    *metrics.Metrics

	mu   sync.Mutex
	seen map[string]struct{}
}

// Option customizes a Runner.
type Option func(*Runner)

// WithDecoder replaces the default ProposalCreated decoder.
func WithDecoder(d LogDecoder) Option { return func(r *Runner) { r.decoder = d } }

// WithDecodeErrorSink quarantines undecodable logs instead of dropping them.
func WithDecodeErrorSink(s storage.DecodeErrorSink) Option { return func(r *Runner) { r.errSink = s } }

// WithCheckpoint resumes from and records the end of the last complete run.
func WithCheckpoint(c Checkpoint) Option { return func(r *Runner) { r.checkpoint = c } }

// WithMetrics records pipeline counters.
func WithMetrics(m *metrics.Metrics) Option { return func(r *Runner) { r.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l.With(zap.String("component", "indexer"))
		}
	}
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, chainClient ChainReader, blocks BlockLocator, storageSink storage.Storage, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		chain:   chainClient,
		blocks:  blocks,
		decoder: governance.NewProposalDecoder(),
		storage: storageSink,
		logger:  zap.NewNop(),
		seen:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the indexing loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.blocks == nil {
		return fmt.Errorf("block locator is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.cfg.MaxBlockSpan == 0 {
		return fmt.Errorf("max block span must be greater than zero")
	}
	if len(r.cfg.Governors) == 0 {
		return fmt.Errorf("at least one governor is required")
	}

	start := r.cfg.Start
	if r.checkpoint != nil {
		last, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return err
		}
		if ok && last.After(start) {
			start = last
			r.logger.Info("resume from checkpoint", zap.Time("last_end", last))
		}
	}
	if !start.Before(r.cfg.End) {
		r.logger.Info("nothing to sync", zap.Time("start", start), zap.Time("end", r.cfg.End))
		return nil
	}

	windows, err := SplitTimeRange(start, r.cfg.End, r.cfg.Window)
	if err != nil {
		return err
	}

	q := queue.New(CompareMondayOverlap)
	for _, w := range windows {
		q.Push(w)
	}
	r.logger.Info("schedule windows",
		zap.Int("windows", len(windows)),
		zap.Time("start", start),
		zap.Time("end", r.cfg.End),
		zap.Duration("window", r.cfg.Window),
	)

	d := dispatch.New[TimeRange](q, r.fetchWindow, r.cfg.Dispatch, r.logger, r.metrics)
	if err := d.Run(ctx); err != nil {
		return err
	}

	if r.checkpoint != nil {
		if err := r.checkpoint.Save(ctx, r.cfg.End); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) fetchWindow(ctx context.Context, window TimeRange) error {
	from, to, err := r.blocks.Range(ctx, window.Start, window.End)
	if err != nil {
		return fmt.Errorf("resolve blocks: %w", err)
	}
	chunks, err := SplitRange(from, to, r.cfg.MaxBlockSpan)
	if err != nil {
		return dispatch.Permanent(err)
	}

	topics := []common.Hash{governance.ProposalCreatedTopic}
	for _, chunk := range chunks {
		r.logger.Debug("fetch logs", zap.Stringer("window", window), zap.Stringer("blocks", chunk))

		logs, err := r.chain.FilterLogs(ctx, chunk.From, chunk.To, r.cfg.Governors, topics)
		if err != nil {
			return fmt.Errorf("filter logs %s: %w", chunk, err)
		}
		r.metrics.Fetched(len(logs))

		if err := r.processLogs(ctx, logs); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) processLogs(ctx context.Context, logs []types.Log) error {
	ingestedAt := time.Now().UTC()
	records := make([]model.LogRecord, 0, len(logs))
	for _, log := range logs {
		if log.Removed || r.isSeen(logKey(log)) {
			continue
		}
		ts, err := r.chain.BlockTimestamp(ctx, log.BlockNumber)
		if err != nil {
			return fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
		}
		records = append(records, model.NewLogRecord(r.chain.ChainID(), log, ts, ingestedAt))
	}

	proposals, failures := DecodeLogs(r.decoder, records)
	r.metrics.Decoded(len(proposals))
	for _, f := range failures {
		r.metrics.DecodeFailed()
		r.logger.Warn("decode failed",
			zap.Uint64("block_number", f.BlockNumber),
			zap.String("tx_hash", f.TxHash),
			zap.Uint64("log_index", f.LogIndex),
			zap.String("error", f.Error),
		)
	}

	keys := make([]string, 0, len(records))
	for _, rec := range records {
		keys = append(keys, eventKey(rec.BlockNumber, rec.TxHash, rec.LogIndex))
	}
	fresh := r.claim(keys)
	if len(fresh) == 0 {
		return nil
	}

	if r.errSink != nil {
		if err := r.errSink.PutDecodeErrors(filterFailures(failures, fresh)); err != nil {
			r.release(fresh)
			return fmt.Errorf("store decode errors: %w", err)
		}
	}
	if err := r.storage.PutProposalBatch(filterProposals(proposals, fresh)); err != nil {
		r.release(fresh)
		return fmt.Errorf("store proposals: %w", err)
	}
	return nil
}

// DecodeLogs splits logs into decoded proposals and decode failures. Logs the
// decoder does not recognize are skipped.
func DecodeLogs(decoder LogDecoder, logs []model.LogRecord) ([]model.ProposalRecord, []model.DecodeError) {
	var (
		proposals []model.ProposalRecord
		failures  []model.DecodeError
	)
	for _, log := range logs {
		if len(log.Topics) == 0 {
			failures = append(failures, model.NewDecodeError(log, errors.New("missing topic0")))
			continue
		}
		if !decoder.CanDecode(log.Topics[0]) {
			continue
		}
		record, err := decoder.Decode(log)
		if err != nil {
			failures = append(failures, model.NewDecodeError(log, err))
			continue
		}
		proposals = append(proposals, *record)
	}
	return proposals, failures
}

func eventKey(blockNumber uint64, txHash string, logIndex uint64) string {
	return fmt.Sprintf("%d:%s:%d", blockNumber, txHash, logIndex)
}

func logKey(log types.Log) string {
	return eventKey(log.BlockNumber, log.TxHash.Hex(), uint64(log.Index))
}

func (r *Runner) isSeen(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[key]
	return ok
}

// claim marks keys as seen and returns the ones that were not seen before.
// Windows share boundary blocks, so concurrent tasks can race for a log.
func (r *Runner) claim(keys []string) map[string]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	fresh := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := r.seen[key]; ok {
			continue
		}
		r.seen[key] = struct{}{}
		fresh[key] = struct{}{}
	}
	return fresh
}

func (r *Runner) release(keys map[string]struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range keys {
		delete(r.seen, key)
	}
}

func filterProposals(records []model.ProposalRecord, keep map[string]struct{}) []model.ProposalRecord {
	out := make([]model.ProposalRecord, 0, len(records))
	for _, rec := range records {
		if _, ok := keep[eventKey(rec.BlockNumber, rec.TxHash, rec.LogIndex)]; ok {
			out = append(out, rec)
		}
	}
	return out
}

func filterFailures(failures []model.DecodeError, keep map[string]struct{}) []model.DecodeError {
	out := make([]model.DecodeError, 0, len(failures))
	for _, f := range failures {
		if _, ok := keep[eventKey(f.BlockNumber, f.TxHash, f.LogIndex)]; ok {
			out = append(out, f)
		}
	}
	return out
}
