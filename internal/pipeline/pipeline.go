// Package pipeline streams labeled corpus lines through a bounded queue to a
// fixed pool of workers.
//
// A single producer parses lines and blocks when the queue is full. Once the
// source is exhausted it enqueues one end-of-stream sentinel per worker. Each
// worker drains records until it receives its sentinel. Run returns only after
// the producer and every worker have returned, so callers may treat its return
// as the barrier between accumulation and whatever reads the results.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/devrev/langdetect/internal/corpus"
	"github.com/devrev/langdetect/internal/errors"
	"github.com/devrev/langdetect/internal/model"
)

// Defaults applied when Config fields are unset
const (
	DefaultWorkers       = 4
	DefaultQueueCapacity = 10
)

// LineSource is a finite, non-restartable sequence of lines.
// *corpus.Scanner and *bufio.Scanner satisfy it.
type LineSource interface {
	Scan() bool
	Text() string
	Err() error
}

// Handler processes one training record. Errors and panics are contained to
// the record.
type Handler func(ctx context.Context, record model.TrainingRecord) error

// Recorder receives pipeline events. metrics.Metrics implements it.
type Recorder interface {
	RecordLineSkipped()
	RecordProcessed(duration time.Duration)
	RecordFailed()
	SetQueueDepth(depth int)
}

// Config holds pipeline configuration
type Config struct {
	Name          string
	Workers       int
	QueueCapacity int
	Delimiter     string
	Logger        *zap.Logger
	Recorder      Recorder
}

// Pipeline runs one producer and a fixed pool of workers over a line source
type Pipeline struct {
	name          string
	workers       int
	queueCapacity int
	delimiter     string
	handler       Handler
	logger        *zap.Logger
	recorder      Recorder
}

// New creates a pipeline that calls handler for every parsed record
func New(cfg *Config, handler Handler) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	if cfg.Delimiter == "" {
		cfg.Delimiter = corpus.DefaultDelimiter
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}

	return &Pipeline{
		name:          cfg.Name,
		workers:       cfg.Workers,
		queueCapacity: cfg.QueueCapacity,
		delimiter:     cfg.Delimiter,
		handler:       handler,
		logger:        cfg.Logger,
		recorder:      cfg.Recorder,
	}
}

// runState holds the counters of one Run
type runState struct {
	queue     chan model.TrainingRecord
	lines     atomic.Uint64
	skipped   atomic.Uint64
	enqueued  atomic.Uint64
	processed atomic.Uint64
	failed    atomic.Uint64
}

// Run drains src through the worker pool and blocks until every worker has
// exited. A read failure is returned as CorpusUnreadable and cancellation of
// ctx as TrainingCanceled; in both cases Stats covers the work done so far.
func (p *Pipeline) Run(ctx context.Context, src LineSource) (Stats, error) {
	start := time.Now()
	st := &runState{queue: make(chan model.TrainingRecord, p.queueCapacity)}

	p.logger.Info("Pipeline started",
		zap.String("name", p.name),
		zap.Int("workers", p.workers),
		zap.Int("queue_capacity", p.queueCapacity))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.produce(gctx, src, st)
	})
	for i := 0; i < p.workers; i++ {
		id := i
		g.Go(func() error {
			return p.work(gctx, id, st)
		})
	}
	err := g.Wait()
	p.recorder.SetQueueDepth(0)

	stats := Stats{
		Name:             p.name,
		Workers:          p.workers,
		QueueCapacity:    p.queueCapacity,
		LinesRead:        st.lines.Load(),
		LinesSkipped:     st.skipped.Load(),
		RecordsEnqueued:  st.enqueued.Load(),
		RecordsProcessed: st.processed.Load(),
		RecordsFailed:    st.failed.Load(),
		Duration:         time.Since(start),
	}

	if ctx.Err() != nil {
		p.logger.Warn("Pipeline canceled", zap.String("name", p.name), zap.Error(ctx.Err()))
		return stats, errors.TrainingCanceled(ctx.Err())
	}
	if err != nil {
		p.logger.Error("Pipeline failed", zap.String("name", p.name), zap.Error(err))
		return stats, err
	}

	p.logger.Info("Pipeline drained",
		zap.String("name", p.name),
		zap.Uint64("lines", stats.LinesRead),
		zap.Uint64("skipped", stats.LinesSkipped),
		zap.Uint64("processed", stats.RecordsProcessed),
		zap.Uint64("failed", stats.RecordsFailed),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

// produce parses src onto the queue, then sends one sentinel per worker
func (p *Pipeline) produce(ctx context.Context, src LineSource, st *runState) (err error) {
	defer func() {
		if err != nil {
			return
		}
		for i := 0; i < p.workers; i++ {
			select {
			case st.queue <- model.Sentinel():
			case <-ctx.Done():
				err = ctx.Err()
				return
			}
		}
	}()

	for src.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		st.lines.Add(1)

		record, ok := corpus.ParseLine(src.Text(), p.delimiter)
		if !ok {
			st.skipped.Add(1)
			p.recorder.RecordLineSkipped()
			continue
		}

		select {
		case st.queue <- record:
			st.enqueued.Add(1)
			p.recorder.SetQueueDepth(len(st.queue))
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := src.Err(); err != nil {
		return errors.CorpusUnreadable("failed to read corpus",
			fmt.Errorf("%w: %w", corpus.ErrReadFailed, err))
	}
	return nil
}

// work drains the queue until this worker's sentinel arrives
func (p *Pipeline) work(ctx context.Context, id int, st *runState) error {
	p.logger.Debug("Worker started",
		zap.String("pipeline", p.name),
		zap.Int("worker_id", id))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case record := <-st.queue:
			if record.IsSentinel() {
				p.logger.Debug("Worker stopping",
					zap.String("pipeline", p.name),
					zap.Int("worker_id", id))
				return nil
			}
			p.process(ctx, id, record, st)
		}
	}
}

// process runs the handler for one record and accounts for the outcome
func (p *Pipeline) process(ctx context.Context, workerID int, record model.TrainingRecord, st *runState) {
	start := time.Now()
	err := p.safeHandle(ctx, record)
	duration := time.Since(start)

	if err != nil {
		st.failed.Add(1)
		p.recorder.RecordFailed()
		p.logger.Warn("Record failed",
			zap.String("pipeline", p.name),
			zap.Int("worker_id", workerID),
			zap.String("language", record.Language.String()),
			zap.Duration("duration", duration),
			zap.Error(err))
		return
	}

	st.processed.Add(1)
	p.recorder.RecordProcessed(duration)
}

// safeHandle executes the handler with panic recovery
func (p *Pipeline) safeHandle(ctx context.Context, record model.TrainingRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.InternalError(fmt.Sprintf("record handler panicked: %v", r), nil)
			p.logger.Error("Record handler panic recovered",
				zap.String("pipeline", p.name),
				zap.String("language", record.Language.String()),
				zap.Any("panic", r))
		}
	}()

	return p.handler(ctx, record)
}

type nopRecorder struct{}

func (nopRecorder) RecordLineSkipped()            {}
func (nopRecorder) RecordProcessed(time.Duration) {}
func (nopRecorder) RecordFailed()                 {}
func (nopRecorder) SetQueueDepth(int)             {}
