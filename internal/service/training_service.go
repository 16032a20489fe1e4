package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devrev/langdetect/internal/errors"
	"github.com/devrev/langdetect/internal/kmer"
	"github.com/devrev/langdetect/internal/metrics"
	"github.com/devrev/langdetect/internal/model"
	"github.com/devrev/langdetect/internal/pipeline"
	"github.com/devrev/langdetect/internal/validation"
)

// TrainingConfig holds training configuration
type TrainingConfig struct {
	MaxProfileEntries int
	Workers           int
	QueueCapacity     int
	Delimiter         string
	Shards            int
}

// TrainingReport summarizes one training run
type TrainingReport struct {
	RunID            string        `json:"run_id"`
	LinesRead        uint64        `json:"lines_read"`
	LinesSkipped     uint64        `json:"lines_skipped"`
	RecordsProcessed uint64        `json:"records_processed"`
	RecordsFailed    uint64        `json:"records_failed"`
	KmersRecorded    uint64        `json:"kmers_recorded"`
	Languages        int           `json:"languages"`
	MaxEntries       int           `json:"max_profile_entries"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration_ns"`
}

// Snapshot returns the health view of the report
func (r *TrainingReport) Snapshot() model.TrainingSnapshot {
	return model.TrainingSnapshot{
		RunID:     r.RunID,
		Languages: r.Languages,
		Records:   r.RecordsProcessed,
	}
}

// TrainingService builds sealed profile stores from a labeled corpus
type TrainingService struct {
	config    *TrainingConfig
	extractor *kmer.Extractor
	validator *validation.Validator
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewTrainingService creates a new training service. metrics may be nil.
func NewTrainingService(
	cfg *TrainingConfig,
	extractor *kmer.Extractor,
	validator *validation.Validator,
	m *metrics.Metrics,
	logger *zap.Logger,
) *TrainingService {
	if cfg.MaxProfileEntries <= 0 {
		cfg.MaxProfileEntries = 300
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TrainingService{
		config:    cfg,
		extractor: extractor,
		validator: validator,
		metrics:   m,
		logger:    logger,
	}
}

// Train streams src through the training pipeline into a fresh store, waits
// for every worker to finish and then truncates the store to the configured
// profile size. The store is returned only when the run completed.
func (s *TrainingService) Train(ctx context.Context, src pipeline.LineSource) (*ProfileStore, *TrainingReport, error) {
	report := &TrainingReport{
		RunID:      uuid.NewString(),
		MaxEntries: s.config.MaxProfileEntries,
		StartedAt:  time.Now(),
	}
	logger := s.logger.With(zap.String("run_id", report.RunID))

	store := NewProfileStore(&ProfileStoreConfig{Shards: s.config.Shards}, logger)

	var recorder pipeline.Recorder
	if s.metrics != nil {
		recorder = s.metrics
	}

	p := pipeline.New(&pipeline.Config{
		Name:          "training",
		Workers:       s.config.Workers,
		QueueCapacity: s.config.QueueCapacity,
		Delimiter:     s.config.Delimiter,
		Logger:        logger,
		Recorder:      recorder,
	}, s.recordHandler(store))

	logger.Info("Training started",
		zap.Int("max_profile_entries", s.config.MaxProfileEntries),
		zap.Int("kmer_size", s.extractor.MaxLength()))

	stats, err := p.Run(ctx, src)

	report.LinesRead = stats.LinesRead
	report.LinesSkipped = stats.LinesSkipped
	report.RecordsProcessed = stats.RecordsProcessed
	report.RecordsFailed = stats.RecordsFailed
	report.KmersRecorded = store.Recorded()

	if err != nil {
		report.Duration = time.Since(report.StartedAt)
		s.recordRun(err, report.Duration)
		logger.Error("Training aborted", zap.Error(err))
		return nil, report, err
	}

	// Every worker has exited; the store is no longer written to.
	store.TruncateAll(s.config.MaxProfileEntries)

	report.Languages = len(store.Languages())
	report.Duration = time.Since(report.StartedAt)
	s.recordRun(nil, report.Duration)

	logger.Info("Training completed",
		zap.Int("languages", report.Languages),
		zap.Uint64("lines", report.LinesRead),
		zap.Uint64("skipped", report.LinesSkipped),
		zap.Uint64("records", report.RecordsProcessed),
		zap.Uint64("failed", report.RecordsFailed),
		zap.Uint64("kmers", report.KmersRecorded),
		zap.Duration("duration", report.Duration))

	return store, report, nil
}

// recordHandler extracts every kmer occurrence of a record into store
func (s *TrainingService) recordHandler(store *ProfileStore) pipeline.Handler {
	return func(ctx context.Context, record model.TrainingRecord) error {
		if err := s.validator.ValidateRecord(record); err != nil {
			return err
		}

		var recordErr error
		n, err := s.extractor.ForEach(record.Text, func(fp model.Fingerprint) {
			if recordErr != nil {
				return
			}
			recordErr = store.RecordOccurrence(fp, record.Language)
		})
		if err != nil {
			return err
		}
		if recordErr != nil {
			return recordErr
		}

		if s.metrics != nil {
			s.metrics.RecordKmers(n)
		}
		return nil
	}
}

func (s *TrainingService) recordRun(err error, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	switch {
	case err == nil:
	case errors.GetCode(err) == errors.ErrCodeCanceled:
		outcome = "canceled"
	default:
		outcome = "failed"
	}
	s.metrics.RecordTrainingRun(outcome, duration)
}
