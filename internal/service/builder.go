package service

import (
	"go.uber.org/zap"

	"github.com/devrev/langdetect/internal/config"
	"github.com/devrev/langdetect/internal/health"
	"github.com/devrev/langdetect/internal/kmer"
	"github.com/devrev/langdetect/internal/metrics"
	"github.com/devrev/langdetect/internal/validation"
)

// NewDetector wires the extractor, validator, training and query services
// described by cfg into a DetectorService. m and healthChecker may be nil.
func NewDetector(
	cfg *config.Config,
	m *metrics.Metrics,
	healthChecker *health.HealthChecker,
	logger *zap.Logger,
) (*DetectorService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	extractor, err := kmer.NewExtractor(kmer.Config{
		MaxLength:     cfg.Detector.KmerSize,
		Unit:          kmer.Unit(cfg.Detector.TextUnit),
		Normalization: kmer.Normalization(cfg.Detector.Normalization),
		CaseFold:      cfg.Detector.CaseFold,
	})
	if err != nil {
		return nil, err
	}

	validator := validation.NewValidatorWithConfig(validation.Config{
		MaxQuerySize:     cfg.Detector.MaxQueryBytes,
		Delimiter:        cfg.Pipeline.Delimiter,
		AllowedLanguages: cfg.Detector.AllowedLanguages,
	})

	training := NewTrainingService(&TrainingConfig{
		MaxProfileEntries: cfg.Detector.MaxProfileEntries,
		Workers:           cfg.Pipeline.Workers,
		QueueCapacity:     cfg.Pipeline.QueueCapacity,
		Delimiter:         cfg.Pipeline.Delimiter,
		Shards:            cfg.Detector.Shards,
	}, extractor, validator, m, logger.Named("training"))

	query := NewQueryService(&QueryConfig{
		MaxProfileEntries: cfg.Detector.MaxProfileEntries,
		Counting:          cfg.Detector.QueryCounting,
	}, extractor, validator, m, logger.Named("query"))

	logger.Info("Detector configured",
		zap.Int("kmer_size", extractor.MaxLength()),
		zap.Int("max_profile_entries", cfg.Detector.MaxProfileEntries),
		zap.String("query_counting", cfg.Detector.QueryCounting),
		zap.Bool("closed_language_set", validator.Closed()))

	return NewDetectorService(training, query, healthChecker, m, logger), nil
}
