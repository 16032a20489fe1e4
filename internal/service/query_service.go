package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/devrev/langdetect/internal/config"
	"github.com/devrev/langdetect/internal/errors"
	"github.com/devrev/langdetect/internal/kmer"
	"github.com/devrev/langdetect/internal/metrics"
	"github.com/devrev/langdetect/internal/model"
	"github.com/devrev/langdetect/internal/storage/profile"
	"github.com/devrev/langdetect/internal/validation"
)

// QueryConfig holds query classification configuration
type QueryConfig struct {
	MaxProfileEntries int
	// Counting is config.CountingPerKmer or config.CountingRunningTotal
	Counting string
}

// QueryService ranks unlabeled text against a sealed profile store
type QueryService struct {
	config    *QueryConfig
	extractor *kmer.Extractor
	validator *validation.Validator
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewQueryService creates a new query service. metrics may be nil.
func NewQueryService(
	cfg *QueryConfig,
	extractor *kmer.Extractor,
	validator *validation.Validator,
	m *metrics.Metrics,
	logger *zap.Logger,
) *QueryService {
	if cfg.MaxProfileEntries <= 0 {
		cfg.MaxProfileEntries = 300
	}
	if cfg.Counting == "" {
		cfg.Counting = config.CountingPerKmer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QueryService{
		config:    cfg,
		extractor: extractor,
		validator: validator,
		metrics:   m,
		logger:    logger,
	}
}

// BuildQueryProfile extracts kmers from text with the training window rule,
// counts them in a private table and ranks the result to maxEntries.
//
// Ill-formed UTF-8 is replaced with U+FFFD rather than rejected, so a few
// bad bytes only affect the kmers that span them.
//
// In running_total mode a single accumulator is carried across the scan: a
// repeated kmer adds its stored count to the accumulator and every kmer is
// stored with the accumulator's current value.
func (s *QueryService) BuildQueryProfile(text string, maxEntries int) (profile.Profile, error) {
	counts := make(map[model.Fingerprint]int64)

	var add func(model.Fingerprint)
	if s.config.Counting == config.CountingRunningTotal {
		running := int64(1)
		add = func(fp model.Fingerprint) {
			if n, ok := counts[fp]; ok {
				running += n
			}
			counts[fp] = running
		}
	} else {
		add = func(fp model.Fingerprint) {
			counts[fp]++
		}
	}

	if _, err := s.extractor.ForEach(kmer.ReplaceInvalid(text), add); err != nil {
		return profile.Profile{}, err
	}
	return profile.FromCounts(counts, maxEntries), nil
}

// Identify returns the language of store closest to text
func (s *QueryService) Identify(ctx context.Context, store *ProfileStore, text string) (model.Language, error) {
	ranking, err := s.IdentifyAll(ctx, store, text)
	if err != nil {
		return "", err
	}
	return ranking[0].Language, nil
}

// IdentifyAll returns the distance of text from every language, closest first
func (s *QueryService) IdentifyAll(ctx context.Context, store *ProfileStore, text string) ([]model.LanguageDistance, error) {
	start := time.Now()

	ranking, entries, err := s.rank(ctx, store, text)
	if err != nil {
		s.recordError(err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordClassification(ranking[0].Language.String(), entries, time.Since(start))
	}
	s.logger.Debug("Query classified",
		zap.String("language", ranking[0].Language.String()),
		zap.Int64("distance", ranking[0].Distance),
		zap.Int("query_entries", entries),
		zap.Duration("duration", time.Since(start)))

	return ranking, nil
}

func (s *QueryService) rank(ctx context.Context, store *ProfileStore, text string) ([]model.LanguageDistance, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, errors.QueryCanceled(err)
	}
	if store == nil {
		return nil, 0, errors.NoTrainedLanguages()
	}
	if !store.Sealed() {
		return nil, 0, errors.TrainingIncomplete()
	}
	if err := s.validator.ValidateQuery(text); err != nil {
		return nil, 0, err
	}

	query, err := s.BuildQueryProfile(text, s.config.MaxProfileEntries)
	if err != nil {
		return nil, 0, err
	}

	ranking, err := store.Rank(query)
	if err != nil {
		return nil, 0, err
	}
	return ranking, query.Len(), nil
}

func (s *QueryService) recordError(err error) {
	if s.metrics != nil {
		s.metrics.RecordClassificationError(errors.GetCode(err).String())
	}
	s.logger.Debug("Query failed", zap.Error(err))
}
