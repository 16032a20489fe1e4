package service

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/devrev/langdetect/internal/corpus"
	"github.com/devrev/langdetect/internal/errors"
	"github.com/devrev/langdetect/internal/health"
	"github.com/devrev/langdetect/internal/metrics"
	"github.com/devrev/langdetect/internal/model"
	"github.com/devrev/langdetect/internal/pipeline"
)

// LanguageInfo describes one trained language
type LanguageInfo struct {
	Language       model.Language `json:"language"`
	ProfileEntries int            `json:"profile_entries"`
}

// DetectorService publishes trained profile stores and answers queries
// against the most recently published one.
//
// Training runs are serialized. Each run builds a fresh store; queries keep
// using the previous store until the new one is sealed and swapped in.
type DetectorService struct {
	training *TrainingService
	query    *QueryService
	health   *health.HealthChecker
	metrics  *metrics.Metrics
	logger   *zap.Logger

	trainMu sync.Mutex
	store   atomic.Pointer[ProfileStore]
	report  atomic.Pointer[TrainingReport]
}

// NewDetectorService creates a new detector service. metrics may be nil.
func NewDetectorService(
	training *TrainingService,
	query *QueryService,
	healthChecker *health.HealthChecker,
	m *metrics.Metrics,
	logger *zap.Logger,
) *DetectorService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DetectorService{
		training: training,
		query:    query,
		health:   healthChecker,
		metrics:  m,
		logger:   logger,
	}
}

// Train runs one training pass over src and publishes the result
func (d *DetectorService) Train(ctx context.Context, src pipeline.LineSource) (*TrainingReport, error) {
	d.trainMu.Lock()
	defer d.trainMu.Unlock()

	d.setStatus(model.DetectorStatusTraining)

	store, report, err := d.training.Train(ctx, src)
	if err != nil {
		// A failed run leaves any previously published store in service
		if d.store.Load() != nil {
			d.setStatus(model.DetectorStatusReady)
		} else {
			d.setStatus(model.DetectorStatusFailed)
		}
		return report, err
	}

	d.publish(store, report)
	return report, nil
}

// TrainFile trains from a corpus file
func (d *DetectorService) TrainFile(ctx context.Context, path string) (*TrainingReport, error) {
	f, err := corpus.Open(path)
	if err != nil {
		d.logger.Error("Corpus unreadable", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	defer f.Close()

	d.logger.Info("Training from corpus file", zap.String("path", path))
	src := corpus.NewScanner(f)
	report, err := d.Train(ctx, src)
	if n := src.Dropped(); n > 0 {
		d.logger.Warn("Overlong corpus lines skipped",
			zap.String("path", path),
			zap.Int("lines", n),
			zap.Int("max_line_bytes", corpus.MaxLineBytes))
	}
	return report, err
}

func (d *DetectorService) publish(store *ProfileStore, report *TrainingReport) {
	d.store.Store(store)
	d.report.Store(report)

	if d.metrics != nil {
		sizes := make(map[string]int)
		for _, lang := range store.Languages() {
			if n, err := store.ProfileSize(lang); err == nil {
				sizes[lang.String()] = n
			}
		}
		d.metrics.UpdateProfiles(sizes)
	}
	if d.health != nil {
		d.health.SetTraining(report.Snapshot())
	}
	d.setStatus(model.DetectorStatusReady)

	d.logger.Info("Profile store published",
		zap.String("run_id", report.RunID),
		zap.Int("languages", report.Languages))
}

func (d *DetectorService) setStatus(status model.DetectorStatus) {
	if d.health != nil {
		d.health.SetStatus(status)
	}
}

// Identify returns the language closest to text
func (d *DetectorService) Identify(ctx context.Context, text string) (model.Language, error) {
	return d.query.Identify(ctx, d.store.Load(), text)
}

// IdentifyAll returns every language ranked by distance from text
func (d *DetectorService) IdentifyAll(ctx context.Context, text string) ([]model.LanguageDistance, error) {
	return d.query.IdentifyAll(ctx, d.store.Load(), text)
}

// Languages lists the trained languages of the published store
func (d *DetectorService) Languages() ([]LanguageInfo, error) {
	store := d.store.Load()
	if store == nil {
		return nil, errors.NoTrainedLanguages()
	}

	langs := store.Languages()
	infos := make([]LanguageInfo, 0, len(langs))
	for _, lang := range langs {
		n, err := store.ProfileSize(lang)
		if err != nil {
			return nil, err
		}
		infos = append(infos, LanguageInfo{Language: lang, ProfileEntries: n})
	}
	return infos, nil
}

// LastReport returns the report of the published training run
func (d *DetectorService) LastReport() (*TrainingReport, bool) {
	report := d.report.Load()
	return report, report != nil
}

// Ready reports whether a trained store has been published
func (d *DetectorService) Ready() bool {
	return d.store.Load() != nil
}
