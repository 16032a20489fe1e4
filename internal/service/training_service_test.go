package service

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devrev/langdetect/internal/config"
	"github.com/devrev/langdetect/internal/corpus"
	"github.com/devrev/langdetect/internal/errors"
	"github.com/devrev/langdetect/internal/kmer"
	"github.com/devrev/langdetect/internal/metrics"
	"github.com/devrev/langdetect/internal/model"
	"github.com/devrev/langdetect/internal/validation"
)

func testConfig(mutate func(*config.Config)) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Detector.KmerSize = 3
	cfg.Detector.MaxProfileEntries = 10
	cfg.Detector.Shards = 4
	cfg.Pipeline.Workers = 3
	cfg.Pipeline.QueueCapacity = 2
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

func newTestTrainingService(t *testing.T, cfg *config.Config, m *metrics.Metrics) *TrainingService {
	t.Helper()

	extractor, err := kmer.NewExtractor(kmer.Config{MaxLength: cfg.Detector.KmerSize})
	require.NoError(t, err)

	validator := validation.NewValidatorWithConfig(validation.Config{
		AllowedLanguages: cfg.Detector.AllowedLanguages,
	})

	return NewTrainingService(&TrainingConfig{
		MaxProfileEntries: cfg.Detector.MaxProfileEntries,
		Workers:           cfg.Pipeline.Workers,
		QueueCapacity:     cfg.Pipeline.QueueCapacity,
		Delimiter:         cfg.Pipeline.Delimiter,
		Shards:            cfg.Detector.Shards,
	}, extractor, validator, m, zap.NewNop())
}

func scanner(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\n"))
}

func TestTrainingService_Train(t *testing.T) {
	svc := newTestTrainingService(t, testConfig(nil), nil)

	store, report, err := svc.Train(context.Background(),
		corpus.NewScanner(scanner("abcabc@English", "xyzxyz@French")))
	require.NoError(t, err)
	require.NotNil(t, store)

	assert.True(t, store.Sealed())
	assert.Equal(t, []model.Language{"English", "French"}, store.Languages())
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, uint64(2), report.LinesRead)
	assert.Equal(t, uint64(2), report.RecordsProcessed)
	assert.Equal(t, 2, report.Languages)
	// 5 bigrams and 4 trigrams per six-rune line
	assert.Equal(t, uint64(18), report.KmersRecorded)

	p, err := store.RankAndTruncate("English", 10)
	require.NoError(t, err)
	assert.Equal(t, 6, p.Len())

	top := p.Records()[:2]
	for _, rec := range top {
		assert.Equal(t, int64(2), rec.Frequency)
	}
	ab, ok := p.Get(kmer.Fingerprint("ab"))
	require.True(t, ok)
	assert.Equal(t, int64(2), ab.Frequency)
	abc, ok := p.Get(kmer.Fingerprint("abc"))
	require.True(t, ok)
	assert.Equal(t, int64(2), abc.Frequency)
	ca, ok := p.Get(kmer.Fingerprint("ca"))
	require.True(t, ok)
	assert.Equal(t, int64(1), ca.Frequency)
}

func TestTrainingService_MalformedLinesSkipped(t *testing.T) {
	svc := newTestTrainingService(t, testConfig(nil), nil)

	store, report, err := svc.Train(context.Background(), corpus.NewScanner(scanner(
		"no-delimiter-here",
		"",
		"abcabc@English",
		"too@many@fields",
		"@",
	)))
	require.NoError(t, err)

	assert.Equal(t, []model.Language{"English"}, store.Languages())
	assert.Equal(t, uint64(1), report.RecordsProcessed)
	assert.Equal(t, uint64(4), report.LinesSkipped)
}

func TestTrainingService_OverlongLineSkipped(t *testing.T) {
	svc := newTestTrainingService(t, testConfig(nil), nil)

	src := corpus.NewScannerSize(scanner(
		"abcabc@English",
		strings.Repeat("x", 40)+"@English",
		"xyzxyz@French",
	), 32)
	store, report, err := svc.Train(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, []model.Language{"English", "French"}, store.Languages())
	assert.Equal(t, uint64(3), report.LinesRead)
	assert.Equal(t, uint64(1), report.LinesSkipped)
	assert.Equal(t, uint64(2), report.RecordsProcessed)
	assert.Equal(t, 1, src.Dropped())
}

func TestTrainingService_SameLanguageAccumulates(t *testing.T) {
	svc := newTestTrainingService(t, testConfig(nil), nil)

	lines := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		lines = append(lines, "abab@English")
	}
	store, report, err := svc.Train(context.Background(), corpus.NewScanner(scanner(lines...)))
	require.NoError(t, err)
	assert.Equal(t, uint64(50), report.RecordsProcessed)

	p, err := store.RankAndTruncate("English", 10)
	require.NoError(t, err)
	ab, ok := p.Get(kmer.Fingerprint("ab"))
	require.True(t, ok)
	assert.Equal(t, int64(100), ab.Frequency)
	assert.Equal(t, 1, ab.Rank)
}

func TestTrainingService_ClosedLanguageSet(t *testing.T) {
	cfg := testConfig(func(c *config.Config) {
		c.Detector.AllowedLanguages = []string{"English"}
	})
	svc := newTestTrainingService(t, cfg, nil)

	store, report, err := svc.Train(context.Background(),
		corpus.NewScanner(scanner("abcabc@English", "xyzxyz@Klingon")))
	require.NoError(t, err)

	assert.Equal(t, []model.Language{"English"}, store.Languages())
	assert.Equal(t, uint64(1), report.RecordsProcessed)
	assert.Equal(t, uint64(1), report.RecordsFailed)
}

func TestTrainingService_Canceled(t *testing.T) {
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	svc := newTestTrainingService(t, testConfig(nil), m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store, report, err := svc.Train(ctx, corpus.NewScanner(scanner("abcabc@English")))
	require.Error(t, err)
	assert.Nil(t, store)
	require.NotNil(t, report)
	assert.Equal(t, errors.ErrCodeCanceled, errors.GetCode(err))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.TrainingRunsTotal.WithLabelValues("canceled")))
}

func TestTrainingService_EmptyCorpus(t *testing.T) {
	svc := newTestTrainingService(t, testConfig(nil), nil)

	store, report, err := svc.Train(context.Background(), corpus.NewScanner(strings.NewReader("")))
	require.NoError(t, err)
	assert.True(t, store.Sealed())
	assert.Empty(t, store.Languages())
	assert.Equal(t, 0, report.Languages)
}
