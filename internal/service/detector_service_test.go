package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/devrev/langdetect/internal/config"
	"github.com/devrev/langdetect/internal/corpus"
	"github.com/devrev/langdetect/internal/errors"
	"github.com/devrev/langdetect/internal/health"
	"github.com/devrev/langdetect/internal/metrics"
	"github.com/devrev/langdetect/internal/model"
)

func newTestDetector(t *testing.T, mutate func(*config.Config)) (*DetectorService, *health.HealthChecker, *metrics.Metrics) {
	t.Helper()

	cfg := testConfig(mutate)
	hc := health.NewHealthChecker(&health.HealthCheckConfig{InstanceID: "test"}, zap.NewNop())
	m := metrics.NewMetrics("test", prometheus.NewRegistry())

	d, err := NewDetector(cfg, m, hc, zap.NewNop())
	require.NoError(t, err)
	return d, hc, m
}

func TestDetectorService_TrainAndIdentify(t *testing.T) {
	d, hc, m := newTestDetector(t, nil)
	ctx := context.Background()

	assert.False(t, d.Ready())
	_, err := d.Identify(ctx, "abcabc")
	assert.True(t, errors.IsNoTrainedLanguages(err))
	_, err = d.Languages()
	assert.True(t, errors.IsNoTrainedLanguages(err))

	report, err := d.Train(ctx, corpus.NewScanner(scanner("abcabc@English", "xyzxyz@French")))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Languages)

	assert.True(t, d.Ready())
	assert.Equal(t, model.DetectorStatusReady, hc.GetStatus().Status)
	assert.Equal(t, report.RunID, hc.GetStatus().Training.RunID)

	lang, err := d.Identify(ctx, "abcabc")
	require.NoError(t, err)
	assert.Equal(t, model.Language("English"), lang)

	lang, err = d.Identify(ctx, "yzxyzx")
	require.NoError(t, err)
	assert.Equal(t, model.Language("French"), lang)

	infos, err := d.Languages()
	require.NoError(t, err)
	assert.Equal(t, []LanguageInfo{
		{Language: "English", ProfileEntries: 6},
		{Language: "French", ProfileEntries: 6},
	}, infos)

	last, ok := d.LastReport()
	require.True(t, ok)
	assert.Equal(t, report.RunID, last.RunID)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.LanguagesTrained))
	assert.Equal(t, float64(6), testutil.ToFloat64(m.ProfileEntriesByLanguage.WithLabelValues("French")))
}

func TestDetectorService_FailedRunKeepsPreviousStore(t *testing.T) {
	d, hc, _ := newTestDetector(t, nil)

	first, err := d.Train(context.Background(), corpus.NewScanner(scanner("abcabc@English")))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Train(ctx, corpus.NewScanner(scanner("xyzxyz@French")))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCanceled, errors.GetCode(err))

	assert.Equal(t, model.DetectorStatusReady, hc.GetStatus().Status)
	last, ok := d.LastReport()
	require.True(t, ok)
	assert.Equal(t, first.RunID, last.RunID)

	lang, err := d.Identify(context.Background(), "xyzxyz")
	require.NoError(t, err)
	assert.Equal(t, model.Language("English"), lang)
}

func TestDetectorService_FailedFirstRun(t *testing.T) {
	d, hc, _ := newTestDetector(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Train(ctx, corpus.NewScanner(scanner("abcabc@English")))
	require.Error(t, err)

	assert.False(t, d.Ready())
	assert.Equal(t, model.DetectorStatusFailed, hc.GetStatus().Status)
}

func TestDetectorService_RetrainReplacesStore(t *testing.T) {
	d, _, _ := newTestDetector(t, nil)
	ctx := context.Background()

	_, err := d.Train(ctx, corpus.NewScanner(scanner("abcabc@English")))
	require.NoError(t, err)
	_, err = d.Train(ctx, corpus.NewScanner(scanner("xyzxyz@French")))
	require.NoError(t, err)

	infos, err := d.Languages()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, model.Language("French"), infos[0].Language)
}

func TestDetectorService_TrainFile(t *testing.T) {
	d, _, _ := newTestDetector(t, func(c *config.Config) {
		c.Detector.KmerSize = 4
		c.Detector.MaxProfileEntries = 300
	})

	path := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte(
		"the quick brown fox jumps over the lazy dog@English\n"+
			"der schnelle braune fuchs springt über den faulen hund@German\n"+
			"le renard brun rapide saute par dessus le chien paresseux@French\n"), 0o644))

	report, err := d.TrainFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Languages)

	lang, err := d.Identify(context.Background(), "the lazy dog jumps")
	require.NoError(t, err)
	assert.Equal(t, model.Language("English"), lang)

	_, err = d.TrainFile(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.Equal(t, errors.ErrCodeCorpusUnreadable, errors.GetCode(err))
}

func TestDetectorService_TrainFileOverlongLine(t *testing.T) {
	d, _, _ := newTestDetector(t, nil)

	path := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte(
		"abcabc@English\n"+
			"xyzxyz@French\n"+
			strings.Repeat("q", corpus.MaxLineBytes+1)+"\n"+
			"defdef@German\n"), 0o644))

	report, err := d.TrainFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, d.Ready())
	assert.Equal(t, 3, report.Languages)
	assert.Equal(t, uint64(3), report.RecordsProcessed)
	assert.Equal(t, uint64(1), report.LinesSkipped)

	lang, err := d.Identify(context.Background(), "defdef")
	require.NoError(t, err)
	assert.Equal(t, model.Language("German"), lang)
}

func TestNewDetector_LogsConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		closed  bool
	}{
		{name: "permissive labels", allowed: nil, closed: false},
		{name: "closed language set", allowed: []string{"English", "French"}, closed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			cfg := testConfig(func(c *config.Config) {
				c.Detector.AllowedLanguages = tt.allowed
			})

			_, err := NewDetector(cfg, nil, nil, zap.New(core))
			require.NoError(t, err)

			entries := logs.FilterMessage("Detector configured").All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.closed, entries[0].ContextMap()["closed_language_set"])
			assert.Equal(t, int64(3), entries[0].ContextMap()["kmer_size"])
		})
	}
}

func TestNewDetector_InvalidExtractorConfig(t *testing.T) {
	cfg := testConfig(func(c *config.Config) {
		c.Detector.KmerSize = 1
	})
	_, err := NewDetector(cfg, nil, nil, nil)
	assert.Error(t, err)
}
