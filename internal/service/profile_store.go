package service

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/devrev/langdetect/internal/errors"
	"github.com/devrev/langdetect/internal/model"
	"github.com/devrev/langdetect/internal/storage/counttable"
	"github.com/devrev/langdetect/internal/storage/profile"
	"go.uber.org/zap"
)

// ProfileStore holds per-language kmer tables while training and ranked
// profiles once sealed.
//
// During training every language owns a sharded counttable.Table, so
// concurrent RecordOccurrence calls only contend on a shard lock. The language
// index itself is guarded by mu; writers hold the read lock for the duration
// of an increment and take the write lock only to add a language. TruncateAll
// takes the write lock, which makes it wait for in-flight increments, ranks
// every table and seals the store. After sealing the store is read-only.
type ProfileStore struct {
	config   *ProfileStoreConfig
	mu       sync.RWMutex
	tables   map[model.Language]*counttable.Table
	profiles map[model.Language]profile.Profile
	sealed   bool
	recorded atomic.Uint64
	logger   *zap.Logger
}

// ProfileStoreConfig holds profile store configuration
type ProfileStoreConfig struct {
	// Shards per language table, rounded up to a power of two
	Shards int
}

// NewProfileStore creates an empty, unsealed store
func NewProfileStore(cfg *ProfileStoreConfig, logger *zap.Logger) *ProfileStore {
	if cfg == nil {
		cfg = &ProfileStoreConfig{}
	}
	if cfg.Shards <= 0 {
		cfg.Shards = counttable.DefaultShards
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ProfileStore{
		config: cfg,
		tables: make(map[model.Language]*counttable.Table),
		logger: logger,
	}
}

// RecordOccurrence counts one occurrence of kmer for language, creating the
// language table and the kmer record as needed.
func (s *ProfileStore) RecordOccurrence(kmer model.Fingerprint, language model.Language) error {
	s.mu.RLock()
	if s.sealed {
		s.mu.RUnlock()
		return errors.TrainingComplete()
	}
	if table, ok := s.tables[language]; ok {
		table.Increment(kmer)
		s.mu.RUnlock()
		s.recorded.Add(1)
		return nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return errors.TrainingComplete()
	}
	table, ok := s.tables[language]
	if !ok {
		table = counttable.New(s.config.Shards)
		s.tables[language] = table
		s.logger.Debug("Language added", zap.String("language", language.String()))
	}
	table.Increment(kmer)
	s.recorded.Add(1)
	return nil
}

// TruncateAll replaces every language table with its ranked top maxEntries
// profile and seals the store. Calling it again re-ranks the sealed profiles,
// which leaves them unchanged for the same maxEntries.
func (s *ProfileStore) TruncateAll(maxEntries int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		for lang, p := range s.profiles {
			s.profiles[lang] = profile.Rerank(p, maxEntries)
		}
		return
	}

	s.profiles = make(map[model.Language]profile.Profile, len(s.tables))
	for lang, table := range s.tables {
		s.profiles[lang] = profile.RankAndTruncate(table.Records(), maxEntries)
	}
	s.tables = nil
	s.sealed = true

	s.logger.Info("Profiles truncated",
		zap.Int("languages", len(s.profiles)),
		zap.Int("max_entries", maxEntries))
}

// RankAndTruncate returns the ranked top maxEntries profile of one language
// without modifying the store.
func (s *ProfileStore) RankAndTruncate(language model.Language, maxEntries int) (profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sealed {
		p, ok := s.profiles[language]
		if !ok {
			return profile.Profile{}, errors.LanguageNotFound(language.String())
		}
		return profile.Rerank(p, maxEntries), nil
	}

	table, ok := s.tables[language]
	if !ok {
		return profile.Profile{}, errors.LanguageNotFound(language.String())
	}
	return profile.RankAndTruncate(table.Records(), maxEntries), nil
}

// DistanceTo returns the out-of-place distance of query from the sealed
// profile of language.
func (s *ProfileStore) DistanceTo(query profile.Profile, language model.Language) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.sealed {
		if _, ok := s.tables[language]; !ok {
			return 0, errors.LanguageNotFound(language.String())
		}
		return 0, errors.TrainingIncomplete()
	}

	subject, ok := s.profiles[language]
	if !ok {
		return 0, errors.LanguageNotFound(language.String())
	}
	return profile.Distance(query, subject), nil
}

// Rank returns the distance of query from every language, closest first.
// Equal distances are ordered by language name.
func (s *ProfileStore) Rank(query profile.Profile) ([]model.LanguageDistance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.tables) == 0 && len(s.profiles) == 0 {
		return nil, errors.NoTrainedLanguages()
	}
	if !s.sealed {
		return nil, errors.TrainingIncomplete()
	}

	ranking := make([]model.LanguageDistance, 0, len(s.profiles))
	for lang, subject := range s.profiles {
		ranking = append(ranking, model.LanguageDistance{
			Language: lang,
			Distance: profile.Distance(query, subject),
		})
	}
	slices.SortFunc(ranking, model.CompareLanguageDistances)
	return ranking, nil
}

// Classify returns the language closest to query
func (s *ProfileStore) Classify(query profile.Profile) (model.Language, error) {
	ranking, err := s.Rank(query)
	if err != nil {
		return "", err
	}
	return ranking[0].Language, nil
}

// Languages returns every known language in ascending order
func (s *ProfileStore) Languages() []model.Language {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var langs []model.Language
	if s.sealed {
		langs = make([]model.Language, 0, len(s.profiles))
		for lang := range s.profiles {
			langs = append(langs, lang)
		}
	} else {
		langs = make([]model.Language, 0, len(s.tables))
		for lang := range s.tables {
			langs = append(langs, lang)
		}
	}
	slices.Sort(langs)
	return langs
}

// ProfileSize returns the number of distinct kmers held for language
func (s *ProfileStore) ProfileSize(language model.Language) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sealed {
		if p, ok := s.profiles[language]; ok {
			return p.Len(), nil
		}
	} else if table, ok := s.tables[language]; ok {
		return table.Len(), nil
	}
	return 0, errors.LanguageNotFound(language.String())
}

// Sealed reports whether TruncateAll has run
func (s *ProfileStore) Sealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

// Recorded returns the number of kmer occurrences counted
func (s *ProfileStore) Recorded() uint64 {
	return s.recorded.Load()
}
