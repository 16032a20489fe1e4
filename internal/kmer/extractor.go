// Package kmer slices text into overlapping character n-grams and
// fingerprints them.
//
// Every start offset and every length in [MinLength, MaxLength] produces one
// occurrence, so repeated n-grams are reported once per position. Kmers are
// identified by the 64-bit xxHash of their UTF-8 bytes; collisions are not
// detected and colliding n-grams are counted as one kmer.
package kmer

import (
	"fmt"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/clipperhouse/uax29/v2/graphemes"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/devrev/langdetect/internal/errors"
	"github.com/devrev/langdetect/internal/model"
)

// MinLength is the shortest kmer extracted
const MinLength = 2

// DefaultMaxLength is the longest kmer extracted when none is configured
const DefaultMaxLength = 4

// Unit selects what counts as one character in a kmer window
type Unit string

const (
	UnitRune     Unit = "rune"
	UnitGrapheme Unit = "grapheme"
)

// Normalization selects the Unicode normalization applied before slicing
type Normalization string

const (
	NormalizationNone Normalization = "none"
	NormalizationNFC  Normalization = "nfc"
	NormalizationNFKC Normalization = "nfkc"
)

// Config holds extractor configuration
type Config struct {
	MaxLength     int
	Unit          Unit
	Normalization Normalization
	CaseFold      bool
}

// Extractor produces kmer fingerprints from text. It holds no mutable state
// and is safe for concurrent use.
type Extractor struct {
	maxLength     int
	unit          Unit
	normalization Normalization
	caseFold      bool
}

// NewExtractor creates a new extractor
func NewExtractor(cfg Config) (*Extractor, error) {
	if cfg.MaxLength == 0 {
		cfg.MaxLength = DefaultMaxLength
	}
	if cfg.Unit == "" {
		cfg.Unit = UnitRune
	}
	if cfg.Normalization == "" {
		cfg.Normalization = NormalizationNone
	}

	if cfg.MaxLength < MinLength {
		return nil, errors.InvalidArgument(fmt.Sprintf("kmer max length %d is below minimum %d", cfg.MaxLength, MinLength), nil)
	}
	switch cfg.Unit {
	case UnitRune, UnitGrapheme:
	default:
		return nil, errors.InvalidArgument(fmt.Sprintf("unknown kmer unit %q", cfg.Unit), nil)
	}
	switch cfg.Normalization {
	case NormalizationNone, NormalizationNFC, NormalizationNFKC:
	default:
		return nil, errors.InvalidArgument(fmt.Sprintf("unknown normalization %q", cfg.Normalization), nil)
	}

	return &Extractor{
		maxLength:     cfg.MaxLength,
		unit:          cfg.Unit,
		normalization: cfg.Normalization,
		caseFold:      cfg.CaseFold,
	}, nil
}

// MaxLength returns K, the longest kmer length extracted
func (e *Extractor) MaxLength() int {
	return e.maxLength
}

// Fingerprint hashes a kmer's text
func Fingerprint(s string) model.Fingerprint {
	return model.Fingerprint(xxhash.Sum64String(s))
}

// ReplaceInvalid substitutes U+FFFD for every ill-formed UTF-8 sequence in
// text. Valid text is returned unchanged.
func ReplaceInvalid(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	// ReplaceIllFormed never reports an error
	out, _, _ := transform.String(runes.ReplaceIllFormed(), text)
	return out
}

// Prepare applies the configured normalization and case folding
func (e *Extractor) Prepare(text string) string {
	switch e.normalization {
	case NormalizationNFC:
		text = norm.NFC.String(text)
	case NormalizationNFKC:
		text = norm.NFKC.String(text)
	}
	if e.caseFold {
		text = cases.Fold().String(text)
	}
	return text
}

// ForEach calls fn once per kmer occurrence in text, lengths ascending and
// offsets ascending within a length. It returns the number of occurrences.
func (e *Extractor) ForEach(text string, fn func(model.Fingerprint)) (int, error) {
	if !utf8.ValidString(text) {
		return 0, errors.InvalidArgument("text is not valid UTF-8", nil)
	}

	text = e.Prepare(text)
	bounds := e.boundaries(text)
	units := len(bounds) - 1

	count := 0
	for size := MinLength; size <= e.maxLength; size++ {
		for start := 0; start+size <= units; start++ {
			fn(Fingerprint(text[bounds[start]:bounds[start+size]]))
			count++
		}
	}
	return count, nil
}

// units returns the number of text units after preparation
func (e *Extractor) units(text string) int {
	return len(e.boundaries(e.Prepare(text))) - 1
}

// boundaries returns the byte offset of every unit start plus len(text)
func (e *Extractor) boundaries(text string) []int {
	bounds := make([]int, 0, len(text)+1)

	if e.unit == UnitGrapheme {
		offset := 0
		bounds = append(bounds, offset)
		seg := graphemes.FromString(text)
		for seg.Next() {
			offset += len(seg.Value())
			bounds = append(bounds, offset)
		}
		return bounds
	}

	for i := range text {
		bounds = append(bounds, i)
	}
	return append(bounds, len(text))
}

// ExpectedOccurrences returns how many kmers a text of the given unit length
// yields for lengths MinLength..maxLength.
func ExpectedOccurrences(units, maxLength int) int {
	total := 0
	for size := MinLength; size <= maxLength; size++ {
		if n := units - size + 1; n > 0 {
			total += n
		}
	}
	return total
}
