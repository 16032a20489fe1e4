package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/devrev/langdetect/internal/errors"
	"github.com/devrev/langdetect/internal/model"
)

const (
	// MaxLanguageSize bounds a label in bytes. Records with longer labels
	// are rejected and counted as failed.
	MaxLanguageSize = 128
	// MaxQuerySize is the default query limit in bytes
	MaxQuerySize = 1 << 20
)

// Validator validates training labels and query text
type Validator struct {
	maxLanguageSize int
	maxQuerySize    int
	delimiter       string
	allowed         map[model.Language]struct{}
}

// Config holds validator configuration
type Config struct {
	MaxLanguageSize int
	MaxQuerySize    int
	// Delimiter is rejected inside labels
	Delimiter string
	// AllowedLanguages restricts labels to a closed set when non-empty
	AllowedLanguages []string
}

// NewValidator creates a new validator with default limits
func NewValidator() *Validator {
	return NewValidatorWithConfig(Config{})
}

// NewValidatorWithConfig creates a validator with custom limits
func NewValidatorWithConfig(cfg Config) *Validator {
	if cfg.MaxLanguageSize <= 0 {
		cfg.MaxLanguageSize = MaxLanguageSize
	}
	if cfg.MaxQuerySize <= 0 {
		cfg.MaxQuerySize = MaxQuerySize
	}
	if cfg.Delimiter == "" {
		cfg.Delimiter = "@"
	}

	var allowed map[model.Language]struct{}
	if len(cfg.AllowedLanguages) > 0 {
		allowed = make(map[model.Language]struct{}, len(cfg.AllowedLanguages))
		for _, lang := range cfg.AllowedLanguages {
			allowed[model.Language(lang)] = struct{}{}
		}
	}

	return &Validator{
		maxLanguageSize: cfg.MaxLanguageSize,
		maxQuerySize:    cfg.MaxQuerySize,
		delimiter:       cfg.Delimiter,
		allowed:         allowed,
	}
}

// Closed reports whether labels are restricted to a configured set
func (v *Validator) Closed() bool {
	return v.allowed != nil
}

// ValidateLanguage validates a training label
func (v *Validator) ValidateLanguage(lang model.Language) error {
	s := string(lang)

	// Check if empty
	if s == "" {
		return errors.InvalidLanguage(s, "label cannot be empty")
	}

	// Check size
	if len(s) > v.maxLanguageSize {
		return errors.InvalidLanguage(s, fmt.Sprintf("label exceeds maximum size of %d bytes", v.maxLanguageSize))
	}

	if !utf8.ValidString(s) {
		return errors.InvalidLanguage(s, "label is not valid UTF-8")
	}

	// The delimiter would make the label unparseable in a corpus line
	if strings.Contains(s, v.delimiter) {
		return errors.InvalidLanguage(s, fmt.Sprintf("label cannot contain %q", v.delimiter))
	}

	// Check for control characters, which also covers the reserved end-of-stream label
	for _, r := range s {
		if unicode.IsControl(r) {
			return errors.InvalidLanguage(s, "label cannot contain control characters")
		}
	}

	if v.allowed != nil {
		if _, ok := v.allowed[lang]; !ok {
			return errors.InvalidLanguage(s, "label is not in the allowed language set")
		}
	}

	return nil
}

// ValidateRecord validates a training record before its kmers are recorded
func (v *Validator) ValidateRecord(record model.TrainingRecord) error {
	if record.IsSentinel() {
		return errors.InvalidArgument("end-of-stream record is not data", nil)
	}
	if err := v.ValidateLanguage(record.Language); err != nil {
		return err
	}
	if !utf8.ValidString(record.Text) {
		return errors.InvalidArgument("training text is not valid UTF-8", nil).
			WithDetail("language", record.Language.String())
	}
	return nil
}

// ValidateQuery checks the query size. Ill-formed UTF-8 is accepted; the
// query path replaces it before extraction.
func (v *Validator) ValidateQuery(text string) error {
	if len(text) > v.maxQuerySize {
		return errors.QueryTooLarge(len(text), v.maxQuerySize)
	}
	return nil
}
