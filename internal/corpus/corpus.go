// Package corpus parses labeled training lines and opens corpus and query
// files.
package corpus

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/devrev/langdetect/internal/errors"
	"github.com/devrev/langdetect/internal/model"
)

// DefaultDelimiter separates text from label in a corpus line
const DefaultDelimiter = "@"

// MaxLineBytes bounds a single corpus line
const MaxLineBytes = 16 << 20

// ErrReadFailed marks a corpus that opened but failed part way through
var ErrReadFailed = stderrors.New("corpus read failed")

// ParseLine splits a trimmed line into text and label. It reports false for
// blank lines, lines that do not split into exactly two fields, lines with an
// empty label and lines carrying the reserved end-of-stream label.
func ParseLine(line, delimiter string) (model.TrainingRecord, bool) {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return model.TrainingRecord{}, false
	}

	fields := strings.Split(line, delimiter)
	if len(fields) != 2 || fields[1] == "" {
		return model.TrainingRecord{}, false
	}

	lang := model.Language(fields[1])
	if lang == model.EndOfStream {
		return model.TrainingRecord{}, false
	}
	return model.TrainingRecord{Text: fields[0], Language: lang}, true
}

// Scanner reads newline-terminated lines like bufio.Scanner, except that a
// line longer than the limit is discarded instead of ending the scan. A
// discarded line is reported as an empty line, which ParseLine skips.
type Scanner struct {
	r       *bufio.Reader
	maxLine int
	line    []byte
	err     error
	done    bool
	dropped int
}

// NewScanner returns a scanner that discards lines over MaxLineBytes
func NewScanner(r io.Reader) *Scanner {
	return NewScannerSize(r, MaxLineBytes)
}

// NewScannerSize returns a scanner that discards lines over maxLine bytes,
// not counting the line terminator
func NewScannerSize(r io.Reader, maxLine int) *Scanner {
	if maxLine <= 0 {
		maxLine = MaxLineBytes
	}
	return &Scanner{r: bufio.NewReaderSize(r, 64<<10), maxLine: maxLine}
}

// Scan advances to the next line. It returns false at end of input or on a
// read error.
func (s *Scanner) Scan() bool {
	if s.done {
		return false
	}

	s.line = s.line[:0]
	read := false
	overlong := false
	for {
		chunk, err := s.r.ReadSlice('\n')
		if len(chunk) > 0 {
			read = true
			if !overlong {
				s.line = append(s.line, chunk...)
				// two extra bytes leave room for "\r\n"
				if len(s.line) > s.maxLine+2 {
					overlong = true
					s.line = s.line[:0]
				}
			}
		}

		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF {
			s.done = true
			if !read {
				return false
			}
		} else if err != nil {
			s.done = true
			s.err = err
			return false
		}
		break
	}

	s.line = bytes.TrimSuffix(s.line, []byte("\n"))
	s.line = bytes.TrimSuffix(s.line, []byte("\r"))
	if overlong || len(s.line) > s.maxLine {
		s.dropped++
		s.line = s.line[:0]
	}
	return true
}

// Text returns the current line without its terminator
func (s *Scanner) Text() string {
	return string(s.line)
}

// Err returns the first read error, or nil at a clean end of input
func (s *Scanner) Err() error {
	return s.err
}

// Dropped returns how many overlong lines were discarded so far
func (s *Scanner) Dropped() int {
	return s.dropped
}

// Open opens a corpus file for reading. Missing and empty files are
// reported as CorpusUnreadable.
func Open(path string) (*os.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.CorpusUnreadable(fmt.Sprintf("cannot stat %s", path), err)
	}
	if info.IsDir() {
		return nil, errors.CorpusUnreadable(fmt.Sprintf("%s is a directory", path), nil)
	}
	if info.Size() == 0 {
		return nil, errors.CorpusUnreadable(fmt.Sprintf("%s is empty", path), nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.CorpusUnreadable(fmt.Sprintf("cannot open %s", path), err)
	}
	return f, nil
}

// ReadQuery reads a whole query file. Files larger than maxBytes are
// rejected when maxBytes is positive.
func ReadQuery(path string, maxBytes int64) (string, error) {
	f, err := Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.CorpusUnreadable(fmt.Sprintf("cannot read %s", path), err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", errors.QueryTooLarge(len(data), int(maxBytes))
	}
	return string(data), nil
}
