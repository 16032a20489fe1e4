// Package cli implements the interactive console front end of the detector.
package cli

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/devrev/langdetect/internal/corpus"
	"github.com/devrev/langdetect/internal/errors"
	"github.com/devrev/langdetect/internal/service"
)

// ErrInputClosed is returned when the input ends before the user exits
var ErrInputClosed = stderrors.New("input closed")

const banner = `***************************************************
*                                                 *
*              Text Language Detector             *
*                                                 *
***************************************************`

// MenuConfig holds menu configuration
type MenuConfig struct {
	// MaxQueryBytes bounds the query file size; 0 disables the check
	MaxQueryBytes int64
}

// Menu prompts for a corpus and a query file, trains, and prints the
// detected language until the user exits.
type Menu struct {
	detector *service.DetectorService
	in       *bufio.Scanner
	out      io.Writer
	config   MenuConfig
	logger   *zap.Logger
}

// NewMenu creates a menu reading answers from in and writing prompts to out
func NewMenu(detector *service.DetectorService, in io.Reader, out io.Writer, cfg MenuConfig, logger *zap.Logger) *Menu {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Menu{
		detector: detector,
		in:       bufio.NewScanner(in),
		out:      out,
		config:   cfg,
		logger:   logger,
	}
}

// Run shows the banner and runs rounds until the user chooses to exit
func (m *Menu) Run(ctx context.Context) error {
	fmt.Fprintln(m.out, banner)

	for {
		if err := m.round(ctx); err != nil {
			return err
		}

		choice, err := m.prompt("\nPress 1 to start again or 0 to exit: ")
		if err != nil {
			return err
		}
		if choice != "1" {
			fmt.Fprintln(m.out, "\nThe program has ended.")
			return nil
		}
	}
}

// round trains a fresh store from one corpus and classifies one query
func (m *Menu) round(ctx context.Context) error {
	for {
		path, err := m.prompt("\nEnter corpus file location:")
		if err != nil {
			return err
		}

		fmt.Fprintln(m.out, "\nBuilding subject database...please wait...")
		report, err := m.detector.TrainFile(ctx, path)
		if msg := corpusFailure(err); msg != "" {
			m.logger.Warn("Corpus rejected", zap.String("path", path), zap.Error(err))
			fmt.Fprintln(m.out, msg)
			continue
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(m.out, "Trained %d languages from %d records (%d lines skipped).\n",
			report.Languages, report.RecordsProcessed, report.LinesSkipped)
		break
	}

	var query string
	for {
		path, err := m.prompt("\nEnter query file location:")
		if err != nil {
			return err
		}

		query, err = corpus.ReadQuery(path, m.config.MaxQueryBytes)
		switch errors.GetCode(err) {
		case errors.ErrCodeOK:
		case errors.ErrCodeCorpusUnreadable:
			fmt.Fprintln(m.out, "\nNo Such File")
			continue
		case errors.ErrCodeInvalidArgument:
			fmt.Fprintf(m.out, "\n%v\n", err)
			continue
		default:
			return err
		}
		break
	}

	fmt.Fprintln(m.out, "\nProcessing query...please wait...")
	lang, err := m.detector.Identify(ctx, query)
	switch {
	case err == nil:
		fmt.Fprintf(m.out, "\nThe text appears to be written in %s.\n", lang)
	case errors.IsNoTrainedLanguages(err):
		fmt.Fprintln(m.out, "\nThe corpus did not contain any usable training lines.")
	case errors.GetCode(err) == errors.ErrCodeInvalidArgument:
		fmt.Fprintf(m.out, "\n%v\n", err)
	default:
		return err
	}
	return nil
}

// corpusFailure returns the message shown for a corpus that could not be
// used, or "" when err is not a corpus failure
func corpusFailure(err error) string {
	switch {
	case stderrors.Is(err, corpus.ErrReadFailed):
		return "The corpus could not be read completely. Please try again."
	case errors.GetCode(err) == errors.ErrCodeCorpusUnreadable:
		return "No Such File"
	default:
		return ""
	}
}

// prompt writes msg and returns the next non-blank input line, trimmed
func (m *Menu) prompt(msg string) (string, error) {
	fmt.Fprintln(m.out, msg)
	for m.in.Scan() {
		if line := strings.TrimSpace(m.in.Text()); line != "" {
			return line, nil
		}
	}
	if err := m.in.Err(); err != nil {
		m.logger.Error("Failed to read input", zap.Error(err))
		return "", err
	}
	return "", ErrInputClosed
}
