// Package importer loads companies from ND-JSON dumps.
package importer

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jonathan/prospector/internal/store"
	"github.com/jonathan/prospector/internal/types"
)

// DefaultBatchSize is the number of companies inserted per round trip.
const DefaultBatchSize = 1000

// maxLineBytes bounds a single document.
const maxLineBytes = 4 << 20

// Result summarizes an import.
type Result struct {
	Lines     int // non-blank lines read
	Parsed    int
	Inserted  int // new companies; existing ids are left untouched
	Malformed int
}

// Duplicates is the number of parsed companies whose id already existed.
func (r Result) Duplicates() int {
	return r.Parsed - r.Inserted
}

// Importer streams documents into the company store.
type Importer struct {
	companies store.Companies
	batchSize int
	logger    *zap.SugaredLogger
	progress  func(Result)
}

// Option configures an Importer.
type Option func(*Importer)

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.batchSize = n
		}
	}
}

// WithProgress registers a callback invoked after every flushed batch.
func WithProgress(fn func(Result)) Option {
	return func(im *Importer) { im.progress = fn }
}

// New creates an importer.
func New(companies store.Companies, logger *zap.SugaredLogger, opts ...Option) *Importer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	im := &Importer{companies: companies, batchSize: DefaultBatchSize, logger: logger}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import reads one JSON object per line. Trailing commas are stripped so
// that pretty-printed array dumps with one object per line also load; blank
// lines and bare brackets are ignored, and lines that do not parse are
// counted and skipped.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	batch := make([]types.Company, 0, im.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := im.companies.InsertCompanies(ctx, batch)
		res.Inserted += n
		if err != nil {
			return errors.Wrapf(err, "insert batch ending at line %d", res.Lines)
		}
		batch = batch[:0]
		if im.progress != nil {
			im.progress(res)
		}
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSuffix(strings.TrimSpace(scanner.Text()), ",")
		if line == "" || line == "[" || line == "]" {
			continue
		}
		res.Lines++

		var c types.Company
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			res.Malformed++
			im.logger.Warnw("Skipped malformed line", "line", lineNo, "preview", preview(line), "error", err)
			continue
		}
		if c.ID == "" {
			res.Malformed++
			im.logger.Warnw("Skipped company without id", "line", lineNo, "preview", preview(line))
			continue
		}
		res.Parsed++
		batch = append(batch, c)
		if len(batch) >= im.batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return res, errors.Wrapf(err, "read line %d", lineNo+1)
	}
	if err := flush(); err != nil {
		return res, err
	}
	return res, nil
}

func preview(line string) string {
	if len(line) <= 80 {
		return line
	}
	return line[:80] + "..."
}
