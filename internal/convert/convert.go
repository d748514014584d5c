// Package convert runs one vCard to CSV conversion end to end.
package convert

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/vcf2csv/internal/core"
	"github.com/JonMunkholm/vcf2csv/internal/export"
	"github.com/JonMunkholm/vcf2csv/internal/logging"
	"github.com/JonMunkholm/vcf2csv/internal/vcf"
)

// DefaultSkipCountry is the home country blanked from output unless the
// caller picks another one.
const DefaultSkipCountry = "United States"

// Options controls one conversion.
type Options struct {
	// Fields is the column selection; DefaultFields when empty.
	Fields []core.Field

	// SkipCountry is cleared from records whose country matches it exactly.
	SkipCountry string
}

// Result describes a finished conversion.
type Result struct {
	RunID     uuid.UUID
	Stats     core.Stats
	Rows      int
	BytesRead int64
	Duration  time.Duration

	// Records are the rows written, in output order.
	Records []*core.FlatRecord
}

// Run reads every contact from r and writes the CSV to w.
//
// Input that cannot be read or parsed fails the whole run before anything is
// written. Contacts without an organization are logged and left out.
func Run(ctx context.Context, r io.Reader, w io.Writer, opts Options) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.New()}
	ctx = logging.WithRunID(ctx, res.RunID.String())
	logger := logging.FromContext(ctx)

	fields := opts.Fields
	if len(fields) == 0 {
		fields = core.DefaultFields
	}

	input, counter := core.WrapInput(r)
	records, stats, err := core.ExtractAll(ctx, vcf.Contacts(input))
	res.Stats = stats
	res.BytesRead = counter.BytesRead
	if err != nil {
		return res, fmt.Errorf("extract contacts: %w", err)
	}

	for _, rec := range records {
		core.SuppressCountry(rec, opts.SkipCountry)
	}
	res.Records = records

	rows, err := export.NewCSVWriter(w, fields).WriteAll(records)
	res.Rows = rows
	if err != nil {
		return res, fmt.Errorf("write csv: %w", err)
	}

	res.Duration = time.Since(start)
	logger.Info("conversion complete",
		"contacts", stats.Read,
		"rows", rows,
		"dropped", stats.Dropped,
		"incomplete", stats.Incomplete,
		"bytes", res.BytesRead,
		"duration_ms", res.Duration.Milliseconds(),
	)

	return res, nil
}
