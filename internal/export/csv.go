// Package export writes flat records as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/JonMunkholm/vcf2csv/internal/core"
)

// CSVWriter writes a fixed column selection of flat records.
type CSVWriter struct {
	w      *csv.Writer
	fields []core.Field
}

// NewCSVWriter returns a writer for the given column selection.
func NewCSVWriter(w io.Writer, fields []core.Field) *CSVWriter {
	return &CSVWriter{
		w:      csv.NewWriter(w),
		fields: fields,
	}
}

// WriteHeader writes the field identifiers as the header row.
func (cw *CSVWriter) WriteHeader() error {
	if err := cw.w.Write(core.Header(cw.fields)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// Write writes one record restricted to the selected columns.
func (cw *CSVWriter) Write(r *core.FlatRecord) error {
	if err := cw.w.Write(core.Project(r, cw.fields)); err != nil {
		return fmt.Errorf("write %s: %w", r.Name, err)
	}
	return nil
}

// Flush writes buffered rows and reports any write error.
func (cw *CSVWriter) Flush() error {
	cw.w.Flush()
	if err := cw.w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteAll writes the header, every record and flushes. It returns the number
// of data rows written.
func (cw *CSVWriter) WriteAll(records []*core.FlatRecord) (int, error) {
	if err := cw.WriteHeader(); err != nil {
		return 0, err
	}

	written := 0
	for _, r := range records {
		if err := cw.Write(r); err != nil {
			return written, err
		}
		written++
	}

	if err := cw.Flush(); err != nil {
		return written, err
	}
	return written, nil
}
