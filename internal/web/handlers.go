package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/vcf2csv/internal/convert"
	"github.com/JonMunkholm/vcf2csv/internal/core"
	"github.com/JonMunkholm/vcf2csv/internal/logging"
)

// Response headers set on a successful conversion.
const (
	HeaderConversionID   = "X-Conversion-ID"
	HeaderRecordsDropped = "X-Records-Dropped"
	HeaderRecordsWritten = "X-Records-Written"
)

// FieldsResponse lists the selectable columns.
type FieldsResponse struct {
	Fields        []string `json:"fields"`
	DefaultFields []string `json:"default_fields"`
	SkipCountry   string   `json:"skip_country"`
}

// HealthResponse reports liveness and conversion slot usage.
type HealthResponse struct {
	Status      string        `json:"status"`
	Conversions LimiterStatus `json:"conversions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Conversions: s.limiter.Status(),
	})
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FieldsResponse{
		Fields:        core.FieldNames(core.AllFields),
		DefaultFields: core.FieldNames(s.opts.Fields),
		SkipCountry:   s.opts.SkipCountry,
	})
}

// handleConvert converts the vCard request body to CSV.
//
// Query parameters:
//   - fields: columns to write, comma separated and/or repeated
//   - skip_country: country to blank; present but empty disables suppression
//
// The CSV is buffered so a parse failure late in the input still produces a
// JSON error instead of a truncated document.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	fields := s.opts.Fields
	if values := query["fields"]; len(values) > 0 {
		parsed, err := core.ParseFields(values)
		if err != nil {
			respondError(w, r, err, http.StatusBadRequest)
			return
		}
		if len(parsed) > 0 {
			fields = parsed
		}
	}

	skipCountry := s.opts.SkipCountry
	if query.Has("skip_country") {
		skipCountry = query.Get("skip_country")
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		if timedOut(r) {
			return
		}
		respondError(w, r, err, statusFor(err))
		return
	}
	defer s.limiter.Release()

	body := http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize)
	defer body.Close()

	var buf bytes.Buffer
	res, err := convert.Run(r.Context(), body, &buf, convert.Options{
		Fields:      fields,
		SkipCountry: skipCountry,
	})
	if err != nil {
		s.observe(outcomeFor(err), res)
		if timedOut(r) {
			return
		}
		respondError(w, r, err, statusFor(err))
		return
	}
	if res.BytesRead == 0 {
		s.observe("empty", res)
		respondError(w, r, core.ErrEmptyInput, statusFor(core.ErrEmptyInput))
		return
	}

	if s.opts.Store != nil {
		ctx := logging.WithRunID(r.Context(), res.RunID.String())
		if _, err := s.opts.Store.Save(ctx, res.RunID, res.Records); err != nil {
			s.observe("store_failed", res)
			respondError(w, r, fmt.Errorf("store records: %w", err), http.StatusInternalServerError)
			return
		}
	}
	s.observe("ok", res)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="contacts.csv"`)
	w.Header().Set(HeaderConversionID, res.RunID.String())
	w.Header().Set(HeaderRecordsDropped, strconv.Itoa(res.Stats.Dropped))
	w.Header().Set(HeaderRecordsWritten, strconv.Itoa(res.Rows))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("write response", "error", err)
	}
}

// timedOut reports whether the request deadline passed. The Timeout
// middleware writes the 504 itself in that case.
func timedOut(r *http.Request) bool {
	if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
		logging.FromContext(r.Context()).Warn("conversion timed out", "path", r.URL.Path)
		return true
	}
	return false
}

func (s *Server) observe(outcome string, res *convert.Result) {
	if res == nil {
		s.metrics.ObserveConversion(outcome, core.Stats{}, 0)
		return
	}
	s.metrics.ObserveConversion(outcome, res.Stats, res.BytesRead)
}

// outcomeFor labels a failed conversion for metrics.
func outcomeFor(err error) string {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return "too_large"
	case errors.Is(err, core.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "failed"
	}
}
