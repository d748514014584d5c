package web

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/vcf2csv/internal/core"
)

func quietLogs(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func vcard(lines ...string) string {
	return "BEGIN:VCARD\r\nVERSION:3.0\r\n" + strings.Join(lines, "\r\n") + "\r\nEND:VCARD\r\n"
}

var sampleInput = vcard("FN:Jane Roe", "ADR:;;1 Main St;Springfield;IL;62701;United States") +
	vcard("FN:Acme Desk", "ORG:Acme Inc.", "ADR:;;1 Main St\\nSuite 9;Springfield;IL;62701;United States") +
	vcard("FN:Globex", "ORG:Globex", "ADR:;;9 King St;Toronto;ON;M5H;Canada")

type fakeSaver struct {
	runID   uuid.UUID
	records []*core.FlatRecord
	err     error
}

func (f *fakeSaver) Save(_ context.Context, runID uuid.UUID, records []*core.FlatRecord) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.runID = runID
	f.records = records
	return int64(len(records)), nil
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	quietLogs(t)
	if opts.SkipCountry == "" {
		opts.SkipCountry = "United States"
	}
	return NewServer(opts)
}

func post(t *testing.T, s *Server, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "text/vcard")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestConvert_DefaultFields(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := post(t, s, "/api/convert", sampleInput)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get(HeaderRecordsDropped))
	assert.Equal(t, "2", rec.Header().Get(HeaderRecordsWritten))
	_, err := uuid.Parse(rec.Header().Get(HeaderConversionID))
	assert.NoError(t, err)

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"name", "addr1", "addr2", "city", "region", "code", "country"},
		{"Acme Inc.", "1 Main St", "Suite 9", "Springfield", "IL", "62701", ""},
		{"Globex", "9 King St", "", "Toronto", "ON", "M5H", "Canada"},
	}, rows)
}

func TestConvert_QueryOverrides(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := post(t, s, "/api/convert?fields=name,country&fields=city&skip_country=Canada", sampleInput)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"name", "country", "city"},
		{"Acme Inc.", "United States", "Springfield"},
		{"Globex", "", "Toronto"},
	}, rows)
}

func TestConvert_EmptySkipCountryKeepsEverything(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := post(t, s, "/api/convert?fields=country&skip_country=", sampleInput)
	require.Equal(t, http.StatusOK, rec.Code)

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"country"}, {"United States"}, {"Canada"}}, rows)
}

func TestConvert_UnknownField(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := post(t, s, "/api/convert?fields=name,phone", sampleInput)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FLD001", decodeError(t, rec).Code)
}

func TestConvert_InvalidInput(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := post(t, s, "/api/convert", vcard("ORG:Acme")+"BEGIN:VCARD\r\nVERSION:3.0\r\nORG:Globex\r\n")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, "VCF001", resp.Code)
	assert.NotEmpty(t, resp.Action)
}

func TestConvert_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, Options{MaxUploadSize: 64})

	rec := post(t, s, "/api/convert", sampleInput)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "FILE001", decodeError(t, rec).Code)
}

func TestConvert_EmptyBodyRejected(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := post(t, s, "/api/convert", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE005", decodeError(t, rec).Code)
	assert.Empty(t, rec.Header().Get(HeaderConversionID))
}

func TestConvert_NoContactsWritesHeaderOnly(t *testing.T) {
	s := newTestServer(t, Options{Fields: []core.Field{core.FieldName, core.FieldCity}})

	rec := post(t, s, "/api/convert", vcard("FN:Jane Roe"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "name,city\n", rec.Body.String())
	assert.Equal(t, "0", rec.Header().Get(HeaderRecordsWritten))
}

// fullLimiter returns a limiter whose only slot is held until the test ends.
func fullLimiter(t *testing.T, maxWait time.Duration) *Limiter {
	t.Helper()
	limiter := NewLimiter(1, maxWait)
	require.NoError(t, limiter.Acquire(context.Background()))
	t.Cleanup(limiter.Release)
	return limiter
}

func TestConvert_Busy(t *testing.T) {
	limiter := fullLimiter(t, 20*time.Millisecond)

	s := newTestServer(t, Options{Limiter: limiter})

	rec := post(t, s, "/api/convert", sampleInput)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
	assert.Equal(t, "CNV001", decodeError(t, rec).Code)
}

func TestConvert_RequestTimeoutLeftToMiddleware(t *testing.T) {
	s := newTestServer(t, Options{
		Limiter:        fullLimiter(t, time.Minute),
		RequestTimeout: 20 * time.Millisecond,
	})

	rec := post(t, s, "/api/convert", sampleInput)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Empty(t, rec.Body.String(), "the handler must not write its own error body")
}

func TestConvert_ClientGone(t *testing.T) {
	s := newTestServer(t, Options{Limiter: fullLimiter(t, time.Minute)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(sampleInput)).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, statusClientClosedRequest, rec.Code)
	assert.Equal(t, "REQ001", decodeError(t, rec).Code)
}

func TestConvert_StoresRecords(t *testing.T) {
	saver := &fakeSaver{}
	s := newTestServer(t, Options{Store: saver})

	rec := post(t, s, "/api/convert", sampleInput)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, rec.Header().Get(HeaderConversionID), saver.runID.String())
	require.Len(t, saver.records, 2)
	assert.Equal(t, "Acme Inc.", saver.records[0].Name)
	assert.Empty(t, saver.records[0].Country, "stored records have the home country suppressed")
}

func TestConvert_StoreFailure(t *testing.T) {
	s := newTestServer(t, Options{Store: &fakeSaver{err: errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")}})

	rec := post(t, s, "/api/convert", sampleInput)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "DB004", decodeError(t, rec).Code)
}

func TestFields(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fields", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp FieldsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, core.FieldNames(core.AllFields), resp.Fields)
	assert.Equal(t, []string{"name", "addr1", "addr2", "city", "region", "code", "country"}, resp.DefaultFields)
	assert.Equal(t, "United States", resp.SkipCountry)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var health HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, LimiterStatus{Active: 0, Available: DefaultMaxConcurrent, MaxConcurrent: DefaultMaxConcurrent}, health.Conversions)

	post(t, s, "/api/convert", sampleInput)

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `vcf2csv_conversions_total{outcome="ok"} 1`)
	assert.Contains(t, body, `vcf2csv_contacts_total{result="dropped"} 1`)
	assert.Contains(t, body, `route="/api/convert"`)
}

func TestHealthReportsBusySlots(t *testing.T) {
	s := newTestServer(t, Options{Limiter: fullLimiter(t, time.Second)})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, LimiterStatus{Active: 1, Available: 0, MaxConcurrent: 1}, health.Conversions)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{core.ErrUnknownField, http.StatusBadRequest},
		{core.ErrEmptyInput, http.StatusBadRequest},
		{core.ErrInvalidInput, http.StatusUnprocessableEntity},
		{ErrTooManyConversions, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{context.Canceled, statusClientClosedRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestShutdownWithoutStart(t *testing.T) {
	s := newTestServer(t, Options{})
	assert.NoError(t, s.Shutdown(context.Background()))
}
