/*
handlers_test.go - Tests for the run, candidate and resolver endpoints

Tests for:
- Run submission with JSON and YAML configs
- Error mapping (400 / 404 / 413)
- Row filtering and CSV export
- Cache invalidation on delete
- Candidate decomposition
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ticket-recon/report"
	"github.com/warp/ticket-recon/sale"
	"github.com/warp/ticket-recon/store/memory"
	"github.com/warp/ticket-recon/store/storetest"
)

const jsonConfig = `{"prices":["50.00","60.00","90.00"],"online_fee":{"numerator":11,"denominator":10}}`

const yamlConfig = `prices: ["50.00", "60.00", "90.00"]
online_fee: {numerator: 11, denominator: 10}
`

type testServer struct {
	h      *Handler
	store  *memory.Memory
	router http.Handler
	clock  time.Time
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	st := memory.New()
	ts := &testServer{store: st, clock: time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)}
	ts.h = NewHandler(st, zerolog.Nop(), opts)

	seq := 0
	ts.h.newID = func() string {
		seq++
		return fmt.Sprintf("run-%d", seq)
	}
	ts.h.now = func() time.Time {
		ts.clock = ts.clock.Add(time.Minute)
		return ts.clock
	}
	ts.router = NewRouter(ts.h, []string{"*"})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) createRun(t *testing.T, name string) RunDTO {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/runs", CreateRunRequest{
		Name:   name,
		CSV:    storetest.SalesCSV,
		Config: json.RawMessage(jsonConfig),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[RunDTO](t, rec)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func yamlString(t *testing.T, doc string) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return data
}

// =============================================================================
// RUNS
// =============================================================================

func TestCreateRun_Success(t *testing.T) {
	// GIVEN: A server with an empty store
	ts := newTestServer(t, Options{CacheTTL: time.Minute})

	// WHEN: Submitting the fixture export with a JSON config
	run := ts.createRun(t, "march")

	// THEN: The run is summarized and stored
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "march", run.Name)
	assert.Equal(t, "seller", run.Resolver)
	assert.Equal(t, 4, run.Sales)
	assert.Equal(t, 2, run.Settled)
	assert.Equal(t, 1, run.Ambiguous)
	assert.Equal(t, 1, run.Unmatched)
	assert.Len(t, run.ParseErrors, 1)
	require.NotNil(t, run.Report)
	total, ok := run.Report.Field(report.NameTotalSales)
	require.True(t, ok)
	assert.Equal(t, "4", total)
	assert.JSONEq(t, `{"online_fee":{"numerator":11,"denominator":10},"prices":["50.00","60.00","90.00"],"resolver":"seller"}`, string(run.Config))

	stored, err := ts.store.GetRun(t.Context(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 4, stored.Sales)
}

func TestCreateRun_YAMLConfigAndResolverOverride(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, http.MethodPost, "/api/runs", CreateRunRequest{
		CSV:      storetest.SalesCSV,
		Config:   yamlString(t, yamlConfig),
		Resolver: "none",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	run := decodeBody[RunDTO](t, rec)
	assert.Equal(t, "none", run.Resolver)
	assert.Equal(t, "run 2024-03-02T12:01:00Z", run.Name)
	assert.Equal(t, 2, run.Settled)
	assert.Zero(t, run.Resolved)
}

func TestCreateRun_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"malformed body", `{"csv":`},
		{"missing csv", CreateRunRequest{Config: json.RawMessage(jsonConfig)}},
		{"missing config", CreateRunRequest{CSV: storetest.SalesCSV}},
		{"no prices", CreateRunRequest{CSV: storetest.SalesCSV, Config: json.RawMessage(`{"prices":[]}`)}},
		{"unknown field", CreateRunRequest{CSV: storetest.SalesCSV, Config: json.RawMessage(`{"prices":["1.00"],"currency":"BRL"}`)}},
		{"bad fee", CreateRunRequest{CSV: storetest.SalesCSV, Config: json.RawMessage(`{"prices":["1.00"],"online_fee":{"numerator":0,"denominator":1}}`)}},
		{"unknown resolver", CreateRunRequest{CSV: storetest.SalesCSV, Config: json.RawMessage(jsonConfig), Resolver: "oracle"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, Options{})

			rec := ts.do(t, http.MethodPost, "/api/runs", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			resp := decodeBody[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
			runs, err := ts.store.ListRuns(t.Context())
			require.NoError(t, err)
			assert.Empty(t, runs)
		})
	}
}

func TestCreateRun_BodyTooLarge(t *testing.T) {
	ts := newTestServer(t, Options{MaxUploadBytes: 64})

	rec := ts.do(t, http.MethodPost, "/api/runs", CreateRunRequest{
		CSV:    storetest.SalesCSV,
		Config: json.RawMessage(jsonConfig),
	})

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGetRun(t *testing.T) {
	ts := newTestServer(t, Options{})
	created := ts.createRun(t, "march")

	rec := ts.do(t, http.MethodGet, "/api/runs/"+created.ID, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[RunDTO](t, rec)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	require.NotNil(t, got.Report)
	assert.Equal(t, *created.Report, *got.Report)

	rec = ts.do(t, http.MethodGet, "/api/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRuns_NewestFirstWithoutReport(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.createRun(t, "first")
	ts.createRun(t, "second")

	rec := ts.do(t, http.MethodGet, "/api/runs", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	runs := decodeBody[[]RunDTO](t, rec)
	require.Len(t, runs, 2)
	assert.Equal(t, "second", runs[0].Name)
	assert.Equal(t, "first", runs[1].Name)
	assert.Nil(t, runs[0].Report)
	assert.Nil(t, runs[0].Config)
}

func TestGetRunRows(t *testing.T) {
	ts := newTestServer(t, Options{})
	run := ts.createRun(t, "march")

	t.Run("all", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/runs/"+run.ID+"/rows", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rows := decodeBody[[]RowDTO](t, rec)
		require.Len(t, rows, 4)
		// The online sale is earliest once offsets are applied.
		assert.Equal(t, "s4", rows[0].SaleID)
		assert.Equal(t, "66.00", rows[0].Amount)
		assert.True(t, rows[0].Online)
		assert.Equal(t, "1x batch 1", rows[0].Decoding)
		assert.True(t, rows[0].Resolved)
		assert.Equal(t, "s1", rows[1].SaleID)
	})

	t.Run("ambiguous", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/runs/"+run.ID+"/rows?status=ambiguous", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rows := decodeBody[[]RowDTO](t, rec)
		require.Len(t, rows, 1)
		assert.Equal(t, "s2", rows[0].SaleID)
		assert.Equal(t, "ambiguous", string(rows[0].Status))
		assert.Contains(t, rows[0].Decoding, " or ")
	})

	t.Run("unmatched", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/runs/"+run.ID+"/rows?status=unmatched", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		rows := decodeBody[[]RowDTO](t, rec)
		require.Len(t, rows, 1)
		assert.Equal(t, "no solution", rows[0].Decoding)
	})

	t.Run("invalid status", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/runs/"+run.ID+"/rows?status=pending", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing run", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/runs/missing/rows", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestExportRun(t *testing.T) {
	// GIVEN: A stored run
	ts := newTestServer(t, Options{})
	run := ts.createRun(t, "march")

	// WHEN: Downloading its export
	rec := ts.do(t, http.MethodGet, "/api/runs/"+run.ID+"/export", nil)

	// THEN: It is the enriched CSV, readable back
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "run-1.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), strings.Join(sale.ExportHeader, ",")))

	rows, errs := sale.ReadExport(rec.Body, sale.Fee{Numerator: 11, Denominator: 10})
	assert.Empty(t, errs)
	require.Len(t, rows, 4)
	assert.Equal(t, int64(6000), rows[0].Record.RealPrice())
}

func TestDeleteRun_InvalidatesCache(t *testing.T) {
	// GIVEN: A run whose detail and export are cached
	ts := newTestServer(t, Options{CacheTTL: time.Hour})
	run := ts.createRun(t, "march")
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/runs/"+run.ID, nil).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/runs/"+run.ID+"/export", nil).Code)

	// WHEN: Deleting it through the API
	rec := ts.do(t, http.MethodDelete, "/api/runs/"+run.ID, nil)

	// THEN: Neither cached view survives
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/runs/"+run.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/runs/"+run.ID+"/export", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/runs/"+run.ID, nil).Code)
}

func TestRunLifecycle_LogsUnderRequestID(t *testing.T) {
	// GIVEN: A handler logging to a buffer
	ts := newTestServer(t, Options{})
	buf := &bytes.Buffer{}
	ts.h.log = zerolog.New(buf)

	// WHEN: Creating then deleting a run
	run := ts.createRun(t, "march")
	require.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/runs/"+run.ID, nil).Code)

	// THEN: Both events are logged with the run and request IDs
	out := buf.String()
	assert.Contains(t, out, `"message":"run stored"`)
	assert.Contains(t, out, `"message":"run deleted"`)
	assert.Contains(t, out, `"run_id":"`+run.ID+`"`)
	assert.Contains(t, out, `"request_id":`)
}

func TestGetRun_ServedFromCache(t *testing.T) {
	ts := newTestServer(t, Options{CacheTTL: time.Hour})
	run := ts.createRun(t, "march")

	// Removing behind the handler's back leaves the cached copy.
	require.NoError(t, ts.store.DeleteRun(t.Context(), run.ID))

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/runs/"+run.ID, nil).Code)
}

func TestGetRun_CacheDisabled(t *testing.T) {
	ts := newTestServer(t, Options{})
	run := ts.createRun(t, "march")

	require.NoError(t, ts.store.DeleteRun(t.Context(), run.ID))

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/runs/"+run.ID, nil).Code)
}

// =============================================================================
// TOOLS
// =============================================================================

func TestGetCandidate(t *testing.T) {
	tests := []struct {
		name     string
		req      CandidateRequest
		real     string
		outcome  string
		decoding string
	}{
		{
			name:     "ambiguous",
			req:      CandidateRequest{Amount: "180.00"},
			real:     "180.00",
			outcome:  "ambiguous",
			decoding: "3x batch 1 or 2x batch 2",
		},
		{
			name:     "online fee undone",
			req:      CandidateRequest{Amount: "66.00", Online: true},
			real:     "60.00",
			outcome:  "precise",
			decoding: "1x batch 1",
		},
		{
			name:     "no match",
			req:      CandidateRequest{Amount: "70.00"},
			real:     "70.00",
			outcome:  "no_match",
			decoding: "no solution",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, Options{})
			tt.req.Config = json.RawMessage(jsonConfig)

			rec := ts.do(t, http.MethodPost, "/api/candidates", tt.req)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			got := decodeBody[CandidateDTO](t, rec)
			assert.Equal(t, tt.real, got.RealPrice)
			assert.Equal(t, tt.outcome, got.Outcome)
			assert.Equal(t, tt.decoding, got.Decoding)
			for _, m := range got.Matches {
				assert.Equal(t, tt.real, m.Price)
			}
		})
	}
}

func TestGetCandidate_TurnOfBatch(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, http.MethodPost, "/api/candidates", CandidateRequest{
		Amount: "150.00",
		Config: yamlString(t, yamlConfig),
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[CandidateDTO](t, rec)
	require.Len(t, got.Matches, 2)
	assert.Equal(t, MatchDTO{Kind: "multiple", Description: "3x promo", Tickets: 3, Price: "150.00"}, got.Matches[0])
	assert.Equal(t, MatchDTO{Kind: "turn_of_batch", Description: "1x batch 1 + 1x batch 2", Tickets: 2, Price: "150.00"}, got.Matches[1])
}

func TestGetCandidate_BadRequests(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, http.MethodPost, "/api/candidates", CandidateRequest{Amount: "abc", Config: json.RawMessage(jsonConfig)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/candidates", CandidateRequest{Amount: "-1.00", Config: json.RawMessage(jsonConfig)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/candidates", CandidateRequest{Amount: "10.00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListResolvers(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, http.MethodGet, "/api/resolvers", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[[]ResolverDTO](t, rec)
	require.Len(t, got, 3)
	names := []string{got[0].Name, got[1].Name, got[2].Name}
	assert.Equal(t, []string{"none", "temporal", "seller"}, names)
	assert.False(t, got[0].Default)
	assert.True(t, got[2].Default)
	for _, r := range got {
		assert.NotEmpty(t, r.Description)
	}
}

func TestLandingPage(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/runs")
}
