/*
handlers.go - HTTP API handlers for the ticket reconciliation engine

PURPOSE:
  Exposes the sale pipeline via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the sale, report and store packages.

ENDPOINTS:
  Runs:
    GET    /api/runs                 List processed runs, newest first
    POST   /api/runs                 Process a sales export, store the run
    GET    /api/runs/{id}            Run detail with report
    DELETE /api/runs/{id}            Delete a run and its rows
    GET    /api/runs/{id}/rows       Export rows (?status=settled|ambiguous|unmatched)
    GET    /api/runs/{id}/export     Enriched export as CSV

  Tools:
    POST   /api/candidates           Decompose a single amount
    GET    /api/resolvers            Available resolvers

  Scenarios:
    GET    /api/scenarios            List demo scenarios
    POST   /api/scenarios/load       Process a demo scenario as a run

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Run persistence (sqlite in production, memory in tests)
  - Factory: Config document to sale.Context conversion
  - results: go-cache of run details and rendered exports

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (config via the factory)
  3. Call the pipeline (sale.Process, report.Compute)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid config, invalid input
  - 404: Run or scenario not found
  - 413: Body over the upload limit
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo datasets
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/warp/ticket-recon/factory"
	"github.com/warp/ticket-recon/logger"
	"github.com/warp/ticket-recon/pricing"
	"github.com/warp/ticket-recon/report"
	"github.com/warp/ticket-recon/sale"
	"github.com/warp/ticket-recon/store"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Options tune a Handler. Zero values pick the defaults.
type Options struct {
	// CacheTTL is how long run details and exports are cached. Zero
	// disables the cache.
	CacheTTL time.Duration
	// MaxUploadBytes bounds request bodies. Zero means 20 MiB.
	MaxUploadBytes int64
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   store.RunStore
	Factory *factory.PricingFactory

	log       zerolog.Logger
	results   *cache.Cache
	maxUpload int64

	now   func() time.Time
	newID func() string
}

// NewHandler creates a new handler over the given store.
func NewHandler(st store.RunStore, log zerolog.Logger, opts Options) *Handler {
	h := &Handler{
		Store:     st,
		Factory:   factory.NewPricingFactory(),
		log:       log,
		maxUpload: opts.MaxUploadBytes,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	if h.maxUpload <= 0 {
		h.maxUpload = 20 << 20
	}
	if opts.CacheTTL > 0 {
		h.results = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return h
}

const (
	runKeyPrefix    = "run:"
	exportKeyPrefix = "export:"
)

// =============================================================================
// RUN HANDLERS
// =============================================================================

// ListRuns returns every stored run without its report.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run, false)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRun processes the submitted export and stores the result.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.CSV) == "" {
		writeError(w, http.StatusBadRequest, "csv is required", nil)
		return
	}
	cfg, err := configBytes(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid config", err)
		return
	}

	run, err := h.processRun(r.Context(), req.Name, req.CSV, cfg, req.Resolver)
	if err != nil {
		writeProcessError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRunDTO(run, true))
}

// GetRun returns one run with its report.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if dto, ok := h.cachedRun(id); ok {
		writeJSON(w, http.StatusOK, dto)
		return
	}

	run, err := h.Store.GetRun(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	dto := toRunDTO(*run, true)
	h.cacheSet(runKeyPrefix+id, dto)
	writeJSON(w, http.StatusOK, dto)
}

// DeleteRun removes a run and its rows.
func (h *Handler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteRun(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	h.forget(id)
	log := logger.FromContext(r.Context())
	log.Info().Str("run_id", id).Msg("run deleted")
	w.WriteHeader(http.StatusNoContent)
}

// GetRunRows returns a run's export rows, optionally filtered by status.
func (h *Handler) GetRunRows(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, ok := store.ParseStatus(r.URL.Query().Get("status"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid status",
			fmt.Sprintf("status must be one of %q, %q or %q", store.StatusSettled, store.StatusAmbiguous, store.StatusUnmatched))
		return
	}

	rows, err := h.Store.RunRows(r.Context(), id, status)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	dtos := make([]RowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toRowDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ExportRun streams the enriched export as CSV.
func (h *Handler) ExportRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	data, ok := h.cachedExport(id)
	if !ok {
		rows, err := h.Store.RunRows(r.Context(), id, store.StatusAll)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		var buf bytes.Buffer
		if err := sale.WriteExport(&buf, rows); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to render export", err)
			return
		}
		data = buf.Bytes()
		h.cacheSet(exportKeyPrefix+id, data)
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "run-"+id+".csv"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// PurgeOlderThan deletes runs created before cutoff and drops the cache
// when anything was removed.
func (h *Handler) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := h.Store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 && h.results != nil {
		h.results.Flush()
	}
	return n, nil
}

// processRun parses the config, runs the pipeline and stores the result.
func (h *Handler) processRun(ctx context.Context, name, csv string, cfg []byte, resolver string) (store.Run, error) {
	pc, sctx, err := h.Factory.ParseAndBuild(cfg)
	if err != nil {
		return store.Run{}, err
	}
	if resolver != "" {
		res, err := sale.ParseResolver(resolver)
		if err != nil {
			return store.Run{}, err
		}
		sctx.Resolver = res
	}
	if name == "" {
		name = pc.Name
	}
	if name == "" {
		name = "run " + h.now().UTC().Format(time.RFC3339)
	}

	out, err := sale.Process(ctx, strings.NewReader(csv), sctx)
	if err != nil {
		return store.Run{}, err
	}
	rep := report.Default().Compute(out.Ledger)

	configJSON, err := json.Marshal(h.Factory.ToConfig(pc.Name, sctx))
	if err != nil {
		return store.Run{}, fmt.Errorf("encode config: %w", err)
	}

	run := store.NewRun(h.newID(), name, string(configJSON), out, rep, h.now().UTC())
	if err := h.Store.SaveRun(ctx, run, out.Ledger.ExportRows()); err != nil {
		return store.Run{}, fmt.Errorf("save run: %w", err)
	}
	h.cacheSet(runKeyPrefix+run.ID, toRunDTO(run, true))

	log := logger.FromContext(ctx)
	log.Info().
		Str("run_id", run.ID).
		Str("resolver", run.Resolver).
		Int("sales", run.Sales).
		Int("ambiguous", run.Ambiguous).
		Msg("run stored")
	return run, nil
}

// =============================================================================
// TOOL HANDLERS
// =============================================================================

// GetCandidate decomposes one amount under the given config.
func (h *Handler) GetCandidate(w http.ResponseWriter, r *http.Request) {
	var req CandidateRequest
	if !h.decode(w, r, &req) {
		return
	}
	cfg, err := configBytes(req.Config)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid config", err)
		return
	}
	_, sctx, err := h.Factory.ParseAndBuild(cfg)
	if err != nil {
		writeProcessError(w, err)
		return
	}

	amount, err := sale.ParseCents(req.Amount)
	if err != nil || amount < 0 {
		writeError(w, http.StatusBadRequest, "Invalid amount", req.Amount)
		return
	}
	price := amount
	if req.Online {
		price = sale.Online(sctx.OnlineFee).UndoFee(amount)
	}

	c := pricing.NewCandidate(pricing.Enumerate(price, sctx.Catalog, sctx.PromoLimit))
	writeJSON(w, http.StatusOK, toCandidateDTO(price, c))
}

// ListResolvers returns the available resolvers.
func (h *Handler) ListResolvers(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ResolverDTO, len(sale.Resolvers))
	for i, res := range sale.Resolvers {
		dtos[i] = ResolverDTO{
			Name:        res.String(),
			Description: res.Description(),
			Default:     res == sale.DefaultResolver,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads a JSON body under the upload limit. It writes the error
// response itself and reports whether decoding succeeded.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", fmt.Sprintf("limit is %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// configBytes accepts a config given as a JSON object or as a string
// holding a YAML or JSON document.
func configBytes(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.New("config is required")
	}
	if trimmed[0] == '"' {
		var doc string
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, err
		}
		return []byte(doc), nil
	}
	return trimmed, nil
}

func (h *Handler) cachedRun(id string) (RunDTO, bool) {
	if h.results == nil {
		return RunDTO{}, false
	}
	v, ok := h.results.Get(runKeyPrefix + id)
	if !ok {
		return RunDTO{}, false
	}
	dto, ok := v.(RunDTO)
	return dto, ok
}

func (h *Handler) cachedExport(id string) ([]byte, bool) {
	if h.results == nil {
		return nil, false
	}
	v, ok := h.results.Get(exportKeyPrefix + id)
	if !ok {
		return nil, false
	}
	data, ok := v.([]byte)
	return data, ok
}

func (h *Handler) cacheSet(key string, v any) {
	if h.results != nil {
		h.results.Set(key, v, cache.DefaultExpiration)
	}
}

func (h *Handler) forget(id string) {
	if h.results != nil {
		h.results.Delete(runKeyPrefix + id)
		h.results.Delete(exportKeyPrefix + id)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	resp := ErrorResponse{Error: message}
	switch d := details.(type) {
	case nil:
	case error:
		resp.Details = d.Error()
	default:
		resp.Details = d
	}
	writeJSON(w, status, resp)
}

// writeProcessError maps pipeline errors: bad configuration is the
// client's fault, anything else is ours.
func writeProcessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, factory.ErrInvalidConfig), errors.Is(err, sale.ErrInvalidContext):
		writeError(w, http.StatusBadRequest, "Invalid config", err)
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "Request cancelled", err)
	default:
		writeError(w, http.StatusInternalServerError, "Failed to process sales", err)
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "Run not found", nil)
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to load run", err)
}
