/*
Package store defines persistence of processed runs.

PURPOSE:
  A run is one sales export processed under one pricing context. The
  store keeps its summary, its report and every enriched export row, so
  results can be browsed and downloaded without reprocessing.

IMPLEMENTATIONS:
  store/sqlite: mattn/go-sqlite3, for the server
  store/memory: maps and slices, for tests and the CLI

SEE ALSO:
  - sale/export.go: ExportRow
  - api/handlers.go: The HTTP surface over a RunStore
*/
package store

import (
	"context"
	"errors"
	"time"

	"github.com/warp/ticket-recon/pricing"
	"github.com/warp/ticket-recon/report"
	"github.com/warp/ticket-recon/sale"
)

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is the stored summary of one processed export.
type Run struct {
	ID         string
	Name       string
	Resolver   string
	ConfigJSON string
	CreatedAt  time.Time

	Sales     int
	Settled   int
	Ambiguous int
	Unmatched int
	Passes    int
	Resolved  int

	ParseErrors []string
	Report      report.Report
}

// Status classifies an export row.
type Status string

const (
	StatusAll       Status = ""
	StatusSettled   Status = "settled"
	StatusAmbiguous Status = "ambiguous"
	StatusUnmatched Status = "unmatched"
)

// ParseStatus accepts "", "all", "settled", "ambiguous", "unmatched".
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusAll, "all":
		return StatusAll, true
	case StatusSettled, StatusAmbiguous, StatusUnmatched:
		return Status(s), true
	default:
		return "", false
	}
}

// StatusOf derives the status of a row from its flag and decoding.
func StatusOf(row sale.ExportRow) Status {
	switch {
	case row.Resolved:
		return StatusSettled
	case row.Decoding == pricing.NoSolution:
		return StatusUnmatched
	default:
		return StatusAmbiguous
	}
}

// Matches reports whether row passes the filter.
func (s Status) Matches(row sale.ExportRow) bool {
	return s == StatusAll || StatusOf(row) == s
}

// RunStore persists runs with their export rows.
type RunStore interface {
	// SaveRun stores a run and its rows atomically. Rows keep their order.
	SaveRun(ctx context.Context, run Run, rows []sale.ExportRow) error
	GetRun(ctx context.Context, id string) (*Run, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context) ([]Run, error)
	RunRows(ctx context.Context, id string, status Status) ([]sale.ExportRow, error)
	DeleteRun(ctx context.Context, id string) error
	// DeleteOlderThan removes runs created before cutoff and returns how many.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// NewRun summarizes a processed outcome.
func NewRun(id, name, configJSON string, out *sale.Outcome, rep report.Report, createdAt time.Time) Run {
	l := out.Ledger
	run := Run{
		ID:         id,
		Name:       name,
		Resolver:   l.Context().Resolver.String(),
		ConfigJSON: configJSON,
		CreatedAt:  createdAt,
		Sales:      l.Len(),
		Settled:    len(l.Settled()),
		Ambiguous:  len(l.Ambiguous()),
		Unmatched:  len(l.Unmatched()),
		Passes:     out.Passes,
		Resolved:   out.Resolved,
		Report:     rep,
	}
	for _, err := range out.ParseErrors {
		run.ParseErrors = append(run.ParseErrors, err.Error())
	}
	return run
}
