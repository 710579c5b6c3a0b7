/*
Package sqlite provides a SQLite-backed store.RunStore.

PURPOSE:
  Persists processed runs and their enriched export rows so the API can
  list, filter and re-download results after a restart.

KEY TABLES:
  runs:     One row per processed export: summary counts, config, report
  run_rows: One row per sale of a run, in ledger order

INDEXES:
  - idx_run_rows_status: Filtering a run's rows by status
  - idx_runs_created_at: Listing and retention

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Deleting a run cascades to its
  rows through the foreign key.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

USAGE:
  st, err := sqlite.New("./data/runs.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - store/store.go: RunStore interface
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/ticket-recon/sale"
	"github.com/warp/ticket-recon/store"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements store.RunStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.RunStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	st := &Store{db: db}
	if err := st.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return st, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		resolver TEXT NOT NULL,
		config_json TEXT NOT NULL,
		sales INTEGER NOT NULL,
		settled INTEGER NOT NULL,
		ambiguous INTEGER NOT NULL,
		unmatched INTEGER NOT NULL,
		passes INTEGER NOT NULL,
		resolved INTEGER NOT NULL,
		parse_errors_json TEXT NOT NULL,
		report_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at
		ON runs(created_at);

	CREATE TABLE IF NOT EXISTS run_rows (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		sold_at TEXT NOT NULL,
		buyer_email TEXT,
		buyer_username TEXT,
		paid_cents INTEGER NOT NULL,
		kind_label TEXT NOT NULL,
		online INTEGER NOT NULL,
		fee_numerator INTEGER NOT NULL,
		fee_denominator INTEGER NOT NULL,
		seller_name TEXT,
		seller_id TEXT,
		seller_email TEXT,
		token TEXT NOT NULL,
		sale_id TEXT NOT NULL,
		card_name TEXT,
		card_prefix TEXT,
		card_suffix TEXT,
		resolved INTEGER NOT NULL,
		decoding TEXT NOT NULL,
		status TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_run_rows_status
		ON run_rows(run_id, status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RUNS
// =============================================================================

// SaveRun stores a run and its rows in one transaction. Saving an existing
// ID replaces it.
func (s *Store) SaveRun(ctx context.Context, run store.Run, rows []sale.ExportRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parseErrs, err := json.Marshal(nonNil(run.ParseErrors))
	if err != nil {
		return fmt.Errorf("failed to encode parse errors: %w", err)
	}
	rep, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", run.ID); err != nil {
		return fmt.Errorf("failed to replace run: %w", err)
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO runs
		(id, name, resolver, config_json, sales, settled, ambiguous, unmatched,
		 passes, resolved, parse_errors_json, report_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.Name, run.Resolver, run.ConfigJSON,
		run.Sales, run.Settled, run.Ambiguous, run.Unmatched,
		run.Passes, run.Resolved, string(parseErrs), string(rep),
		run.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO run_rows
		(run_id, seq, sold_at, buyer_email, buyer_username, paid_cents, kind_label,
		 online, fee_numerator, fee_denominator, seller_name, seller_id, seller_email,
		 token, sale_id, card_name, card_prefix, card_suffix, resolved, decoding, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		rec := row.Record
		_, err := stmt.ExecContext(ctx,
			run.ID, i,
			rec.When.Format(time.RFC3339Nano),
			nullString(rec.BuyerEmail),
			nullString(rec.BuyerUsername),
			rec.Paid,
			rec.KindLabel,
			rec.Channel.IsOnline(),
			rec.Channel.Fee.Numerator,
			rec.Channel.Fee.Denominator,
			nullString(rec.SellerName),
			nullString(rec.SellerID),
			nullString(rec.SellerEmail),
			rec.Token,
			rec.SaleID,
			nullString(rec.CardName),
			nullString(rec.CardPrefix),
			nullString(rec.CardSuffix),
			row.Resolved,
			row.Decoding,
			string(store.StatusOf(row)),
		)
		if err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	return sqlTx.Commit()
}

const runColumns = `id, name, resolver, config_json, sales, settled, ambiguous, unmatched,
	passes, resolved, parse_errors_json, report_json, created_at`

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY created_at DESC, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunRows returns a run's rows in ledger order, filtered by status.
func (s *Store) RunRows(ctx context.Context, id string, status store.Status) ([]sale.ExportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", id).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, store.ErrRunNotFound
	}

	query := `
		SELECT sold_at, buyer_email, buyer_username, paid_cents, kind_label,
		       online, fee_numerator, fee_denominator, seller_name, seller_id, seller_email,
		       token, sale_id, card_name, card_prefix, card_suffix, resolved, decoding
		FROM run_rows
		WHERE run_id = ?`
	args := []any{id}
	if status != store.StatusAll {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []sale.ExportRow
	for rows.Next() {
		row, err := scanExportRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// DeleteRun removes a run and its rows.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrRunNotFound
	}
	return nil
}

// DeleteOlderThan removes every run created before cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM runs WHERE created_at < ?",
		cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// =============================================================================
// SCANNING
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (store.Run, error) {
	var r store.Run
	var parseErrs, rep, createdAt string

	err := sc.Scan(
		&r.ID, &r.Name, &r.Resolver, &r.ConfigJSON,
		&r.Sales, &r.Settled, &r.Ambiguous, &r.Unmatched,
		&r.Passes, &r.Resolved, &parseErrs, &rep, &createdAt,
	)
	if err != nil {
		return store.Run{}, err
	}

	if err := json.Unmarshal([]byte(parseErrs), &r.ParseErrors); err != nil {
		return store.Run{}, fmt.Errorf("run %s: bad parse errors: %w", r.ID, err)
	}
	if len(r.ParseErrors) == 0 {
		r.ParseErrors = nil
	}
	if err := json.Unmarshal([]byte(rep), &r.Report); err != nil {
		return store.Run{}, fmt.Errorf("run %s: bad report: %w", r.ID, err)
	}
	r.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return store.Run{}, fmt.Errorf("run %s: bad created_at: %w", r.ID, err)
	}
	return r, nil
}

func scanExportRow(sc scanner) (sale.ExportRow, error) {
	var row sale.ExportRow
	var soldAt string
	var online bool
	var fee sale.Fee
	var buyerEmail, buyerUsername, sellerName, sellerID, sellerEmail sql.NullString
	var cardName, cardPrefix, cardSuffix sql.NullString
	rec := &row.Record

	err := sc.Scan(
		&soldAt, &buyerEmail, &buyerUsername, &rec.Paid, &rec.KindLabel,
		&online, &fee.Numerator, &fee.Denominator, &sellerName, &sellerID, &sellerEmail,
		&rec.Token, &rec.SaleID, &cardName, &cardPrefix, &cardSuffix,
		&row.Resolved, &row.Decoding,
	)
	if err != nil {
		return sale.ExportRow{}, err
	}

	rec.When, err = time.Parse(time.RFC3339Nano, soldAt)
	if err != nil {
		return sale.ExportRow{}, fmt.Errorf("sale %s: bad sold_at: %w", rec.SaleID, err)
	}
	rec.Channel = sale.Offline()
	if online {
		rec.Channel = sale.Online(fee)
	}
	rec.BuyerEmail = buyerEmail.String
	rec.BuyerUsername = buyerUsername.String
	rec.SellerName = sellerName.String
	rec.SellerID = sellerID.String
	rec.SellerEmail = sellerEmail.String
	rec.CardName = cardName.String
	rec.CardPrefix = cardPrefix.String
	rec.CardSuffix = cardSuffix.String
	return row, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
