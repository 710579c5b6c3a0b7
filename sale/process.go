package sale

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/warp/ticket-recon/logger"
)

// Outcome is everything one run over a sales export produced.
type Outcome struct {
	Ledger      *Ledger
	ParseErrors []error
	Passes      int
	Resolved    int
}

// Process runs the whole pipeline: validate the context, ingest the CSV,
// price every distinct amount concurrently, build the ledger, and resolve
// ambiguities. Only an invalid context or a cancelled ctx fail the run.
func Process(ctx context.Context, r io.Reader, c Context) (*Outcome, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	records, parseErrs := ParseCSV(r, c.OnlineFee)
	for _, err := range parseErrs {
		log.Warn().Err(err).Msg("skipped sales row")
	}

	cache := c.NewCache()
	prices := make([]int64, 0, len(records))
	for _, rec := range records {
		prices = append(prices, rec.RealPrice())
	}
	if err := cache.Warm(ctx, prices, runtime.GOMAXPROCS(0)); err != nil {
		return nil, fmt.Errorf("price sales: %w", err)
	}

	ledger := NewLedger(records, c, cache)
	passes, resolved := ledger.Solve(ctx)

	stats := cache.Stats()
	log.Info().
		Int("sales", ledger.Len()).
		Int("rejected", len(parseErrs)).
		Int("distinct_prices", stats.Entries).
		Int("ambiguous", len(ledger.Ambiguous())).
		Int("unmatched", len(ledger.Unmatched())).
		Dur("elapsed", time.Since(start)).
		Msg("sales processed")

	return &Outcome{
		Ledger:      ledger,
		ParseErrors: parseErrs,
		Passes:      passes,
		Resolved:    resolved,
	}, nil
}
