/*
ledger.go - Annotated sales and the time-ordered ledger

PURPOSE:
  An Annotated sale is a Record plus the pricing candidate of its real
  price and, once settled, the one match chosen for it. The Ledger holds
  every annotated sale of a run in time order, plus the shared pricing
  context, and owns the resolution pipeline.

CRITICAL INVARIANTS:
  1. SORTED: Ledger sales are ascending by Record.When.
  2. PRECISE IS FINAL: A Precise candidate is resolved to its match at
     construction and is never touched again.
  3. ONLY NARROWS: Resolution either settles an ambiguous sale on one of
     its own candidates, or shrinks its candidate set. It never grows a
     set and never un-resolves a sale.

LIFECYCLE:
  Built once from Records (candidates via a pricing.Cache), mutated only
  by Solve, read-only afterwards.

SEE ALSO:
  - resolver.go: The only code that mutates annotations
  - export.go:   ExportRows rendering
*/
package sale

import (
	"fmt"
	"sort"

	"github.com/warp/ticket-recon/pricing"
	"github.com/warp/ticket-recon/ticket"
)

// =============================================================================
// CONTEXT - Shared, read-only pricing context of a run
// =============================================================================

// Context is the operator configuration a run is computed with.
type Context struct {
	OnlineFee  Fee
	Catalog    ticket.Catalog
	PromoLimit int // promo tickets per buyer; 0 means no limit
	Resolver   Resolver
}

// Validate reports the first unusable part of the context.
func (c Context) Validate() error {
	if !c.OnlineFee.Valid() {
		return &ContextError{Field: "online_fee", Reason: "numerator and denominator must be positive"}
	}
	if c.Catalog.IsEmpty() {
		return &ContextError{Field: "prices", Reason: "at least one batch price is required"}
	}
	for _, b := range c.Catalog.Batches() {
		if b.Price < 0 {
			return &ContextError{Field: "prices", Reason: fmt.Sprintf("%s has a negative price", b.Num)}
		}
	}
	if c.PromoLimit < 0 {
		return &ContextError{Field: "promo_limit", Reason: "must not be negative"}
	}
	if !c.Resolver.Valid() {
		return &ContextError{Field: "resolver", Reason: "unknown resolver"}
	}
	return nil
}

// NewCache returns an empty candidate cache for this context.
func (c Context) NewCache() *pricing.Cache {
	return pricing.NewCache(c.Catalog, c.PromoLimit)
}

// =============================================================================
// ANNOTATED SALE
// =============================================================================

// Annotated is a sale plus what is known about its pricing.
type Annotated struct {
	Record    Record
	Candidate pricing.Candidate
	// Initial is the candidate outcome before any resolution.
	Initial pricing.Outcome

	resolved *pricing.Match
}

// NewAnnotated attaches a candidate to a record. A Precise candidate is
// resolved immediately.
func NewAnnotated(r Record, c pricing.Candidate) *Annotated {
	a := &Annotated{Record: r, Candidate: c, Initial: c.Outcome()}
	if m, ok := c.Match(); ok {
		a.resolved = &m
	}
	return a
}

// Resolved returns the settled match, if any.
func (a *Annotated) Resolved() (pricing.Match, bool) {
	if a.resolved == nil {
		return pricing.Match{}, false
	}
	return *a.resolved, true
}

func (a *Annotated) IsResolved() bool { return a.resolved != nil }

// isOpen reports whether resolution may still act on this sale.
func (a *Annotated) isOpen() bool {
	return a.resolved == nil && a.Candidate.Outcome() == pricing.Ambiguous
}

// resolve settles an open sale on one of its candidates.
func (a *Annotated) resolve(m pricing.Match) bool {
	if !a.isOpen() || !a.Candidate.Contains(m) {
		return false
	}
	a.resolved = &m
	return true
}

// narrow replaces the candidate set of an open sale with a strict subset
// of at least two members.
func (a *Annotated) narrow(ms []pricing.Match) bool {
	if !a.isOpen() || len(ms) < 2 || len(ms) >= a.Candidate.Len() {
		return false
	}
	set := pricing.NewMatchSet()
	for _, m := range ms {
		if !a.Candidate.Contains(m) {
			return false
		}
		set.Add(m)
	}
	a.Candidate = pricing.NewCandidate(set)
	return true
}

// Decoding renders the sale's pricing for the export.
func (a *Annotated) Decoding() string {
	if m, ok := a.Resolved(); ok {
		return m.String()
	}
	return a.Candidate.String()
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger is every annotated sale of a run, ascending by time.
type Ledger struct {
	sales   []*Annotated
	context Context
}

// NewLedger annotates records using cache, which must have been built for
// ctx's catalog and promo limit.
func NewLedger(records []Record, ctx Context, cache *pricing.Cache) *Ledger {
	sorted := append([]Record(nil), records...)
	SortByTime(sorted)

	l := &Ledger{sales: make([]*Annotated, 0, len(sorted)), context: ctx}
	for _, r := range sorted {
		l.sales = append(l.sales, NewAnnotated(r, cache.Get(r.RealPrice())))
	}
	return l
}

// newLedgerFrom wraps already annotated sales, sorting them by time.
func newLedgerFrom(sales []*Annotated, ctx Context) *Ledger {
	sorted := append([]*Annotated(nil), sales...)
	sortAnnotated(sorted)
	return &Ledger{sales: sorted, context: ctx}
}

func (l *Ledger) Context() Context { return l.context }
func (l *Ledger) Len() int         { return len(l.sales) }

// Transactions returns the sales in time order. The slice is a copy; the
// annotations are shared.
func (l *Ledger) Transactions() []*Annotated {
	return append([]*Annotated(nil), l.sales...)
}

// Ambiguous returns sales still ambiguous after resolution.
func (l *Ledger) Ambiguous() []*Annotated {
	return l.filter(func(a *Annotated) bool { return a.isOpen() })
}

// InitiallyAmbiguous returns sales whose amount alone was ambiguous,
// whether or not resolution later settled them.
func (l *Ledger) InitiallyAmbiguous() []*Annotated {
	return l.filter(func(a *Annotated) bool { return a.Initial == pricing.Ambiguous })
}

// Unmatched returns sales whose amount no combination reaches.
func (l *Ledger) Unmatched() []*Annotated {
	return l.filter(func(a *Annotated) bool { return a.Candidate.Outcome() == pricing.NoMatch })
}

// Settled returns sales with a resolved match, precise or resolved.
func (l *Ledger) Settled() []*Annotated {
	return l.filter(func(a *Annotated) bool { return a.IsResolved() })
}

func (l *Ledger) filter(keep func(*Annotated) bool) []*Annotated {
	var out []*Annotated
	for _, a := range l.sales {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func sortAnnotated(sales []*Annotated) {
	sort.SliceStable(sales, func(i, j int) bool {
		return sales[i].Record.When.Before(sales[j].Record.When)
	})
}
