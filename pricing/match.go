/*
Package pricing reverses ticket pricing: given an amount paid, it finds
every way that amount can be made out of the batches of a catalog.

PURPOSE:
  The sales export only carries the amount paid. The schedule does not
  record which batch (or how many tickets) a sale bought, so one amount
  can match zero, one or several structurally distinct combinations.

KEY CONCEPTS IN THIS FILE (match.go):
  - Match:    One concrete way to reach an amount. Three shapes:
                Multiple     q tickets of one batch
                PromoCombo   promo tickets plus first-tier tickets
                TurnOfBatch  a purchase straddling batch n and n+1
  - MatchSet: A deduplicated set of matches. Match is a comparable struct,
              so Go equality is structural equality.

INVARIANTS:
  - BatchAfter() is the maximum of Batches() under batch order.
  - Price() is exact integer-cent arithmetic, never floating point.

SEE ALSO:
  - candidate.go: Collapsing a MatchSet into NoMatch / Precise / Ambiguous
  - enumerate.go: The enumerator
  - cache.go:     Memoization per run
*/
package pricing

import (
	"sort"
	"strings"

	"github.com/warp/ticket-recon/ticket"
)

// =============================================================================
// MATCH
// =============================================================================

type Kind int

const (
	KindMultiple Kind = iota + 1
	KindPromoCombo
	KindTurnOfBatch
)

func (k Kind) String() string {
	switch k {
	case KindMultiple:
		return "multiple"
	case KindPromoCombo:
		return "promo_combo"
	case KindTurnOfBatch:
		return "turn_of_batch"
	default:
		return "unknown"
	}
}

// Match is one way to reach a price. Second is the zero BatchAmount for
// KindMultiple.
type Match struct {
	Kind   Kind
	First  ticket.BatchAmount
	Second ticket.BatchAmount
}

// Multiple is a quantity of a single batch.
func Multiple(a ticket.BatchAmount) Match {
	return Match{Kind: KindMultiple, First: a}
}

// PromoCombo combines promo tickets with tickets of the first numbered batch.
func PromoCombo(promo, next ticket.BatchAmount) Match {
	return Match{Kind: KindPromoCombo, First: promo, Second: next}
}

// TurnOfBatch is a purchase made while batch a1 sold out and a2 (the next
// one) started selling.
func TurnOfBatch(a1, a2 ticket.BatchAmount) Match {
	return Match{Kind: KindTurnOfBatch, First: a1, Second: a2}
}

// Amounts returns the constituent batch amounts, lowest batch first.
func (m Match) Amounts() []ticket.BatchAmount {
	if m.Kind == KindMultiple {
		return []ticket.BatchAmount{m.First}
	}
	return []ticket.BatchAmount{m.First, m.Second}
}

func (m Match) Price() int64 {
	var total int64
	for _, a := range m.Amounts() {
		total += a.Price()
	}
	return total
}

func (m Match) Tickets() int {
	total := 0
	for _, a := range m.Amounts() {
		total += a.Quantity
	}
	return total
}

// Batches returns the distinct batches referenced, ascending.
func (m Match) Batches() []ticket.Batch {
	if m.Kind == KindMultiple {
		return []ticket.Batch{m.First.Batch}
	}
	return []ticket.Batch{m.First.Batch, m.Second.Batch}
}

// BatchAfter is the batch the sale progression is known to be at right
// after this purchase.
func (m Match) BatchAfter() ticket.Batch {
	if m.Kind == KindMultiple {
		return m.First.Batch
	}
	return m.Second.Batch
}

// String renders the match as "2x promo + 1x batch 1". ParseMatch inverts it.
func (m Match) String() string {
	parts := make([]string, 0, 2)
	for _, a := range m.Amounts() {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, amountSeparator)
}

// less orders matches deterministically: kind, then constituents.
func (m Match) less(o Match) bool {
	if m.Kind != o.Kind {
		return m.Kind < o.Kind
	}
	if m.First.Batch.Num != o.First.Batch.Num {
		return m.First.Batch.Num < o.First.Batch.Num
	}
	if m.First.Quantity != o.First.Quantity {
		return m.First.Quantity < o.First.Quantity
	}
	if m.Second.Batch.Num != o.Second.Batch.Num {
		return m.Second.Batch.Num < o.Second.Batch.Num
	}
	return m.Second.Quantity < o.Second.Quantity
}

// =============================================================================
// MATCH SET
// =============================================================================

type MatchSet map[Match]struct{}

// NewMatchSet builds a set from matches, dropping duplicates.
func NewMatchSet(ms ...Match) MatchSet {
	s := make(MatchSet, len(ms))
	for _, m := range ms {
		s.Add(m)
	}
	return s
}

func (s MatchSet) Add(m Match) { s[m] = struct{}{} }
func (s MatchSet) Len() int     { return len(s) }

func (s MatchSet) Contains(m Match) bool {
	_, ok := s[m]
	return ok
}

// Sorted returns the members in deterministic order.
func (s MatchSet) Sorted() []Match {
	out := make([]Match, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sortMatches(out)
	return out
}

func sortMatches(ms []Match) {
	sort.Slice(ms, func(i, j int) bool { return ms[i].less(ms[j]) })
}
