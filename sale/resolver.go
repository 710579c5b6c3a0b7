package sale

import (
	"context"
	"fmt"
	"strings"

	"github.com/warp/ticket-recon/logger"
	"github.com/warp/ticket-recon/pricing"
	"github.com/warp/ticket-recon/ticket"
)

// =============================================================================
// RESOLVER - Closed set of ambiguity strategies
// =============================================================================

// Resolver selects how ambiguous sales are narrowed. The zero value is
// not a valid resolver; use DefaultResolver or ParseResolver.
type Resolver int

const (
	ResolverNone Resolver = iota + 1
	ResolverTemporal
	ResolverSeller
)

// DefaultResolver is the strongest resolver available.
const DefaultResolver = ResolverSeller

// Resolvers lists every resolver in presentation order.
var Resolvers = []Resolver{ResolverNone, ResolverTemporal, ResolverSeller}

// ParseResolver maps "none", "temporal" or "seller" to a resolver. An
// empty name selects DefaultResolver.
func ParseResolver(name string) (Resolver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return DefaultResolver, nil
	case "none":
		return ResolverNone, nil
	case "temporal":
		return ResolverTemporal, nil
	case "seller":
		return ResolverSeller, nil
	default:
		return 0, &ContextError{Field: "resolver", Reason: fmt.Sprintf("unknown resolver %q", name)}
	}
}

func (r Resolver) Valid() bool {
	return r >= ResolverNone && r <= ResolverSeller
}

func (r Resolver) String() string {
	switch r {
	case ResolverNone:
		return "none"
	case ResolverTemporal:
		return "temporal"
	case ResolverSeller:
		return "seller"
	default:
		return fmt.Sprintf("resolver(%d)", int(r))
	}
}

// Description is a one-line, human readable summary of the strategy.
func (r Resolver) Description() string {
	switch r {
	case ResolverNone:
		return "leave ambiguous sales as they are"
	case ResolverTemporal:
		return "assume the batch of the latest settled sale"
	case ResolverSeller:
		return "follow each selling point's own batch progression"
	default:
		return "unknown"
	}
}

// Apply runs one left-to-right pass over the ledger and returns how many
// sales it resolved.
func (r Resolver) Apply(l *Ledger) int {
	switch r {
	case ResolverNone:
		return 0
	case ResolverTemporal:
		return temporalPass(l)
	case ResolverSeller:
		return sellerPass(l)
	default:
		return 0
	}
}

// =============================================================================
// TEMPORAL LOOK-BEHIND
// =============================================================================

// temporalPass assumes every sale is from the batch the latest settled sale
// ended on.
func temporalPass(l *Ledger) int {
	var current ticket.Batch
	known := false
	resolved := 0

	for _, a := range l.sales {
		if m, ok := a.Resolved(); ok {
			current, known = m.BatchAfter(), true
			continue
		}
		if !known || !a.isOpen() {
			continue
		}

		compat := filterMatches(a.Candidate.Matches(), func(m pricing.Match) bool {
			return m.BatchAfter() == current
		})
		switch len(compat) {
		case 0:
		case 1:
			if a.resolve(compat[0]) {
				resolved++
			}
		default:
			a.narrow(compat)
		}
	}
	return resolved
}

// =============================================================================
// SELLER LOOK-BEHIND
// =============================================================================

// sellerState is what one selling point has been confirmed to sell so far.
type sellerState struct {
	seen   map[ticket.Batch]struct{}
	latest map[ticket.Batch]struct{}
}

func (s *sellerState) observe(m pricing.Match) {
	if s.seen == nil {
		s.seen = make(map[ticket.Batch]struct{})
	}
	s.latest = make(map[ticket.Batch]struct{})
	for _, b := range m.Batches() {
		s.seen[b] = struct{}{}
		s.latest[b] = struct{}{}
	}
}

// continues reports whether m shares a batch with the seller's history.
func (s *sellerState) continues(m pricing.Match) bool {
	for _, b := range m.Batches() {
		if _, ok := s.seen[b]; ok {
			return true
		}
	}
	return false
}

// staysOn reports whether m introduces no batch beyond the latest match.
func (s *sellerState) staysOn(m pricing.Match) bool {
	for _, b := range m.Batches() {
		if _, ok := s.latest[b]; !ok {
			return false
		}
	}
	return true
}

// sellerPass tracks batch progression per selling point. Sales without an
// identifiable seller are left alone.
func sellerPass(l *Ledger) int {
	states := make(map[Seller]*sellerState)
	resolved := 0

	for _, a := range l.sales {
		seller, ok := a.Record.Seller()
		if !ok {
			continue
		}
		state, ok := states[seller]
		if !ok {
			state = &sellerState{}
			states[seller] = state
		}

		if m, ok := a.Resolved(); ok {
			state.observe(m)
			continue
		}
		if !a.isOpen() {
			continue
		}

		compat := filterMatches(a.Candidate.Matches(), state.continues)
		if len(compat) == 0 {
			continue
		}
		if len(compat) == 1 {
			if a.resolve(compat[0]) {
				state.observe(compat[0])
				resolved++
			}
			continue
		}

		staying := filterMatches(compat, state.staysOn)
		if len(staying) == 1 && a.resolve(staying[0]) {
			state.observe(staying[0])
			resolved++
			continue
		}
		a.narrow(compat)
	}
	return resolved
}

func filterMatches(ms []pricing.Match, keep func(pricing.Match) bool) []pricing.Match {
	var out []pricing.Match
	for _, m := range ms {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

// =============================================================================
// DRIVER
// =============================================================================

// Solve applies the context's resolver until a pass resolves nothing. It
// returns the number of passes run and the number of sales resolved. A
// ledger with nothing ambiguous is left untouched and reports zero passes.
func (l *Ledger) Solve(ctx context.Context) (passes, resolved int) {
	log := logger.FromContext(ctx)
	if len(l.Ambiguous()) == 0 {
		return 0, 0
	}

	bound := l.Len() + 1
	for passes < bound {
		passes++
		n := l.context.Resolver.Apply(l)
		resolved += n
		log.Debug().
			Str("resolver", l.context.Resolver.String()).
			Int("pass", passes).
			Int("resolved", n).
			Msg("resolution pass")
		if n == 0 {
			break
		}
	}

	log.Info().
		Str("resolver", l.context.Resolver.String()).
		Int("passes", passes).
		Int("resolved", resolved).
		Int("still_ambiguous", len(l.Ambiguous())).
		Msg("ambiguity resolution finished")
	return passes, resolved
}
