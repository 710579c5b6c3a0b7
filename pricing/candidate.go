package pricing

import "strings"

// =============================================================================
// CANDIDATE - Outcome of enumeration for one amount
// =============================================================================

type Outcome int

const (
	NoMatch Outcome = iota
	Precise
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case Precise:
		return "precise"
	case Ambiguous:
		return "ambiguous"
	default:
		return "no_match"
	}
}

const (
	// Disjunction joins the members of an ambiguous candidate.
	Disjunction = " or "
	// NoSolution is the decoding of an amount nothing matches.
	NoSolution = "no solution"

	amountSeparator = " + "
)

// Candidate is immutable once built. Matches are kept sorted so every
// rendering of the same set is identical.
type Candidate struct {
	outcome Outcome
	matches []Match
}

// NewCandidate collapses a set by size: 0 -> NoMatch, 1 -> Precise,
// 2+ -> Ambiguous.
func NewCandidate(set MatchSet) Candidate {
	ms := set.Sorted()
	switch len(ms) {
	case 0:
		return Candidate{outcome: NoMatch}
	case 1:
		return Candidate{outcome: Precise, matches: ms}
	default:
		return Candidate{outcome: Ambiguous, matches: ms}
	}
}

func (c Candidate) Outcome() Outcome { return c.outcome }
func (c Candidate) Len() int         { return len(c.matches) }

// Match returns the single match of a Precise candidate.
func (c Candidate) Match() (Match, bool) {
	if c.outcome != Precise {
		return Match{}, false
	}
	return c.matches[0], true
}

// Matches returns a copy of the members, in deterministic order.
func (c Candidate) Matches() []Match {
	return append([]Match(nil), c.matches...)
}

// Set returns the members as a fresh MatchSet.
func (c Candidate) Set() MatchSet {
	return NewMatchSet(c.matches...)
}

func (c Candidate) Contains(m Match) bool {
	for _, x := range c.matches {
		if x == m {
			return true
		}
	}
	return false
}

func (c Candidate) String() string {
	if c.outcome == NoMatch {
		return NoSolution
	}
	parts := make([]string, len(c.matches))
	for i, m := range c.matches {
		parts[i] = m.String()
	}
	return strings.Join(parts, Disjunction)
}
