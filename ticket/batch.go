/*
Package ticket provides the static pricing schedule of an event.

PURPOSE:
  A ticketed event sells its tickets in batches. The first batch is a
  promotional tier, the following ones are numbered 1, 2, 3... and are
  sold in that order. This package holds the batch numbering, the batch
  prices (integer cents) and the catalog built from the operator's price
  list. It has no behavior beyond lookup and iteration.

KEY CONCEPTS:
  - BatchNum:    Promotional (0) or Numbered(n), n >= 1. Integer order is
                 the sale-progression order and is never violated.
  - Batch:       A number plus a price in cents.
  - BatchAmount: Some quantity of one batch.
  - Catalog:     Read-only, sorted, keys unique. Built once per run.

USAGE:
  cat := ticket.FromPrices([]int64{5000, 6000, 7000})
  b, ok := cat.Lookup(ticket.Numbered(1)) // {batch 1, 6000}

SEE ALSO:
  - pricing/enumerate.go: Reverse pricing over a Catalog
*/
package ticket

import (
	"errors"
	"fmt"
	"sort"
)

// =============================================================================
// BATCH NUMBER
// =============================================================================

// BatchNum identifies a batch. Zero is the promotional batch.
type BatchNum uint

// Promotional is the promo batch, always sold before Numbered(1).
const Promotional BatchNum = 0

// Numbered returns the n-th numbered batch. Numbering starts at 1.
func Numbered(n int) BatchNum {
	if n < 1 {
		panic(fmt.Sprintf("ticket: numbered batch must be >= 1, got %d", n))
	}
	return BatchNum(n)
}

func (n BatchNum) IsPromotional() bool { return n == Promotional }

// Next returns the batch sold right after n.
func (n BatchNum) Next() BatchNum { return n + 1 }

func (n BatchNum) String() string {
	if n.IsPromotional() {
		return "promo"
	}
	return fmt.Sprintf("batch %d", uint(n))
}

// =============================================================================
// BATCH & AMOUNT
// =============================================================================

// Batch is a single priced tier. Price is in cents.
type Batch struct {
	Num   BatchNum
	Price int64
}

func (b Batch) String() string { return b.Num.String() }

// BatchAmount is a quantity of tickets from one batch.
type BatchAmount struct {
	Batch    Batch
	Quantity int
}

func (a BatchAmount) Price() int64 { return a.Batch.Price * int64(a.Quantity) }

func (a BatchAmount) String() string {
	return fmt.Sprintf("%dx %s", a.Quantity, a.Batch.Num)
}

// =============================================================================
// CATALOG
// =============================================================================

var (
	ErrDuplicateBatch = errors.New("duplicate batch number")
	ErrNegativePrice  = errors.New("negative batch price")
)

// Catalog maps batch numbers to prices. The zero value is an empty catalog.
type Catalog struct {
	batches []Batch // sorted by Num, unique
}

// FromPrices builds a catalog from an ordered price list: index 0 is the
// promotional batch, index i is Numbered(i).
func FromPrices(prices []int64) Catalog {
	batches := make([]Batch, len(prices))
	for i, p := range prices {
		batches[i] = Batch{Num: BatchNum(i), Price: p}
	}
	return Catalog{batches: batches}
}

// NewCatalog builds a catalog from explicit batches, in any order.
func NewCatalog(batches ...Batch) (Catalog, error) {
	sorted := append([]Batch(nil), batches...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Num < sorted[j].Num })
	for i, b := range sorted {
		if b.Price < 0 {
			return Catalog{}, fmt.Errorf("%s: %w", b.Num, ErrNegativePrice)
		}
		if i > 0 && sorted[i-1].Num == b.Num {
			return Catalog{}, fmt.Errorf("%s: %w", b.Num, ErrDuplicateBatch)
		}
	}
	return Catalog{batches: sorted}, nil
}

func (c Catalog) Len() int      { return len(c.batches) }
func (c Catalog) IsEmpty() bool { return len(c.batches) == 0 }

// Batches returns a copy of all batches, ascending.
func (c Catalog) Batches() []Batch {
	return append([]Batch(nil), c.batches...)
}

// Lookup finds the batch with the given number.
func (c Catalog) Lookup(num BatchNum) (Batch, bool) {
	i := sort.Search(len(c.batches), func(i int) bool { return c.batches[i].Num >= num })
	if i < len(c.batches) && c.batches[i].Num == num {
		return c.batches[i], true
	}
	return Batch{}, false
}

// Promo returns the promotional batch, if the catalog has one.
func (c Catalog) Promo() (Batch, bool) { return c.Lookup(Promotional) }

// MinPrice returns the lowest strictly positive price. ok is false when
// every batch is free (or the catalog is empty).
func (c Catalog) MinPrice() (price int64, ok bool) {
	for _, b := range c.batches {
		if b.Price > 0 && (!ok || b.Price < price) {
			price, ok = b.Price, true
		}
	}
	return price, ok
}

// HasFree reports whether some batch costs nothing.
func (c Catalog) HasFree() bool {
	for _, b := range c.batches {
		if b.Price == 0 {
			return true
		}
	}
	return false
}

// Prices returns the price list in batch order.
func (c Catalog) Prices() []int64 {
	out := make([]int64, len(c.batches))
	for i, b := range c.batches {
		out[i] = b.Price
	}
	return out
}
