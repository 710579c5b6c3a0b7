/*
Package sale turns a ticket-sales CSV export into a ledger of sales whose
batch and quantity are reconstructed from the amount paid.

PURPOSE:
  The export lists when, where and how much, but not what was bought.
  This package ingests the rows, attaches to each one the pricing
  candidates of its real price, then narrows ambiguous candidates with
  what the neighbouring sales say about batch progression.

PIPELINE:
  1. ParseCSV:   rows -> Records (bad rows collected, never fatal)
  2. NewLedger:  Records -> Annotated sales, via a pricing.Cache, sorted by time
  3. Solve:      run the selected Resolver until a pass changes nothing
  4. ExportRows: every sale plus its decoding, for re-export

KEY CONCEPTS IN THIS FILE (record.go):
  - Record: One validated CSV row. Immutable.
  - Seller: Who sold it. All online sales share one seller; each named
            point of sale is its own seller; unnamed offline sales have none.

SEE ALSO:
  - ledger.go:   Annotated sales and the ledger queries
  - resolver.go: Ambiguity resolvers and the fixpoint driver
  - export.go:   The 15-column enriched export
*/
package sale

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RecordLen is the number of columns of a sales export row.
const RecordLen = 13

// NA marks an absent optional field in the export.
const NA = "N/A"

// =============================================================================
// RECORD
// =============================================================================

// Record is one sale as exported. Optional text fields are empty when the
// export had them blank or N/A.
type Record struct {
	When          time.Time
	BuyerEmail    string
	BuyerUsername string
	Paid          int64 // cents, fee included
	KindLabel     string
	Channel       Channel
	SellerName    string
	SellerID      string
	SellerEmail   string
	Token         string
	SaleID        string
	CardName      string
	CardPrefix    string
	CardSuffix    string
}

// RealPrice is the paid amount with the channel fee undone.
func (r Record) RealPrice() int64 {
	return r.Channel.UndoFee(r.Paid)
}

// Seller identifies who sold a ticket, for per-seller batch progression.
type Seller struct {
	Online bool
	Name   string
}

func (s Seller) String() string {
	if s.Online {
		return "online"
	}
	return s.Name
}

// Seller infers the selling point. ok is false for an offline sale with no
// point-of-sale name.
func (r Record) Seller() (Seller, bool) {
	switch {
	case r.Channel.IsOnline():
		return Seller{Online: true}, true
	case r.SellerName != "":
		return Seller{Name: r.SellerName}, true
	default:
		return Seller{}, false
	}
}

// =============================================================================
// CSV INGESTION
// =============================================================================

// ParseCSV reads a sales export with a header row. Rows that cannot be
// parsed become *ParseError values and are skipped. Records come back
// sorted by timestamp; ties keep input order.
func ParseCSV(r io.Reader, fee Fee) ([]Record, []error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var records []Record
	var errs []error

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		errs = append(errs, &ParseError{Line: 1, Err: fmt.Errorf("header: %w", err)})
	}

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				errs = append(errs, &ParseError{Line: csvErr.StartLine, Err: err})
				continue
			}
			errs = append(errs, err)
			break
		}

		line, _ := reader.FieldPos(0)
		rec, err := parseRecord(fields, fee)
		if err != nil {
			errs = append(errs, &ParseError{Line: line, Err: err})
			continue
		}
		records = append(records, rec)
	}

	SortByTime(records)
	return records, errs
}

// SortByTime orders records by timestamp, keeping input order on ties.
func SortByTime(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].When.Before(records[j].When)
	})
}

func parseRecord(v []string, fee Fee) (Record, error) {
	if len(v) != RecordLen {
		return Record{}, fmt.Errorf("expected %d columns, got %d: %w", RecordLen, len(v), ErrColumnCount)
	}

	when, err := time.Parse(time.RFC3339, strings.TrimSpace(v[0]))
	if err != nil {
		return Record{}, fmt.Errorf("%q: %w", v[0], ErrTimestamp)
	}

	paid, err := ParseCents(v[3])
	if err != nil {
		return Record{}, err
	}

	channel := Offline()
	if strings.Contains(v[4], "Online") {
		channel = Online(fee)
	}

	return Record{
		When:          when,
		BuyerEmail:    optional(v[1]),
		BuyerUsername: optional(v[2]),
		Paid:          paid,
		KindLabel:     v[4],
		Channel:       channel,
		SellerName:    optional(v[5]),
		SellerID:      optional(v[6]),
		SellerEmail:   optional(v[7]),
		Token:         v[8],
		SaleID:        v[9],
		CardName:      optional(v[10]),
		CardPrefix:    optional(v[11]),
		CardSuffix:    optional(v[12]),
	}, nil
}

// ParseCents converts a decimal amount in currency units to cents, rounding
// to the nearest cent.
func ParseCents(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrAmount)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%q is negative: %w", s, ErrAmount)
	}
	c := d.Shift(2).Round(0)
	if !c.BigInt().IsInt64() {
		return 0, fmt.Errorf("%q is out of range: %w", s, ErrAmount)
	}
	return c.IntPart(), nil
}

// FormatCents renders cents as a decimal with two places.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

func optional(s string) string {
	s = strings.TrimSpace(s)
	if s == NA {
		return ""
	}
	return s
}

func orNA(s string) string {
	if s == "" {
		return NA
	}
	return s
}
