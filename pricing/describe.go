package pricing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/warp/ticket-recon/ticket"
)

// ErrBadDescription is returned when a decoding string is not a match
// rendered by Match.String.
var ErrBadDescription = errors.New("invalid match description")

// ParseMatch reads back a description produced by Match.String, looking the
// batches up in catalog to recover their prices.
func ParseMatch(desc string, catalog ticket.Catalog) (Match, error) {
	parts := strings.Split(strings.TrimSpace(desc), amountSeparator)
	amounts := make([]ticket.BatchAmount, 0, len(parts))
	for _, p := range parts {
		a, err := parseAmount(p, catalog)
		if err != nil {
			return Match{}, fmt.Errorf("%q: %w", desc, err)
		}
		amounts = append(amounts, a)
	}

	switch len(amounts) {
	case 1:
		return Multiple(amounts[0]), nil
	case 2:
		a1, a2 := amounts[0], amounts[1]
		switch {
		case a1.Batch.Num.IsPromotional() && a2.Batch.Num == ticket.Numbered(1):
			return PromoCombo(a1, a2), nil
		case !a1.Batch.Num.IsPromotional() && a2.Batch.Num == a1.Batch.Num.Next():
			return TurnOfBatch(a1, a2), nil
		}
		return Match{}, fmt.Errorf("%q: batches are not adjacent: %w", desc, ErrBadDescription)
	default:
		return Match{}, fmt.Errorf("%q: %w", desc, ErrBadDescription)
	}
}

// parseAmount reads "3x batch 2" or "1x promo".
func parseAmount(s string, catalog ticket.Catalog) (ticket.BatchAmount, error) {
	qty, batch, ok := strings.Cut(strings.TrimSpace(s), "x ")
	if !ok {
		return ticket.BatchAmount{}, ErrBadDescription
	}
	q, err := strconv.Atoi(qty)
	if err != nil || q < 1 {
		return ticket.BatchAmount{}, ErrBadDescription
	}

	var num ticket.BatchNum
	switch {
	case batch == ticket.Promotional.String():
		num = ticket.Promotional
	case strings.HasPrefix(batch, "batch "):
		n, err := strconv.Atoi(strings.TrimPrefix(batch, "batch "))
		if err != nil || n < 1 {
			return ticket.BatchAmount{}, ErrBadDescription
		}
		num = ticket.Numbered(n)
	default:
		return ticket.BatchAmount{}, ErrBadDescription
	}

	b, ok := catalog.Lookup(num)
	if !ok {
		return ticket.BatchAmount{}, fmt.Errorf("%s not in catalog: %w", num, ErrBadDescription)
	}
	return ticket.BatchAmount{Batch: b, Quantity: q}, nil
}
