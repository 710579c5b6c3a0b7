package report

import (
	"fmt"

	"github.com/warp/ticket-recon/sale"
	"github.com/warp/ticket-recon/ticket"
)

// Field and table names of the default template.
const (
	NameTotalSales         = "Total sales"
	NameSettledSales       = "Settled sales"
	NameTotalTickets       = "Total tickets"
	NameOnlineTickets      = "Online tickets"
	NameInitiallyAmbiguous = "Initially ambiguous sales"
	NameStillAmbiguous     = "Still ambiguous sales"
	NameNoSolution         = "Sales with no solution"
	NameTicketsPerSeller   = "Offline tickets per selling point"
	NameTicketsPerBatch    = "Tickets per batch"
)

// =============================================================================
// FIELDS
// =============================================================================

func TotalSales(l *sale.Ledger) StringField {
	return field(NameTotalSales, l.Len())
}

// SettledSales is the count of sales with a match, and their share.
func SettledSales(l *sale.Ledger) StringField {
	n := len(l.Settled())
	return field(NameSettledSales, fmt.Sprintf("%d (%d%%)", n, Percent(n, l.Len())))
}

// TotalTickets counts tickets of settled sales only.
func TotalTickets(l *sale.Ledger) StringField {
	return field(NameTotalTickets, tickets(l, func(*sale.Annotated) bool { return true }))
}

func OnlineTickets(l *sale.Ledger) StringField {
	return field(NameOnlineTickets, tickets(l, func(a *sale.Annotated) bool {
		return a.Record.Channel.IsOnline()
	}))
}

func InitiallyAmbiguous(l *sale.Ledger) StringField {
	return field(NameInitiallyAmbiguous, len(l.InitiallyAmbiguous()))
}

func StillAmbiguous(l *sale.Ledger) StringField {
	return field(NameStillAmbiguous, len(l.Ambiguous()))
}

func NoSolution(l *sale.Ledger) StringField {
	return field(NameNoSolution, len(l.Unmatched()))
}

func tickets(l *sale.Ledger, keep func(*sale.Annotated) bool) int {
	total := 0
	for _, a := range l.Settled() {
		if !keep(a) {
			continue
		}
		m, _ := a.Resolved()
		total += m.Tickets()
	}
	return total
}

// =============================================================================
// TABLES
// =============================================================================

// TicketsPerSeller sums settled offline tickets by selling-point name.
func TicketsPerSeller(l *sale.Ledger) TableField {
	counts := make(map[string]int)
	for _, a := range l.Settled() {
		if a.Record.Channel.IsOnline() || a.Record.SellerName == "" {
			continue
		}
		m, _ := a.Resolved()
		counts[a.Record.SellerName] += m.Tickets()
	}
	return table(NameTicketsPerSeller, counts)
}

// TicketsPerBatch sums settled tickets by batch, both channels.
func TicketsPerBatch(l *sale.Ledger) TableField {
	counts := make(map[ticket.BatchNum]int)
	for _, a := range l.Settled() {
		m, _ := a.Resolved()
		for _, amt := range m.Amounts() {
			counts[amt.Batch.Num] += amt.Quantity
		}
	}
	return batchTable(NameTicketsPerBatch, counts)
}
