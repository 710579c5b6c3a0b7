/*
Package report summarizes a solved ledger for operators.

PURPOSE:
  A Template is an ordered list of field functions supplied by the caller.
  Compute evaluates each one against a ledger and returns plain name/value
  pairs, ready for the CLI, the API or a stored run.

KEY CONCEPTS:
  - FieldFunc: ledger -> one named value ("Total sales": "120")
  - TableFunc: ledger -> one named table of key/value rows, sorted by key
                 (batch tables in sale order)

SEE ALSO:
  - sale/ledger.go: The queries the default fields are built on
*/
package report

import (
	"fmt"
	"sort"

	"github.com/warp/ticket-recon/sale"
	"github.com/warp/ticket-recon/ticket"
)

// StringField is a single named value.
type StringField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TableRow is one key/value line of a table.
type TableRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TableField is a named table.
type TableField struct {
	Name string     `json:"name"`
	Rows []TableRow `json:"rows"`
}

type FieldFunc func(*sale.Ledger) StringField
type TableFunc func(*sale.Ledger) TableField

// Template is the ordered set of fields a report is made of.
type Template struct {
	Fields []FieldFunc
	Tables []TableFunc
}

// Report is a computed Template.
type Report struct {
	Fields []StringField `json:"fields"`
	Tables []TableField  `json:"tables"`
}

// Default is every field and table this package provides.
func Default() Template {
	return Template{
		Fields: []FieldFunc{
			TotalSales,
			SettledSales,
			TotalTickets,
			OnlineTickets,
			InitiallyAmbiguous,
			StillAmbiguous,
			NoSolution,
		},
		Tables: []TableFunc{
			TicketsPerSeller,
			TicketsPerBatch,
		},
	}
}

// Compute evaluates the template in order.
func (t Template) Compute(l *sale.Ledger) Report {
	r := Report{
		Fields: make([]StringField, 0, len(t.Fields)),
		Tables: make([]TableField, 0, len(t.Tables)),
	}
	for _, f := range t.Fields {
		r.Fields = append(r.Fields, f(l))
	}
	for _, f := range t.Tables {
		r.Tables = append(r.Tables, f(l))
	}
	return r
}

// Field returns the value of the named field.
func (r Report) Field(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Table returns the named table.
func (r Report) Table(name string) (TableField, bool) {
	for _, t := range r.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableField{}, false
}

// Percent is part/total as a whole percentage, rounded half up. An empty
// total is 0%.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (100*part + total/2) / total
}

func field(name string, value any) StringField {
	return StringField{Name: name, Value: fmt.Sprint(value)}
}

func table(name string, counts map[string]int) TableField {
	rows := make([]TableRow, 0, len(counts))
	for k, v := range counts {
		rows = append(rows, TableRow{Key: k, Value: fmt.Sprint(v)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return TableField{Name: name, Rows: rows}
}

// batchTable orders rows by sale progression, promo first.
func batchTable(name string, counts map[ticket.BatchNum]int) TableField {
	nums := make([]ticket.BatchNum, 0, len(counts))
	for n := range counts {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	rows := make([]TableRow, 0, len(nums))
	for _, n := range nums {
		rows = append(rows, TableRow{Key: n.String(), Value: fmt.Sprint(counts[n])})
	}
	return TableField{Name: name, Rows: rows}
}
