package report_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ticket-recon/report"
	"github.com/warp/ticket-recon/sale"
	"github.com/warp/ticket-recon/ticket"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const salesCSV = `date,email,username,amount,kind,seller,seller_id,seller_email,token,sale_id,card,prefix,suffix
2024-03-01T10:00:00-03:00,a@x.com,N/A,60.00,Ponto de venda,Kiosk-A,N/A,N/A,t1,a-precise,N/A,N/A,N/A
2024-03-01T10:05:00-03:00,b@x.com,N/A,90.00,Ponto de venda,Kiosk-B,N/A,N/A,t2,b-precise,N/A,N/A,N/A
2024-03-01T10:10:00-03:00,c@x.com,N/A,180.00,Ponto de venda,Kiosk-A,N/A,N/A,t3,a-ambiguous,N/A,N/A,N/A
2024-03-01T10:15:00-03:00,d@x.com,N/A,180.00,Ponto de venda,Kiosk-B,N/A,N/A,t4,b-ambiguous,N/A,N/A,N/A
2024-03-01T10:20:00-03:00,e@x.com,N/A,180.00,Ponto de venda,N/A,N/A,N/A,t5,nobody,N/A,N/A,N/A
2024-03-01T10:25:00-03:00,f@x.com,N/A,70.00,Ponto de venda,Kiosk-A,N/A,N/A,t6,impossible,N/A,N/A,N/A
2024-03-01T10:30:00-03:00,g@x.com,N/A,66.00,Venda Online,N/A,N/A,N/A,t7,web,N/A,N/A,N/A
`

func solvedLedger(t *testing.T) *sale.Ledger {
	t.Helper()
	out, err := sale.Process(context.Background(), strings.NewReader(salesCSV), sale.Context{
		OnlineFee: sale.Fee{Numerator: 11, Denominator: 10},
		Catalog:   ticket.FromPrices([]int64{5000, 6000, 9000}),
		Resolver:  sale.ResolverSeller,
	})
	require.NoError(t, err)
	require.Empty(t, out.ParseErrors)
	return out.Ledger
}

// =============================================================================
// DEFAULT TEMPLATE
// =============================================================================

func TestDefault_Fields(t *testing.T) {
	// GIVEN: A solved day with one residual ambiguity and one impossible sale
	l := solvedLedger(t)

	// WHEN: Computing the default report
	r := report.Default().Compute(l)

	// THEN: Fields come out in template order
	assert.Equal(t, []report.StringField{
		{Name: report.NameTotalSales, Value: "7"},
		{Name: report.NameSettledSales, Value: "5 (71%)"},
		{Name: report.NameTotalTickets, Value: "8"},
		{Name: report.NameOnlineTickets, Value: "1"},
		{Name: report.NameInitiallyAmbiguous, Value: "3"},
		{Name: report.NameStillAmbiguous, Value: "1"},
		{Name: report.NameNoSolution, Value: "1"},
	}, r.Fields)
}

func TestDefault_Tables(t *testing.T) {
	r := report.Default().Compute(solvedLedger(t))

	sellers, ok := r.Table(report.NameTicketsPerSeller)
	require.True(t, ok)
	assert.Equal(t, []report.TableRow{
		{Key: "Kiosk-A", Value: "4"},
		{Key: "Kiosk-B", Value: "3"},
	}, sellers.Rows)

	batches, ok := r.Table(report.NameTicketsPerBatch)
	require.True(t, ok)
	assert.Equal(t, []report.TableRow{
		{Key: "batch 1", Value: "5"},
		{Key: "batch 2", Value: "3"},
	}, batches.Rows)
}

func TestTicketsPerBatch_NumericOrder(t *testing.T) {
	// GIVEN: Eleven numbered batches and one precise sale each of batch 10 and batch 2
	prices := make([]int64, 12)
	for i := range prices {
		prices[i] = 10000 + int64(i)*7
	}
	csv := `date,email,username,amount,kind,seller,seller_id,seller_email,token,sale_id,card,prefix,suffix
2024-03-01T10:00:00-03:00,a@x.com,N/A,100.70,Ponto de venda,Kiosk-A,N/A,N/A,t1,tenth,N/A,N/A,N/A
2024-03-01T10:05:00-03:00,b@x.com,N/A,100.14,Ponto de venda,Kiosk-A,N/A,N/A,t2,second,N/A,N/A,N/A
`
	out, err := sale.Process(context.Background(), strings.NewReader(csv), sale.Context{
		OnlineFee: sale.Fee{Numerator: 11, Denominator: 10},
		Catalog:   ticket.FromPrices(prices),
		Resolver:  sale.ResolverSeller,
	})
	require.NoError(t, err)

	// WHEN: Building the batch table
	got := report.TicketsPerBatch(out.Ledger)

	// THEN: Batch 2 comes before batch 10
	assert.Equal(t, []report.TableRow{
		{Key: "batch 2", Value: "1"},
		{Key: "batch 10", Value: "1"},
	}, got.Rows)
}

func TestTemplate_CallerSupplied(t *testing.T) {
	// GIVEN: A template with one custom field
	custom := func(l *sale.Ledger) report.StringField {
		return report.StringField{Name: "Rows", Value: "many"}
	}
	tpl := report.Template{Fields: []report.FieldFunc{report.TotalSales, custom}}

	// WHEN: Computing it
	r := tpl.Compute(solvedLedger(t))

	// THEN: Only the requested fields, in order
	require.Len(t, r.Fields, 2)
	assert.Equal(t, "Rows", r.Fields[1].Name)
	assert.Empty(t, r.Tables)

	v, ok := r.Field(report.NameTotalSales)
	assert.True(t, ok)
	assert.Equal(t, "7", v)
	_, ok = r.Field(report.NameNoSolution)
	assert.False(t, ok)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, report.Percent(0, 0))
	assert.Equal(t, 100, report.Percent(3, 3))
	assert.Equal(t, 71, report.Percent(5, 7))
	assert.Equal(t, 67, report.Percent(2, 3))
	assert.Equal(t, 50, report.Percent(1, 2))
}

func TestEmptyLedger(t *testing.T) {
	c := sale.Context{OnlineFee: sale.NoFee, Catalog: ticket.FromPrices([]int64{5000}), Resolver: sale.ResolverNone}
	l := sale.NewLedger(nil, c, c.NewCache())

	r := report.Default().Compute(l)

	v, _ := r.Field(report.NameSettledSales)
	assert.Equal(t, "0 (0%)", v)
	tbl, _ := r.Table(report.NameTicketsPerSeller)
	assert.Empty(t, tbl.Rows)
}

func TestWriteText(t *testing.T) {
	rep := report.Report{
		Fields: []report.StringField{{Name: "Total sales", Value: "7"}, {Name: "Settled sales", Value: "5 (71%)"}},
		Tables: []report.TableField{
			{Name: "Tickets per batch", Rows: []report.TableRow{{Key: "batch 1", Value: "5"}, {Key: "batch 10", Value: "3"}}},
			{Name: "Offline tickets per selling point"},
		},
	}
	var buf strings.Builder

	require.NoError(t, rep.WriteText(&buf))

	assert.Equal(t, "Total sales:   7\n"+
		"Settled sales: 5 (71%)\n"+
		"\nTickets per batch:\n"+
		"  batch 1  5\n"+
		"  batch 10 3\n"+
		"\nOffline tickets per selling point:\n"+
		"  (none)\n", buf.String())
}
