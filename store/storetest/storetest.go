// Package storetest holds the behaviour every store.RunStore must share.
// Implementations call Run from their own tests.
package storetest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ticket-recon/report"
	"github.com/warp/ticket-recon/sale"
	"github.com/warp/ticket-recon/store"
	"github.com/warp/ticket-recon/ticket"
)

// SalesCSV has one sale of each status, one online sale and one bad row.
const SalesCSV = `date,email,username,amount,kind,seller,seller_id,seller_email,token,sale_id,card,prefix,suffix
2024-03-01T10:00:00-03:00,a@x.com,ana,60.00,Ponto de venda,Kiosk-A,K1,k@x.com,t1,s1,VISA,4111,1111
2024-03-01T10:05:00-03:00,N/A,N/A,180.00,Ponto de venda,N/A,N/A,N/A,t2,s2,N/A,N/A,N/A
2024-03-01T10:10:00-03:00,N/A,N/A,70.00,Ponto de venda,Kiosk-A,N/A,N/A,t3,s3,N/A,N/A,N/A
2024-03-01T10:15:00Z,b@x.com,N/A,66.00,Venda Online,N/A,N/A,N/A,t4,s4,N/A,N/A,N/A
not a row
`

// Fixture processes SalesCSV into a run created at createdAt.
func Fixture(t *testing.T, id string, createdAt time.Time) (store.Run, []sale.ExportRow) {
	t.Helper()
	out, err := sale.Process(context.Background(), strings.NewReader(SalesCSV), sale.Context{
		OnlineFee: sale.Fee{Numerator: 11, Denominator: 10},
		Catalog:   ticket.FromPrices([]int64{5000, 6000, 9000}),
		Resolver:  sale.ResolverSeller,
	})
	require.NoError(t, err)

	rep := report.Default().Compute(out.Ledger)
	run := store.NewRun(id, "fixture "+id, `{"prices":["50.00","60.00","90.00"]}`, out, rep, createdAt)
	return run, out.Ledger.ExportRows()
}

// Run exercises a fresh store from newStore against the RunStore contract.
func Run(t *testing.T, newStore func(t *testing.T) store.RunStore) {
	ctx := context.Background()
	base := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)

	t.Run("SaveAndGet", func(t *testing.T) {
		st := newStore(t)
		run, rows := Fixture(t, "run-1", base)

		require.NoError(t, st.SaveRun(ctx, run, rows))
		got, err := st.GetRun(ctx, "run-1")

		require.NoError(t, err)
		assert.Equal(t, run.Name, got.Name)
		assert.Equal(t, "seller", got.Resolver)
		assert.Equal(t, run.ConfigJSON, got.ConfigJSON)
		assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, 4, got.Sales)
		assert.Equal(t, 2, got.Settled)
		assert.Equal(t, 1, got.Ambiguous)
		assert.Equal(t, 1, got.Unmatched)
		assert.Len(t, got.ParseErrors, 1)
		assert.Equal(t, run.Report, got.Report)
	})

	t.Run("GetMissing", func(t *testing.T) {
		st := newStore(t)

		_, err := st.GetRun(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrRunNotFound)
		_, err = st.RunRows(ctx, "nope", store.StatusAll)
		assert.ErrorIs(t, err, store.ErrRunNotFound)
		assert.ErrorIs(t, st.DeleteRun(ctx, "nope"), store.ErrRunNotFound)
	})

	t.Run("RowsRoundTrip", func(t *testing.T) {
		st := newStore(t)
		run, rows := Fixture(t, "run-1", base)
		require.NoError(t, st.SaveRun(ctx, run, rows))

		got, err := st.RunRows(ctx, "run-1", store.StatusAll)

		require.NoError(t, err)
		require.Len(t, got, len(rows))
		for i := range rows {
			want, have := rows[i], got[i]
			assert.True(t, want.Record.When.Equal(have.Record.When))
			assert.Equal(t, want.Record.When.Format(time.RFC3339), have.Record.When.Format(time.RFC3339))
			want.Record.When, have.Record.When = time.Time{}, time.Time{}
			assert.Equal(t, want, have)
		}
	})

	t.Run("RowsByStatus", func(t *testing.T) {
		st := newStore(t)
		run, rows := Fixture(t, "run-1", base)
		require.NoError(t, st.SaveRun(ctx, run, rows))

		settled, err := st.RunRows(ctx, "run-1", store.StatusSettled)
		require.NoError(t, err)
		ambiguous, err := st.RunRows(ctx, "run-1", store.StatusAmbiguous)
		require.NoError(t, err)
		unmatched, err := st.RunRows(ctx, "run-1", store.StatusUnmatched)
		require.NoError(t, err)

		assert.Len(t, settled, 2)
		require.Len(t, ambiguous, 1)
		assert.Equal(t, "s2", ambiguous[0].Record.SaleID)
		require.Len(t, unmatched, 1)
		assert.Equal(t, "s3", unmatched[0].Record.SaleID)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		st := newStore(t)
		for i, id := range []string{"b", "c", "a"} {
			run, rows := Fixture(t, id, base.Add(time.Duration([]int{2, 3, 1}[i])*time.Hour))
			require.NoError(t, st.SaveRun(ctx, run, rows))
		}

		runs, err := st.ListRuns(ctx)

		require.NoError(t, err)
		ids := make([]string, 0, len(runs))
		for _, r := range runs {
			ids = append(ids, r.ID)
		}
		assert.Equal(t, []string{"c", "b", "a"}, ids)
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		st := newStore(t)
		run, rows := Fixture(t, "run-1", base)
		require.NoError(t, st.SaveRun(ctx, run, rows))

		run.Name = "renamed"
		require.NoError(t, st.SaveRun(ctx, run, rows[:1]))

		got, err := st.GetRun(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Name)
		gotRows, err := st.RunRows(ctx, "run-1", store.StatusAll)
		require.NoError(t, err)
		assert.Len(t, gotRows, 1)
		runs, err := st.ListRuns(ctx)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	})

	t.Run("Delete", func(t *testing.T) {
		st := newStore(t)
		run, rows := Fixture(t, "run-1", base)
		require.NoError(t, st.SaveRun(ctx, run, rows))

		require.NoError(t, st.DeleteRun(ctx, "run-1"))

		_, err := st.GetRun(ctx, "run-1")
		assert.ErrorIs(t, err, store.ErrRunNotFound)
		_, err = st.RunRows(ctx, "run-1", store.StatusAll)
		assert.ErrorIs(t, err, store.ErrRunNotFound)
	})

	t.Run("DeleteOlderThan", func(t *testing.T) {
		st := newStore(t)
		for i, id := range []string{"old", "older", "fresh"} {
			created := base.Add(-time.Duration([]int{48, 72, 1}[i]) * time.Hour)
			run, rows := Fixture(t, id, created)
			require.NoError(t, st.SaveRun(ctx, run, rows))
		}

		n, err := st.DeleteOlderThan(ctx, base.Add(-24*time.Hour))

		require.NoError(t, err)
		assert.Equal(t, 2, n)
		runs, err := st.ListRuns(ctx)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, "fresh", runs[0].ID)
	})
}
