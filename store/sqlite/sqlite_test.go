package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ticket-recon/store"
	"github.com/warp/ticket-recon/store/sqlite"
	"github.com/warp/ticket-recon/store/storetest"
)

func newTestStore(t *testing.T) store.RunStore {
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestStore_SurvivesReopen(t *testing.T) {
	// GIVEN: A run saved to a database file
	path := filepath.Join(t.TempDir(), "runs.db")
	st, err := sqlite.New(path)
	require.NoError(t, err)

	created := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	run, rows := storetest.Fixture(t, "run-1", created)
	require.NoError(t, st.SaveRun(context.Background(), run, rows))
	require.NoError(t, st.Close())

	// WHEN: Reopening the file
	st, err = sqlite.New(path)
	require.NoError(t, err)
	defer st.Close()

	// THEN: The run and its rows are still there
	got, err := st.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.Report, got.Report)

	gotRows, err := st.RunRows(context.Background(), "run-1", store.StatusAll)
	require.NoError(t, err)
	assert.Len(t, gotRows, len(rows))
}
