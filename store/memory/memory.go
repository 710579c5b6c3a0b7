// Package memory provides an in-memory store.RunStore.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/ticket-recon/sale"
	"github.com/warp/ticket-recon/store"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	order []string // run IDs, oldest first
	runs  map[string]entry
}

type entry struct {
	run  store.Run
	rows []sale.ExportRow
}

var _ store.RunStore = (*Memory)(nil)

func New() *Memory {
	return &Memory{runs: make(map[string]entry)}
}

// SaveRun stores or replaces a run.
func (m *Memory) SaveRun(_ context.Context, run store.Run, rows []sale.ExportRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[run.ID]; ok {
		m.removeLocked(run.ID)
	}

	// Binary search for the insertion point keeps order sorted by creation.
	i := sort.Search(len(m.order), func(i int) bool {
		return m.runs[m.order[i]].run.CreatedAt.After(run.CreatedAt)
	})
	m.order = append(m.order, "")
	copy(m.order[i+1:], m.order[i:])
	m.order[i] = run.ID

	m.runs[run.ID] = entry{run: copyRun(run), rows: append([]sale.ExportRow(nil), rows...)}
	return nil
}

func (m *Memory) GetRun(_ context.Context, id string) (*store.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.runs[id]
	if !ok {
		return nil, store.ErrRunNotFound
	}
	run := copyRun(e.run)
	return &run, nil
}

func (m *Memory) ListRuns(_ context.Context) ([]store.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]store.Run, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		result = append(result, copyRun(m.runs[m.order[i]].run))
	}
	return result, nil
}

func (m *Memory) RunRows(_ context.Context, id string, status store.Status) ([]sale.ExportRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.runs[id]
	if !ok {
		return nil, store.ErrRunNotFound
	}
	var result []sale.ExportRow
	for _, row := range e.rows {
		if status.Matches(row) {
			result = append(result, row)
		}
	}
	return result, nil
}

func (m *Memory) DeleteRun(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[id]; !ok {
		return store.ErrRunNotFound
	}
	m.removeLocked(id)
	return nil
}

func (m *Memory) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := sort.Search(len(m.order), func(i int) bool {
		return !m.runs[m.order[i]].run.CreatedAt.Before(cutoff)
	})
	for _, id := range m.order[:n] {
		delete(m.runs, id)
	}
	m.order = append([]string(nil), m.order[n:]...)
	return n, nil
}

func (m *Memory) removeLocked(id string) {
	delete(m.runs, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

func copyRun(r store.Run) store.Run {
	r.ParseErrors = append([]string(nil), r.ParseErrors...)
	return r
}
