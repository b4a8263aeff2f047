package queue

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/contre95/pew/src/reload"
)

type entry struct {
	seq uint64
	rec reload.ProcessRecord
}

// InMemoryHistory is an in-memory implementation of the reload.History interface.
// It is used when no history database is configured.
type InMemoryHistory struct {
	items sync.Map // map[string]entry
	seq   atomic.Uint64
}

// NewInMemoryHistory creates a new in-memory history
func NewInMemoryHistory() *InMemoryHistory {
	return &InMemoryHistory{}
}

// Record adds the run or replaces the one with the same ID, keeping its position.
func (h *InMemoryHistory) Record(ctx context.Context, rec reload.ProcessRecord) error {
	e := entry{rec: rec}
	if prev, ok := h.items.Load(rec.ID); ok {
		e.seq = prev.(entry).seq
	} else {
		e.seq = h.seq.Add(1)
	}
	h.items.Store(rec.ID, e)
	return nil
}

// Recent returns up to limit runs, newest first.
func (h *InMemoryHistory) Recent(ctx context.Context, limit int) ([]reload.ProcessRecord, error) {
	var entries []entry
	h.items.Range(func(key, value any) bool {
		if e, ok := value.(entry); ok {
			entries = append(entries, e)
		}
		return true
	})
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.rec.StartedAt.Equal(b.rec.StartedAt) {
			return a.rec.StartedAt.After(b.rec.StartedAt)
		}
		return a.seq > b.seq
	})
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	records := make([]reload.ProcessRecord, len(entries))
	for i, e := range entries {
		records[i] = e.rec
	}
	return records, nil
}

// Clear removes all records
func (h *InMemoryHistory) Clear() {
	h.items.Range(func(key, value any) bool {
		h.items.Delete(key)
		return true
	})
}
