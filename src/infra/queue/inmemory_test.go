package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/contre95/pew/src/reload"
)

func TestInMemoryHistoryOrderAndUpsert(t *testing.T) {
	h := NewInMemoryHistory()
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	for i := 0; i < 5; i++ {
		rec := reload.ProcessRecord{ID: fmt.Sprint(i), PID: 100 + i, StartedAt: base.Add(time.Duration(i) * time.Second)}
		if err := h.Record(ctx, rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	stopped := base.Add(10 * time.Second)
	if err := h.Record(ctx, reload.ProcessRecord{ID: "2", PID: 102, StartedAt: base.Add(2 * time.Second), StoppedAt: &stopped}); err != nil {
		t.Fatalf("update: %v", err)
	}

	recs, _ := h.Recent(ctx, 3)
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i, want := range []string{"4", "3", "2"} {
		if recs[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, recs[i].ID)
		}
	}
	if recs[2].StoppedAt == nil {
		t.Error("update should replace the stored record")
	}

	all, _ := h.Recent(ctx, 100)
	if len(all) != 5 {
		t.Errorf("upsert must not duplicate, got %d records", len(all))
	}

	h.Clear()
	if recs, _ := h.Recent(ctx, 10); len(recs) != 0 {
		t.Errorf("expected empty history, got %d", len(recs))
	}
}

func TestInMemoryHistoryConcurrentWrites(t *testing.T) {
	h := NewInMemoryHistory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.Record(context.Background(), reload.ProcessRecord{ID: fmt.Sprint(i), StartedAt: time.Now()})
		}(i)
	}
	wg.Wait()
	recs, _ := h.Recent(context.Background(), 100)
	if len(recs) != 50 {
		t.Errorf("expected 50 records, got %d", len(recs))
	}
}
