package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/pkg/metrics"
)

func newStore() *TreapStore {
	return NewTreapStore(WithMetrics(metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))))
}

func performer(id string, score float64) model.Performer {
	return model.Performer{StudentID: id, Name: "Student " + id, AverageScore: score, Records: 2}
}

func TestTreapStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	// Test empty store
	if count := store.Count(ctx); count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}
	if _, err := store.Rank(ctx, "S1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on empty store, got %v", err)
	}

	if err := store.Replace(ctx, []model.Performer{performer("S1", 85.5)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count := store.Count(ctx); count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	entry, err := store.Rank(ctx, "S1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 1 || entry.Of != 1 {
		t.Errorf("expected rank 1 of 1, got %d of %d", entry.Rank, entry.Of)
	}
	if entry.AverageScore != 85.5 {
		t.Errorf("expected score 85.5, got %f", entry.AverageScore)
	}
	if entry.Name != "Student S1" || entry.Records != 2 {
		t.Errorf("unexpected display data: %+v", entry)
	}
}

func TestTreapStore_Ordering(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	err := store.Replace(ctx, []model.Performer{
		performer("S1", 85),
		performer("S2", 95),
		performer("S3", 75),
		performer("S4", 100),
		performer("S5", 80),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := store.TopN(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}

	expectedOrder := []string{"S4", "S2", "S1", "S5", "S3"}
	for i, expectedID := range expectedOrder {
		if entries[i].StudentID != expectedID {
			t.Errorf("position %d: expected %s, got %s", i, expectedID, entries[i].StudentID)
		}
		if entries[i].Rank != i+1 {
			t.Errorf("position %d: expected rank %d, got %d", i, i+1, entries[i].Rank)
		}
		if entries[i].Of != 5 {
			t.Errorf("position %d: expected of 5, got %d", i, entries[i].Of)
		}
	}

	top2, err := store.TopN(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top2) != 2 || top2[1].StudentID != "S2" {
		t.Errorf("unexpected top 2: %+v", top2)
	}
}

func TestTreapStore_Ties(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	// B comes first in the input, so it leads the tie.
	err := store.Replace(ctx, []model.Performer{
		performer("B", 90),
		performer("A", 90),
		performer("C", 70),
		performer("D", 90.0000000001), // float noise below the fixed-point scale
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := store.TopN(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantIDs := []string{"B", "A", "D", "C"}
	wantRanks := []int{1, 1, 1, 4}
	for i := range wantIDs {
		if entries[i].StudentID != wantIDs[i] || entries[i].Rank != wantRanks[i] {
			t.Errorf("position %d: expected %s rank %d, got %s rank %d",
				i, wantIDs[i], wantRanks[i], entries[i].StudentID, entries[i].Rank)
		}
	}

	for id, want := range map[string]int{"A": 1, "B": 1, "D": 1, "C": 4} {
		entry, err := store.Rank(ctx, id)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", id, err)
		}
		if entry.Rank != want {
			t.Errorf("%s: expected rank %d, got %d", id, want, entry.Rank)
		}
	}
}

func TestTreapStore_Replace(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	if err := store.Replace(ctx, []model.Performer{performer("S1", 50), performer("S2", 60)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Replace(ctx, []model.Performer{performer("X", 10)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Count(ctx) != 1 {
		t.Errorf("expected the old standings to be gone, got %d students", store.Count(ctx))
	}
	if _, err := store.Rank(ctx, "S1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for replaced student, got %v", err)
	}

	// Duplicates are refused and the previous standings survive.
	err := store.Replace(ctx, []model.Performer{performer("Y", 1), performer("Y", 2)})
	if !errors.Is(err, ErrDuplicateStudent) {
		t.Errorf("expected ErrDuplicateStudent, got %v", err)
	}
	if _, err := store.Rank(ctx, "X"); err != nil {
		t.Errorf("expected X to survive a failed replace, got %v", err)
	}

	if err := store.Replace(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Count(ctx) != 0 {
		t.Errorf("expected empty standings, got %d", store.Count(ctx))
	}
	entries, err := store.TopN(ctx, 3)
	if err != nil || len(entries) != 0 {
		t.Errorf("expected no entries, got %v (%v)", entries, err)
	}
}

func TestTreapStore_InvalidLimit(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	for _, n := range []int{0, -1} {
		if _, err := store.TopN(ctx, n); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("TopN(%d): expected ErrInvalidLimit, got %v", n, err)
		}
	}
}

// TestTreapStore_RankMatchesSort cross-checks the order-statistic rank against
// a plain sort over a random population.
func TestTreapStore_RankMatchesSort(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	rng := rand.New(rand.NewSource(42))

	const n = 500
	ps := make([]model.Performer, n)
	for i := range ps {
		// Coarse scores so that ties are common.
		ps[i] = performer(fmt.Sprintf("S%03d", i), float64(rng.Intn(60))+40)
	}
	if err := store.Replace(ctx, ps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sorted := append([]model.Performer(nil), ps...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].AverageScore > sorted[j].AverageScore })

	top, err := store.TopN(ctx, n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, p := range sorted {
		if top[i].StudentID != p.StudentID {
			t.Fatalf("position %d: expected %s, got %s", i, p.StudentID, top[i].StudentID)
		}
		entry, err := store.Rank(ctx, p.StudentID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if entry.Rank != top[i].Rank {
			t.Errorf("%s: Rank gave %d, TopN gave %d", p.StudentID, entry.Rank, top[i].Rank)
		}
	}
}

func TestTreapStore_ConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	_ = store.Replace(ctx, []model.Performer{performer("S1", 50), performer("S2", 70)})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if i%2 == 0 {
					_ = store.Replace(ctx, []model.Performer{performer("S1", float64(j)), performer("S2", 70)})
					continue
				}
				if _, err := store.Rank(ctx, "S2"); err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				_, _ = store.TopN(ctx, 2)
			}
		}(i)
	}
	wg.Wait()

	if store.Count(ctx) != 2 {
		t.Errorf("expected 2 students, got %d", store.Count(ctx))
	}
}

func BenchmarkTreapStore_Replace(b *testing.B) {
	ctx := context.Background()
	store := newStore()
	ps := make([]model.Performer, 10_000)
	for i := range ps {
		ps[i] = performer(fmt.Sprintf("S%05d", i), float64(i%100))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Replace(ctx, ps)
	}
}

func BenchmarkTreapStore_Rank(b *testing.B) {
	ctx := context.Background()
	store := newStore()
	ps := make([]model.Performer, 10_000)
	for i := range ps {
		ps[i] = performer(fmt.Sprintf("S%05d", i), float64(i%100))
	}
	_ = store.Replace(ctx, ps)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Rank(ctx, ps[i%len(ps)].StudentID)
	}
}
