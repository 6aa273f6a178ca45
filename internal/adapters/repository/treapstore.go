package repository

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: score DESC, then input order ASC. "less" means ranks earlier,
// so in-order traversal yields the standings from best to worst. Subtree
// sizes let Rank count the students ahead in O(log n).

// scoreScale fixes scores to 9 decimal places so that means which differ
// only by float noise tie.
const scoreScale = 1_000_000_000

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	if math.IsNaN(x) {
		return 0
	}
	return scoreFP(math.Round(x * scoreScale))
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

// record stores the fixed-point score plus display data for a student.
type record struct {
	score   scoreFP
	seq     int
	name    string
	records int
}

// treap node
type node struct {
	id    string
	score scoreFP
	seq   int
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aSeq) should appear before (bScore, bSeq).
func less(aScore scoreFP, aSeq int, bScore scoreFP, bSeq int) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aSeq < bSeq
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n, nn *node) *node {
	if n == nil {
		return nn
	}
	if less(nn.score, nn.seq, n.score, n.seq) {
		n.left = insert(n.left, nn)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, nn)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// countAbove returns how many nodes score strictly higher than s.
func countAbove(n *node, s scoreFP) int {
	c := 0
	for n != nil {
		if n.score > s {
			c += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return c
}

// collectTopN appends up to limit entries in rank order.
func collectTopN(n *node, limit int, byID map[string]record, out *[]Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, byID, out)
	if len(*out) < limit {
		rec := byID[n.id]
		*out = append(*out, Entry{
			StudentID:    n.id,
			Name:         rec.name,
			AverageScore: toFloat(rec.score),
			Records:      rec.records,
		})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, byID, out)
	}
}

// assignRanks gives tied scores the same rank and skips the ranks they
// occupy (1, 2, 2, 4). entries must start at the top of the standings.
func assignRanks(entries []Entry, of int) {
	for i := range entries {
		entries[i].Of = of
		if i > 0 && entries[i].AverageScore == entries[i-1].AverageScore {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}

// TreapStore is a Store backed by an order-statistic treap.
type TreapStore struct {
	mu      sync.RWMutex
	root    *node
	byID    map[string]record
	metrics *metrics.Manager
}

// NewTreapStore constructs an empty store.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID:    make(map[string]record),
		metrics: metrics.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Replace implements Store.Replace. The new standings are built aside and
// swapped in, so readers never see a partial set.
func (s *TreapStore) Replace(ctx context.Context, performers []model.Performer) error {
	start := time.Now()

	var root *node
	byID := make(map[string]record, len(performers))
	for i, p := range performers {
		if _, dup := byID[p.StudentID]; dup {
			s.metrics.RecordErrorByComponent("standings", "duplicate")
			return fmt.Errorf("%w: %s", ErrDuplicateStudent, p.StudentID)
		}
		fp := toFixedPoint(p.AverageScore)
		byID[p.StudentID] = record{score: fp, seq: i, name: p.Name, records: p.Records}
		root = insert(root, &node{id: p.StudentID, score: fp, seq: i, prio: rand.Uint64(), size: 1})
	}

	s.mu.Lock()
	s.root = root
	s.byID = byID
	s.mu.Unlock()

	s.metrics.UpdateStandingsSize(len(byID))
	s.metrics.RecordStandingsRebuild(float64(time.Since(start).Microseconds()) / 1e3)
	return nil
}

// Rank returns the standing of a student in O(log n).
func (s *TreapStore) Rank(ctx context.Context, studentID string) (Entry, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordStandingsQueryLatency(float64(time.Since(start).Microseconds()) / 1e3)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[studentID]
	if !ok {
		s.metrics.RecordErrorByComponent("standings", "not_found")
		return Entry{}, ErrNotFound
	}
	return Entry{
		Rank:         countAbove(s.root, rec.score) + 1,
		StudentID:    studentID,
		Name:         rec.name,
		AverageScore: toFloat(rec.score),
		Records:      rec.records,
		Of:           len(s.byID),
	}, nil
}

// TopN returns the top N entries ordered by score desc.
func (s *TreapStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordStandingsQueryLatency(float64(time.Since(start).Microseconds()) / 1e3)
	}()

	if n < 1 {
		s.metrics.RecordErrorByComponent("standings", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byID)))
	collectTopN(s.root, n, s.byID, &out)
	assignRanks(out, len(s.byID))
	return out, nil
}

// Count returns the number of ranked students.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
