package matching

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/your-org/faceaccess/internal/models"
	"github.com/your-org/faceaccess/internal/registry"
)

func snapshotOf(entries ...registry.Entry) *registry.Snapshot {
	return &registry.Snapshot{Version: 1, Entries: entries}
}

func entry(name string, emb ...float32) registry.Entry {
	return registry.Entry{PersonID: uuid.New(), Name: name, Embedding: emb}
}

func randomEmbedding(rng *rand.Rand, dim int) models.Embedding {
	emb := make(models.Embedding, dim)
	for i := range emb {
		emb[i] = float32(rng.NormFloat64() * 0.1)
	}
	return emb
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"3-4-5", []float32{0, 0}, []float32{3, 4}, 5},
		{"unit axis", []float32{1, 0, 0}, []float32{0, 1, 0}, math.Sqrt2},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, math.Inf(1)},
		{"empty", nil, nil, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.IsInf(tt.want, 1) {
				if !math.IsInf(got, 1) {
					t.Errorf("Distance() = %v, want +Inf", got)
				}
				return
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Distance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatch_EmptySnapshot(t *testing.T) {
	for _, tol := range []float64{0.1, 0.6, 10, math.Inf(1)} {
		for _, snap := range []*registry.Snapshot{nil, {}} {
			res := Match(models.Embedding{1, 2, 3}, snap, tol)
			if res.Recognized {
				t.Errorf("tolerance %v: Recognized = true on empty snapshot", tol)
			}
			if res.Name != models.UnknownName {
				t.Errorf("tolerance %v: Name = %q, want %q", tol, res.Name, models.UnknownName)
			}
			if !math.IsInf(res.Distance, 1) || res.Index != -1 {
				t.Errorf("tolerance %v: got distance %v index %d, want +Inf and -1", tol, res.Distance, res.Index)
			}
		}
	}
}

func TestMatch_AcceptsBelowTolerance(t *testing.T) {
	snap := snapshotOf(
		entry("Ana", 0, 0),
		entry("Bruno", 1, 1),
	)

	res := Match(models.Embedding{0.1, 0}, snap, DefaultTolerance)
	if !res.Recognized || res.Name != "Ana" {
		t.Fatalf("Match() = %+v, want Ana recognized", res)
	}
	if math.Abs(res.Distance-0.1) > 1e-6 {
		t.Errorf("Distance = %v, want 0.1", res.Distance)
	}
	if res.Index != 0 {
		t.Errorf("Index = %d, want 0", res.Index)
	}
}

func TestMatch_ToleranceIsStrict(t *testing.T) {
	snap := snapshotOf(entry("Ana", 0, 0))

	// distance exactly 0.5
	res := Match(models.Embedding{0.3, 0.4}, snap, 0.5)
	if res.Recognized {
		t.Errorf("distance equal to tolerance was accepted: %+v", res)
	}
	if res.Name != models.UnknownName {
		t.Errorf("Name = %q, want %q", res.Name, models.UnknownName)
	}
	if res.Index != 0 {
		t.Errorf("Index = %d, want nearest entry 0 even when rejected", res.Index)
	}
}

func TestMatch_TiesGoToFirstEntry(t *testing.T) {
	snap := snapshotOf(
		entry("Far", 5, 5),
		entry("First", 1, 0),
		entry("Second", -1, 0),
	)

	res := Match(models.Embedding{0, 0}, snap, DefaultTolerance*10)
	if res.Name != "First" || res.Index != 1 {
		t.Errorf("Match() = %+v, want First at index 1", res)
	}
}

func TestMatch_SkipsMismatchedDimensions(t *testing.T) {
	snap := snapshotOf(
		entry("Short", 0, 0),
		entry("Right", 0, 0, 0.1),
	)

	res := Match(models.Embedding{0, 0, 0}, snap, DefaultTolerance)
	if res.Name != "Right" {
		t.Errorf("Match() = %+v, want Right", res)
	}
}

// Nearest distance must equal the brute-force minimum and acceptance must
// depend only on that distance.
func TestMatch_BruteForceOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const dim = 128

	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(40)
		entries := make([]registry.Entry, n)
		for i := range entries {
			entries[i] = registry.Entry{Name: string(rune('A' + i%26)), Embedding: randomEmbedding(rng, dim)}
		}
		snap := snapshotOf(entries...)
		query := randomEmbedding(rng, dim)
		tol := rng.Float64() * 2

		best := math.Inf(1)
		bestIdx := -1
		for i, e := range entries {
			var sum float64
			for k := range query {
				d := float64(query[k]) - float64(e.Embedding[k])
				sum += d * d
			}
			if d := math.Sqrt(sum); d < best {
				best, bestIdx = d, i
			}
		}

		res := Match(query, snap, tol)
		if math.Abs(res.Distance-best) > 1e-9 {
			t.Fatalf("round %d: Distance = %v, oracle = %v", round, res.Distance, best)
		}
		if res.Index != bestIdx {
			t.Fatalf("round %d: Index = %d, oracle = %d", round, res.Index, bestIdx)
		}
		if res.Recognized != (best < tol) {
			t.Fatalf("round %d: Recognized = %v with distance %v tolerance %v", round, res.Recognized, best, tol)
		}
		if res.Recognized && res.Name != entries[bestIdx].Name {
			t.Fatalf("round %d: Name = %q, want %q", round, res.Name, entries[bestIdx].Name)
		}
	}
}

// Adding more far-away entries never turns a rejected query into a match.
func TestMatch_RejectionIndependentOfRegistrySize(t *testing.T) {
	query := models.Embedding{0, 0}
	entries := []registry.Entry{entry("Near", 1, 0)}

	for i := 0; i < 100; i++ {
		res := Match(query, snapshotOf(entries...), 0.9)
		if res.Recognized {
			t.Fatalf("recognized with %d entries: %+v", len(entries), res)
		}
		entries = append(entries, entry("Far", float32(2+i), float32(i)))
	}
}

func TestMatch_DoesNotModifySnapshot(t *testing.T) {
	snap := snapshotOf(entry("Ana", 1, 2), entry("Bruno", 3, 4))
	before := snap.Entries[0].Embedding[0]

	_ = Match(models.Embedding{1, 2}, snap, DefaultTolerance)

	if snap.Entries[0].Embedding[0] != before || len(snap.Entries) != 2 {
		t.Error("Match() modified the snapshot")
	}
}
