// Package matching finds the nearest enrolled embedding for a query embedding.
package matching

import (
	"math"

	"github.com/your-org/faceaccess/internal/models"
	"github.com/your-org/faceaccess/internal/registry"
)

// DefaultTolerance is the dlib face_recognition default: Euclidean distances
// below 0.6 are considered the same person.
const DefaultTolerance = 0.6

// Result is the outcome of matching one query embedding.
type Result struct {
	Name       string
	Recognized bool
	Distance   float64 // nearest distance, +Inf when there was no comparable entry
	Index      int     // snapshot index of the nearest entry, -1 when none
}

// Match compares query with every entry of snap and accepts the globally
// nearest entry when its distance is strictly below tolerance. Ties go to the
// earliest entry in snapshot order. Match has no side effects.
//
// Each embedding is judged on its own: a person enrolled with several
// embeddings is represented by whichever of them is closest.
func Match(query models.Embedding, snap *registry.Snapshot, tolerance float64) Result {
	res := Result{Name: models.UnknownName, Distance: math.Inf(1), Index: -1}
	if snap == nil {
		return res
	}

	for i, e := range snap.Entries {
		d := Distance(query, e.Embedding)
		if d < res.Distance {
			res.Distance = d
			res.Index = i
		}
	}

	if res.Index >= 0 && res.Distance < tolerance {
		res.Name = snap.Entries[res.Index].Name
		res.Recognized = true
	}
	return res
}

// Distance is the Euclidean distance between a and b. Vectors of different
// or zero length are infinitely far apart.
func Distance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
