// Package summary profiles clusters on the raw, human readable feature scale.
package summary

import (
	"errors"
	"fmt"

	"github.com/okian/custseg/internal/domain/model"
)

// Sentinel kinds for summary errors.
var (
	ErrLengthMismatch  = errors.New("vectors and labels differ in length")
	ErrLabelOutOfRange = errors.New("cluster label out of range")
)

// Summarize returns one profile per label in [0,k), ascending. Each profile holds the member
// count and the mean of every feature over its members. Empty clusters report count 0 and
// zero means. Counts always sum to len(vectors).
func Summarize(vectors []model.FeatureVector, labels []int, k int) ([]model.ClusterProfile, error) {
	if len(vectors) != len(labels) {
		return nil, fmt.Errorf("%w: %d vectors, %d labels", ErrLengthMismatch, len(vectors), len(labels))
	}
	if k <= 0 {
		return nil, model.NewConfigurationError("k", "must be positive, got %d", k)
	}

	means := make([][]float64, k)
	for i := range means {
		means[i] = make([]float64, len(model.Columns))
	}
	profiles := make([]model.ClusterProfile, k)
	for i := range profiles {
		profiles[i].Label = i
	}

	for i, v := range vectors {
		l := labels[i]
		if l < 0 || l >= k {
			return nil, fmt.Errorf("%w: customer %q has label %d, k=%d", ErrLabelOutOfRange, v.CustomerID, l, k)
		}
		profiles[l].Count++
		n := float64(profiles[l].Count)
		// running mean; a plain sum overflows for amounts near math.MaxFloat64
		for c, x := range v.Values() {
			means[l][c] += (x - means[l][c]) / n
		}
	}

	for l := range profiles {
		for c, m := range means[l] {
			profiles[l].Means.Set(c, m)
		}
	}
	return profiles, nil
}

// Assignments pairs every vector's customer id with its label, in input order.
func Assignments(vectors []model.FeatureVector, labels []int) []model.Assignment {
	out := make([]model.Assignment, len(vectors))
	for i, v := range vectors {
		out[i] = model.Assignment{CustomerID: v.CustomerID, Label: labels[i]}
	}
	return out
}
