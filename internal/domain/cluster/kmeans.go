// Package cluster partitions standardized feature vectors into k behavioral segments.
package cluster

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// Default clustering configuration constants.
const (
	DefaultClusters      = 5
	DefaultSeed          = 42
	DefaultMaxIterations = 300
	DefaultTolerance     = 1e-4
	DefaultInitRuns      = 10
)

// Model is the outcome of one Fit call.
type Model struct {
	Labels     []int
	Centroids  [][]float64
	Inertia    float64 // within-cluster sum of squared distances
	Iterations int     // Lloyd iterations of the winning initialization
}

// Sizes returns the member count per label.
func (m Model) Sizes() []int {
	sizes := make([]int, len(m.Centroids))
	for _, l := range m.Labels {
		sizes[l]++
	}
	return sizes
}

// KMeans is a Lloyd-style centroid clusterer with k-means++ seeding.
// A KMeans value is configuration only; every Fit owns its random source and iteration state,
// so one value can serve concurrent batches.
type KMeans struct {
	k        int
	seed     int64
	maxIter  int
	tol      float64
	initRuns int
}

// New creates a KMeans with defaults k=5, seed=42.
func New(opts ...Option) *KMeans {
	km := &KMeans{
		k:        DefaultClusters,
		seed:     DefaultSeed,
		maxIter:  DefaultMaxIterations,
		tol:      DefaultTolerance,
		initRuns: DefaultInitRuns,
	}
	for _, opt := range opts {
		opt(km)
	}
	return km
}

// K returns the configured cluster count.
func (km *KMeans) K() int { return km.k }

// Validate checks the configuration against a batch of n points.
func (km *KMeans) Validate(n int) error {
	switch {
	case km.k <= 0 || km.k > n:
		return configError("k", "must satisfy 0 < k <= %d, got %d", n, km.k)
	case km.maxIter < 1:
		return configError("max_iterations", "must be at least 1, got %d", km.maxIter)
	case km.initRuns < 1:
		return configError("init_runs", "must be at least 1, got %d", km.initRuns)
	case km.tol < 0 || math.IsNaN(km.tol):
		return configError("tolerance", "must be non-negative, got %v", km.tol)
	}
	return nil
}

// Fit clusters points and returns one label per point, in input order.
// Identical input, k and seed always produce identical labels and centroids.
func (km *KMeans) Fit(points [][]float64) (Model, error) {
	if err := km.Validate(len(points)); err != nil {
		return Model{}, err
	}

	rng := rand.New(rand.NewSource(km.seed)) //nolint:gosec // reproducible clustering, not security
	tol := km.tol * meanVariance(points)

	var best Model
	for run := 0; run < km.initRuns; run++ {
		centers := seedPlusPlus(points, km.k, rng)
		m := lloyd(points, centers, km.maxIter, tol)
		if run == 0 || m.Inertia < best.Inertia {
			best = m
		}
	}
	return best, nil
}

// seedPlusPlus picks k initial centers, each drawn with probability proportional to its
// squared distance from the nearest center chosen so far.
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(points[rng.Intn(n)]))

	dist := make([]float64, n)
	for i, p := range points {
		dist[i] = sqDist(p, centers[0])
	}

	for len(centers) < k {
		total := 0.0
		for _, d := range dist {
			total += d
		}

		idx := -1
		if total > 0 {
			target := rng.Float64() * total
			cum := 0.0
			for i, d := range dist {
				if d == 0 {
					continue
				}
				cum += d
				idx = i
				if cum > target {
					break
				}
			}
		} else {
			// every point sits on a center already; duplicates are allowed
			idx = rng.Intn(n)
		}

		c := clone(points[idx])
		centers = append(centers, c)
		for i, p := range points {
			if d := sqDist(p, c); d < dist[i] {
				dist[i] = d
			}
		}
	}
	return centers
}

// lloyd alternates assignment and centroid update until labels stop changing, centroids move
// less than tol, or maxIter is reached.
func lloyd(points, centers [][]float64, maxIter int, tol float64) Model {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	iterations := 0
	for iterations < maxIter {
		iterations++
		if !assign(points, centers, labels) {
			break
		}
		if shift := update(points, labels, centers); shift <= tol {
			break
		}
	}
	assign(points, centers, labels)

	return Model{
		Labels:     labels,
		Centroids:  centers,
		Inertia:    inertia(points, centers, labels),
		Iterations: iterations,
	}
}

// assign moves every point to its nearest center; ties go to the lowest label.
// Reports whether any label changed.
func assign(points, centers [][]float64, labels []int) bool {
	changed := false
	for i, p := range points {
		best, bestDist := 0, math.Inf(1)
		for c, center := range centers {
			if d := sqDist(p, center); d < bestDist {
				best, bestDist = c, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// update recomputes each center as the mean of its members and returns the total squared
// shift. An empty cluster keeps its previous center.
func update(points [][]float64, labels []int, centers [][]float64) float64 {
	width := len(centers[0])
	sums := make([][]float64, len(centers))
	counts := make([]int, len(centers))
	for c := range sums {
		sums[c] = make([]float64, width)
	}
	for i, p := range points {
		l := labels[i]
		counts[l]++
		for j, v := range p {
			sums[l][j] += v
		}
	}

	shift := 0.0
	for c := range centers {
		if counts[c] == 0 {
			continue
		}
		for j := range sums[c] {
			sums[c][j] /= float64(counts[c])
		}
		shift += sqDist(centers[c], sums[c])
		centers[c] = sums[c]
	}
	return shift
}

func inertia(points, centers [][]float64, labels []int) float64 {
	total := 0.0
	for i, p := range points {
		total += sqDist(p, centers[labels[i]])
	}
	return total
}

// meanVariance is the average population variance over all columns.
func meanVariance(points [][]float64) float64 {
	width := len(points[0])
	if width == 0 {
		return 0
	}
	col := make([]float64, len(points))
	total := 0.0
	for j := 0; j < width; j++ {
		for i, p := range points {
			col[i] = p[j]
		}
		_, std := stat.PopMeanStdDev(col, nil)
		total += std * std
	}
	return total / float64(width)
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clone(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
