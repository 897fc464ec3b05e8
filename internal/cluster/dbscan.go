// Package cluster groups face embeddings into "same person" clusters using
// density-based clustering over cosine distance, and persists the resulting
// labels onto face records.
package cluster

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/faceproj/facefinder/internal/database"
)

// ErrInconsistentDimensions indicates that a batch mixes embeddings of
// different lengths. The whole batch is rejected; nothing is persisted.
var ErrInconsistentDimensions = errors.New("inconsistent embedding dimensions")

// Options are the tunable parameters of a clustering pass.
type Options struct {
	// Eps is the neighborhood radius in cosine distance. Two embeddings
	// closer than Eps are density-reachable.
	Eps float64
	// MinSamples is the minimum neighborhood size (including the point
	// itself) for a point to seed a cluster. With MinSamples of 1 every
	// point seeds a cluster and no point is ever labeled noise.
	MinSamples int
}

// DefaultOptions returns the parameters the original tuning settled on.
func DefaultOptions() Options {
	return Options{Eps: 0.5, MinSamples: 1}
}

// Run partitions the embeddings into clusters and returns one stringified
// label per input, in input order. Noise points get database.NoiseLabel.
//
// Labels are deterministic: points are visited in input order and cluster
// numbers are assigned in order of seed discovery, so a given input sequence
// always produces the same labeling.
func Run(embeddings [][]float32, opts Options) ([]string, error) {
	if len(embeddings) == 0 {
		return nil, nil
	}
	if err := validateDimensions(embeddings); err != nil {
		return nil, err
	}

	normalized := make([][]float32, len(embeddings))
	for i, emb := range embeddings {
		normalized[i] = database.L2Normalize(emb)
	}

	labels := dbscan(normalized, opts.Eps, opts.MinSamples)

	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = strconv.Itoa(l)
	}
	return out, nil
}

func validateDimensions(embeddings [][]float32) error {
	dim := len(embeddings[0])
	if dim == 0 {
		return fmt.Errorf("%w: empty embedding at index 0", ErrInconsistentDimensions)
	}
	for i, emb := range embeddings {
		if len(emb) != dim {
			return fmt.Errorf("%w: index %d has %d dimensions, expected %d",
				ErrInconsistentDimensions, i, len(emb), dim)
		}
	}
	return nil
}

const unvisited = -2

// dbscan runs density-based clustering over unit vectors. Cosine distance
// between unit vectors reduces to 1 minus their dot product.
func dbscan(points [][]float32, eps float64, minSamples int) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = unvisited
	}

	nextCluster := 0
	for i := range points {
		if labels[i] != unvisited {
			continue
		}

		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minSamples {
			labels[i] = -1 // noise, may still join a cluster as a border point
			continue
		}

		c := nextCluster
		nextCluster++
		labels[i] = c

		// Expand the cluster breadth-first in discovery order.
		queue := neighbors
		for qi := 0; qi < len(queue); qi++ {
			j := queue[qi]
			if labels[j] == -1 {
				labels[j] = c // previously noise, now a border point
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = c

			nn := regionQuery(points, j, eps)
			if len(nn) >= minSamples {
				queue = append(queue, nn...)
			}
		}
	}

	return labels
}

// regionQuery returns the indices of all points within eps cosine distance of
// points[i], including i itself, in index order.
func regionQuery(points [][]float32, i int, eps float64) []int {
	var neighbors []int
	for j := range points {
		if 1-database.Dot(points[i], points[j]) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
