package cluster

import (
	"context"
	"fmt"
	"log"

	"github.com/faceproj/facefinder/internal/database"
)

// BatchItem pairs a face record with its freshly extracted embedding.
// The caller has already resolved which face each embedding belongs to.
type BatchItem struct {
	FaceID    string
	Embedding []float32
}

// BatchResult summarizes one clustering pass.
type BatchResult struct {
	Labeled  int // faces whose label and embedding were persisted
	Skipped  int // faces whose store write failed and was skipped
	Clusters int // distinct non-noise clusters found in the batch
}

// Engine runs per-batch clustering passes and persists the results.
//
// Each pass is independent: labels are scoped to the batch that produced
// them, and label "0" from one batch has no relationship to label "0" from
// another. Concurrent passes for the same project do not coordinate.
type Engine struct {
	faces database.FaceWriter
	opts  Options
}

// NewEngine creates a clustering engine writing through the given store.
func NewEngine(faces database.FaceWriter, opts Options) *Engine {
	return &Engine{faces: faces, opts: opts}
}

// ClusterBatch labels every embedding in the batch and writes
// (label, embedding) onto the corresponding face records.
//
// An empty batch is a no-op. Structurally invalid input (inconsistent
// dimensionality) fails the whole batch before anything is persisted. A
// failure writing an individual face is logged and skipped so the rest of
// the batch still completes; the result reports how many were skipped.
func (e *Engine) ClusterBatch(ctx context.Context, items []BatchItem) (BatchResult, error) {
	if len(items) == 0 {
		return BatchResult{}, nil
	}

	embeddings := make([][]float32, len(items))
	for i := range items {
		embeddings[i] = items[i].Embedding
	}

	labels, err := Run(embeddings, e.opts)
	if err != nil {
		return BatchResult{}, fmt.Errorf("clustering batch of %d embeddings: %w", len(items), err)
	}

	var result BatchResult
	seen := make(map[string]struct{})
	for i, item := range items {
		label := labels[i]
		if err := e.faces.SetClusterResult(ctx, item.FaceID, label, item.Embedding); err != nil {
			log.Printf("cluster: skipping face %s: %v", item.FaceID, err)
			result.Skipped++
			continue
		}
		result.Labeled++
		if label != database.NoiseLabel {
			seen[label] = struct{}{}
		}
	}
	result.Clusters = len(seen)

	return result, nil
}
