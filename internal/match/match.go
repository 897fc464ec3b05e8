// Package match answers "which stored images contain a face like this one"
// queries against a project's embedded faces.
package match

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/faceproj/facefinder/internal/database"
)

var (
	// ErrProjectNotFound indicates the queried project does not exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrNoCandidates indicates the project exists but contains no face with
	// a stored embedding. Distinct from ErrProjectNotFound.
	ErrNoCandidates = errors.New("no embedded faces in project")
)

// Matcher finds the stored images of a project containing at least one face
// that matches at least one query embedding. The result is deduplicated by
// source image (blob ref); order is unspecified.
//
// Implementations may index candidates however they like; inputs and outputs
// are fixed so a nearest-neighbor index can replace the brute-force scan.
type Matcher interface {
	Match(ctx context.Context, queryEmbeddings [][]float32, projectID string, tolerance float64) ([]string, error)
}

// BruteForce compares every query embedding against every candidate
// embedding. O(queries x candidates), fine at per-project scale, and the
// correctness reference for other matchers.
type BruteForce struct {
	projects database.ProjectStore
	faces    database.FaceReader
}

// NewBruteForce creates a brute-force matcher reading from the given stores.
func NewBruteForce(projects database.ProjectStore, faces database.FaceReader) *BruteForce {
	return &BruteForce{projects: projects, faces: faces}
}

// Match implements Matcher.
//
// Candidates are snapshotted at query start; faces written by a concurrent
// clustering pass after the snapshot may be missed, which is acceptable. A
// single malformed query embedding is logged and skipped; the remaining
// query embeddings still run.
func (m *BruteForce) Match(ctx context.Context, queryEmbeddings [][]float32, projectID string, tolerance float64) ([]string, error) {
	candidates, err := loadCandidates(ctx, m.projects, m.faces, projectID)
	if err != nil {
		return nil, err
	}

	normalized := make([][]float32, len(candidates))
	for i := range candidates {
		normalized[i] = database.L2Normalize(candidates[i].Embedding)
	}
	dim := len(normalized[0])

	matched := make(map[string]struct{})
	var refs []string
	for qi, query := range queryEmbeddings {
		if len(query) != dim {
			log.Printf("match: skipping query embedding %d: %d dimensions, candidates have %d", qi, len(query), dim)
			continue
		}
		qn := database.L2Normalize(query)
		for ci := range normalized {
			if database.Dot(qn, normalized[ci]) <= tolerance {
				continue
			}
			ref := candidates[ci].BlobRef
			if _, ok := matched[ref]; ok {
				continue
			}
			matched[ref] = struct{}{}
			refs = append(refs, ref)
		}
	}

	return refs, nil
}

// loadCandidates snapshots a project's embedded faces, mapping the two
// failure modes onto their sentinel errors.
func loadCandidates(ctx context.Context, projects database.ProjectStore, faces database.FaceReader, projectID string) ([]database.Face, error) {
	project, err := projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading project %s: %w", projectID, err)
	}
	if project == nil {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrProjectNotFound)
	}

	candidates, err := faces.ListEmbedded(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading candidate faces for project %s: %w", projectID, err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNoCandidates)
	}
	return candidates, nil
}
