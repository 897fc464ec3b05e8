package match

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/faceproj/facefinder/internal/database"
	"github.com/faceproj/facefinder/internal/database/mock"
)

func vecAt(theta float64) []float32 {
	return []float32{float32(math.Cos(theta)), float32(math.Sin(theta))}
}

func setupStores(t *testing.T) (*mock.ProjectStore, *mock.FaceStore) {
	t.Helper()
	projects := mock.NewProjectStore()
	projects.AddProject(database.Project{ID: "p1", Name: "wedding"})
	return projects, mock.NewFaceStore()
}

// matchers returns both implementations so every test runs against each;
// they must behave identically.
func matchers(projects *mock.ProjectStore, faces *mock.FaceStore) map[string]Matcher {
	return map[string]Matcher{
		"brute-force": NewBruteForce(projects, faces),
		"indexed":     NewIndexed(projects, faces),
	}
}

func TestMatchIdenticalVector(t *testing.T) {
	projects, faces := setupStores(t)
	stored := vecAt(0.4)
	faces.AddFace(database.Face{ID: "f1", ProjectID: "p1", BlobRef: "img-42", ClusterLabel: "0", Embedding: stored})
	faces.AddFace(database.Face{ID: "f2", ProjectID: "p1", BlobRef: "img-99", ClusterLabel: "1", Embedding: vecAt(2.5)})

	for name, m := range matchers(projects, faces) {
		t.Run(name, func(t *testing.T) {
			refs, err := m.Match(context.Background(), [][]float32{stored}, "p1", 0.6)
			if err != nil {
				t.Fatalf("Match failed: %v", err)
			}
			if len(refs) != 1 || refs[0] != "img-42" {
				t.Errorf("expected exactly [img-42], got %v", refs)
			}
		})
	}
}

func TestMatchProjectNotFound(t *testing.T) {
	projects, faces := setupStores(t)

	for name, m := range matchers(projects, faces) {
		t.Run(name, func(t *testing.T) {
			_, err := m.Match(context.Background(), [][]float32{vecAt(0)}, "missing", 0.6)
			if !errors.Is(err, ErrProjectNotFound) {
				t.Errorf("expected ErrProjectNotFound, got %v", err)
			}
		})
	}
}

func TestMatchNoCandidates(t *testing.T) {
	projects, faces := setupStores(t)
	// A face without an embedding is not a candidate.
	faces.AddFace(database.Face{ID: "f1", ProjectID: "p1", BlobRef: "b1", Fingerprint: "fp1"})

	for name, m := range matchers(projects, faces) {
		t.Run(name, func(t *testing.T) {
			_, err := m.Match(context.Background(), [][]float32{vecAt(0)}, "p1", 0.6)
			if !errors.Is(err, ErrNoCandidates) {
				t.Errorf("expected ErrNoCandidates, got %v", err)
			}
			if errors.Is(err, ErrProjectNotFound) {
				t.Error("ErrNoCandidates must not be conflated with ErrProjectNotFound")
			}
		})
	}
}

func TestMatchDeduplicatesByImage(t *testing.T) {
	projects, faces := setupStores(t)
	// Two matching faces from the same source image collapse to one ref.
	faces.AddFace(database.Face{ID: "f1", ProjectID: "p1", BlobRef: "img-1", ClusterLabel: "0", Embedding: vecAt(0)})
	faces.AddFace(database.Face{ID: "f2", ProjectID: "p1", BlobRef: "img-1", ClusterLabel: "1", Embedding: vecAt(0.05)})
	faces.AddFace(database.Face{ID: "f3", ProjectID: "p1", BlobRef: "img-2", ClusterLabel: "2", Embedding: vecAt(0.1)})

	for name, m := range matchers(projects, faces) {
		t.Run(name, func(t *testing.T) {
			refs, err := m.Match(context.Background(), [][]float32{vecAt(0)}, "p1", 0.6)
			if err != nil {
				t.Fatalf("Match failed: %v", err)
			}
			sort.Strings(refs)
			if len(refs) != 2 || refs[0] != "img-1" || refs[1] != "img-2" {
				t.Errorf("expected [img-1 img-2], got %v", refs)
			}
		})
	}
}

func TestMatchToleranceIsStrict(t *testing.T) {
	projects, faces := setupStores(t)
	// Candidate at cosine similarity exactly 0.6 from the query.
	theta := math.Acos(0.6)
	faces.AddFace(database.Face{ID: "f1", ProjectID: "p1", BlobRef: "img-1", ClusterLabel: "0", Embedding: vecAt(theta)})

	m := NewBruteForce(projects, faces)
	refs, err := m.Match(context.Background(), [][]float32{vecAt(0)}, "p1", 0.6+1e-6)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("similarity at the threshold must not match (strict >), got %v", refs)
	}
}

func TestMatchUnionAcrossQueryEmbeddings(t *testing.T) {
	projects, faces := setupStores(t)
	faces.AddFace(database.Face{ID: "f1", ProjectID: "p1", BlobRef: "img-1", ClusterLabel: "0", Embedding: vecAt(0)})
	faces.AddFace(database.Face{ID: "f2", ProjectID: "p1", BlobRef: "img-2", ClusterLabel: "1", Embedding: vecAt(math.Pi / 2)})

	queries := [][]float32{vecAt(0), vecAt(math.Pi / 2)}

	for name, m := range matchers(projects, faces) {
		t.Run(name, func(t *testing.T) {
			refs, err := m.Match(context.Background(), queries, "p1", 0.6)
			if err != nil {
				t.Fatalf("Match failed: %v", err)
			}
			sort.Strings(refs)
			if len(refs) != 2 || refs[0] != "img-1" || refs[1] != "img-2" {
				t.Errorf("expected union [img-1 img-2], got %v", refs)
			}
		})
	}
}

func TestMatchSkipsMalformedQueryEmbedding(t *testing.T) {
	projects, faces := setupStores(t)
	faces.AddFace(database.Face{ID: "f1", ProjectID: "p1", BlobRef: "img-1", ClusterLabel: "0", Embedding: vecAt(0)})

	for name, m := range matchers(projects, faces) {
		t.Run(name, func(t *testing.T) {
			// First query has the wrong dimensionality; the second must still run.
			refs, err := m.Match(context.Background(), [][]float32{{1, 0, 0}, vecAt(0)}, "p1", 0.6)
			if err != nil {
				t.Fatalf("a bad query embedding must not abort matching: %v", err)
			}
			if len(refs) != 1 || refs[0] != "img-1" {
				t.Errorf("expected [img-1], got %v", refs)
			}
		})
	}
}

func TestIndexedInvalidatePicksUpNewFaces(t *testing.T) {
	projects, faces := setupStores(t)
	faces.AddFace(database.Face{ID: "f1", ProjectID: "p1", BlobRef: "img-1", ClusterLabel: "0", Embedding: vecAt(0)})

	m := NewIndexed(projects, faces)
	refs, err := m.Match(context.Background(), [][]float32{vecAt(math.Pi / 2)}, "p1", 0.6)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("expected no matches before the new face exists, got %v", refs)
	}

	faces.AddFace(database.Face{ID: "f2", ProjectID: "p1", BlobRef: "img-2", ClusterLabel: "1", Embedding: vecAt(math.Pi / 2)})
	m.Invalidate("p1")

	refs, err = m.Match(context.Background(), [][]float32{vecAt(math.Pi / 2)}, "p1", 0.6)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(refs) != 1 || refs[0] != "img-2" {
		t.Errorf("expected [img-2] after invalidation, got %v", refs)
	}
}
