package match

import (
	"context"
	"log"
	"sync"

	"github.com/coder/hnsw"

	"github.com/faceproj/facefinder/internal/database"
)

// hnswMaxNeighbors is the M parameter of the HNSW graph.
const hnswMaxNeighbors = 16

// Indexed is a Matcher backed by per-project in-memory HNSW graphs. It keeps
// the BruteForce contract (same inputs, outputs, and sentinel errors) while
// avoiding the full candidate scan for projects with many faces.
//
// Graphs are built lazily from a store snapshot on first use and must be
// invalidated after a clustering pass adds embeddings.
type Indexed struct {
	projects database.ProjectStore
	faces    database.FaceReader

	mu     sync.RWMutex
	graphs map[string]*projectGraph
}

type projectGraph struct {
	graph *hnsw.Graph[int]
	faces []database.Face // node key is the index into this slice
}

// NewIndexed creates an HNSW-backed matcher reading from the given stores.
func NewIndexed(projects database.ProjectStore, faces database.FaceReader) *Indexed {
	return &Indexed{
		projects: projects,
		faces:    faces,
		graphs:   make(map[string]*projectGraph),
	}
}

// Invalidate drops the cached graph for a project so the next Match rebuilds
// it from the store. Call after a clustering pass writes new embeddings.
func (m *Indexed) Invalidate(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.graphs, projectID)
}

// Match implements Matcher.
func (m *Indexed) Match(ctx context.Context, queryEmbeddings [][]float32, projectID string, tolerance float64) ([]string, error) {
	pg, err := m.graphFor(ctx, projectID)
	if err != nil {
		return nil, err
	}

	// loadCandidates guarantees at least one face, so the candidate
	// dimensionality is always known. The graph distance function panics on
	// mismatched vector lengths, so malformed queries never reach it.
	dim := len(pg.faces[0].Embedding)

	// The graph search is approximate; similarity is recomputed exactly from
	// the node vectors before applying the tolerance.
	matched := make(map[string]struct{})
	var refs []string
	for qi, query := range queryEmbeddings {
		if len(query) != dim {
			log.Printf("match: skipping query embedding %d: %d dimensions, candidates have %d", qi, len(query), dim)
			continue
		}
		qn := database.L2Normalize(query)
		for _, node := range pg.graph.Search(qn, len(pg.faces)) {
			if database.CosineSimilarity(qn, node.Value) <= tolerance {
				continue
			}
			ref := pg.faces[node.Key].BlobRef
			if _, ok := matched[ref]; ok {
				continue
			}
			matched[ref] = struct{}{}
			refs = append(refs, ref)
		}
	}

	return refs, nil
}

// graphFor returns the cached graph for a project, building it if needed.
func (m *Indexed) graphFor(ctx context.Context, projectID string) (*projectGraph, error) {
	m.mu.RLock()
	pg, ok := m.graphs[projectID]
	m.mu.RUnlock()
	if ok {
		return pg, nil
	}

	candidates, err := loadCandidates(ctx, m.projects, m.faces, projectID)
	if err != nil {
		return nil, err
	}

	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	for i := range candidates {
		g.Add(hnsw.MakeNode(i, database.L2Normalize(candidates[i].Embedding)))
	}

	pg = &projectGraph{graph: g, faces: candidates}

	m.mu.Lock()
	m.graphs[projectID] = pg
	m.mu.Unlock()

	return pg, nil
}
