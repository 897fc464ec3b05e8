// Package mock provides in-memory implementations of the database interfaces
// for testing, with per-method error injection.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/faceproj/facefinder/internal/database"
)

// FaceStore is an in-memory implementation of database.FaceWriter.
type FaceStore struct {
	mu    sync.RWMutex
	faces map[string]*database.Face
	order []string // creation order of face IDs

	// Error injection
	GetError    error
	ListError   error
	CreateError error
	// SetClusterResultErrors maps face IDs to injected write errors.
	SetClusterResultErrors map[string]error
	DeleteError            error
}

// NewFaceStore creates an empty mock face store.
func NewFaceStore() *FaceStore {
	return &FaceStore{
		faces:                  make(map[string]*database.Face),
		SetClusterResultErrors: make(map[string]error),
	}
}

// AddFace inserts a face directly, bypassing error injection.
func (m *FaceStore) AddFace(face database.Face) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces[face.ID] = &face
	m.order = append(m.order, face.ID)
}

// GetFace retrieves a face by ID.
func (m *FaceStore) GetFace(ctx context.Context, id string) (*database.Face, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	face, ok := m.faces[id]
	if !ok {
		return nil, nil
	}
	cp := *face
	return &cp, nil
}

// GetFaceByFingerprint retrieves any face with the fingerprint in the project.
func (m *FaceStore) GetFaceByFingerprint(ctx context.Context, projectID, fingerprint string) (*database.Face, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		face := m.faces[id]
		if face.ProjectID == projectID && face.Fingerprint == fingerprint {
			cp := *face
			return &cp, nil
		}
	}
	return nil, nil
}

// ListEmbedded retrieves all faces of the project with a stored embedding.
func (m *FaceStore) ListEmbedded(ctx context.Context, projectID string) ([]database.Face, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.Face
	for _, id := range m.order {
		face := m.faces[id]
		if face.ProjectID == projectID && face.HasEmbedding() {
			out = append(out, *face)
		}
	}
	return out, nil
}

// ListLabeled retrieves labeled, non-noise faces ordered by label then
// creation order.
func (m *FaceStore) ListLabeled(ctx context.Context, projectID string) ([]database.Face, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.Face
	for _, id := range m.order {
		face := m.faces[id]
		if face.ProjectID == projectID && face.ClusterLabel != "" && face.ClusterLabel != database.NoiseLabel {
			out = append(out, *face)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ClusterLabel < out[j].ClusterLabel
	})
	return out, nil
}

// CountFaces returns the number of faces in the project.
func (m *FaceStore) CountFaces(ctx context.Context, projectID string) (int, error) {
	if m.ListError != nil {
		return 0, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, face := range m.faces {
		if face.ProjectID == projectID {
			count++
		}
	}
	return count, nil
}

// CreateFace stores a new face record.
func (m *FaceStore) CreateFace(ctx context.Context, face *database.Face) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *face
	m.faces[face.ID] = &cp
	m.order = append(m.order, face.ID)
	return nil
}

// SetClusterResult writes label and embedding onto an existing face.
func (m *FaceStore) SetClusterResult(ctx context.Context, faceID, label string, embedding []float32) error {
	if err := m.SetClusterResultErrors[faceID]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	face, ok := m.faces[faceID]
	if !ok {
		return fmt.Errorf("face %s: %w", faceID, database.ErrNotFound)
	}
	face.ClusterLabel = label
	face.Embedding = embedding
	return nil
}

// DeleteFace removes a face record.
func (m *FaceStore) DeleteFace(ctx context.Context, id string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.faces, id)
	for i, fid := range m.order {
		if fid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// ProjectStore is an in-memory implementation of database.ProjectStore.
type ProjectStore struct {
	mu       sync.RWMutex
	projects map[string]*database.Project
	order    []string

	GetError    error
	CreateError error
}

// NewProjectStore creates an empty mock project store.
func NewProjectStore() *ProjectStore {
	return &ProjectStore{projects: make(map[string]*database.Project)}
}

// AddProject inserts a project directly, bypassing error injection.
func (m *ProjectStore) AddProject(project database.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[project.ID] = &project
	m.order = append(m.order, project.ID)
}

// CreateProject stores a new project.
func (m *ProjectStore) CreateProject(ctx context.Context, project *database.Project) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *project
	m.projects[project.ID] = &cp
	m.order = append(m.order, project.ID)
	return nil
}

// GetProject retrieves a project by ID.
func (m *ProjectStore) GetProject(ctx context.Context, id string) (*database.Project, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	project, ok := m.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *project
	return &cp, nil
}

// GetProjectByName retrieves a project by normalized name.
func (m *ProjectStore) GetProjectByName(ctx context.Context, name string) (*database.Project, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := database.NormalizeName(name)
	for _, id := range m.order {
		if database.NormalizeName(m.projects[id].Name) == want {
			cp := *m.projects[id]
			return &cp, nil
		}
	}
	return nil, nil
}

// ListProjects retrieves all projects in creation order.
func (m *ProjectStore) ListProjects(ctx context.Context) ([]database.Project, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.Project, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.projects[id])
	}
	return out, nil
}

// DeleteProject removes a project.
func (m *ProjectStore) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.projects, id)
	for i, pid := range m.order {
		if pid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// BlobStore is an in-memory implementation of database.BlobStore.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]blobEntry

	PutError error
	GetError error
}

type blobEntry struct {
	data     []byte
	filename string
}

// NewBlobStore creates an empty mock blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]blobEntry)}
}

// PutBlob stores the data under a fresh reference.
func (m *BlobStore) PutBlob(ctx context.Context, data []byte, filename string) (string, error) {
	if m.PutError != nil {
		return "", m.PutError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := uuid.NewString()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blobs[ref] = blobEntry{data: cp, filename: filename}
	return ref, nil
}

// GetBlob retrieves data and filename for a reference.
func (m *BlobStore) GetBlob(ctx context.Context, ref string) ([]byte, string, error) {
	if m.GetError != nil {
		return nil, "", m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.blobs[ref]
	if !ok {
		return nil, "", fmt.Errorf("blob %s: %w", ref, database.ErrNotFound)
	}
	return entry.data, entry.filename, nil
}

// DeleteBlob removes a blob.
func (m *BlobStore) DeleteBlob(ctx context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, ref)
	return nil
}

// Len returns the number of stored blobs.
func (m *BlobStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
