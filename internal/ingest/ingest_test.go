package ingest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/faceproj/facefinder/internal/cluster"
	"github.com/faceproj/facefinder/internal/database"
	"github.com/faceproj/facefinder/internal/database/mock"
	"github.com/faceproj/facefinder/internal/embedding"
	"github.com/faceproj/facefinder/internal/match"
)

func encodePNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// oneFaceProvider returns a single fixed embedding for every image.
func oneFaceProvider(vec []float32) embedding.Provider {
	return embedding.ProviderFunc(func(ctx context.Context, imageBytes []byte) ([][]float32, error) {
		return [][]float32{vec}, nil
	})
}

type fixture struct {
	projects *mock.ProjectStore
	faces    *mock.FaceStore
	blobs    *mock.BlobStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		projects: mock.NewProjectStore(),
		faces:    mock.NewFaceStore(),
		blobs:    mock.NewBlobStore(),
	}
	f.projects.AddProject(database.Project{ID: "p1", Name: "wedding"})
	return f
}

func (f *fixture) service(provider embedding.Provider) *Service {
	engine := cluster.NewEngine(f.faces, cluster.DefaultOptions())
	matcher := match.NewBruteForce(f.projects, f.faces)
	return NewService(f.projects, f.faces, f.blobs, provider, engine, matcher, nil)
}

func TestUploadSingleImage(t *testing.T) {
	f := newFixture(t)
	svc := f.service(oneFaceProvider([]float32{1, 0}))

	result, err := svc.Upload(context.Background(), "p1", []ImageUpload{
		{Filename: "a.png", Data: encodePNG(t, color.White)},
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if len(result.Saved) != 1 || result.Saved[0].Rejected {
		t.Fatalf("expected one accepted file, got %+v", result.Saved)
	}
	if result.Cluster.Labeled != 1 || result.Cluster.Clusters != 1 {
		t.Errorf("expected 1 labeled face in 1 cluster, got %+v", result.Cluster)
	}

	face, err := f.faces.GetFace(context.Background(), result.Saved[0].FaceID)
	if err != nil || face == nil {
		t.Fatalf("face record missing: %v", err)
	}
	if face.ClusterLabel != "0" {
		t.Errorf("expected label 0, got %q", face.ClusterLabel)
	}
	if !face.HasEmbedding() {
		t.Error("embedding was not persisted")
	}
	if f.blobs.Len() != 1 {
		t.Errorf("expected 1 stored blob, got %d", f.blobs.Len())
	}
}

func TestUploadDuplicateImage(t *testing.T) {
	f := newFixture(t)
	svc := f.service(oneFaceProvider([]float32{1, 0}))
	data := encodePNG(t, color.White)

	first, err := svc.Upload(context.Background(), "p1", []ImageUpload{{Filename: "a.png", Data: data}})
	if err != nil {
		t.Fatalf("first upload failed: %v", err)
	}

	// Same bytes under a different name are still a duplicate.
	second, err := svc.Upload(context.Background(), "p1", []ImageUpload{{Filename: "b.png", Data: data}})
	if err != nil {
		t.Fatalf("second upload failed: %v", err)
	}

	if !second.Saved[0].Duplicate {
		t.Fatalf("expected duplicate, got %+v", second.Saved[0])
	}
	if second.Saved[0].FaceID != first.Saved[0].FaceID {
		t.Errorf("duplicate should reference the original face record")
	}
	if second.Cluster.Labeled != 0 {
		t.Errorf("duplicate must not be clustered again, got %+v", second.Cluster)
	}
	if f.blobs.Len() != 1 {
		t.Errorf("duplicate must not create a second blob, got %d", f.blobs.Len())
	}
}

func TestUploadRejectsBadFiles(t *testing.T) {
	f := newFixture(t)
	svc := f.service(oneFaceProvider([]float32{1, 0}))

	result, err := svc.Upload(context.Background(), "p1", []ImageUpload{
		{Filename: "notes.txt", Data: []byte("hello")},
		{Filename: "broken.png", Data: []byte("not a png")},
		{Filename: "ok.png", Data: encodePNG(t, color.White)},
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if !result.Saved[0].Rejected || !result.Saved[1].Rejected {
		t.Errorf("bad files should be rejected: %+v", result.Saved[:2])
	}
	if result.Saved[2].Rejected {
		t.Errorf("valid file must survive bad siblings: %+v", result.Saved[2])
	}
	if result.Cluster.Labeled != 1 {
		t.Errorf("expected exactly the valid file clustered, got %+v", result.Cluster)
	}
}

func TestUploadProjectNotFound(t *testing.T) {
	f := newFixture(t)
	svc := f.service(oneFaceProvider([]float32{1, 0}))

	_, err := svc.Upload(context.Background(), "missing", []ImageUpload{
		{Filename: "a.png", Data: encodePNG(t, color.White)},
	})
	if !errors.Is(err, match.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestUploadMultiFaceImage(t *testing.T) {
	f := newFixture(t)
	provider := embedding.ProviderFunc(func(ctx context.Context, imageBytes []byte) ([][]float32, error) {
		return [][]float32{{1, 0}, {0, 1}}, nil
	})
	svc := f.service(provider)

	result, err := svc.Upload(context.Background(), "p1", []ImageUpload{
		{Filename: "group.png", Data: encodePNG(t, color.White)},
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if result.Cluster.Labeled != 2 {
		t.Fatalf("expected 2 labeled faces from one image, got %+v", result.Cluster)
	}
	count, err := f.faces.CountFaces(context.Background(), "p1")
	if err != nil {
		t.Fatalf("CountFaces failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 face records sharing the blob, got %d", count)
	}
	if f.blobs.Len() != 1 {
		t.Errorf("sibling faces must share one blob, got %d", f.blobs.Len())
	}
}

func TestUploadNoFacesDetected(t *testing.T) {
	f := newFixture(t)
	provider := embedding.ProviderFunc(func(ctx context.Context, imageBytes []byte) ([][]float32, error) {
		return nil, nil
	})
	svc := f.service(provider)

	result, err := svc.Upload(context.Background(), "p1", []ImageUpload{
		{Filename: "landscape.png", Data: encodePNG(t, color.White)},
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if result.Saved[0].Rejected {
		t.Error("a faceless image is stored, not rejected")
	}
	if result.Cluster.Labeled != 0 {
		t.Errorf("nothing to cluster, got %+v", result.Cluster)
	}

	// The record still guards against re-uploading the same bytes.
	face, err := f.faces.GetFace(context.Background(), result.Saved[0].FaceID)
	if err != nil || face == nil {
		t.Fatalf("face record missing: %v", err)
	}
	if face.HasEmbedding() {
		t.Error("faceless image must not carry an embedding")
	}
}

func TestUploadExtractionFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	provider := embedding.ProviderFunc(func(ctx context.Context, imageBytes []byte) ([][]float32, error) {
		return nil, errors.New("model unavailable")
	})
	svc := f.service(provider)

	result, err := svc.Upload(context.Background(), "p1", []ImageUpload{
		{Filename: "a.png", Data: encodePNG(t, color.White)},
	})
	if err != nil {
		t.Fatalf("extraction failure must not fail the upload: %v", err)
	}
	if result.Saved[0].Rejected {
		t.Errorf("extraction failure must not reject the file: %+v", result.Saved[0])
	}
	if result.Saved[0].FaceID == "" {
		t.Error("face record should exist despite the extraction failure")
	}
}

func TestUploadBlobStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.blobs.PutError = errors.New("disk full")
	svc := f.service(oneFaceProvider([]float32{1, 0}))

	result, err := svc.Upload(context.Background(), "p1", []ImageUpload{
		{Filename: "a.png", Data: encodePNG(t, color.White)},
	})
	if err != nil {
		t.Fatalf("per-file store failure must not fail the batch: %v", err)
	}
	if !result.Saved[0].Rejected {
		t.Errorf("expected rejection on blob store failure, got %+v", result.Saved[0])
	}
	count, _ := f.faces.CountFaces(context.Background(), "p1")
	if count != 0 {
		t.Errorf("no face record without a stored blob, got %d", count)
	}
}

func TestFindFaces(t *testing.T) {
	f := newFixture(t)
	f.faces.AddFace(database.Face{ID: "f1", ProjectID: "p1", BlobRef: "img-1", ClusterLabel: "0", Embedding: []float32{1, 0}})
	svc := f.service(oneFaceProvider([]float32{1, 0}))

	refs, err := svc.FindFaces(context.Background(), "p1", encodePNG(t, color.White), 0.6)
	if err != nil {
		t.Fatalf("FindFaces failed: %v", err)
	}
	if len(refs) != 1 || refs[0] != "img-1" {
		t.Errorf("expected [img-1], got %v", refs)
	}
}

func TestFindFacesNoFaceInQuery(t *testing.T) {
	f := newFixture(t)
	f.faces.AddFace(database.Face{ID: "f1", ProjectID: "p1", BlobRef: "img-1", ClusterLabel: "0", Embedding: []float32{1, 0}})
	provider := embedding.ProviderFunc(func(ctx context.Context, imageBytes []byte) ([][]float32, error) {
		return nil, nil
	})
	svc := f.service(provider)

	_, err := svc.FindFaces(context.Background(), "p1", encodePNG(t, color.White), 0.6)
	if !errors.Is(err, ErrNoFacesDetected) {
		t.Errorf("expected ErrNoFacesDetected, got %v", err)
	}
}

func TestDeleteFaceRemovesBlobWhenLastSibling(t *testing.T) {
	f := newFixture(t)
	svc := f.service(oneFaceProvider([]float32{1, 0}))

	result, err := svc.Upload(context.Background(), "p1", []ImageUpload{
		{Filename: "a.png", Data: encodePNG(t, color.White)},
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	if err := svc.DeleteFace(context.Background(), result.Saved[0].FaceID); err != nil {
		t.Fatalf("DeleteFace failed: %v", err)
	}

	face, err := f.faces.GetFace(context.Background(), result.Saved[0].FaceID)
	if err != nil {
		t.Fatalf("GetFace failed: %v", err)
	}
	if face != nil {
		t.Error("face record should be gone")
	}
	if f.blobs.Len() != 0 {
		t.Errorf("blob of the last face should be gone, got %d", f.blobs.Len())
	}
}

func TestDeleteFaceKeepsSharedBlob(t *testing.T) {
	f := newFixture(t)
	provider := embedding.ProviderFunc(func(ctx context.Context, imageBytes []byte) ([][]float32, error) {
		return [][]float32{{1, 0}, {0, 1}}, nil
	})
	svc := f.service(provider)

	_, err := svc.Upload(context.Background(), "p1", []ImageUpload{
		{Filename: "group.png", Data: encodePNG(t, color.White)},
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	faces, err := f.faces.ListEmbedded(context.Background(), "p1")
	if err != nil || len(faces) != 2 {
		t.Fatalf("expected 2 embedded faces: %v %v", faces, err)
	}

	if err := svc.DeleteFace(context.Background(), faces[0].ID); err != nil {
		t.Fatalf("DeleteFace failed: %v", err)
	}
	if f.blobs.Len() != 1 {
		t.Errorf("blob is still referenced by the sibling face, got %d blobs", f.blobs.Len())
	}

	if err := svc.DeleteFace(context.Background(), faces[1].ID); err != nil {
		t.Fatalf("DeleteFace failed: %v", err)
	}
	if f.blobs.Len() != 0 {
		t.Errorf("blob should be gone with its last face, got %d", f.blobs.Len())
	}
}

func TestDeleteFaceNotFound(t *testing.T) {
	f := newFixture(t)
	svc := f.service(oneFaceProvider([]float32{1, 0}))

	err := svc.DeleteFace(context.Background(), "missing")
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
