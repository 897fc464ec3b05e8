package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/faceproj/facefinder/internal/cluster"
	"github.com/faceproj/facefinder/internal/database"
	"github.com/faceproj/facefinder/internal/database/mock"
	"github.com/faceproj/facefinder/internal/embedding"
	"github.com/faceproj/facefinder/internal/ingest"
	"github.com/faceproj/facefinder/internal/match"
)

// testStores bundles the in-memory stores backing a handler test.
type testStores struct {
	projects *mock.ProjectStore
	faces    *mock.FaceStore
	blobs    *mock.BlobStore
}

func newTestStores() *testStores {
	return &testStores{
		projects: mock.NewProjectStore(),
		faces:    mock.NewFaceStore(),
		blobs:    mock.NewBlobStore(),
	}
}

// ingestService wires an ingest service over the test stores with a stubbed
// embedding provider.
func (s *testStores) ingestService(provider embedding.Provider) *ingest.Service {
	engine := cluster.NewEngine(s.faces, cluster.DefaultOptions())
	matcher := match.NewBruteForce(s.projects, s.faces)
	return ingest.NewService(s.projects, s.faces, s.blobs, provider, engine, matcher, nil)
}

// fixedProvider returns the given embeddings for every image.
func fixedProvider(embeddings ...[]float32) embedding.Provider {
	return embedding.ProviderFunc(func(ctx context.Context, imageBytes []byte) ([][]float32, error) {
		return embeddings, nil
	})
}

// pngBytes encodes a small valid PNG.
func pngBytes(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// multipartFile is one file for a multipart test request.
type multipartFile struct {
	field    string
	filename string
	data     []byte
}

// multipartRequest builds a multipart POST request from files and form fields.
func multipartRequest(t *testing.T, path string, files []multipartFile, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// seedProject adds a default project and returns its ID.
func (s *testStores) seedProject() string {
	s.projects.AddProject(database.Project{ID: "p1", Name: "wedding"})
	return "p1"
}
