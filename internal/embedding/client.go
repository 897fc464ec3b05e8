package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

const defaultSidecarURL = "http://localhost:8000"

// Client calls the face embedding sidecar over HTTP.
type Client struct {
	baseURL string
	dim     int
	client  *http.Client
}

// NewClient creates a sidecar client. An empty baseURL uses the default
// local address. A positive dim rejects responses whose embeddings have a
// different dimensionality, catching a misconfigured or swapped model before
// the vectors reach storage; zero disables the check.
func NewClient(baseURL string, dim int) *Client {
	if baseURL == "" {
		baseURL = defaultSidecarURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{},
	}
}

// faceDetection is a single detected face in the sidecar response.
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
}

// faceResponse is the sidecar response for one image.
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Extract implements Provider. It posts the image to the sidecar and returns
// one embedding per detected face, in detection order. Zero faces is a
// successful, empty result.
func (c *Client) Extract(ctx context.Context, imageBytes []byte) ([][]float32, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageBytes)
	if err != nil {
		return nil, err
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	embeddings := make([][]float32, 0, len(resp.Faces))
	for _, face := range resp.Faces {
		if len(face.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding for face %d", face.FaceIndex)
		}
		if c.dim > 0 && len(face.Embedding) != c.dim {
			return nil, fmt.Errorf("embedding for face %d has %d dimensions, expected %d (model %s)",
				face.FaceIndex, len(face.Embedding), c.dim, resp.Model)
		}
		embeddings = append(embeddings, face.Embedding)
	}
	return embeddings, nil
}

// postMultipartImage posts the image as a multipart form with an explicit
// Content-Type based on magic byte detection.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sidecar error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// detectMIMEType detects the MIME type from image data.
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	return "application/octet-stream"
}
