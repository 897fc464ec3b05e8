package cluster

import (
	"context"
	"fmt"

	"github.com/faceproj/facefinder/internal/database"
)

// Representative is one face chosen to stand for a whole cluster.
type Representative struct {
	Label   string `json:"cluster_label"`
	FaceID  string `json:"face_id"`
	BlobRef string `json:"blob_ref"`
}

// UniqueFaces returns one representative face per distinct non-noise cluster
// label in the project, ordered by label. The representative is the first
// face encountered per label in label-then-creation order. Noise faces never
// appear. A project with no labeled faces yields an empty list, not an error.
func UniqueFaces(ctx context.Context, faces database.FaceReader, projectID string) ([]Representative, error) {
	labeled, err := faces.ListLabeled(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing labeled faces: %w", err)
	}

	seen := make(map[string]struct{})
	reps := make([]Representative, 0, len(labeled))
	for i := range labeled {
		face := &labeled[i]
		if face.ClusterLabel == database.NoiseLabel {
			continue
		}
		if _, ok := seen[face.ClusterLabel]; ok {
			continue
		}
		seen[face.ClusterLabel] = struct{}{}
		reps = append(reps, Representative{
			Label:   face.ClusterLabel,
			FaceID:  face.ID,
			BlobRef: face.BlobRef,
		})
	}

	return reps, nil
}
