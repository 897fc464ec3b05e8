// Package fingerprint computes content fingerprints for uploaded images and
// validates that uploads are actually images.
//
// The fingerprint is a SHA-256 digest of the raw image bytes. Two uploads with
// identical bytes always produce the same digest; any difference produces a
// different one. It gates ingestion: an image whose digest already exists
// within a project is a duplicate and is never re-processed.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// allowedExtensions are the upload file extensions accepted by the service.
var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".bmp":  {},
	".tiff": {},
}

// Digest returns the hex-encoded SHA-256 fingerprint of the image bytes.
func Digest(imageBytes []byte) string {
	sum := sha256.Sum256(imageBytes)
	return hex.EncodeToString(sum[:])
}

// AllowedFile reports whether the filename carries an accepted image extension.
func AllowedFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := allowedExtensions[ext]
	return ok
}

// IsImage reports whether the bytes decode as one of the supported image
// formats. Only the header is parsed; full decoding is not attempted.
func IsImage(data []byte) bool {
	_, _, err := image.DecodeConfig(bytes.NewReader(data))
	return err == nil
}
