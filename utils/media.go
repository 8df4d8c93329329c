// utils/media.go
package utils

import (
	"path/filepath"
	"strings"
)

// Animation-capable media extensions (case-insensitive)
var animationExtensions = []string{
	".mp4",
	".webm",
	".mov",
	".gif",
	".glb", // 3D badge variants
}

// IsAnimationMedia reports whether a media URL should be classified as
// an animation rather than a still image in badge metadata.
func IsAnimationMedia(mediaURL string) bool {
	ext := strings.ToLower(filepath.Ext(stripQuery(mediaURL)))
	for _, candidate := range animationExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// MediaContentType returns the metadata file type for a media URL.
func MediaContentType(mediaURL string) string {
	ext := strings.ToLower(filepath.Ext(stripQuery(mediaURL)))
	switch ext {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".gif":
		return "image/gif"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func stripQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
