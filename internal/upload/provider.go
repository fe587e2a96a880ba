// Package upload defines the blob storage interface for captured
// screenshots. The abstraction keeps the service independent of a specific
// backend (Google Cloud Storage in production, an in-memory store for
// tests and local development).
package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Object describes one stored screenshot.
type Object struct {
	// URL is where the object can be fetched from: a public GCS URL, a
	// signed URL, or a memory:// pseudo-URL.
	URL         string `json:"url"`
	FileName    string `json:"fileName"`
	FileSize    int    `json:"fileSize"`
	ContentType string `json:"contentType"`
}

// Provider stores screenshot bytes and returns where they ended up.
type Provider interface {
	Save(ctx context.Context, objectName string, data []byte, contentType string) (Object, error)
}

// contentTypes maps capture formats to MIME types.
var contentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"webp": "image/webp",
}

// ContentTypeFor returns the MIME type for a capture format, defaulting to
// image/png for anything unrecognized.
func ContentTypeFor(format string) string {
	if ct, ok := contentTypes[format]; ok {
		return ct
	}
	return "image/png"
}

// ObjectName generates a unique object name for one screenshot:
// screenshot-<uuid>-<unix millis>.<format>.
func ObjectName(format string) string {
	return fmt.Sprintf("screenshot-%s-%d.%s", uuid.NewString(), time.Now().UnixMilli(), format)
}
