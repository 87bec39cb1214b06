package evidence

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"offScreenAPI/internal/apperr"
)

// MaxSize bounds a single evidence upload.
const MaxSize = 10 << 20

// Store keeps evidence blobs and returns an opaque reference recorded on the
// attempt.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// DetectContentType sniffs data and returns its image content type. The
// declared type from the client is only used when sniffing is inconclusive.
func DetectContentType(data []byte, declared string) (string, error) {
	if len(data) == 0 {
		return "", apperr.Invalid("evidence is empty")
	}
	if len(data) > MaxSize {
		return "", apperr.Invalid("evidence exceeds %d bytes", MaxSize)
	}
	ct := http.DetectContentType(data)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	if _, ok := extensions[ct]; ok {
		return ct, nil
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if ct == "application/octet-stream" {
		if _, ok := extensions[declared]; ok {
			return declared, nil
		}
	}
	return "", apperr.Invalid("unsupported evidence type %q", ct)
}

// Key builds the object key for one upload: attempts/<attempt>/<unix>-<rand><ext>.
func Key(attemptID uuid.UUID, contentType string, now time.Time) string {
	return fmt.Sprintf("attempts/%s/%d-%s%s", attemptID, now.Unix(), uuid.NewString()[:8], extensions[contentType])
}
