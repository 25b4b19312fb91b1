package core

import (
	"context"
	"io"
)

// MediaStore stores uploaded media and serves it under a public URL.
type MediaStore interface {
	// SavePicture decodes, downsizes and stores an image, returning its URL.
	SavePicture(ctx context.Context, folder string, src io.Reader) (string, error)
	// Delete removes the file behind url. Unknown URLs are ignored.
	Delete(url string) error
}
