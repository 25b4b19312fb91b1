package mediasvc

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nae-imUam/coaching-app-api/core"
)

const jpegQuality = 85

var ErrInvalidImage = core.NewValidationError(
	errors.New("invalid image"),
	core.FieldError{Field: "profile_pic", Error: "Upload a valid JPEG, PNG or GIF image"},
)

// fileStore keeps media on the local disk, under root, and serves it under urlPrefix.
type fileStore struct {
	root      string
	urlPrefix string
	size      int
}

var _ core.MediaStore = (*fileStore)(nil)

func NewFileStore(conf core.MediaConfig) core.MediaStore {
	return &fileStore{
		root:      conf.Root,
		urlPrefix: strings.TrimRight(conf.URL, "/"),
		size:      conf.PictureSize,
	}
}

// SavePicture fits the image within size x size pixels and re-encodes it as JPEG.
func (fs *fileStore) SavePicture(ctx context.Context, folder string, src io.Reader) (string, error) {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", ErrInvalidImage
	}
	if err = ctx.Err(); err != nil {
		return "", err
	}
	if fs.size > 0 {
		img = imaging.Fit(img, fs.size, fs.size, imaging.Lanczos)
	}

	dir := filepath.Join(fs.root, filepath.FromSlash(folder))
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "creating media dir")
	}
	name := uuid.New().String() + ".jpg"
	if err = imaging.Save(img, filepath.Join(dir, name), imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", errors.Wrap(err, "saving picture")
	}
	return path.Join(fs.urlPrefix, folder, name), nil
}

func (fs *fileStore) Delete(url string) error {
	if !strings.HasPrefix(url, fs.urlPrefix+"/") {
		return nil
	}
	rel := strings.TrimPrefix(url, fs.urlPrefix+"/")
	if strings.Contains(rel, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(fs.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "deleting media")
	}
	return nil
}
