// Package acquire obtains the images the screen classifies: files picked
// from a gallery and photos taken by a camera.
package acquire

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Request codes identify which host request a result belongs to.
type RequestCode int

const (
	RequestCamera  RequestCode = 1
	RequestGallery RequestCode = 100
)

func (c RequestCode) String() string {
	switch c {
	case RequestCamera:
		return "camera"
	case RequestGallery:
		return "gallery"
	default:
		return "unknown"
	}
}

var (
	// ErrCancelled is returned when the user backs out of a pick or capture.
	ErrCancelled = errors.New("acquisition cancelled")
	// ErrNotImage is returned for content that does not sniff as an image.
	ErrNotImage = errors.New("content is not an image")
)

// Open loads the image a gallery reference points at. ref is a filesystem
// path or a file:// URI.
func Open(ref string) (image.Image, error) {
	path, err := pathFromRef(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return Decode(data)
}

// Decode sniffs data, decodes it and applies EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, errors.Wrapf(ErrNotImage, "detected %s", mime.String())
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", mime.String())
	}
	return img, nil
}

// DecodeReader reads r fully and decodes it.
func DecodeReader(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read image")
	}
	return Decode(data)
}

func pathFromRef(ref string) (string, error) {
	if ref == "" {
		return "", errors.New("empty image reference")
	}
	if !strings.Contains(ref, "://") {
		return ref, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", errors.Wrapf(err, "parse %q", ref)
	}
	if u.Scheme != "file" {
		return "", errors.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u.Path, nil
}
