package payments

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

const (
	thumbnailWidth = 300
	maxSlipPixels  = 40_000_000
)

// StoredSlip is where a slip and its thumbnail ended up.
type StoredSlip struct {
	URL          string
	ThumbnailURL string
}

// LocalStorage keeps slips on disk under dir and exposes them under
// publicPrefix, e.g. dir "uploads" and prefix "/uploads".
type LocalStorage struct {
	dir          string
	publicPrefix string
}

func NewLocalStorage(dir, publicPrefix string) *LocalStorage {
	return &LocalStorage{dir: dir, publicPrefix: strings.TrimSuffix(publicPrefix, "/")}
}

// Save decodes the image, re-encodes it as JPEG (dropping metadata) and
// writes a 300px wide thumbnail next to it.
func (s *LocalStorage) Save(_ context.Context, orderID string, r io.Reader) (*StoredSlip, error) {
	// Read the header first so a tiny file claiming a huge canvas is refused
	// before any pixels are allocated.
	var header bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSlipImage, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxSlipPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrSlipImage, cfg.Width, cfg.Height, maxSlipPixels)
	}

	img, err := imaging.Decode(io.MultiReader(&header, r), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSlipImage, err)
	}

	slipDir := filepath.Join(s.dir, "slips")
	thumbDir := filepath.Join(slipDir, "thumb")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return nil, fmt.Errorf("create slip directory: %w", err)
	}

	name := safeName(orderID) + "-" + uuid.New().String() + ".jpg"

	if err := imaging.Save(img, filepath.Join(slipDir, name), imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("save slip: %w", err)
	}

	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(thumbDir, name), imaging.JPEGQuality(80)); err != nil {
		_ = os.Remove(filepath.Join(slipDir, name))
		return nil, fmt.Errorf("save thumbnail: %w", err)
	}

	return &StoredSlip{
		URL:          path.Join(s.publicPrefix, "slips", name),
		ThumbnailURL: path.Join(s.publicPrefix, "slips", "thumb", name),
	}, nil
}

// Open reads a stored file back by its public URL.
func (s *LocalStorage) Open(url string) (io.ReadCloser, error) {
	p, err := s.localPath(url)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// Remove deletes a slip and its thumbnail, ignoring files already gone.
func (s *LocalStorage) Remove(slip StoredSlip) error {
	for _, url := range []string{slip.URL, slip.ThumbnailURL} {
		p, err := s.localPath(url)
		if err != nil {
			return err
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *LocalStorage) localPath(url string) (string, error) {
	rel, ok := strings.CutPrefix(url, s.publicPrefix+"/")
	if !ok {
		return "", fmt.Errorf("url %q is outside %s", url, s.publicPrefix)
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("url %q escapes the upload directory", url)
	}
	return filepath.Join(s.dir, filepath.FromSlash(rel)), nil
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, s)
}
