package payments

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// pngHeader is a PNG signature and IHDR chunk claiming a w x h grayscale
// canvas, with no pixel data behind it.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth; color type, compression, filter and interlace stay 0

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir, "/uploads/")

	stored, err := s.Save(context.Background(), "order-1", bytes.NewReader(pngBytes(t, 900, 600)))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if !strings.HasPrefix(stored.URL, "/uploads/slips/order-1-") || !strings.HasSuffix(stored.URL, ".jpg") {
		t.Errorf("unexpected url %q", stored.URL)
	}
	if !strings.HasPrefix(stored.ThumbnailURL, "/uploads/slips/thumb/") {
		t.Errorf("unexpected thumbnail url %q", stored.ThumbnailURL)
	}

	thumb, err := imaging.Open(filepath.Join(dir, strings.TrimPrefix(stored.ThumbnailURL, "/uploads/")))
	if err != nil {
		t.Fatalf("open thumbnail: %v", err)
	}
	if b := thumb.Bounds(); b.Dx() != 300 || b.Dy() != 200 {
		t.Errorf("expected 300x200 thumbnail, got %dx%d", b.Dx(), b.Dy())
	}

	f, err := s.Open(stored.URL)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(f)
	_ = f.Close()
	if len(data) == 0 {
		t.Error("expected stored slip content")
	}

	if err := s.Remove(*stored); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "slips")); err != nil {
		t.Fatalf("slip dir should remain: %v", err)
	}
	if _, err := s.Open(stored.URL); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected removed slip, got %v", err)
	}
}

func TestLocalStorageRejects(t *testing.T) {
	s := NewLocalStorage(t.TempDir(), "/uploads")

	for name, data := range map[string][]byte{
		"not an image":     []byte("not an image"),
		"oversized canvas": pngHeader(10000, 10000),
		"truncated image":  pngHeader(64, 64),
	} {
		if _, err := s.Save(context.Background(), "order-1", bytes.NewReader(data)); !errors.Is(err, ErrSlipImage) {
			t.Errorf("%s: expected ErrSlipImage, got %v", name, err)
		}
	}
	if entries, _ := os.ReadDir(filepath.Join(s.dir, "slips")); len(entries) != 0 {
		t.Errorf("rejected slips must not be written, found %d entries", len(entries))
	}
	for _, url := range []string{"/uploads/../etc/passwd", "/static/slip.jpg", "/uploads//etc/passwd"} {
		if _, err := s.Open(url); err == nil {
			t.Errorf("expected %q to be refused", url)
		}
	}
}
