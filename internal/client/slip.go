package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"

	"github.com/joao-fontenele/courseshop/internal/payments"
)

// Slip is a file chosen for upload.
type Slip struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// OpenSlip describes a file on disk, taking its type from the extension.
// The caller closes the returned file.
func OpenSlip(path string) (Slip, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return Slip{}, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return Slip{}, nil, err
	}
	return Slip{
		Filename:    filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Size:        info.Size(),
		Body:        f,
	}, f, nil
}

// UploadSlip sends a payment slip for orderID. Type and size are checked
// before any request is made.
func (c *Client) UploadSlip(ctx context.Context, orderID string, slip Slip) error {
	if err := payments.ValidateSlip(slip.ContentType, slip.Size); err != nil {
		return err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("orderId", orderID); err != nil {
		return fmt.Errorf("write order id: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="slip"; filename=%q`, slip.Filename))
	header.Set("Content-Type", slip.ContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create slip part: %w", err)
	}
	if _, err := io.Copy(part, io.LimitReader(slip.Body, payments.MaxSlipSize+1)); err != nil {
		return fmt.Errorf("read slip: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/payments/upload-slip", nil, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	_, err = c.send(req, nil)
	return err
}
