// Package payments handles bank transfer slips: upload, storage and the
// advisory analysis admins run before confirming a payment.
package payments

import (
	"errors"
	"fmt"
	"strings"
)

// MaxSlipSize is the largest slip accepted, 5 MiB.
const MaxSlipSize int64 = 5 * 1024 * 1024

var AllowedSlipTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/webp"}

var (
	ErrSlipRequired = errors.New("slip file is required")
	ErrSlipTooLarge = fmt.Errorf("slip must be %d bytes or smaller", MaxSlipSize)
	ErrSlipType     = errors.New("slip must be a JPEG, PNG or WEBP image")
	ErrSlipImage    = errors.New("slip is not a readable image")
	ErrNoSlip       = errors.New("order has no uploaded slip")
)

// ValidateSlip checks the declared MIME type and size of a slip. It runs on
// both sides: the client calls it before any upload request.
func ValidateSlip(contentType string, size int64) error {
	if size <= 0 {
		return ErrSlipRequired
	}
	if size > MaxSlipSize {
		return ErrSlipTooLarge
	}

	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	for _, t := range AllowedSlipTypes {
		if mediaType == t {
			return nil
		}
	}
	return ErrSlipType
}
