package payments

import (
	"errors"
	"testing"
)

func TestValidateSlip(t *testing.T) {
	for _, tc := range []struct {
		name        string
		contentType string
		size        int64
		want        error
	}{
		{"jpeg", "image/jpeg", 1024, nil},
		{"jpg alias", "image/jpg", 1024, nil},
		{"png with params", "image/png; charset=binary", 1024, nil},
		{"webp upper case", "IMAGE/WEBP", 1024, nil},
		{"exactly the limit", "image/png", 5_242_880, nil},
		{"one byte over", "image/png", 5_242_881, ErrSlipTooLarge},
		{"empty file", "image/png", 0, ErrSlipRequired},
		{"gif", "image/gif", 1024, ErrSlipType},
		{"pdf", "application/pdf", 1024, ErrSlipType},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSlip(tc.contentType, tc.size)
			if !errors.Is(err, tc.want) {
				t.Errorf("ValidateSlip(%q, %d) = %v, want %v", tc.contentType, tc.size, err, tc.want)
			}
		})
	}
}
