// Package qr renders Lightning payment requests as scannable codes.
package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Size is the pixel width and height of generated codes.
const Size = 280

// Encode renders a payment request as a PNG QR code. The highest error
// correction level is used so a partially obscured screen still scans.
func Encode(paymentRequest string) ([]byte, error) {
	png, err := qrcode.Encode(paymentRequest, qrcode.Highest, Size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment request: %w", err)
	}
	return png, nil
}
