package capture

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultQRSize = 512
	MinQRSize     = 128
	MaxQRSize     = 2048
)

// QRCode renders the capture link as a PNG so it can be opened from a phone.
func QRCode(captureURL string, size int) ([]byte, error) {
	if size == 0 {
		size = DefaultQRSize
	}
	if size < MinQRSize || size > MaxQRSize {
		return nil, fmt.Errorf("invalid size %d: must be between %d and %d", size, MinQRSize, MaxQRSize)
	}

	qr, err := qrcode.New(captureURL, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return qr.PNG(size)
}
