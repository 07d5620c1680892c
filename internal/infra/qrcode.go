package infra

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRCodeSize is the PNG edge length in pixels.
const QRCodeSize = 256

// QRCodePNG encodes payload as a PNG QR code. The payload is the plain
// attendee token, nothing else.
func QRCodePNG(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("qrcode: empty payload")
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, QRCodeSize)
	if err != nil {
		return nil, fmt.Errorf("qrcode: encode: %w", err)
	}
	return png, nil
}
