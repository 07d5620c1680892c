package infra

// badge.go: printable attendee badge using go-pdf/fpdf.
// Layout (A6 portrait):
//   - Event name header
//   - Attendee name and email
//   - Role band ("ATTENDEE" / "STAFF")
//   - QR code carrying the plain token, with the token printed underneath

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Badge is everything printed on a badge.
type Badge struct {
	EventName string
	Name      string
	Email     string
	Role      string
	QRToken   string
}

// RenderBadgePDF writes the badge PDF to w.
func RenderBadgePDF(w io.Writer, b Badge) error {
	png, err := QRCodePNG(b.QRToken)
	if err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A6", "")
	pdf.SetMargins(8, 8, 8)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 16

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, tr(b.EventName), "", 1, "C", false, 0, "")
	pdf.Line(8, pdf.GetY()+1, pageW-8, pdf.GetY()+1)
	pdf.Ln(6)

	// ── Identity ─────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(contentW, 8, tr(b.Name), "", "C", false)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, tr(b.Email), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFillColor(30, 30, 30)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 7, strings.ToUpper(b.Role), "", 1, "C", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	// ── QR ───────────────────────────────────────────────────────────────────
	const qrSize = 50.0
	imgName := "qr-" + b.QRToken
	opt := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(imgName, opt, bytes.NewReader(png))
	pdf.ImageOptions(imgName, (pageW-qrSize)/2, pdf.GetY(), qrSize, qrSize, false, opt, 0, "")
	pdf.SetY(pdf.GetY() + qrSize + 2)

	pdf.SetFont("Courier", "", 8)
	pdf.CellFormat(contentW, 4, b.QRToken, "", 1, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("badge: render: %w", err)
	}
	return pdf.Output(w)
}

// GenerateBadgePDF writes the badge under storagePath (created if needed) and
// returns the file path. The file name is derived from the token, which is
// immutable, so regenerating overwrites the same file.
func GenerateBadgePDF(b Badge, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("badge: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("badge_%s.pdf", b.QRToken))

	f, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("badge: create file: %w", err)
	}
	if err := RenderBadgePDF(f, b); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("badge: close file: %w", err)
	}
	return filePath, nil
}
