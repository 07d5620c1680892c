package infra

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRCodePNG(t *testing.T) {
	data, err := QRCodePNG("SC2026-ATT-001")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, QRCodeSize, img.Bounds().Dx())

	_, err = QRCodePNG("")
	assert.Error(t, err)
}

func TestRenderBadgePDF(t *testing.T) {
	var buf bytes.Buffer
	err := RenderBadgePDF(&buf, Badge{
		EventName: "Summit Conference 2026",
		Name:      "José Müller",
		Email:     "jose@example.com",
		Role:      "attendee",
		QRToken:   "SC2026-ATT-001",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestGenerateBadgePDF_WritesUnderStoragePath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badges")

	path, err := GenerateBadgePDF(Badge{EventName: "Summit", Name: "Ada", Email: "ada@example.com", Role: "staff", QRToken: "SC2026-ADA"}, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "badge_SC2026-ADA.pdf"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
