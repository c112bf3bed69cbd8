package infra

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

func newTestRenderer(t *testing.T) *PreviewRenderer {
	t.Helper()
	r, err := NewPreviewRenderer(zap.NewNop())
	require.NoError(t, err)
	return r
}

// inkedPixels counts pixels with non-zero alpha.
func inkedPixels(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
				n++
			}
		}
	}
	return n
}

func TestPreviewRenderer_RendersFontFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.ttf")
	require.NoError(t, os.WriteFile(path, gomono.TTF, 0644))
	r := newTestRenderer(t)

	img, err := r.Render(domain.DefaultPreviewRequest(path, false))

	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, image.Rect(0, 0, domain.DefaultPreviewWidth, domain.DefaultPreviewHeight), img.Bounds())
	assert.Greater(t, inkedPixels(img), 0)
	_, _, _, a := img.At(0, 0).RGBA()
	assert.Zero(t, a, "background must stay transparent")
}

func TestPreviewRenderer_FallsBackOnUnparsableFont(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.ttf")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a font"), 0644))
	r := newTestRenderer(t)

	for _, p := range []string{path, filepath.Join(t.TempDir(), "missing.ttf"), ""} {
		img, err := r.Render(domain.DefaultPreviewRequest(p, true))
		require.NoError(t, err, p)
		assert.Greater(t, inkedPixels(img), 0, p)
	}
}

func TestPreviewRenderer_DarkThemeUsesWhite(t *testing.T) {
	r := newTestRenderer(t)

	img, err := r.Render(domain.DefaultPreviewRequest("", true))
	require.NoError(t, err)

	rgba := img.(*image.RGBA)
	var found bool
	for i := 0; i+3 < len(rgba.Pix); i += 4 {
		if rgba.Pix[i+3] == 0xff {
			assert.Equal(t, uint8(0xff), rgba.Pix[i], "opaque pixels must be white")
			found = true
		}
	}
	assert.True(t, found)
}

func TestPreviewRenderer_InvalidRequest(t *testing.T) {
	r := newTestRenderer(t)

	tests := []struct {
		name string
		req  domain.PreviewRequest
	}{
		{"zero width", domain.PreviewRequest{Text: "Aa", PixelSize: 40, Height: 64}},
		{"negative height", domain.PreviewRequest{Text: "Aa", PixelSize: 40, Width: 10, Height: -1}},
		{"zero size", domain.PreviewRequest{Text: "Aa", Width: 10, Height: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := r.Render(tt.req)
			assert.Error(t, err)
			assert.Nil(t, img)
		})
	}
}

func TestEncodeImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	var png, bmp bytes.Buffer
	require.NoError(t, EncodeImage(&png, img, "out.PNG"))
	require.NoError(t, EncodeImage(&bmp, img, "out.bmp"))
	assert.True(t, bytes.HasPrefix(png.Bytes(), []byte("\x89PNG")))
	assert.True(t, bytes.HasPrefix(bmp.Bytes(), []byte("BM")))

	assert.Error(t, EncodeImage(&bytes.Buffer{}, img, "out.gif"))
}
