package infra

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

// PreviewRenderer implements domain.PreviewRenderer with x/image.
// It holds no state across calls other than the parsed fallback font.
type PreviewRenderer struct {
	fallback *opentype.Font
	logger   *zap.Logger
}

// NewPreviewRenderer creates a renderer that falls back to Go Regular
// when a font file cannot be parsed.
func NewPreviewRenderer(logger *zap.Logger) (*PreviewRenderer, error) {
	fallback, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fallback font: %w", err)
	}
	return &PreviewRenderer{fallback: fallback, logger: logger}, nil
}

// Render draws req.Text centered on a transparent canvas.
func (r *PreviewRenderer) Render(req domain.PreviewRequest) (img image.Image, err error) {
	if req.Width <= 0 || req.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas %dx%d", req.Width, req.Height)
	}
	if req.PixelSize <= 0 {
		return nil, fmt.Errorf("invalid pixel size %.1f", req.PixelSize)
	}

	defer func() {
		if rec := recover(); rec != nil {
			img = nil
			err = fmt.Errorf("failed to draw preview: %v", rec)
		}
	}()

	face, err := opentype.NewFace(r.loadFont(req.FontPath), &opentype.FaceOptions{
		Size:    req.PixelSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create face: %w", err)
	}
	defer face.Close()

	fg := req.Foreground
	if fg == nil {
		fg = color.Black
	}

	canvas := image.NewRGBA(image.Rect(0, 0, req.Width, req.Height))
	draw.Draw(canvas, canvas.Bounds(), image.Transparent, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(fg),
		Face: face,
	}
	metrics := face.Metrics()
	advance := d.MeasureString(req.Text)
	x := (fixed.I(req.Width) - advance) / 2
	y := (fixed.I(req.Height) + metrics.Ascent - metrics.Descent) / 2
	d.Dot = fixed.Point26_6{X: x, Y: y}
	d.DrawString(req.Text)

	return canvas, nil
}

// loadFont parses the file at path, trying a collection for .ttc files,
// and returns the fallback font on any failure.
func (r *PreviewRenderer) loadFont(path string) *opentype.Font {
	if path == "" {
		return r.fallback
	}
	data, err := os.ReadFile(path)
	if err != nil {
		r.logger.Debug("Preview font unreadable, using fallback", zap.String("path", path), zap.Error(err))
		return r.fallback
	}
	if f, err := opentype.Parse(data); err == nil {
		return f
	}
	if coll, err := opentype.ParseCollection(data); err == nil && coll.NumFonts() > 0 {
		if f, err := coll.Font(0); err == nil {
			return f
		}
	}
	r.logger.Debug("Preview font unparsable, using fallback", zap.String("path", path))
	return r.fallback
}

// EncodeImage writes img in the format implied by name's extension
// (.png or .bmp).
func EncodeImage(w io.Writer, img image.Image, name string) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return png.Encode(w, img)
	case ".bmp":
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("unsupported image format %q", filepath.Ext(name))
	}
}

var _ domain.PreviewRenderer = (*PreviewRenderer)(nil)
