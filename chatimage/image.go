// Package chatimage renders chat lines into a color-coded image.
//
// Layout is a single column of unwrapped text in a fixed-width face: the
// image grows wider for long lines and taller for more lines. Rendering is
// deterministic; the same header and lines always produce the same pixels.
package chatimage

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/pithecene-io/replaycast/iox"
	"github.com/pithecene-io/replaycast/replay"
	"github.com/pithecene-io/replaycast/types"
)

// Format is an output image encoding.
type Format string

const (
	// FormatJPEG encodes JPEG files with the .jpg extension.
	FormatJPEG Format = "jpeg"
	// FormatPNG encodes PNG files with the .png extension.
	FormatPNG Format = "png"
)

// Ext returns the file extension for f, without the dot.
func (f Format) Ext() string {
	if f == FormatPNG {
		return "png"
	}
	return "jpg"
}

// Layout defaults.
const (
	DefaultFontSize    = 20
	DefaultPadding     = 20
	DefaultJPEGQuality = 95

	// rowSpacing is added to the glyph height of "Ap" to get the row height.
	rowSpacing = 10
)

// Options configures an ImageRenderer. Zero values select the defaults.
type Options struct {
	FontSize float64
	Padding  int
	Format   Format
	Quality  int
}

// Renderer writes a chat image to dst.
type Renderer interface {
	Render(header string, lines []types.ChatLine, dst string) error
}

// ImageRenderer draws text with the Go Mono face.
type ImageRenderer struct {
	opts Options

	// mu guards face; opentype faces cache glyph state and are not safe
	// for concurrent use.
	mu         sync.Mutex
	face       font.Face
	ascent     int
	lineHeight int
}

// NewImageRenderer parses the embedded font and prepares a face.
func NewImageRenderer(opts Options) (*ImageRenderer, error) {
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultFontSize
	}
	if opts.Padding < 0 {
		opts.Padding = 0
	} else if opts.Padding == 0 {
		opts.Padding = DefaultPadding
	}
	if opts.Format == "" {
		opts.Format = FormatJPEG
	}
	if opts.Format != FormatJPEG && opts.Format != FormatPNG {
		return nil, fmt.Errorf("unsupported image format %q", opts.Format)
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultJPEGQuality
	}

	f, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    opts.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}

	sample, _ := font.BoundString(face, "Ap")
	return &ImageRenderer{
		opts:       opts,
		face:       face,
		ascent:     face.Metrics().Ascent.Ceil(),
		lineHeight: (sample.Max.Y - sample.Min.Y).Ceil() + rowSpacing,
	}, nil
}

// Format returns the configured encoding.
func (r *ImageRenderer) Format() Format {
	return r.opts.Format
}

// LineHeight returns the height of one text row in pixels.
func (r *ImageRenderer) LineHeight() int {
	return r.lineHeight
}

// Compose draws header and lines onto a new image.
//
// The header sits at the top padding and is followed by one blank row; each
// chat line then takes one row in the given order.
func (r *ImageRenderer) Compose(header string, lines []types.ChatLine) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	texts := make([]string, len(lines))
	widest := font.MeasureString(r.face, header).Ceil()
	for i, l := range lines {
		texts[i] = l.Text()
		if w := font.MeasureString(r.face, texts[i]).Ceil(); w > widest {
			widest = w
		}
	}

	pad := r.opts.Padding
	width := widest + 2*pad
	height := pad + 2*r.lineHeight + len(lines)*r.lineHeight + pad

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	y := pad
	r.drawText(img, header, Fallback, pad, y)
	y += 2 * r.lineHeight

	for i, l := range lines {
		r.drawText(img, texts[i], RGB(l.Color), pad, y)
		y += r.lineHeight
	}
	return img
}

// drawText draws s with its top edge at y.
func (r *ImageRenderer) drawText(dst draw.Image, s string, c color.Color, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: r.face,
		Dot:  fixed.P(x, y+r.ascent),
	}
	d.DrawString(s)
}

// Encode writes img in the configured format.
func (r *ImageRenderer) Encode(w io.Writer, img image.Image) error {
	if r.opts.Format == FormatPNG {
		return png.Encode(w, img)
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: r.opts.Quality})
}

// Render composes the image and writes it to dst, replacing any existing
// file. The file is written to a temporary name in the same directory and
// renamed into place.
func (r *ImageRenderer) Render(header string, lines []types.ChatLine, dst string) error {
	img := r.Compose(header, lines)

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".render-*")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	tmpName := tmp.Name()
	// No-op after a successful rename.
	defer iox.DiscardRemove(tmpName)

	if err := r.Encode(tmp, img); err != nil {
		iox.DiscardClose(tmp)
		return fmt.Errorf("encode image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp image: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("move image into place: %w", err)
	}
	return nil
}

// FileName names the artifact for the rank-th replay of a game day:
// "Monday 3rd game.jpg".
func FileName(weekday time.Weekday, rank int, format Format) string {
	return fmt.Sprintf("%s %s game.%s", weekday, replay.Ordinal(rank), format.Ext())
}

// Verify ImageRenderer implements Renderer.
var _ Renderer = (*ImageRenderer)(nil)
