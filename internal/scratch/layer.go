package scratch

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math/rand/v2"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	occlusionColor = color.NRGBA{R: 0xB8, G: 0xB8, B: 0xB8, A: 0xFF}
	speckleColor   = color.NRGBA{R: 0xDC, G: 0xDC, B: 0xDC, A: 0xFF}
	labelColor     = color.NRGBA{R: 0x4A, G: 0x4A, B: 0x4A, A: 0xFF}
)

const speckleSize = 2

// OcclusionLayer is the scratch-off coating drawn over a reward.
// Erased pixels have alpha 0; everything else is opaque.
//
// An OcclusionLayer is not safe for concurrent use.
type OcclusionLayer struct {
	img      *image.NRGBA
	settings Settings
	seed     uint64
	speckles int
}

// NewOcclusionLayer creates and paints a layer sized for the container width.
// A zero-width container produces an empty, inert layer.
func NewOcclusionLayer(containerWidth int, s Settings, seed uint64) *OcclusionLayer {
	w, h := Dimensions(containerWidth, s)
	l := &OcclusionLayer{
		img:      image.NewNRGBA(image.Rect(0, 0, w, h)),
		settings: s,
		seed:     seed,
	}
	l.Paint()
	return l
}

// Size returns the layer dimensions in pixels.
func (l *OcclusionLayer) Size() (width, height int) {
	b := l.img.Bounds()
	return b.Dx(), b.Dy()
}

// TotalPixels returns width*height.
func (l *OcclusionLayer) TotalPixels() int {
	w, h := l.Size()
	return w * h
}

// Speckles returns how many speckles the last paint scattered.
func (l *OcclusionLayer) Speckles() int {
	return l.speckles
}

// Paint fully repaints the coating: solid fill, speckle texture and the
// centered label. Repainting never accumulates speckles.
func (l *OcclusionLayer) Paint() {
	w, h := l.Size()
	l.speckles = 0
	if w == 0 || h == 0 {
		return
	}

	draw.Draw(l.img, l.img.Bounds(), image.NewUniform(occlusionColor), image.Point{}, draw.Src)

	// Same seed, same texture: a repaint at the same size is pixel-identical.
	rng := rand.New(rand.NewPCG(l.seed, uint64(w)<<32|uint64(h)))
	count := 0
	if l.settings.SpeckleArea > 0 {
		count = (w * h) / l.settings.SpeckleArea
	}
	speckle := image.NewUniform(speckleColor)
	for i := 0; i < count; i++ {
		x, y := rng.IntN(w), rng.IntN(h)
		r := image.Rect(x, y, x+speckleSize, y+speckleSize).Intersect(l.img.Bounds())
		draw.Draw(l.img, r, speckle, image.Point{}, draw.Src)
	}
	l.speckles = count

	l.drawLabel(w, h)
}

// drawLabel renders the label with the fixed 7x13 face and scales it to the
// font size for the current width.
func (l *OcclusionLayer) drawLabel(w, h int) {
	text := l.settings.Label
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	textW := font.MeasureString(face, text).Ceil()
	textH := face.Height
	glyphs := image.NewNRGBA(image.Rect(0, 0, textW, textH))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(text)

	size := LabelSize(w, l.settings)
	scaledW := textW * size / textH
	scaledH := size
	if scaledW > w {
		scaledH = scaledH * w / scaledW
		scaledW = w
	}
	if scaledW == 0 || scaledH == 0 {
		return
	}
	x0 := (w - scaledW) / 2
	y0 := (h - scaledH) / 2
	dst := image.Rect(x0, y0, x0+scaledW, y0+scaledH)
	xdraw.ApproxBiLinear.Scale(l.img, dst, glyphs, glyphs.Bounds(), xdraw.Over, nil)
}

// Resize resizes the layer for a new container width. It does not repaint:
// scratched areas are rescaled and carried over proportionally, and only a
// layer that was empty gets a fresh coating. It reports whether the
// dimensions changed.
func (l *OcclusionLayer) Resize(containerWidth int) bool {
	w, h := Dimensions(containerWidth, l.settings)
	oldW, oldH := l.Size()
	if w == oldW && h == oldH {
		return false
	}

	next := image.NewNRGBA(image.Rect(0, 0, w, h))
	if oldW == 0 || oldH == 0 {
		l.img = next
		l.Paint()
		return true
	}
	if w > 0 && h > 0 {
		xdraw.NearestNeighbor.Scale(next, next.Bounds(), l.img, l.img.Bounds(), xdraw.Src, nil)
	}
	l.img = next
	return true
}

// Erase punches a fully transparent disc of the given radius into the layer
// and returns how many pixels were not transparent before. Parts of the disc
// outside the layer are clipped.
func (l *OcclusionLayer) Erase(center image.Point, radius int) int {
	if radius < 0 {
		return 0
	}
	b := l.img.Bounds()
	area := image.Rect(center.X-radius, center.Y-radius, center.X+radius+1, center.Y+radius+1).Intersect(b)
	if area.Empty() {
		return 0
	}
	cleared := 0
	r2 := radius * radius
	for y := area.Min.Y; y < area.Max.Y; y++ {
		dy := y - center.Y
		for x := area.Min.X; x < area.Max.X; x++ {
			dx := x - center.X
			if dx*dx+dy*dy > r2 {
				continue
			}
			i := l.img.PixOffset(x, y)
			if l.img.Pix[i+3] != 0 {
				cleared++
			}
			l.img.Pix[i], l.img.Pix[i+1], l.img.Pix[i+2], l.img.Pix[i+3] = 0, 0, 0, 0
		}
	}
	return cleared
}

// TransparentPixels counts pixels whose alpha byte is zero.
func (l *OcclusionLayer) TransparentPixels() int {
	n := 0
	pix := l.img.Pix
	for i := 3; i < len(pix); i += 4 {
		if pix[i] == 0 {
			n++
		}
	}
	return n
}

// ClearedIn returns the transparent share of the pixels inside r.
// Pixels outside the layer are ignored; an empty intersection yields 0.
func (l *OcclusionLayer) ClearedIn(r image.Rectangle) float64 {
	area := r.Intersect(l.img.Bounds())
	if area.Empty() {
		return 0
	}
	n := 0
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			if l.img.Pix[l.img.PixOffset(x, y)+3] == 0 {
				n++
			}
		}
	}
	return float64(n) / float64(area.Dx()*area.Dy())
}

// Coverage returns the transparent share of the layer. ok is false for an
// empty layer, where no ratio exists.
func (l *OcclusionLayer) Coverage() (ratio float64, ok bool) {
	total := l.TotalPixels()
	if total == 0 {
		return 0, false
	}
	return float64(l.TransparentPixels()) / float64(total), true
}

// EncodePNG writes the layer as a PNG image.
func (l *OcclusionLayer) EncodePNG(w io.Writer) error {
	if l.TotalPixels() == 0 {
		return ErrEmptySurface
	}
	if err := png.Encode(w, l.img); err != nil {
		return fmt.Errorf("encode occlusion layer: %w", err)
	}
	return nil
}
