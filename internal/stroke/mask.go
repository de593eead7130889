package stroke

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/ironsheep/pixelart/internal/imaging"
)

// Mode selects what a stroke does to the pixels under the brush.
type Mode int

const (
	// ModeNone disables drawing; pointer events are ignored.
	ModeNone Mode = iota

	// ModePaint cuts pixels out (alpha toward 0).
	ModePaint

	// ModeErase restores the original, fully opaque pixels.
	ModeErase
)

// DefaultWidth is the brush diameter in pixels.
const DefaultWidth = 20.0

var modeNames = map[Mode]string{
	ModeNone:  "none",
	ModePaint: "paint",
	ModeErase: "erase",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode maps "none", "paint" (or "pen") and "erase" (or "eraser") to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return ModeNone, nil
	case "paint", "pen":
		return ModePaint, nil
	case "erase", "eraser":
		return ModeErase, nil
	}
	return ModeNone, fmt.Errorf("%w: unknown stroke mode %q", imaging.ErrInvalidParameter, name)
}

// Segment is one straight piece of a brush stroke, in image coordinates.
type Segment struct {
	From  image.Point `json:"from"`
	To    image.Point `json:"to"`
	Width float64     `json:"width"`
	Mode  Mode        `json:"mode"`
}

// kappa places cubic Bézier control points for a quarter circle.
const kappa = 0.5522847

// Rasterize returns the coverage mask of seg's capsule clipped to bounds.
//
// The mask's Rect is the capsule's bounding box within bounds and is empty when
// the two do not overlap or seg.Width <= 0. Points address pixel centres, so a
// zero-length segment at p is a disc centred on pixel p.
func Rasterize(seg Segment, bounds image.Rectangle) *image.Alpha {
	if seg.Width <= 0 {
		return image.NewAlpha(image.Rectangle{})
	}
	radius := seg.Width / 2
	pad := int(math.Ceil(radius)) + 1

	box := image.Rect(
		min(seg.From.X, seg.To.X)-pad, min(seg.From.Y, seg.To.Y)-pad,
		max(seg.From.X, seg.To.X)+pad+1, max(seg.From.Y, seg.To.Y)+pad+1,
	).Intersect(bounds)
	if box.Empty() {
		return image.NewAlpha(image.Rectangle{})
	}

	// Rasterizer coordinates are relative to box.Min.
	ax := float64(seg.From.X-box.Min.X) + 0.5
	ay := float64(seg.From.Y-box.Min.Y) + 0.5
	bx := float64(seg.To.X-box.Min.X) + 0.5
	by := float64(seg.To.Y-box.Min.Y) + 0.5

	dx, dy := bx-ax, by-ay
	length := math.Hypot(dx, dy)
	if length == 0 {
		dx, dy = 1, 0
	} else {
		dx, dy = dx/length, dy/length
	}
	// d points along the segment, n is its left normal, both radius long.
	dx, dy = dx*radius, dy*radius
	nx, ny := -dy, dx

	z := vector.NewRasterizer(box.Dx(), box.Dy())
	z.DrawOp = draw.Src
	z.MoveTo(f32(ax+nx), f32(ay+ny))
	z.LineTo(f32(bx+nx), f32(by+ny))
	quarterArc(z, bx, by, nx, ny, dx, dy)
	quarterArc(z, bx, by, dx, dy, -nx, -ny)
	z.LineTo(f32(ax-nx), f32(ay-ny))
	quarterArc(z, ax, ay, -nx, -ny, -dx, -dy)
	quarterArc(z, ax, ay, -dx, -dy, nx, ny)
	z.ClosePath()

	mask := image.NewAlpha(box)
	z.Draw(mask, box, image.Opaque, image.Point{})
	return mask
}

// quarterArc appends the quarter circle around (cx, cy) from c+u to c+v, where
// u and v are perpendicular radius vectors. The pen must be at c+u.
func quarterArc(z *vector.Rasterizer, cx, cy, ux, uy, vx, vy float64) {
	z.CubeTo(
		f32(cx+ux+kappa*vx), f32(cy+uy+kappa*vy),
		f32(cx+vx+kappa*ux), f32(cy+vy+kappa*uy),
		f32(cx+vx), f32(cy+vy),
	)
}

func f32(v float64) float32 { return float32(v) }

// Apply composites seg into working in place.
//
// ModePaint multiplies alpha by (1 - coverage) and leaves RGB alone. ModeErase
// draws original over working through the coverage with alpha forced to
// opaque, so a fully covered pixel becomes exactly the original pixel.
// original must have working's size; its bounds may be offset. ModeNone and
// segments outside the image do nothing.
func Apply(working *image.NRGBA, original image.Image, seg Segment) {
	if seg.Mode == ModeNone {
		return
	}
	mask := Rasterize(seg, working.Rect)
	if mask.Rect.Empty() {
		return
	}

	switch seg.Mode {
	case ModePaint:
		cutOut(working, mask)
	case ModeErase:
		sp := mask.Rect.Min.Sub(working.Rect.Min).Add(original.Bounds().Min)
		draw.DrawMask(working, mask.Rect, opaqueView{original}, sp, mask, mask.Rect.Min, draw.Over)
	}
}

// cutOut scales working's alpha by the inverse of mask's coverage.
func cutOut(working *image.NRGBA, mask *image.Alpha) {
	r := mask.Rect
	for y := r.Min.Y; y < r.Max.Y; y++ {
		wi := working.PixOffset(r.Min.X, y)
		mi := mask.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			if c := uint32(mask.Pix[mi]); c != 0 {
				a := uint32(working.Pix[wi+3])
				working.Pix[wi+3] = uint8((a*(255-c) + 127) / 255)
			}
			wi += 4
			mi++
		}
	}
}

// opaqueView presents an image with every pixel's alpha forced to 255.
type opaqueView struct {
	image.Image
}

func (v opaqueView) ColorModel() color.Model { return color.NRGBAModel }

func (v opaqueView) At(x, y int) color.Color {
	c := color.NRGBAModel.Convert(v.Image.At(x, y)).(color.NRGBA)
	c.A = 255
	return c
}

func (v opaqueView) Opaque() bool { return true }
