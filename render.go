package badgekit

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// ErrCanvasTooLarge is returned when a raster would exceed the configured
// pixel budget.
var ErrCanvasTooLarge = errors.New("badgekit: canvas too large")

// DrawKind identifies the kind of draw command.
type DrawKind uint8

const (
	DrawImage DrawKind = iota // bitmap cropped to SourceRect
	DrawFill                  // solid rectangle of Fill
	DrawText                  // text rasterized on demand by TextBitmap
)

// DrawCommand is a single draw instruction emitted by scene traversal.
// Matrix maps the node's local box (0,0)-(Width,Height) to canvas space.
type DrawCommand struct {
	Kind       DrawKind
	Node       *Node
	Matrix     Affine
	Width      float64
	Height     float64
	Alpha      float64
	ClipCircle bool

	Source     image.Image
	SourceRect image.Rectangle
	Fill       color.Color
}

// SourceMatrix maps pixels of SourceRect to canvas space.
func (c DrawCommand) SourceMatrix() Affine {
	sw, sh := float64(c.SourceRect.Dx()), float64(c.SourceRect.Dy())
	if sw <= 0 || sh <= 0 {
		return c.Matrix
	}
	return c.Matrix.
		Mul(scaleAffine(c.Width/sw, c.Height/sh)).
		Mul(translateAffine(-float64(c.SourceRect.Min.X), -float64(c.SourceRect.Min.Y)))
}

// TextBitmap rasterizes a DrawText command supersampled by k and returns the
// bitmap together with the matrix that maps its pixels to canvas space.
func (c DrawCommand) TextBitmap(k float64) (*image.RGBA, Affine, error) {
	if c.Kind != DrawText || c.Node == nil {
		return nil, Identity, fmt.Errorf("badgekit: not a text command")
	}
	if k < 1 {
		k = 1
	}
	img, err := renderText(c.Node, k)
	if err != nil {
		return nil, Identity, err
	}
	return img, c.Matrix.Mul(scaleAffine(1/k, 1/k)), nil
}

// RenderOptions controls scene traversal and rasterization.
type RenderOptions struct {
	// DrawGuides includes currently visible guides.
	DrawGuides bool
	// Background fills the canvas before anything is drawn. nil is white.
	Background color.Color
	// MaxPixels bounds width*height of the raster. Zero is unlimited.
	MaxPixels int
}

// Commands walks the scene in draw order: background, content, then guides
// if requested. Invisible and fully transparent nodes emit nothing, and an
// image node with neither bitmap nor fill is an empty slot.
func (s *Scene) Commands(opts RenderOptions) []DrawCommand {
	var out []DrawCommand
	if bg := s.background; bg.Image != nil {
		out = appendLeaf(out, bg, bg.LocalMatrix(), 1)
	}
	for _, n := range s.ContentNodes() {
		out = traverse(out, n, Identity, 1)
	}
	if opts.DrawGuides {
		for _, g := range s.guides {
			out = traverse(out, g, Identity, 1)
		}
	}
	return out
}

func traverse(out []DrawCommand, n *Node, parent Affine, parentAlpha float64) []DrawCommand {
	if !n.Visible || n.IsDisposed() {
		return out
	}
	alpha := parentAlpha * n.Opacity
	if alpha <= 0 {
		return out
	}
	world := parent.Mul(n.LocalMatrix())
	if n.Kind == KindGroup {
		for _, c := range n.children {
			out = traverse(out, c, world, alpha)
		}
		return out
	}
	return appendLeaf(out, n, world, alpha)
}

func appendLeaf(out []DrawCommand, n *Node, world Affine, alpha float64) []DrawCommand {
	if n.Width <= 0 || n.Height <= 0 {
		return out
	}
	cmd := DrawCommand{
		Node:       n,
		Matrix:     world,
		Width:      n.Width,
		Height:     n.Height,
		Alpha:      math.Min(alpha, 1),
		ClipCircle: n.ClipCircle,
	}
	switch {
	case n.Kind == KindText:
		if n.Text == "" {
			return out
		}
		cmd.Kind = DrawText
	case n.Image != nil:
		cmd.Kind = DrawImage
		cmd.Source = n.Image
		cmd.SourceRect = coverRect(n.Image.Bounds(), n.Width, n.Height)
		if cmd.SourceRect.Empty() {
			return out
		}
	case n.Fill != nil:
		cmd.Kind = DrawFill
		cmd.Fill = n.Fill
	default:
		return out
	}
	return append(out, cmd)
}

// coverRect returns the centered sub-rectangle of b with the aspect ratio
// w:h, so the bitmap covers the box without distortion.
func coverRect(b image.Rectangle, w, h float64) image.Rectangle {
	bw, bh := float64(b.Dx()), float64(b.Dy())
	if bw <= 0 || bh <= 0 || w <= 0 || h <= 0 {
		return image.Rectangle{}
	}
	want := w / h
	if bw/bh > want {
		cw := int(math.Round(bh * want))
		x0 := b.Min.X + (b.Dx()-cw)/2
		return image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	}
	ch := int(math.Round(bw / want))
	y0 := b.Min.Y + (b.Dy()-ch)/2
	return image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
}

// Rasterize draws the scene into a new RGBA image of the canvas size.
// Scene units are pixels; callers wanting a larger raster build the scene at
// a multiplier (see BuildScene).
func Rasterize(s *Scene, opts RenderOptions) (*image.RGBA, error) {
	w := int(math.Ceil(s.Width))
	h := int(math.Ceil(s.Height))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("badgekit: invalid canvas %dx%d", w, h)
	}
	if opts.MaxPixels > 0 && w*h > opts.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrCanvasTooLarge, w, h, opts.MaxPixels)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := opts.Background
	if bg == nil {
		bg = color.White
	}
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	for _, cmd := range s.Commands(opts) {
		if err := drawCommand(dst, cmd); err != nil {
			return nil, fmt.Errorf("draw %q: %w", cmd.Node.Name, err)
		}
	}
	return dst, nil
}

func drawCommand(dst *image.RGBA, cmd DrawCommand) error {
	area := deviceBounds(cmd.Matrix, cmd.Width, cmd.Height).Intersect(dst.Bounds())
	if area.Empty() {
		return nil
	}
	mask := &boxMask{
		inv:    cmd.Matrix.Invert(),
		w:      cmd.Width,
		h:      cmd.Height,
		circle: cmd.ClipCircle,
		alpha:  cmd.Alpha,
	}

	var src image.Image
	switch cmd.Kind {
	case DrawFill:
		draw.DrawMask(dst, area, image.NewUniform(cmd.Fill), image.Point{}, mask, area.Min, draw.Over)
		return nil
	case DrawImage:
		layer := image.NewRGBA(area)
		draw.CatmullRom.Transform(layer, toAff3(cmd.SourceMatrix()), cmd.Source, cmd.SourceRect, draw.Src, nil)
		src = layer
	case DrawText:
		k := math.Max(1, math.Ceil(cmd.Matrix.ScaleFactor()))
		bmp, m, err := cmd.TextBitmap(k)
		if err != nil {
			return err
		}
		if bmp.Bounds().Empty() {
			return nil
		}
		layer := image.NewRGBA(area)
		draw.ApproxBiLinear.Transform(layer, toAff3(m), bmp, bmp.Bounds(), draw.Src, nil)
		src = layer
	}
	draw.DrawMask(dst, area, src, area.Min, mask, area.Min, draw.Over)
	return nil
}

// toAff3 converts an Affine into the row-major form x/image/draw expects.
func toAff3(m Affine) f64.Aff3 {
	return f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}
}

// deviceBounds returns the pixel rectangle covering the transformed box.
func deviceBounds(m Affine, w, h float64) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range [4][2]float64{{0, 0}, {w, 0}, {w, h}, {0, h}} {
		x, y := m.Apply(p[0], p[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

// boxMask is a canvas-space alpha mask that is opaque inside a node's local
// box (or the ellipse inscribed in it) and scaled by the node's alpha.
type boxMask struct {
	inv    Affine
	w, h   float64
	circle bool
	alpha  float64
}

func (m *boxMask) ColorModel() color.Model { return color.Alpha16Model }

func (m *boxMask) Bounds() image.Rectangle {
	return image.Rect(-1<<30, -1<<30, 1<<30, 1<<30)
}

func (m *boxMask) At(x, y int) color.Color {
	lx, ly := m.inv.Apply(float64(x)+0.5, float64(y)+0.5)
	if lx < 0 || ly < 0 || lx > m.w || ly > m.h {
		return color.Alpha16{}
	}
	if m.circle {
		dx := (lx - m.w/2) / (m.w / 2)
		dy := (ly - m.h/2) / (m.h / 2)
		if dx*dx+dy*dy > 1 {
			return color.Alpha16{}
		}
	}
	return color.Alpha16{A: uint16(clamp01(m.alpha) * 0xffff)}
}

// ClipCircle copies the r region of src into a new image, transparent
// outside the ellipse inscribed in r. The result keeps r as its bounds.
func ClipCircle(src image.Image, r image.Rectangle) *image.RGBA {
	dst := image.NewRGBA(r)
	mask := &boxMask{
		inv:    translateAffine(-float64(r.Min.X), -float64(r.Min.Y)),
		w:      float64(r.Dx()),
		h:      float64(r.Dy()),
		circle: true,
		alpha:  1,
	}
	draw.DrawMask(dst, r, src, r.Min, mask, r.Min, draw.Src)
	return dst
}
