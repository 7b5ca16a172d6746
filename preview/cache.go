package preview

import (
	"image"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/badgekit"
)

type sourceKey struct {
	src    image.Image
	rect   image.Rectangle
	circle bool
}

type textKey struct {
	node *badgekit.Node
	text string
	size float64
	k    float64
}

// imageCache keeps GPU copies of bitmaps and rendered text between frames.
// Entries not used during a frame are released by sweep.
type imageCache struct {
	white   *ebiten.Image
	sources map[sourceKey]*ebiten.Image
	texts   map[textKey]*ebiten.Image
	used    map[any]bool
}

func newImageCache() *imageCache {
	return &imageCache{
		sources: make(map[sourceKey]*ebiten.Image),
		texts:   make(map[textKey]*ebiten.Image),
		used:    make(map[any]bool),
	}
}

func (c *imageCache) whitePixel() *ebiten.Image {
	if c.white == nil {
		c.white = ebiten.NewImage(1, 1)
		c.white.Fill(color.White)
	}
	return c.white
}

// source returns the cropped (and circle-clipped) bitmap of an image
// command. The returned image starts at (0, 0).
func (c *imageCache) source(cmd *badgekit.DrawCommand) *ebiten.Image {
	key := sourceKey{src: cmd.Source, rect: cmd.SourceRect, circle: cmd.ClipCircle}
	c.used[key] = true
	if img, ok := c.sources[key]; ok {
		return img
	}
	var img *ebiten.Image
	if cmd.ClipCircle {
		img = ebiten.NewImageFromImage(badgekit.ClipCircle(cmd.Source, cmd.SourceRect))
	} else {
		img = ebiten.NewImageFromImage(subImage(cmd.Source, cmd.SourceRect))
	}
	c.sources[key] = img
	return img
}

// text rasterizes a text command at supersample k, rounded up so small zoom
// changes reuse the cached bitmap.
func (c *imageCache) text(cmd *badgekit.DrawCommand, k float64) (*ebiten.Image, badgekit.Affine, error) {
	k = math.Ceil(k)
	n := cmd.Node
	key := textKey{node: n, text: n.Text, size: n.FontSize, k: k}
	c.used[key] = true
	if img, ok := c.texts[key]; ok {
		// Only the bitmap is cached; the matrix follows the node.
		return img, cmd.Matrix.Mul(badgekit.Affine{1 / k, 0, 0, 1 / k, 0, 0}), nil
	}
	bmp, m, err := cmd.TextBitmap(k)
	if err != nil {
		return nil, badgekit.Identity, err
	}
	if bmp.Bounds().Empty() {
		return nil, m, nil
	}
	img := ebiten.NewImageFromImage(bmp)
	c.texts[key] = img
	return img, m, nil
}

func (c *imageCache) sweep() {
	for k, img := range c.sources {
		if !c.used[k] {
			img.Deallocate()
			delete(c.sources, k)
		}
	}
	for k, img := range c.texts {
		if !c.used[k] {
			img.Deallocate()
			delete(c.texts, k)
		}
	}
	clear(c.used)
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func subImage(src image.Image, r image.Rectangle) image.Image {
	if s, ok := src.(subImager); ok {
		return s.SubImage(r)
	}
	return src
}
