package badgekit

import (
	"image"
	"image/color"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// lineHeight is the text box height as a multiple of the font size.
const lineHeight = 1.16

var (
	fontOnce sync.Once
	fontErr  error
	fontData *opentype.Font

	faceMu    sync.Mutex
	faceCache = map[float64]font.Face{}
)

func loadFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		fontData, fontErr = opentype.Parse(goregular.TTF)
	})
	return fontData, fontErr
}

// faceFor returns a cached face for the given pixel size.
func faceFor(size float64) (font.Face, error) {
	f, err := loadFont()
	if err != nil {
		return nil, err
	}
	faceMu.Lock()
	defer faceMu.Unlock()
	if face, ok := faceCache[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, err
	}
	faceCache[size] = face
	return face, nil
}

// measureText returns the unscaled box of a single line of text.
func measureText(text string, size float64) (w, h float64) {
	if size <= 0 {
		return 0, 0
	}
	h = size * lineHeight
	face, err := faceFor(size)
	if err != nil {
		return float64(len(text)) * size * 0.5, h
	}
	faceMu.Lock()
	adv := font.MeasureString(face, text)
	faceMu.Unlock()
	return fixedToFloat(adv), h
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// renderText rasterizes a text node into a bitmap supersampled by k, so the
// bitmap is (Width*k) x (Height*k) pixels.
func renderText(n *Node, k float64) (*image.RGBA, error) {
	size := n.FontSize * k
	w := int(math.Ceil(n.Width * k))
	h := int(math.Ceil(n.Height * k))
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0)), nil
	}
	face, err := faceFor(size)
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	col := n.TextColor
	if col == nil {
		col = color.Black
	}

	faceMu.Lock()
	defer faceMu.Unlock()
	metrics := face.Metrics()
	ascent := fixedToFloat(metrics.Ascent)
	descent := fixedToFloat(metrics.Descent)
	baseline := ascent + (float64(h)-(ascent+descent))/2
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: fixed.Int26_6(baseline * 64)},
	}
	d.DrawString(n.Text)
	return dst, nil
}
