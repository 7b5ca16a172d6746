package badgekit

import (
	"image"
	"image/color"
	"strings"
)

// Zone is one access zone printed on the badge.
type Zone struct {
	Name   string `json:"name" yaml:"name"`
	Member bool   `json:"member" yaml:"member"`
}

// BadgeContent is the data a badge is rendered from. Image fields are asset
// references resolved through an AssetLoader; QRPayload is handed to a
// QREncoder.
type BadgeContent struct {
	ID         string   `json:"id" yaml:"id"`
	Background string   `json:"background" yaml:"background"`
	Photo      string   `json:"photo" yaml:"photo"`
	Fields     []string `json:"fields" yaml:"fields"`
	QRPayload  string   `json:"qr" yaml:"qr"`
	Zones      []Zone   `json:"zones" yaml:"zones"`
}

// Field returns the i-th text value, or "" if absent.
func (c BadgeContent) Field(i int) string {
	if i < 0 || i >= len(c.Fields) {
		return ""
	}
	return c.Fields[i]
}

// Assets holds the decoded bitmaps of a badge. A nil image is an empty slot.
type Assets struct {
	Background image.Image
	Photo      image.Image
	QR         image.Image
}

// Compiled design of the sample badge, in canvas units at multiplier 1.
const (
	qrSize       = 80.0
	zoneCell     = 26.0
	zoneGap      = 6.0
	zonesPerRow  = 3
	zoneFontSize = 10.0
)

var defaultFontSizes = [TextFieldCount]float64{24, 16, 14}

var (
	zoneMemberFill = color.NRGBA{R: 0x2e, G: 0x7d, B: 0x32, A: 0xff}
	zoneOtherFill  = color.NRGBA{R: 0xbd, G: 0xbd, B: 0xbd, A: 0xff}
)

func centered(x, y float64) Transform {
	return Transform{Left: x, Top: y, ScaleX: 1, ScaleY: 1, OriginX: OriginCenter, OriginY: OriginMiddle}
}

// compiledDefaults is the layout the badge was designed with.
var compiledDefaults = Layout{
	NameUserPhoto:    centered(200, 235),
	TextFieldName(0): centered(200, 318),
	TextFieldName(1): centered(200, 342),
	TextFieldName(2): centered(200, 362),
	NameQRCode:       centered(155, 410),
	NameZoneGroup:    centered(285, 410),
}

// DefaultLayout returns the compiled default transforms at multiplier 1,
// with cfg.Defaults applied on top.
func DefaultLayout(cfg Config) Layout {
	out := compiledDefaults.Clone()
	for name, t := range cfg.Defaults {
		out[name] = t
	}
	return out
}

// BuildContent creates the content nodes of a badge at multiplier m: every
// intrinsic size, font size and group offset is multiplied by m, and each
// node starts at its default transform scaled by m.
func BuildContent(c BadgeContent, a Assets, m float64, cfg Config) []*Node {
	cfg = cfg.Normalize()
	defaults := DefaultLayout(cfg)
	box := cfg.PhotoSlot.BoxSize(cfg.CanvasWidth) * m

	photo := NewImage(NameUserPhoto, a.Photo, box, box)
	photo.ClipCircle = true

	nodes := []*Node{photo}
	for i := range TextFieldCount {
		nodes = append(nodes, NewText(TextFieldName(i), c.Field(i), defaultFontSizes[i]*m))
	}
	nodes = append(nodes,
		NewImage(NameQRCode, a.QR, qrSize*m, qrSize*m),
		buildZoneGroup(c.Zones, m),
	)

	for _, n := range nodes {
		n.Selectable = true
		n.DefaultScaleX, n.DefaultScaleY = 1, 1
		if t, ok := defaults[n.Name]; ok {
			t.Scaled(m).ApplyTo(n)
		}
	}
	return nodes
}

func buildZoneGroup(zones []Zone, m float64) *Node {
	g := NewGroup(NameZoneGroup)
	for i, z := range zones {
		col := i % zonesPerRow
		row := i / zonesPerRow
		x := float64(col) * (zoneCell + zoneGap) * m
		y := float64(row) * (zoneCell + zoneGap) * m

		fill := zoneOtherFill
		if z.Member {
			fill = zoneMemberFill
		}
		cell := NewRect(z.Name, fill, zoneCell*m, zoneCell*m)
		cell.SetPosition(x, y)
		g.AddChild(cell)

		label := NewText(z.Name+"Label", zoneLabel(z.Name), zoneFontSize*m)
		label.TextColor = color.White
		label.SetOrigin(OriginCenter, OriginMiddle)
		label.SetPosition(x+zoneCell*m/2, y+zoneCell*m/2)
		g.AddChild(label)
	}
	return g
}

// zoneLabel abbreviates a zone name to what fits in a cell.
func zoneLabel(name string) string {
	r := []rune(strings.ToUpper(strings.TrimSpace(name)))
	if len(r) > 3 {
		r = r[:3]
	}
	return string(r)
}

// ResetTargets returns, for every content node of s, the transform and font
// size a reset animates it back to.
//
// The target scale is the node's recorded default scale. When none was
// recorded the scale is derived from the live intrinsic size so the node
// fills the photo slot box.
func ResetTargets(s *Scene, cfg Config) map[string]ResetTarget {
	cfg = cfg.Normalize()
	defaults := DefaultLayout(cfg)
	out := make(map[string]ResetTarget)
	for _, n := range s.ContentNodes() {
		t, ok := defaults[n.Name]
		if !ok {
			continue
		}
		if _, override := cfg.Defaults[n.Name]; !override {
			t.ScaleX, t.ScaleY = defaultScale(n, cfg)
		}
		target := ResetTarget{Transform: t}
		for i := range TextFieldCount {
			if TextFieldName(i) == n.Name {
				target.FontSize = defaultFontSizes[i]
			}
		}
		out[n.Name] = target
	}
	return out
}

func defaultScale(n *Node, cfg Config) (float64, float64) {
	if n.DefaultScaleX != 0 && n.DefaultScaleY != 0 {
		return n.DefaultScaleX, n.DefaultScaleY
	}
	base := max(n.Width, n.Height)
	if n.Kind != KindImage || base <= 0 {
		return 1, 1
	}
	s := cfg.PhotoSlot.BoxSize(cfg.CanvasWidth) / base
	return s, s
}
