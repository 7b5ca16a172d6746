package badgekit

import "math"

// Vec2 is a 2D vector used for positions, offsets and sizes.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Vec2 {
	return Vec2{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Union returns the smallest rectangle containing both r and other.
func (r Rect) Union(other Rect) Rect {
	minX := math.Min(r.X, other.X)
	minY := math.Min(r.Y, other.Y)
	maxX := math.Max(r.X+r.Width, other.X+other.Width)
	maxY := math.Max(r.Y+r.Height, other.Y+other.Height)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Kind distinguishes the payload carried by a Node.
type Kind uint8

const (
	KindImage Kind = iota // bitmap, solid fill, or empty slot
	KindText              // single line of text
	KindGroup             // container whose bounds are the union of its children
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindText:
		return "text"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// OriginX selects which horizontal point of a node's box its X refers to.
type OriginX string

// OriginY selects which vertical point of a node's box its Y refers to.
type OriginY string

const (
	OriginLeft   OriginX = "left"
	OriginCenter OriginX = "center"

	OriginTop    OriginY = "top"
	OriginMiddle OriginY = "center"
)

// Valid reports whether o is one of the supported horizontal anchors.
func (o OriginX) Valid() bool { return o == OriginLeft || o == OriginCenter }

// Valid reports whether o is one of the supported vertical anchors.
func (o OriginY) Valid() bool { return o == OriginTop || o == OriginMiddle }

func (o OriginX) fraction() float64 {
	if o == OriginCenter {
		return 0.5
	}
	return 0
}

func (o OriginY) fraction() float64 {
	if o == OriginMiddle {
		return 0.5
	}
	return 0
}

// KeyModifiers is a bitmask of keyboard modifier keys.
// Values can be combined with bitwise OR (e.g. ModShift | ModCtrl).
type KeyModifiers uint8

const (
	ModShift KeyModifiers = 1 << iota // Shift key
	ModCtrl                           // Control key
	ModAlt                            // Alt / Option key
	ModMeta                           // Meta / Command / Windows key
)

// Key identifies one of the keys the editor binds shortcuts to.
type Key uint8

const (
	KeyUnknown Key = iota
	KeyZ
	KeyY
	KeyE
	KeyQ
	KeyW
	Key1
	Key2
	KeyEscape
)

// Node names of the content a badge is made of. They are the join key
// between a live scene and a persisted Layout.
const (
	NameUserPhoto = "userPhoto"
	NameQRCode    = "qrCode"
	NameZoneGroup = "zoneGroup"
)

// TextFieldCount is the number of text rows printed on a badge.
const TextFieldCount = 3

var textFieldNames = [TextFieldCount]string{"textValue_0", "textValue_1", "textValue_2"}

// TextFieldName returns the node name of the i-th text row.
func TextFieldName(i int) string {
	return textFieldNames[i]
}
