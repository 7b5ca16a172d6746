package badgekit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
)

var (
	// ErrMalformedLayout is returned when persisted layout data is not a JSON
	// object. Callers treat it as an empty layout.
	ErrMalformedLayout = errors.New("badgekit: malformed layout")

	// ErrLayoutNotFound is returned by a LayoutStore that has nothing saved
	// for a badge.
	ErrLayoutNotFound = errors.New("badgekit: layout not found")
)

// Transform is the serialized transform of one content node. It is the unit
// of persistence and of history snapshots.
type Transform struct {
	Left    float64 `json:"left" yaml:"left"`
	Top     float64 `json:"top" yaml:"top"`
	ScaleX  float64 `json:"scaleX" yaml:"scaleX"`
	ScaleY  float64 `json:"scaleY" yaml:"scaleY"`
	Angle   float64 `json:"angle" yaml:"angle"`
	OriginX OriginX `json:"originX" yaml:"originX"`
	OriginY OriginY `json:"originY" yaml:"originY"`
}

// TransformOf captures the current transform of n.
func TransformOf(n *Node) Transform {
	return Transform{
		Left:    n.X,
		Top:     n.Y,
		ScaleX:  n.ScaleX,
		ScaleY:  n.ScaleY,
		Angle:   n.Angle,
		OriginX: n.OriginX,
		OriginY: n.OriginY,
	}
}

// ApplyTo writes t onto n. Invalid origins leave the node's anchor unchanged.
func (t Transform) ApplyTo(n *Node) {
	n.X = t.Left
	n.Y = t.Top
	n.ScaleX = t.ScaleX
	n.ScaleY = t.ScaleY
	n.Angle = t.Angle
	if t.OriginX.Valid() {
		n.OriginX = t.OriginX
	}
	if t.OriginY.Valid() {
		n.OriginY = t.OriginY
	}
}

// Scaled returns t with its position multiplied by m. Scale factors are
// relative to intrinsic size and stay unchanged.
func (t Transform) Scaled(m float64) Transform {
	t.Left *= m
	t.Top *= m
	return t
}

// ApproxEqual reports whether t and o match within eps on every numeric field
// and exactly on the anchors.
func (t Transform) ApproxEqual(o Transform, eps float64) bool {
	return math.Abs(t.Left-o.Left) <= eps &&
		math.Abs(t.Top-o.Top) <= eps &&
		math.Abs(t.ScaleX-o.ScaleX) <= eps &&
		math.Abs(t.ScaleY-o.ScaleY) <= eps &&
		math.Abs(t.Angle-o.Angle) <= eps &&
		t.OriginX == o.OriginX && t.OriginY == o.OriginY
}

// Layout maps content node names to their transforms. Order is irrelevant.
type Layout map[string]Transform

// Clone returns an independent copy of l.
func (l Layout) Clone() Layout {
	return maps.Clone(l)
}

// Names returns the layout keys in sorted order.
func (l Layout) Names() []string {
	return slices.Sorted(maps.Keys(l))
}

// Persisted converts l into the partial form used by stores.
func (l Layout) Persisted() PersistedLayout {
	out := make(PersistedLayout, len(l))
	for name, t := range l {
		out[name] = fullPartial(t)
	}
	return out
}

// PartialTransform is a persisted transform record in which any field may
// be missing. Nil fields fall back to the node's compiled default.
type PartialTransform struct {
	Left    *float64
	Top     *float64
	ScaleX  *float64
	ScaleY  *float64
	Angle   *float64
	OriginX *OriginX
	OriginY *OriginY
}

func fullPartial(t Transform) PartialTransform {
	return PartialTransform{
		Left:    &t.Left,
		Top:     &t.Top,
		ScaleX:  &t.ScaleX,
		ScaleY:  &t.ScaleY,
		Angle:   &t.Angle,
		OriginX: &t.OriginX,
		OriginY: &t.OriginY,
	}
}

// Resolve fills every missing field of p from def.
func (p PartialTransform) Resolve(def Transform) Transform {
	out := def
	if p.Left != nil {
		out.Left = *p.Left
	}
	if p.Top != nil {
		out.Top = *p.Top
	}
	if p.ScaleX != nil {
		out.ScaleX = *p.ScaleX
	}
	if p.ScaleY != nil {
		out.ScaleY = *p.ScaleY
	}
	if p.Angle != nil {
		out.Angle = *p.Angle
	}
	if p.OriginX != nil {
		out.OriginX = *p.OriginX
	}
	if p.OriginY != nil {
		out.OriginY = *p.OriginY
	}
	return out
}

// PersistedLayout is a Layout as read back from storage: partial per node
// and per field.
type PersistedLayout map[string]PartialTransform

// DecodeLayout parses persisted layout JSON. Empty input and JSON null yield
// an empty layout. Entries that are not objects are skipped and fields that
// are missing, wrong-typed or out of range are left unset, so a bad field
// only costs that field. Anything other than a top-level object returns
// ErrMalformedLayout.
func DecodeLayout(data []byte) (PersistedLayout, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return PersistedLayout{}, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return PersistedLayout{}, fmt.Errorf("%w: %v", ErrMalformedLayout, err)
	}
	out := make(PersistedLayout, len(raw))
	for name, entry := range raw {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil || fields == nil {
			continue
		}
		var p PartialTransform
		p.Left = decodeNumber(fields["left"])
		p.Top = decodeNumber(fields["top"])
		p.ScaleX = decodeScale(fields["scaleX"])
		p.ScaleY = decodeScale(fields["scaleY"])
		p.Angle = decodeNumber(fields["angle"])
		if s, ok := decodeString(fields["originX"]); ok && OriginX(s).Valid() {
			ox := OriginX(s)
			p.OriginX = &ox
		}
		if s, ok := decodeString(fields["originY"]); ok && OriginY(s).Valid() {
			oy := OriginY(s)
			p.OriginY = &oy
		}
		out[name] = p
	}
	return out, nil
}

// EncodeLayout serializes l as the persisted JSON object.
func EncodeLayout(l Layout) ([]byte, error) {
	if l == nil {
		l = Layout{}
	}
	return json.Marshal(l)
}

func decodeNumber(raw json.RawMessage) *float64 {
	if raw == nil || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

// decodeScale rejects zero scales, which would collapse a node to nothing.
func decodeScale(raw json.RawMessage) *float64 {
	v := decodeNumber(raw)
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

func decodeString(raw json.RawMessage) (string, bool) {
	if raw == nil {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// LayoutStore persists layouts per badge. Implementations live in the
// store package.
type LayoutStore interface {
	Load(ctx context.Context, badgeID string) (PersistedLayout, error)
	Save(ctx context.Context, badgeID string, layout Layout) error
}
