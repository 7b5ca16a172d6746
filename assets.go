package badgekit

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/skip2/go-qrcode"
)

// ErrAssetMissing is returned by an AssetLoader that has no asset for a
// reference.
var ErrAssetMissing = errors.New("badgekit: asset missing")

// AssetLoader resolves an asset reference to a decoded bitmap.
type AssetLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// FileLoader loads PNG, JPEG and GIF files. Relative references are resolved
// against Root.
type FileLoader struct {
	Root string
}

// Load implements AssetLoader.
func (l FileLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	if ref == "" {
		return nil, ErrAssetMissing
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := ref
	if !filepath.IsAbs(path) && l.Root != "" {
		path = filepath.Join(l.Root, path)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAssetMissing, ref)
		}
		return nil, fmt.Errorf("open %s: %w", ref, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ref, err)
	}
	return img, nil
}

// MapLoader serves preloaded bitmaps. Useful in tests and for callers that
// fetch assets themselves.
type MapLoader map[string]image.Image

// Load implements AssetLoader.
func (l MapLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, ok := l[ref]
	if !ok || img == nil {
		return nil, fmt.Errorf("%w: %s", ErrAssetMissing, ref)
	}
	return img, nil
}

// QREncoder turns a payload into a square bitmap of roughly size pixels.
type QREncoder interface {
	Encode(payload string, size int) (image.Image, error)
}

// SkipQREncoder encodes with github.com/skip2/go-qrcode.
type SkipQREncoder struct {
	Level qrcode.RecoveryLevel // zero value is qrcode.Low
	// Border keeps the quiet zone around the symbol.
	Border bool
}

// Encode implements QREncoder.
func (e SkipQREncoder) Encode(payload string, size int) (image.Image, error) {
	if payload == "" {
		return nil, fmt.Errorf("%w: empty qr payload", ErrAssetMissing)
	}
	q, err := qrcode.New(payload, e.Level)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	q.DisableBorder = !e.Border
	return q.Image(size), nil
}
