package badgekit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrExport wraps every failure that aborts an export. Asset failures do
	// not; they surface as Artifact.Warnings.
	ErrExport = errors.New("badgekit: export failed")

	// ErrBusy is returned when an export is requested while another runs.
	ErrBusy = errors.New("badgekit: export already in progress")
)

// ExportRequest describes one export.
type ExportRequest struct {
	Content BadgeContent
	// Positions are content transforms at multiplier 1, as returned by
	// Scene.TrackPositions. Missing nodes use their defaults.
	Positions Layout
	// Multiplier scales canvas and content. Zero uses the configured
	// export multiplier.
	Multiplier float64
	// Name labels the artifact file. Empty uses the badge ID.
	Name string
}

// Artifact is a rendered badge.
type Artifact struct {
	ID         uuid.UUID
	Image      *image.RGBA
	PNG        []byte
	Filename   string
	Multiplier float64
	CreatedAt  time.Time
	// Warnings lists asset slots that were left empty and why.
	Warnings []error
}

// Exporter renders badges on independent scenes, never touching the live
// editing scene. One export runs at a time.
type Exporter struct {
	cfg    Config
	loader AssetLoader
	qr     QREncoder
	logger *slog.Logger

	mu sync.Mutex
}

// NewExporter creates an exporter. A nil loader or encoder leaves the
// corresponding slots empty.
func NewExporter(cfg Config, loader AssetLoader, qr QREncoder) *Exporter {
	cfg = cfg.Normalize()
	return &Exporter{cfg: cfg, loader: loader, qr: qr, logger: cfg.Logger}
}

// Export loads every asset, builds a scene at the requested multiplier and
// rasterizes it. Returns ErrBusy if another export is running.
func (e *Exporter) Export(ctx context.Context, req ExportRequest) (*Artifact, error) {
	if !e.mu.TryLock() {
		return nil, ErrBusy
	}
	defer e.mu.Unlock()

	m := req.Multiplier
	if m <= 0 {
		m = e.cfg.ExportMultiplier
	}
	start := time.Now()

	assets, warnings, err := e.LoadAssets(ctx, req.Content, m)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}
	scene := BuildScene(req.Content, assets, req.Positions, m, e.cfg)
	defer scene.Dispose()

	img, err := Rasterize(scene, RenderOptions{MaxPixels: e.cfg.MaxExportPixels})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode png: %w", ErrExport, err)
	}

	label := req.Name
	if label == "" {
		label = req.Content.ID
	}
	art := &Artifact{
		ID:         uuid.New(),
		Image:      img,
		PNG:        buf.Bytes(),
		Filename:   ExportFilename(label, m),
		Multiplier: m,
		CreatedAt:  time.Now(),
		Warnings:   warnings,
	}
	e.logger.Info("badge exported",
		"badge", req.Content.ID,
		"artifact", art.ID,
		"file", art.Filename,
		"size", fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()),
		"warnings", len(warnings),
		"elapsed", time.Since(start),
	)
	return art, nil
}

// Busy reports whether an export is running. Hosts use it to disable their
// export control.
func (e *Exporter) Busy() bool {
	if e.mu.TryLock() {
		e.mu.Unlock()
		return false
	}
	return true
}

// LoadAssets fetches background, photo and QR concurrently. A failed slot is
// left empty and reported in warnings; only context cancellation fails the
// whole load.
func (e *Exporter) LoadAssets(ctx context.Context, c BadgeContent, m float64) (Assets, []error, error) {
	return loadAssets(ctx, e.loader, e.qr, c, m, e.logger)
}

func loadAssets(ctx context.Context, loader AssetLoader, qr QREncoder, c BadgeContent, m float64, logger *slog.Logger) (Assets, []error, error) {
	var (
		out      Assets
		mu       sync.Mutex
		warnings []error
	)
	warn := func(slot string, err error) {
		mu.Lock()
		defer mu.Unlock()
		w := fmt.Errorf("%s: %w", slot, err)
		warnings = append(warnings, w)
		logger.Warn("asset slot left empty", "slot", slot, "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	load := func(slot, ref string, dst *image.Image) {
		if ref == "" {
			return
		}
		if loader == nil {
			warn(slot, ErrAssetMissing)
			return
		}
		g.Go(func() error {
			img, err := loader.Load(gctx, ref)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				warn(slot, err)
				return nil
			}
			mu.Lock()
			*dst = img
			mu.Unlock()
			return nil
		})
	}
	load("background", c.Background, &out.Background)
	load("photo", c.Photo, &out.Photo)

	if c.QRPayload != "" {
		if qr == nil {
			warn("qr", ErrAssetMissing)
		} else {
			g.Go(func() error {
				img, err := qr.Encode(c.QRPayload, int(math.Ceil(qrSize*m)))
				if err != nil {
					warn("qr", err)
					return nil
				}
				mu.Lock()
				out.QR = img
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return Assets{}, warnings, err
	}
	return out, warnings, nil
}

// BuildScene constructs a scene at multiplier m: canvas size, positions,
// intrinsic sizes and font sizes are all multiplied by m, so every node
// keeps the same position to canvas ratio as at m = 1.
func BuildScene(c BadgeContent, a Assets, positions Layout, m float64, cfg Config) *Scene {
	cfg = cfg.Normalize()
	s := NewScene(cfg.CanvasWidth*m, cfg.CanvasHeight*m)
	s.SetLogger(cfg.Logger)
	s.SetBackground(a.Background)

	scaled := make(Layout, len(positions))
	for name, t := range positions {
		scaled[name] = t.Scaled(m)
	}
	s.Rebuild(BuildContent(c, a, m, cfg), nil, scaled)
	return s
}

// ExportFilename returns the suggested file name for an export.
func ExportFilename(label string, m float64) string {
	return fmt.Sprintf("%s-badge-%sx.png", sanitizeLabel(label), strconv.FormatFloat(m, 'f', -1, 64))
}

// WriteFile writes the PNG into dir under the artifact's file name and
// returns the full path.
func (a *Artifact) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, a.Filename)
	if err := writeFile(path, a.PNG); err != nil {
		return "", err
	}
	return path, nil
}

// WritePDF writes a single-page PDF holding the raster.
func (a *Artifact) WritePDF(w io.Writer) error {
	imp := pdfcpu.DefaultImportConfig()
	if err := api.ImportImages(nil, w, []io.Reader{bytes.NewReader(a.PNG)}, imp, nil); err != nil {
		return fmt.Errorf("%w: pdf: %w", ErrExport, err)
	}
	return nil
}

// writeFile writes data to a temp file next to path and renames it into
// place, so readers never see a partial PNG.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// sanitizeLabel replaces characters that are unsafe in file names with
// underscores and falls back to "badge" for empty strings.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "badge"
	}
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
