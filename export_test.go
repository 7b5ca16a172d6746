package badgekit

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func sampleContent() BadgeContent {
	return BadgeContent{
		ID:         "A-1042",
		Background: "bg.png",
		Photo:      "ada.png",
		Fields:     []string{"Ada Lovelace", "Engineer", "R&D"},
		QRPayload:  "https://tickets.example/A-1042",
		Zones:      []Zone{{Name: "lab", Member: true}, {Name: "ops"}, {Name: "vip"}},
	}
}

func sampleLoader() MapLoader {
	return MapLoader{
		"bg.png":  solidImage(40, 60, color.NRGBA{R: 0xee, G: 0xee, B: 0xff, A: 0xff}),
		"ada.png": solidImage(64, 48, blue),
	}
}

func TestResolutionInvariance(t *testing.T) {
	cfg := DefaultConfig()
	positions := DefaultLayout(cfg)
	q := positions[NameQRCode]
	q.Left, q.Top, q.Angle, q.ScaleX = 203.7, 511.2, 17, 1.3
	positions[NameQRCode] = q
	z := positions[NameZoneGroup]
	z.OriginX, z.OriginY = OriginLeft, OriginTop
	positions[NameZoneGroup] = z

	a := Assets{Photo: solidImage(64, 48, blue), QR: solidImage(80, 80, color.Black)}
	one := BuildScene(sampleContent(), a, positions, 1, cfg)
	four := BuildScene(sampleContent(), a, positions, 4, cfg)
	defer one.Dispose()
	defer four.Dispose()

	if four.Width != one.Width*4 || four.Height != one.Height*4 {
		t.Fatalf("canvas %vx%v is not 4x %vx%v", four.Width, four.Height, one.Width, one.Height)
	}
	const tol = 1e-9
	for _, n1 := range one.ContentNodes() {
		n4 := four.Content(n1.Name)
		if n4 == nil {
			t.Fatalf("%s missing at 4x", n1.Name)
		}
		if math.Abs(n1.X/one.Width-n4.X/four.Width) > tol || math.Abs(n1.Y/one.Height-n4.Y/four.Height) > tol {
			t.Errorf("%s position ratio differs: (%v, %v) vs (%v, %v)", n1.Name,
				n1.X/one.Width, n1.Y/one.Height, n4.X/four.Width, n4.Y/four.Height)
		}
		if n1.Kind != KindImage {
			continue // glyph metrics are not exactly linear in font size
		}
		b1, _ := BoundingBox(n1)
		b4, _ := BoundingBox(n4)
		if math.Abs(b1.X/one.Width-b4.X/four.Width) > 1e-6 || math.Abs(b1.Width/one.Width-b4.Width/four.Width) > 1e-6 {
			t.Errorf("%s box ratio differs: %+v vs %+v", n1.Name, b1, b4)
		}
	}
}

func TestBuildSceneMissingPositionsUseDefaults(t *testing.T) {
	cfg := DefaultConfig()
	s := BuildScene(sampleContent(), Assets{}, Layout{}, 2, cfg)
	defer s.Dispose()
	if n := s.Content(NameUserPhoto); n.X != 400 || n.Y != 470 {
		t.Errorf("photo = (%v, %v), want (400, 470)", n.X, n.Y)
	}
}

func TestExportLogsArtifactID(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	art, err := NewExporter(cfg, nil, nil).Export(context.Background(), ExportRequest{Name: "log", Multiplier: 1})
	if err != nil {
		t.Fatal(err)
	}
	if want := "artifact=" + art.ID.String(); !strings.Contains(buf.String(), want) {
		t.Errorf("log %q does not contain %q", buf.String(), want)
	}
}

func TestExportProducesPNG(t *testing.T) {
	cfg := DefaultConfig()
	ex := NewExporter(cfg, sampleLoader(), SkipQREncoder{})
	art, err := ex.Export(context.Background(), ExportRequest{
		Content:    sampleContent(),
		Positions:  DefaultLayout(cfg),
		Multiplier: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(art.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", art.Warnings)
	}
	if b := art.Image.Bounds(); b.Dx() != 800 || b.Dy() != 1200 {
		t.Errorf("bounds = %v, want 800x1200", b)
	}
	if art.Filename != "A-1042-badge-2x.png" {
		t.Errorf("Filename = %q", art.Filename)
	}
	decoded, err := png.Decode(bytes.NewReader(art.PNG))
	if err != nil {
		t.Fatalf("PNG does not decode: %v", err)
	}
	if decoded.Bounds() != art.Image.Bounds() {
		t.Errorf("decoded bounds = %v", decoded.Bounds())
	}
	if art.Multiplier != 2 || art.CreatedAt.IsZero() {
		t.Errorf("artifact metadata = %+v", art)
	}
	// Photo center at (200, 235) * 2 is blue.
	if c := art.Image.RGBAAt(400, 470); c.B < 0xf0 || c.R > 0x10 {
		t.Errorf("photo pixel = %v, want blue", c)
	}
}

func TestExportDefaultMultiplier(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExportMultiplier = 1.5
	art, err := NewExporter(cfg, nil, nil).Export(context.Background(), ExportRequest{Name: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if art.Multiplier != 1.5 || art.Image.Bounds().Dx() != 600 {
		t.Errorf("multiplier = %v, width = %d", art.Multiplier, art.Image.Bounds().Dx())
	}
	if art.Filename != "x-badge-1.5x.png" {
		t.Errorf("Filename = %q", art.Filename)
	}
}

func TestExportMissingAssetIsWarning(t *testing.T) {
	cfg := DefaultConfig()
	loader := sampleLoader()
	delete(loader, "ada.png")
	art, err := NewExporter(cfg, loader, SkipQREncoder{}).Export(context.Background(), ExportRequest{
		Content:    sampleContent(),
		Multiplier: 1,
	})
	if err != nil {
		t.Fatalf("missing photo should not fail the export: %v", err)
	}
	if len(art.Warnings) != 1 || !errors.Is(art.Warnings[0], ErrAssetMissing) {
		t.Fatalf("warnings = %v, want one ErrAssetMissing", art.Warnings)
	}
	if !strings.HasPrefix(art.Warnings[0].Error(), "photo:") {
		t.Errorf("warning = %q, want it to name the slot", art.Warnings[0])
	}
	// The empty photo slot leaves the background showing.
	if c := art.Image.RGBAAt(200, 235); c.B < 0xf8 || c.R < 0xe0 {
		t.Errorf("photo slot pixel = %v, want background", c)
	}
}

func TestExportNoLoaderWarnsPerSlot(t *testing.T) {
	art, err := NewExporter(DefaultConfig(), nil, nil).Export(context.Background(), ExportRequest{
		Content:    sampleContent(),
		Multiplier: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(art.Warnings) != 3 {
		t.Errorf("warnings = %v, want background, photo and qr", art.Warnings)
	}
}

func TestExportCanvasTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxExportPixels = 1000
	_, err := NewExporter(cfg, nil, nil).Export(context.Background(), ExportRequest{Multiplier: 1})
	if !errors.Is(err, ErrExport) || !errors.Is(err, ErrCanvasTooLarge) {
		t.Errorf("err = %v, want ErrExport wrapping ErrCanvasTooLarge", err)
	}
}

func TestExportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewExporter(DefaultConfig(), sampleLoader(), nil).Export(ctx, ExportRequest{
		Content:    sampleContent(),
		Multiplier: 1,
	})
	if !errors.Is(err, ErrExport) || !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want ErrExport wrapping context.Canceled", err)
	}
}

func TestExportBusy(t *testing.T) {
	ex := NewExporter(DefaultConfig(), nil, nil)
	ex.mu.Lock()
	if !ex.Busy() {
		t.Error("Busy should report a running export")
	}
	_, err := ex.Export(context.Background(), ExportRequest{Multiplier: 1})
	ex.mu.Unlock()
	if !errors.Is(err, ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}
	if ex.Busy() {
		t.Error("Busy should clear once the export finishes")
	}
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		label string
		m     float64
		want  string
	}{
		{"A-1042", 4, "A-1042-badge-4x.png"},
		{"Ada Lovelace/ops", 1, "Ada_Lovelace_ops-badge-1x.png"},
		{"  ", 2, "badge-badge-2x.png"},
		{"v1.2", 0.5, "v1.2-badge-0.5x.png"},
	}
	for _, tt := range tests {
		if got := ExportFilename(tt.label, tt.m); got != tt.want {
			t.Errorf("ExportFilename(%q, %v) = %q, want %q", tt.label, tt.m, got, tt.want)
		}
	}
}

func TestArtifactWriteFile(t *testing.T) {
	art, err := NewExporter(DefaultConfig(), nil, nil).Export(context.Background(), ExportRequest{Name: "w", Multiplier: 1})
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(t.TempDir(), "nested")
	path, err := art.WriteFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "w-badge-1x.png" {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, art.PNG) {
		t.Error("written file differs from artifact PNG")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestArtifactWritePDF(t *testing.T) {
	art, err := NewExporter(DefaultConfig(), nil, nil).Export(context.Background(), ExportRequest{Multiplier: 1})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := art.WritePDF(&buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Errorf("output does not look like a PDF: %q", buf.Bytes()[:min(8, buf.Len())])
	}
}

func TestSkipQREncoder(t *testing.T) {
	img, err := SkipQREncoder{}.Encode("https://tickets.example/A-1042", 120)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 120 {
		t.Errorf("bounds = %v, want 120x120", b)
	}
	if _, err := (SkipQREncoder{}).Encode("", 80); !errors.Is(err, ErrAssetMissing) {
		t.Errorf("empty payload err = %v", err)
	}
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solidImage(3, 2, red)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "p.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.png"), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := FileLoader{Root: dir}
	img, err := l.Load(context.Background(), "p.png")
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Errorf("bounds = %v", img.Bounds())
	}
	if _, err := l.Load(context.Background(), "missing.png"); !errors.Is(err, ErrAssetMissing) {
		t.Errorf("missing err = %v", err)
	}
	if _, err := l.Load(context.Background(), "bad.png"); err == nil || errors.Is(err, ErrAssetMissing) {
		t.Errorf("corrupt file err = %v, want a decode error", err)
	}
}
