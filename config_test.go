package badgekit

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
canvas_width: 300
export_multiplier: 2.5
snap_threshold: 10
reset_duration: 400ms
intro_enabled: false
photo_slot:
  radius: 50
defaults:
  qrCode:
    left: 120
    top: 400
    scaleX: 1
    scaleY: 1
    originX: center
    originY: center
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CanvasWidth != 300 || cfg.CanvasHeight != DefaultCanvasHeight {
		t.Errorf("canvas = %vx%v", cfg.CanvasWidth, cfg.CanvasHeight)
	}
	if cfg.ExportMultiplier != 2.5 || cfg.SnapThreshold != 10 {
		t.Errorf("multiplier %v threshold %v", cfg.ExportMultiplier, cfg.SnapThreshold)
	}
	if cfg.ResetDuration != 400*time.Millisecond || cfg.ResetStagger != DefaultResetStagger {
		t.Errorf("reset %v stagger %v", cfg.ResetDuration, cfg.ResetStagger)
	}
	if cfg.IntroEnabled {
		t.Error("intro_enabled: false ignored")
	}
	if cfg.PhotoSlot.Radius != 50 || cfg.PhotoSlot.Padding != 1.05 {
		t.Errorf("photo slot = %+v", cfg.PhotoSlot)
	}
	if cfg.Logger == nil {
		t.Error("Normalize should install a logger")
	}
	l := DefaultLayout(cfg)
	if q := l[NameQRCode]; q.Left != 120 || q.OriginX != OriginCenter {
		t.Errorf("qr default = %+v", q)
	}
	if p := l[NameUserPhoto]; p.Left != 200 {
		t.Errorf("photo default changed: %+v", p)
	}
}

func TestParseConfigInvalid(t *testing.T) {
	if _, err := ParseConfig([]byte("canvas_width: [1")); err == nil {
		t.Error("expected a parse error")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badge.yaml")
	if err := os.WriteFile(path, []byte("history_capacity: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HistoryCapacity != 5 {
		t.Errorf("HistoryCapacity = %d", cfg.HistoryCapacity)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestNormalize(t *testing.T) {
	cfg := Config{IntroIntensity: -4}.Normalize()
	d := DefaultConfig()
	if cfg.CanvasWidth != d.CanvasWidth || cfg.HistoryCapacity != d.HistoryCapacity || cfg.SnapThreshold != d.SnapThreshold {
		t.Errorf("zero fields not defaulted: %+v", cfg)
	}
	if cfg.ResetStagger != d.ResetStagger {
		t.Errorf("zero stagger = %v, want %v", cfg.ResetStagger, d.ResetStagger)
	}
	if cfg.IntroIntensity != -4 {
		t.Errorf("negative intensity should be kept, got %v", cfg.IntroIntensity)
	}
	if cfg.PhotoSlot != d.PhotoSlot || cfg.MaxExportPixels != d.MaxExportPixels {
		t.Errorf("photo slot %+v max pixels %d", cfg.PhotoSlot, cfg.MaxExportPixels)
	}
	// Negative turns the cascade off.
	if got := (Config{ResetStagger: -1}).Normalize().ResetStagger; got != 0 {
		t.Errorf("negative stagger = %v, want 0", got)
	}
}

func TestPhotoSlotBoxSize(t *testing.T) {
	assertNear(t, "radius", PhotoSlot{Radius: 70, Padding: 1.05}.BoxSize(400), 147)
	assertNear(t, "divisor", PhotoSlot{RadiusDivisor: 2.5, Padding: 1}.BoxSize(400), 160)
	assertNear(t, "no padding", PhotoSlot{Radius: 10}.BoxSize(400), 20)
}
