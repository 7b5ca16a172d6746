package preview

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/phanxgames/badgekit"
	"github.com/phanxgames/badgekit/store"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func mountedEditor(t *testing.T, st badgekit.LayoutStore) *badgekit.Editor {
	t.Helper()
	cfg := badgekit.DefaultConfig()
	cfg.IntroEnabled = false
	cfg.Logger = discard
	ed := badgekit.NewEditor(cfg, badgekit.Deps{Store: st})
	content := badgekit.BadgeContent{
		ID:        "A-1042",
		Fields:    []string{"Ada Lovelace", "Engineer"},
		QRPayload: "https://tickets.example/A-1042",
	}
	if err := ed.Mount(context.Background(), "A-1042", content); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	t.Cleanup(ed.Unmount)
	return ed
}

func waitExport(t *testing.T, g *Game) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for g.exporting.Load() {
		if time.Now().After(deadline) {
			t.Fatal("export did not finish")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStartExportIgnoresRepeatPress(t *testing.T) {
	g := &Game{ed: mountedEditor(t, nil), logger: discard}
	g.startExport()
	g.startExport()
	waitExport(t, g)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.exportErr != nil {
		t.Errorf("exportErr = %v, want nil", g.exportErr)
	}
	if g.lastExport == nil {
		t.Error("no export recorded")
	}
}

func TestStartExportRefusedWhileAnimating(t *testing.T) {
	ed := mountedEditor(t, nil)
	g := &Game{ed: ed, logger: discard}
	if err := ed.Reset(); err != nil {
		t.Fatal(err)
	}
	g.startExport()
	if g.exporting.Load() {
		t.Fatal("export started mid-animation")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastExport != nil || g.exportErr != nil {
		t.Errorf("last %v err %v", g.lastExport, g.exportErr)
	}
}

func TestDrainReloadAppliesMountedBadge(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	ed := mountedEditor(t, st)
	ch := make(chan string, 2)
	g := &Game{ed: ed, logger: discard, reload: ch}

	qr := badgekit.DefaultLayout(badgekit.DefaultConfig())[badgekit.NameQRCode]
	qr.Left, qr.Top = 60, 500
	if err := st.Save(ctx, "B-7", badgekit.Layout{badgekit.NameQRCode: qr}); err != nil {
		t.Fatal(err)
	}
	ch <- "B-7"
	g.drainReload()
	if ed.History().Len() != 1 {
		t.Errorf("another badge's change was applied: len %d", ed.History().Len())
	}

	if err := st.Save(ctx, "A-1042", badgekit.Layout{badgekit.NameQRCode: qr}); err != nil {
		t.Fatal(err)
	}
	ch <- "A-1042"
	g.drainReload()
	if n := ed.Scene().Content(badgekit.NameQRCode); n.X != 60 || n.Y != 500 {
		t.Errorf("qr = (%v, %v), want (60, 500)", n.X, n.Y)
	}
	if ed.History().Len() != 2 {
		t.Errorf("history len = %d, want 2", ed.History().Len())
	}

	close(ch)
	g.drainReload()
	if g.reload != nil {
		t.Error("closed reload channel should be dropped")
	}
}
