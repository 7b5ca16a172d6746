// Command badgekit exports, replays and previews badge layouts.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phanxgames/badgekit"
	"github.com/phanxgames/badgekit/preview"
	"github.com/phanxgames/badgekit/store"
)

type globalFlags struct {
	config  string
	store   string
	assets  string
	content string
	badge   string
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "badgekit",
		Short:         "Badge layout editor",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.config, "config", "", "YAML config file")
	pf.StringVar(&g.store, "store", "file:layouts", `layout store: "mem:", "file:<dir>" or "sqlite:<path>"`)
	pf.StringVar(&g.assets, "assets", "", "asset directory (defaults to the content file's directory)")
	pf.StringVar(&g.content, "content", "badge.yaml", "badge content YAML file")
	pf.StringVar(&g.badge, "badge", "", "badge ID (defaults to the id in the content file)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newExportCmd(g), newReplayCmd(g), newPreviewCmd(g))
	return root
}

// session is everything a subcommand needs to run an editor.
type session struct {
	cfg     badgekit.Config
	content badgekit.BadgeContent
	badgeID string
	store   badgekit.LayoutStore
	closer  io.Closer
	deps    badgekit.Deps
}

func (g *globalFlags) open(ctx context.Context) (*session, error) {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := badgekit.DefaultConfig()
	if g.config != "" {
		var err error
		if cfg, err = badgekit.LoadConfig(g.config); err != nil {
			return nil, err
		}
	}
	cfg.Logger = logger
	cfg = cfg.Normalize()

	content, err := loadContent(g.content)
	if err != nil {
		return nil, err
	}
	id := g.badge
	if id == "" {
		id = content.ID
	}
	if id == "" {
		id = "badge"
	}

	st, closer, err := store.Open(ctx, g.store)
	if err != nil {
		return nil, err
	}
	root := g.assets
	if root == "" {
		root = filepath.Dir(g.content)
	}
	return &session{
		cfg:     cfg,
		content: content,
		badgeID: id,
		store:   st,
		closer:  closer,
		deps: badgekit.Deps{
			Store:  st,
			Loader: badgekit.FileLoader{Root: root},
			QR:     badgekit.SkipQREncoder{},
		},
	}, nil
}

func (s *session) Close() error {
	return s.closer.Close()
}

func (s *session) mount(ctx context.Context) (*badgekit.Editor, error) {
	ed := badgekit.NewEditor(s.cfg, s.deps)
	if err := ed.Mount(ctx, s.badgeID, s.content); err != nil {
		return nil, err
	}
	return ed, nil
}

func loadContent(path string) (badgekit.BadgeContent, error) {
	var c badgekit.BadgeContent
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read content %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("parse content %s: %w", path, err)
	}
	return c, nil
}

func newExportCmd(g *globalFlags) *cobra.Command {
	var (
		out        string
		multiplier float64
		pdf        bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the saved layout to PNG (and optionally PDF)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			l, err := s.store.Load(ctx, s.badgeID)
			if err != nil {
				slog.Warn("no usable layout, exporting defaults", "error", err)
				l = badgekit.PersistedLayout{}
			}
			positions := badgekit.DefaultLayout(s.cfg)
			for name, p := range l {
				if def, ok := positions[name]; ok {
					positions[name] = p.Resolve(def)
				}
			}

			ex := badgekit.NewExporter(s.cfg, s.deps.Loader, s.deps.QR)
			art, err := ex.Export(ctx, badgekit.ExportRequest{
				Content:    s.content,
				Positions:  positions,
				Multiplier: multiplier,
				Name:       s.badgeID,
			})
			if err != nil {
				return err
			}
			for _, w := range art.Warnings {
				slog.Warn("export warning", "error", w)
			}
			path, err := art.WriteFile(out)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			if pdf {
				return writePDF(cmd.OutOrStdout(), art, path)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", ".", "output directory")
	f.Float64VarP(&multiplier, "multiplier", "m", 0, "resolution multiplier (0 uses the config)")
	f.BoolVar(&pdf, "pdf", false, "also write a single-page PDF")
	return cmd
}

func writePDF(w io.Writer, art *badgekit.Artifact, pngPath string) error {
	path := pngPath[:len(pngPath)-len(filepath.Ext(pngPath))] + ".pdf"
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := art.WritePDF(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(w, path)
	return nil
}

func newReplayCmd(g *globalFlags) *cobra.Command {
	var (
		frames int
		fps    int
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "replay SCRIPT",
		Short: "Run a recorded editor script headlessly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			script, err := badgekit.LoadScript(raw)
			if err != nil {
				return err
			}
			s, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			ed, err := s.mount(ctx)
			if err != nil {
				return err
			}
			defer ed.Unmount()
			if err := ed.AwaitAssets(ctx); err != nil {
				return err
			}
			dt := time.Second / time.Duration(max(fps, 1))
			if err := script.Run(ctx, ed, dt, frames); err != nil {
				return err
			}
			for _, p := range script.Written {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			if save {
				return ed.Save(ctx)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&frames, "max-frames", 10000, "give up after this many frames")
	f.IntVar(&fps, "fps", 60, "simulated frame rate")
	f.BoolVar(&save, "save", false, "save the layout when the script finishes")
	return cmd
}

func newPreviewCmd(g *globalFlags) *cobra.Command {
	var (
		zoom   float64
		out    string
		status bool
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Open the interactive editor window",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := g.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			ed, err := s.mount(ctx)
			if err != nil {
				return err
			}
			opts := preview.Options{
				Title:     "badgekit - " + s.badgeID,
				Zoom:      zoom,
				ExportDir: out,
				Logger:    slog.Default(),
				Status:    status,
			}
			if fs, ok := s.store.(*store.FileStore); ok {
				w, err := fs.Watch()
				if err != nil {
					slog.Warn("layout watch unavailable", "dir", fs.Dir, "error", err)
				} else {
					defer w.Close()
					go func() {
						for err := range w.Errors {
							slog.Warn("layout watch", "error", err)
						}
					}()
					opts.Reload = w.Events
				}
			}
			return preview.Run(ed, opts)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&zoom, "zoom", 1.5, "window zoom")
	f.StringVarP(&out, "out", "o", "exports", "directory exports are written to")
	f.BoolVar(&status, "status", true, "show editor state in the window")
	return cmd
}
