// Package badgekit is a layout editor for printable badges and ID cards.
//
// A badge is a small 2D scene: a background, a circular user photo, three
// rows of text, a QR code and a group of zone indicators. An operator drags
// the content around with snap-to-guide alignment, undoes and redoes
// changes, resets the layout with an animation, saves it and exports the
// badge at print resolution.
//
// # Scene model
//
// Every element is a [Node]. Content nodes carry a stable name
// ([NameUserPhoto], [TextFieldName], [NameQRCode], [NameZoneGroup]) which is
// the only key used to join a live scene with a persisted [Layout]. Nodes
// are rebuilt wholesale whenever the badge data changes; transforms are
// carried over by name, never by pointer.
//
//	s := badgekit.NewScene(400, 600)
//	s.Rebuild(badgekit.BuildContent(content, assets, 1, cfg), persisted, badgekit.DefaultLayout(cfg))
//	box, ok := badgekit.BoundingBox(s.Content(badgekit.NameQRCode))
//
// # Editing
//
// [Editor] wires everything together: a snapshot [History] capped at 50
// entries, an [Aligner] that snaps a dragged node's center onto six canvas
// guides, a [DragGesture] that coalesces a drag into a single commit, and a
// [Scheduler] that steps the reset and intro animations. The host calls
// [Editor.Update] once per frame; ebiten does that in the preview package,
// tests do it with a simulated clock.
//
//	ed := badgekit.NewEditor(cfg, badgekit.Deps{Store: st, Loader: loader, QR: badgekit.SkipQREncoder{}})
//	if err := ed.Mount(ctx, "A-1042", content); err != nil { ... }
//	ed.Select(badgekit.NameQRCode)
//	ed.BeginDrag()
//	ed.DragTo(203, 235) // snaps to x = 200
//	ed.EndDrag()        // one history entry
//
// # Export
//
// [Exporter] rebuilds the badge on an independent scene at a resolution
// multiplier and rasterizes it with golang.org/x/image/draw. Positions,
// sizes and font sizes all scale by the multiplier, so a node sits at the
// same fraction of the canvas in the 400-unit preview and in a 4x print
// export. Assets that fail to load leave their slot empty and are reported
// as warnings on the [Artifact].
//
// Layout stores live in the store package, the interactive window in
// preview and the command line in cmd/badgekit.
package badgekit
