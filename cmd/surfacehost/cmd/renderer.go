package cmd

import (
	"log/slog"

	"github.com/go-drift/surfacehost/pkg/layout"
	"github.com/go-drift/surfacehost/pkg/props"
	"github.com/go-drift/surfacehost/pkg/surface"
)

// logRenderer is the renderer used by the run command when no platform
// pipeline is attached. It reports every pass through the logger.
type logRenderer struct {
	logger *slog.Logger
}

func (r logRenderer) StartSurface(snap surface.Snapshot, tree props.Tree) error {
	r.logger.Info("mount",
		"surface", snap.ID, "module", snap.ModuleName,
		"constraints", snap.Constraints.String(), "props", len(tree))
	return nil
}

func (r logRenderer) StopSurface(id surface.ID) {
	r.logger.Info("teardown", "surface", id)
}

func (r logRenderer) LayoutSurface(id surface.ID, c layout.Constraints, ctx layout.Context) {
	r.logger.Info("layout", "surface", id, "constraints", c.String(), "scale", ctx.PointScaleFactor)
}

func (r logRenderer) CommitProps(id surface.ID, tree props.Tree) {
	r.logger.Info("props", "surface", id, "keys", len(tree))
}

func (r logRenderer) SetDisplayMode(id surface.ID, mode surface.DisplayMode) {
	r.logger.Info("display mode", "surface", id, "display_mode", mode.String())
}

func (r logRenderer) RenderSurface(snap surface.Snapshot) error {
	size := snap.Constraints.Clamp(layout.Size{})
	r.logger.Debug("render", "surface", snap.ID, "width", size.Width, "height", size.Height)
	return nil
}
