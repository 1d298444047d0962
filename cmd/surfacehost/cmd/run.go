package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/go-drift/surfacehost/cmd/surfacehost/internal/config"
	"github.com/go-drift/surfacehost/pkg/engine"
	hosterrors "github.com/go-drift/surfacehost/pkg/errors"
	"github.com/go-drift/surfacehost/pkg/logging"
	"github.com/go-drift/surfacehost/pkg/scheduler"
)

func init() {
	RegisterCommand(&Command{
		Name:  "run",
		Short: "Host the configured surfaces until interrupted",
		Long: `Run creates every surface in the configuration, registers it with the
frame scheduler, applies its constraints and props, and starts it unless
start is false. Frames are driven until SIGINT or SIGTERM, after which every
surface is stopped and unregistered.`,
		Usage: "surfacehost run [-c surfacehost.yaml] [--debug-port N] [--log-level L] [--log-format F] [--duration D]",
		Run:   runHost,
	})
}

func runHost(args []string) error {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", ".", "configuration file, or a directory holding "+config.FileName)
	debugPort := fs.Int("debug-port", 0, "debug server port; overrides debug.port when set")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "text", "log format (text, json)")
	duration := fs.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := newLogger(os.Stderr, *logLevel, *logFormat)
	if err != nil {
		return err
	}
	logging.SetLogger(logger)
	hosterrors.SetLogger(logger)

	cfg, err := config.Resolve(*configPath)
	if err != nil {
		return err
	}

	opts := []scheduler.Option{
		scheduler.WithLogger(logger),
		scheduler.WithFrameTraceThreshold(cfg.TraceThreshold),
		scheduler.WithFrameTraceCapacity(cfg.TraceCapacity),
	}
	if cfg.Continuous {
		opts = append(opts, scheduler.WithContinuousFrames())
	}
	e := engine.New(logRenderer{logger: logger}, opts...)
	defer func() {
		if err := e.Close(); err != nil {
			logger.Error("shutdown", "err", err)
		}
	}()

	if err := mountSurfaces(e, cfg.Surfaces); err != nil {
		return err
	}

	port := cfg.DebugPort
	if fs.Changed("debug-port") {
		port = *debugPort
	}
	if port > 0 {
		e.SetRuntimeSampling(cfg.RuntimeWindow, cfg.RuntimeInterval)
		if _, err := e.StartDebugServer(port); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	logger.Info("hosting surfaces", "config", cfg.Path, "surfaces", len(cfg.Surfaces), "tick", cfg.TickInterval)
	start := time.Now()
	if err := e.Run(ctx, cfg.TickInterval); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	logger.Info("shutting down",
		"duration", time.Since(start).Round(time.Millisecond),
		"frame_requests", e.FrameRequests())
	return nil
}

// mountSurfaces creates, registers and configures every planned surface,
// then starts those marked to start.
func mountSurfaces(e *engine.Engine, plans []config.SurfacePlan) error {
	host := e.Host()
	for _, plan := range plans {
		handle, err := host.Create(plan.ID, plan.Module)
		if err != nil {
			return err
		}
		if err := host.RegisterWithScheduler(handle, e.SchedulerHandle()); err != nil {
			return err
		}

		c := plan.Constraints
		if err := host.SetLayoutConstraints(handle,
			c.MinWidth, c.MaxWidth, c.MinHeight, c.MaxHeight,
			c.OffsetX, c.OffsetY, c.SwapInRTL, c.RTL, c.PixelDensity,
		); err != nil {
			return err
		}

		if plan.PropsFile != "" {
			data, err := os.ReadFile(plan.PropsFile)
			if err != nil {
				return fmt.Errorf("surface %d: %w", plan.ID, err)
			}
			if err := host.SetEncodedProps(handle, data); err != nil {
				return fmt.Errorf("surface %d props: %w", plan.ID, err)
			}
		}

		if plan.Start {
			if err := host.Start(handle); err != nil {
				return err
			}
		}

		// Start forces the surface visible, so the configured mode goes last.
		b, err := host.Binding(handle)
		if err != nil {
			return err
		}
		if err := b.SetDisplayMode(plan.DisplayMode); err != nil {
			return err
		}
	}
	return nil
}
