package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/go-drift/surfacehost/cmd/surfacehost/internal/config"
	"github.com/go-drift/surfacehost/pkg/props"
)

func init() {
	RegisterCommand(&Command{
		Name:  "validate",
		Short: "Check a configuration and print the surface plan",
		Long: `Validate resolves the configuration, decodes every props file and prints
the surfaces that run would host. It exits non-zero on the first problem.`,
		Usage: "surfacehost validate [-c surfacehost.yaml]",
		Run:   runValidate,
	})
}

func runValidate(args []string) error {
	fs := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", ".", "configuration file, or a directory holding "+config.FileName)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Resolve(*configPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "config:   %s (%s)\n", cfg.Path, cfg.Version)
	fmt.Fprintf(stdout, "tick:     %v\n", cfg.TickInterval)
	if cfg.DebugPort > 0 {
		fmt.Fprintf(stdout, "debug:    :%d\n", cfg.DebugPort)
	}
	fmt.Fprintf(stdout, "surfaces: %d\n", len(cfg.Surfaces))

	for _, plan := range cfg.Surfaces {
		propsKeys := 0
		if plan.PropsFile != "" {
			n, err := countProps(plan.PropsFile)
			if err != nil {
				return fmt.Errorf("surface %d props: %w", plan.ID, err)
			}
			propsKeys = n
		}
		c := plan.Constraints
		fmt.Fprintf(stdout, "  %-6d %-20s %-9s start=%-5t (%g,%g)-(%g,%g) density=%g props=%d\n",
			plan.ID, plan.Module, plan.DisplayMode, plan.Start,
			c.MinWidth, c.MinHeight, c.MaxWidth, c.MaxHeight, c.PixelDensity, propsKeys)
	}
	return nil
}

func countProps(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	payload, err := props.Decode(data)
	if err != nil {
		return 0, err
	}
	return payload.Len(), nil
}
