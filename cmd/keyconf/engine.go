package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dshills/keyconf/internal/config"
	"github.com/dshills/keyconf/internal/config/layer"
	"github.com/dshills/keyconf/internal/config/loader"
	"github.com/dshills/keyconf/internal/config/registry"
)

// workspaceDir is the configuration directory inside a workspace.
const workspaceDir = ".keyconf"

// newEngine registers the layers selected by opts. Nothing is loaded
// until the first reload.
func newEngine(opts *options, logger *slog.Logger) (*config.Engine, error) {
	engineOpts := []config.Option{config.WithLogger(logger)}

	if opts.ThemeFile != "" {
		engineOpts = append(engineOpts, config.WithLayer("theme", layer.PriorityTheme,
			loader.NewFileSource(opts.ThemeFile, layer.SourceTheme, loader.WithRoot("theme"))))
	}
	if opts.ConfigDir != "" {
		engineOpts = append(engineOpts, config.WithLayer("user", layer.PriorityUser,
			loader.NewDirSource(opts.ConfigDir, layer.SourceUser)))
	}
	if opts.Workspace != "" {
		engineOpts = append(engineOpts, config.WithLayer("workspace", layer.PriorityWorkspace,
			loader.NewDirSource(filepath.Join(opts.Workspace, workspaceDir), layer.SourceWorkspace)))
	}
	if !opts.NoEnv && opts.EnvPrefix != "" {
		engineOpts = append(engineOpts, config.WithLayer("environment", layer.PriorityEnv,
			loader.NewEnvSource(opts.EnvPrefix)))
	}
	if len(opts.Sets) > 0 {
		overrides, err := loader.ParseOverrides(opts.Sets)
		if err != nil {
			return nil, fmt.Errorf("--set: %w", err)
		}
		engineOpts = append(engineOpts, config.WithLayer("arguments", layer.PriorityArgs,
			loader.NewStaticSource(layer.SourceArgs, "command line", overrides)))
	}

	return config.New(registry.NewWithDefaults(), engineOpts...), nil
}
