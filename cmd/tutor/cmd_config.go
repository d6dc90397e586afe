package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gemtutor/internal/config"

	"github.com/spf13/cobra"
)

var configForce bool

// configCmd groups config file commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the tutor.yaml config file",
}

// configInitCmd writes the default config into the workspace
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default tutor.yaml",
	Long: `Writes the default configuration to the --config path, or to tutor.yaml in
the workspace. An existing file is left alone unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = filepath.Join(workspace, config.DefaultConfigFile)
		}
		return writeDefaultConfig(os.Stdout, path, configForce)
	},
}

// writeDefaultConfig saves DefaultConfig to path. Paths are written relative
// so the file stays valid if the workspace moves.
func writeDefaultConfig(w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(w, "Config already exists: %s (use --force to overwrite)\n", path)
		return nil
	} else if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config: %w", err)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(w, "Config written: %s\n", path)
	return nil
}
