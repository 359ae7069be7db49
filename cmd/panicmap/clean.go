package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"panicmap/internal/config"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Remove the report folder",
	Long:  "Remove the folder reports are written to ([report].output, default target/panicatorul). Cargo build output is left alone.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	baseDir := "."
	if len(args) > 0 && args[0] != "" {
		baseDir = args[0]
	}
	root, cfg, err := resolveCleanBase(baseDir)
	if err != nil {
		return err
	}
	outDir := cfg.ResolveOutput(root)
	info, err := os.Stat(outDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "report directory not found\n")
			return nil
		}
		return fmt.Errorf("failed to stat %q: %w", outDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", outDir)
	}
	if err := os.RemoveAll(outDir); err != nil {
		return fmt.Errorf("failed to remove %q: %w", outDir, err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", relativeTo(root, outDir))
	return nil
}

// resolveCleanBase finds the project root and config for base, falling back
// to defaults rooted at base itself.
func resolveCleanBase(base string) (string, config.Config, error) {
	info, err := os.Stat(base)
	if err != nil {
		return "", config.Config{}, fmt.Errorf("failed to stat %q: %w", base, err)
	}
	if !info.IsDir() {
		base = filepath.Dir(base)
	}
	file, ok, err := config.Discover(base)
	if err != nil {
		return "", config.Config{}, err
	}
	if ok {
		return file.Root, file.Config, nil
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return base, config.Default(), nil
	}
	return abs, config.Default(), nil
}

func relativeTo(base, p string) string {
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == "" {
		return p
	}
	return rel
}
