package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"panicmap/internal/cargo"
	"panicmap/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a panicmap.toml template",
	Long: `Init writes panicmap.toml into dir (default: current directory). The
package name is taken from Cargo.toml when --package is not given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringP("package", "p", "", "cargo package name")
	initCmd.Flags().StringP("target", "t", "", "target triple")
	initCmd.Flags().Bool("force", false, "overwrite an existing panicmap.toml")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 && args[0] != "" {
		dir = args[0]
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to stat %q: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", dir)
	}

	pkg, err := cmd.Flags().GetString("package")
	if err != nil {
		return err
	}
	target, err := cmd.Flags().GetString("target")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	if pkg == "" {
		name, ok, err := cargo.PackageName(dir)
		if err != nil {
			return err
		}
		if ok {
			pkg = name
		}
	}

	p, err := config.WriteTemplate(dir, pkg, target, force)
	if err != nil {
		return err
	}
	if !quiet(cmd) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", p)
	}
	return nil
}
