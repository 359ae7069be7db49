package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"panicmap/internal/report"
)

var showCmd = &cobra.Command{
	Use:   "show <snapshot>",
	Short: "Render a saved msgpack snapshot without re-analyzing",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	f := showCmd.Flags()
	f.StringSlice("format", []string{"text"}, "report formats (html,text,json)")
	f.StringP("output", "o", "", "report folder for html and json (default next to the snapshot)")
	f.String("source-root", "", "directory relative filenames are read from")
	f.StringSlice("include", nil, "only report files matching these globs")
	f.StringSlice("exclude", nil, "skip files matching these globs")
}

func runShow(cmd *cobra.Command, args []string) error {
	snap, err := report.ReadSnapshot(args[0])
	if err != nil {
		return err
	}
	table, err := snap.Table()
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	f := cmd.Flags()
	formats, err := f.GetStringSlice("format")
	if err != nil {
		return err
	}
	output, err := f.GetString("output")
	if err != nil {
		return err
	}
	if output == "" {
		output = filepath.Dir(args[0])
	}
	sourceRoot, err := f.GetString("source-root")
	if err != nil {
		return err
	}
	if sourceRoot == "" {
		if sourceRoot, err = os.Getwd(); err != nil {
			return err
		}
	}
	include, err := f.GetStringSlice("include")
	if err != nil {
		return err
	}
	exclude, err := f.GetStringSlice("exclude")
	if err != nil {
		return err
	}

	w, err := report.Write(cmd.Context(), table, snap.Meta, report.Options{
		Output:     output,
		Formats:    formats,
		Filter:     report.Filter{Include: include, Exclude: exclude},
		SourceRoot: sourceRoot,
		Text:       cmd.OutOrStdout(),
		Color:      colorEnabled(cmd, os.Stdout),
		Width:      terminalWidth(os.Stdout),
	})
	if err != nil {
		return err
	}
	if w.Index != "" && !quiet(cmd) {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "report: %s\n", w.Index)
	}
	return nil
}
