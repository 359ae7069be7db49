package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"panicmap/internal/cargo"
	"panicmap/internal/config"
	"panicmap/internal/llvmir"
	"panicmap/internal/observ"
	"panicmap/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [artifact]",
	Short: "Analyze a package and write per-file reports",
	Long: `Analyze locates target/<target>/<profile>/deps/<package>.bc (or the given
artifact, .bc or .ll), classifies every function and writes one HTML page per
source file to the report folder.

A textual .ll artifact is read without LLVM tools, so the toolchain stage and
its llvm-config version check are skipped (shown as "skipped", not passed).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	registerAnalyzeFlags(analyzeCmd)
}

func registerAnalyzeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("package", "p", "", "cargo package to analyze")
	f.StringP("target", "t", "", "target triple")
	f.StringP("profile", "r", config.DefaultProfile, "cargo profile")
	f.BoolP("init", "i", false, "install the toolchain and build bitcode first")
	f.Bool("print-commands", false, "with --init, print the build commands instead of running them")
	f.String("artifact", "", "analyze this .bc or .ll file instead of looking one up")
	f.StringP("output", "o", "", "report folder (default target/panicatorul)")
	f.StringSlice("format", nil, "report formats (html,text,json)")
	f.String("annotate", "", "lines to annotate (calls|instructions)")
	f.StringSlice("root", nil, "mangled-name prefix of panic entry points (repeatable)")
	f.StringSlice("include", nil, "only report files matching these globs")
	f.StringSlice("exclude", nil, "skip files matching these globs")
	f.String("snapshot", "", "also write a msgpack snapshot to this path")
	f.Int("llvm-major", 0, "required LLVM major version")
	f.String("ui", "auto", "progress UI (auto|on|off)")
}

// loadProject finds panicmap.toml from the working directory. Without one
// the working directory is the root and defaults apply.
func loadProject() (root string, cfg config.Config, err error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", config.Config{}, err
	}
	file, found, err := config.Discover(cwd)
	if err != nil {
		return "", config.Config{}, err
	}
	if !found {
		return cwd, config.Default(), nil
	}
	return file.Root, file.Config, nil
}

// applyAnalyzeFlags overrides config values with flags the user set.
func applyAnalyzeFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	str := func(name string, dst *string) error {
		if !f.Changed(name) {
			return nil
		}
		v, err := f.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
	list := func(name string, dst *[]string) error {
		if !f.Changed(name) {
			return nil
		}
		v, err := f.GetStringSlice(name)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
	if err := errors.Join(
		str("package", &cfg.Package.Name),
		str("target", &cfg.Package.Target),
		str("profile", &cfg.Package.Profile),
		str("output", &cfg.Report.Output),
		str("annotate", &cfg.Analysis.Annotate),
		str("snapshot", &cfg.Report.Snapshot),
		list("format", &cfg.Report.Formats),
		list("root", &cfg.Analysis.Roots),
		list("include", &cfg.Report.Include),
		list("exclude", &cfg.Report.Exclude),
	); err != nil {
		return err
	}
	if f.Changed("llvm-major") {
		n, err := f.GetInt("llvm-major")
		if err != nil {
			return err
		}
		cfg.Toolchain.LLVMMajor = n
	}
	if cfg.Package.Profile == "" {
		cfg.Package.Profile = config.DefaultProfile
	}
	return cfg.Validate()
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	root, cfg, err := loadProject()
	if err != nil {
		return err
	}
	if err := applyAnalyzeFlags(cmd, &cfg); err != nil {
		return err
	}
	if cfg.Package.Name == "" {
		name, ok, err := cargo.PackageName(root)
		if err != nil {
			return err
		}
		if ok {
			cfg.Package.Name = name
		}
	}

	artifact, err := cmd.Flags().GetString("artifact")
	if err != nil {
		return err
	}
	if len(args) > 0 {
		artifact = args[0]
	}
	initBuild, err := cmd.Flags().GetBool("init")
	if err != nil {
		return err
	}
	printCommands, err := cmd.Flags().GetBool("print-commands")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	heartbeat, err := cmd.Root().PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return err
	}

	isQuiet := quiet(cmd)
	out := cmd.OutOrStdout()
	req := &pipeline.Request{
		Root:          root,
		Config:        cfg,
		Artifact:      artifact,
		Init:          initBuild,
		PrintCommands: printCommands,
		Toolchain:     llvmir.Tools{Config: cfg.Toolchain.LLVMConfig, Dis: cfg.Toolchain.LLVMDis},
		Heartbeat:     heartbeat,
		Text:          out,
		Color:         colorEnabled(cmd, os.Stdout),
		Width:         terminalWidth(os.Stdout),
	}
	var timer *observ.Timer
	if showTimings {
		timer = observ.NewTimer()
		req.Timer = timer
	}

	// cargo output and the text table would tear the progress view
	useTUI := !isQuiet && !initBuild && !cfg.HasFormat("text") && shouldUseTUI(mode)
	title := cfg.Package.Name
	if title == "" {
		title = filepath.Base(artifact)
	}

	start := time.Now()
	var res pipeline.Result
	if useTUI {
		res, err = runWithUI(cmd.Context(), title, req)
	} else {
		if !isQuiet {
			req.Progress = stageLogger{out: cmd.ErrOrStderr()}
		}
		res, err = pipeline.Run(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	if err := printRunSummary(out, res, time.Since(start)); err != nil {
		return err
	}
	if showTimings {
		if err := printStageTimings(cmd.ErrOrStderr(), res.Timings); err != nil {
			return err
		}
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	return nil
}

// printRunSummary always prints the file and panicky-function counts, even
// with --quiet.
func printRunSummary(out io.Writer, res pipeline.Result, total time.Duration) error {
	stats := res.Analysis.Stats
	touched := 0
	if res.Analysis.Files != nil {
		touched = res.Analysis.Files.Len()
	}
	line := fmt.Sprintf("no of files: %d", touched)
	if res.Written.Files != touched {
		line += fmt.Sprintf(" (%d reported)", res.Written.Files)
	}
	if _, err := fmt.Fprintln(out, line); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "no of panicky fns: %d\n", len(res.Analysis.Panicky)); err != nil {
		return err
	}
	if stats.Unresolved > 0 || stats.CycleBreaks > 0 {
		if _, err := fmt.Fprintf(out, "unresolved calls: %d, cycles cut: %d\n", stats.Unresolved, stats.CycleBreaks); err != nil {
			return err
		}
	}
	if res.Written.Index != "" {
		if _, err := fmt.Fprintf(out, "report: %s\n", res.Written.Index); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "total time: %s\n", total.Round(time.Millisecond))
	return err
}
