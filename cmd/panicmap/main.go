package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"panicmap/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "panicmap",
	Short: "Map which source lines of a Rust binary can panic",
	Long: `panicmap classifies every function of a compiled module by whether it can
reach core::panicking, and renders the result line by line for each source file.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setupRun,
	PersistentPostRun: func(*cobra.Command, []string) { cleanupRun() },
}

// main registers subcommands and persistent flags, then executes the root
// command. Any error is printed as "error: ..." and exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	pf := rootCmd.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.String("trace", "", "write trace events to file (- for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	pf.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	pf.Duration("trace-heartbeat", 0, "emit heartbeat events at this interval (0 disables)")
	pf.String("cpuprofile", "", "write CPU profile to file")
	pf.String("memprofile", "", "write heap profile to file")
	pf.String("runtime-trace", "", "write Go runtime trace to file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	cleanupRun()
	stop()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

var cleanups []func()

// setupRun starts tracing and profiling for every subcommand.
func setupRun(cmd *cobra.Command, _ []string) error {
	color.NoColor = !colorEnabled(cmd, os.Stdout)

	traceCleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, traceCleanup)

	profCleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, profCleanup)
	return nil
}

// cleanupRun runs cleanups in reverse order, once.
func cleanupRun() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

func printError(w io.Writer, err error) {
	prefix := color.New(color.FgRed, color.Bold).Sprint("error:")
	_, _ = fmt.Fprintf(w, "%s %v\n", prefix, err)
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of f, 0 when unknown.
func terminalWidth(f *os.File) int {
	if !isTerminal(f) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}
