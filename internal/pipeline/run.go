// Package pipeline runs an analysis from toolchain check to written reports.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"panicmap/internal/cargo"
	"panicmap/internal/config"
	"panicmap/internal/llvmir"
	"panicmap/internal/observ"
	"panicmap/internal/panics"
	"panicmap/internal/report"
	"panicmap/internal/trace"
)

// Request configures Run.
type Request struct {
	Root     string // project root; target/ is looked up below it
	Config   config.Config
	Artifact string // explicit module path, skips the lookup
	Init     bool
	// PrintCommands echoes the init commands without running them.
	PrintCommands bool

	Toolchain llvmir.Toolchain
	Runner    cargo.Runner // nil runs commands in Root
	Progress  ProgressSink
	Timer     *observ.Timer
	Heartbeat time.Duration

	Text  io.Writer // destination of the text report
	Color bool
	Width int
}

// Result captures the outcome of a run.
type Result struct {
	Artifact string
	LLVM     llvmir.Version
	Analysis *panics.Result
	Written  report.Written
	Timings  Timings
}

// errSkip marks a stage with nothing to do.
var errSkip = errors.New("skipped")

type run struct {
	req    *Request
	res    Result
	tracer trace.Tracer
	parent uint64
	mod    *llvmir.Module
}

// Run executes every stage. The module is closed before Run returns.
func Run(ctx context.Context, req *Request) (Result, error) {
	if req == nil {
		return Result{}, fmt.Errorf("missing request")
	}
	r := &run{
		req:    req,
		tracer: trace.FromContext(ctx),
		parent: trace.Parent(ctx),
	}
	defer func() {
		if r.mod != nil {
			_ = r.mod.Close()
		}
	}()

	for _, st := range Stages {
		r.emit(Event{Stage: st, Status: StatusQueued})
	}
	steps := []struct {
		stage Stage
		fn    func(context.Context) (string, error)
	}{
		{StageToolchain, r.toolchain},
		{StageBuild, r.build},
		{StageLoad, r.load},
		{StageAnalyze, r.analyze},
		{StageReport, r.report},
	}
	for _, s := range steps {
		if err := r.stage(ctx, s.stage, s.fn); err != nil {
			return r.res, err
		}
	}
	return r.res, nil
}

func (r *run) emit(ev Event) {
	if r.req.Progress != nil {
		r.req.Progress.OnEvent(ev)
	}
}

func (r *run) stage(ctx context.Context, st Stage, fn func(context.Context) (string, error)) error {
	if err := ctx.Err(); err != nil {
		r.emit(Event{Stage: st, Status: StatusError, Err: err})
		return err
	}
	start := time.Now()
	r.emit(Event{Stage: st, Status: StatusWorking})
	span := trace.Begin(r.tracer, trace.ScopeDriver, string(st), r.parent)
	idx := -1
	if r.req.Timer != nil {
		idx = r.req.Timer.Begin(string(st))
	}

	detail, err := fn(span.Enter(ctx))
	elapsed := time.Since(start)
	r.res.Timings.Set(st, elapsed)

	switch {
	case errors.Is(err, errSkip):
		if r.req.Timer != nil {
			r.req.Timer.End(idx, "skipped")
		}
		span.End("skipped")
		r.emit(Event{Stage: st, Status: StatusSkipped, Detail: detail, Elapsed: elapsed})
		return nil
	case err != nil:
		if r.req.Timer != nil {
			r.req.Timer.End(idx, "error")
		}
		span.Fail(err).End("")
		r.emit(Event{Stage: st, Status: StatusError, Err: err, Elapsed: elapsed})
		return err
	}
	if r.req.Timer != nil {
		r.req.Timer.End(idx, detail)
	}
	span.End(detail)
	r.emit(Event{Stage: st, Status: StatusDone, Detail: detail, Elapsed: elapsed})
	return nil
}

// needsLLVM is false for an explicit textual module; the parser reads it
// without the native tools.
func (r *run) needsLLVM() bool {
	return r.req.Artifact == "" || !strings.EqualFold(filepath.Ext(r.req.Artifact), ".ll")
}

func (r *run) toolchain(ctx context.Context) (string, error) {
	if !r.needsLLVM() {
		return "textual IR", errSkip
	}
	if r.req.Toolchain == nil {
		return "", fmt.Errorf("%w: no LLVM toolchain configured", llvmir.ErrVersionMismatch)
	}
	v, err := r.req.Toolchain.Version(ctx)
	if err != nil {
		return "", err
	}
	if err := llvmir.CheckVersion(v, r.req.Config.Toolchain.LLVMMajor); err != nil {
		return "", err
	}
	r.res.LLVM = v
	return "LLVM " + v.String(), nil
}

func (r *run) build(ctx context.Context) (string, error) {
	cfg := &r.req.Config
	if r.req.Init {
		runner := r.req.Runner
		if runner == nil {
			runner = cargo.ExecRunner{Dir: r.req.Root, DryRun: r.req.PrintCommands}
		}
		err := cargo.Init(ctx, runner, cargo.InitOptions{
			Toolchain: cfg.Toolchain.Rust,
			BuildStd:  cfg.Toolchain.BuildStd,
			Package:   cfg.Package.Name,
			Profile:   cfg.Package.Profile,
			Target:    cfg.Package.Target,
		})
		if err != nil {
			return "", fmt.Errorf("init: %w", err)
		}
	}

	if r.req.Artifact != "" {
		info, err := os.Stat(r.req.Artifact)
		if err != nil || info.IsDir() {
			return "", fmt.Errorf("%w: %s does not exist", cargo.ErrArtifactNotFound, r.req.Artifact)
		}
		r.res.Artifact = r.req.Artifact
		if !r.req.Init {
			return r.req.Artifact, errSkip
		}
		return r.req.Artifact, nil
	}
	if cfg.Package.Name == "" {
		return "", fmt.Errorf("%w: no package given (use --package or [package].name)", cargo.ErrArtifactNotFound)
	}
	path, err := cargo.Locate(r.req.Root, cfg.Package.Target, cfg.Package.Profile, cfg.Package.Name)
	if err != nil {
		return "", err
	}
	r.res.Artifact = path
	return path, nil
}

func (r *run) load(ctx context.Context) (string, error) {
	mod, err := llvmir.Open(ctx, r.res.Artifact, r.req.Toolchain)
	if err != nil {
		return "", err
	}
	r.mod = mod
	return fmt.Sprintf("%d functions", mod.Len()), nil
}

func (r *run) analyze(ctx context.Context) (string, error) {
	cfg := &r.req.Config
	mode, err := panics.ParseAnnotateMode(cfg.Analysis.Annotate)
	if err != nil {
		return "", err
	}
	a := panics.NewAnalyzer(panics.NewRoots(cfg.Analysis.Roots...), r.tracer)
	hb := trace.StartHeartbeat(r.tracer, r.req.Heartbeat, func() string {
		return fmt.Sprintf("%d functions classified", a.Progress())
	})
	defer hb.Stop()

	res, err := panics.Analyze(ctx, r.mod, panics.Options{Annotate: mode, Tracer: r.tracer, Analyzer: a})
	if err != nil {
		return "", err
	}
	r.res.Analysis = res
	return fmt.Sprintf("%d of %d panicky, %d files", res.Stats.Panicky, res.Stats.Functions, res.Files.Len()), nil
}

func (r *run) report(ctx context.Context) (string, error) {
	cfg := &r.req.Config
	snapshot := cfg.Report.Snapshot
	if snapshot != "" && !filepath.IsAbs(snapshot) && r.req.Root != "" {
		snapshot = filepath.Join(r.req.Root, filepath.FromSlash(snapshot))
	}
	meta := report.Meta{
		Title:     cfg.Package.Name,
		Artifact:  r.res.Artifact,
		Target:    cfg.Package.Target,
		Profile:   cfg.Package.Profile,
		Stats:     r.res.Analysis.Stats,
		Panicky:   r.res.Analysis.Panicky,
		Generated: time.Now(),
		Elapsed:   r.res.Timings.Sum(Stages...),
	}
	if r.res.LLVM.Major > 0 {
		meta.LLVM = r.res.LLVM.String()
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSuffix(filepath.Base(r.res.Artifact), filepath.Ext(r.res.Artifact))
	}
	w, err := report.Write(ctx, r.res.Analysis.Files, meta, report.Options{
		Output:     cfg.ResolveOutput(r.req.Root),
		Formats:    cfg.Report.Formats,
		Filter:     report.Filter{Include: cfg.Report.Include, Exclude: cfg.Report.Exclude},
		Snapshot:   snapshot,
		SourceRoot: r.req.Root,
		Text:       r.req.Text,
		Color:      r.req.Color,
		Width:      r.req.Width,
	})
	r.res.Written = w
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d files", w.Files), nil
}
