package main

import (
	"fmt"
	"io"
	"time"

	"panicmap/internal/pipeline"
)

// printStageTimings prints one line per stage that ran.
func printStageTimings(out io.Writer, timings pipeline.Timings) error {
	if out == nil {
		return nil
	}
	for _, st := range pipeline.Stages {
		if !timings.Has(st) {
			continue
		}
		if _, err := fmt.Fprintf(out, "%-10s %8.1f ms\n", st, toMillis(timings.Duration(st))); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "%-10s %8.1f ms\n", "total", toMillis(timings.Sum(pipeline.Stages...)))
	return err
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// stageLogger prints finished stages when the progress view is off.
type stageLogger struct {
	out io.Writer
}

func (l stageLogger) OnEvent(ev pipeline.Event) {
	switch ev.Status {
	case pipeline.StatusDone:
		msg := fmt.Sprintf("%s done in %s", ev.Stage, ev.Elapsed.Round(time.Millisecond))
		if ev.Detail != "" {
			msg += ": " + ev.Detail
		}
		_, _ = fmt.Fprintln(l.out, msg)
	case pipeline.StatusQueued, pipeline.StatusWorking, pipeline.StatusSkipped, pipeline.StatusError:
	}
}
