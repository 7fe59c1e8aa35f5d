package delivery

import "context"

// Reporter receives the terminal outcome of every delivery.
type Reporter interface {
	Report(ctx context.Context, outcome Outcome)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, outcome Outcome)

func (f ReporterFunc) Report(ctx context.Context, outcome Outcome) { f(ctx, outcome) }

// Reporters fans an outcome out in order. Nil entries are skipped.
type Reporters []Reporter

func (rs Reporters) Report(ctx context.Context, outcome Outcome) {
	for _, r := range rs {
		if r != nil {
			r.Report(ctx, outcome)
		}
	}
}
