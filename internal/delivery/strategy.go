package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tagprint/internal/config"
	"tagprint/internal/logging"
	"tagprint/internal/usblp"
)

// ErrAllTransportsFailed reports that no step in the chain succeeded.
var ErrAllTransportsFailed = errors.New("all transports failed")

// Strategy runs the transport chain. Deliver calls are serialized.
type Strategy struct {
	mu       sync.Mutex
	attempts []Attempt
	reporter Reporter
	logger   *slog.Logger
	now      func() time.Time
}

// NewStrategy builds a strategy over attempts, in order.
func NewStrategy(attempts []Attempt, reporter Reporter, logger *slog.Logger) *Strategy {
	return &Strategy{
		attempts: attempts,
		reporter: reporter,
		logger:   logging.NewComponentLogger(logger, "delivery"),
		now:      time.Now,
	}
}

// Chain assembles the standard device, socket, file order from config. A
// nil device writer or a disabled device link drops the device step.
func Chain(cfg *config.Config, device DeviceWriter, sender Sender) []Attempt {
	attempts := make([]Attempt, 0, 3)
	if cfg.Printer.DeviceLink && device != nil {
		attempts = append(attempts, DeviceAttempt{Writer: device})
	}
	if sender != nil {
		attempts = append(attempts, SocketAttempt{Sender: sender})
	}
	attempts = append(attempts, FileFallback{Dir: cfg.Paths.FallbackDir})
	return attempts
}

// Transports lists step names in order.
func (s *Strategy) Transports() []string {
	names := make([]string, 0, len(s.attempts))
	for _, a := range s.attempts {
		names = append(names, a.Name())
	}
	return names
}

// Deliver runs the chain until one step succeeds. It never fails: the
// returned outcome is terminal and has already been reported.
func (s *Strategy) Deliver(ctx context.Context, job Job) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	job = s.prepare(job)
	ctx = logging.WithUnitID(logging.WithJobID(ctx, job.ID), job.UnitID)
	logger := logging.WithContext(ctx, s.logger)
	start := s.now()

	// Printing steps stop once the caller is gone or a device write did not
	// settle. The file step always runs.
	var failures []error
	var halt error
	for _, step := range s.attempts {
		stepCtx := ctx
		if step.Name() == TransportFile {
			stepCtx = context.WithoutCancel(ctx)
		} else {
			if halt == nil {
				halt = ctx.Err()
			}
			if halt != nil {
				failures = append(failures, fmt.Errorf("%s: skipped: %w", step.Name(), halt))
				continue
			}
		}
		stepStart := s.now()
		result, err := s.run(stepCtx, step, job)
		if err != nil {
			if errors.Is(err, usblp.ErrWriteIndeterminate) {
				halt = usblp.ErrWriteIndeterminate
			}
			failures = append(failures, fmt.Errorf("%s: %w", step.Name(), err))
			logging.WarnWithContext(logger, "transport failed; trying next",
				"transport_failed",
				logging.String(logging.FieldTransport, step.Name()),
				logging.Error(err),
				logging.Duration("elapsed", s.now().Sub(stepStart)),
				logging.String(logging.FieldErrorHint, hintFor(step.Name())),
				logging.String(logging.FieldImpact, "label delivery falls through to the next transport"),
			)
			continue
		}

		kind := KindDelivered
		if step.Name() == TransportFile {
			kind = KindFellBack
		}
		outcome := s.outcome(job, start, kind, step.Name(), result, failures)
		logger.Info("label delivered",
			logging.String(logging.FieldEventType, "delivery_"+string(kind)),
			logging.String(logging.FieldTransport, step.Name()),
			logging.String("detail", result.Detail),
			logging.Duration("elapsed", outcome.Duration),
		)
		s.report(ctx, outcome)
		return outcome
	}

	err := errors.Join(failures...)
	if err == nil {
		err = errors.New("no transports configured")
	}
	outcome := s.outcome(job, start, KindFailed, "", Result{}, nil)
	outcome.Reason = fmt.Sprintf("%v: %s", ErrAllTransportsFailed, flatten(err))
	logging.ErrorWithContext(logger, "label delivery failed", "delivery_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check printer power, cabling and fallback directory permissions"),
	)
	s.report(ctx, outcome)
	return outcome
}

// Direct runs the single named step and reports its outcome. Failures are
// classified as timed_out or transport_error rather than falling through.
func (s *Strategy) Direct(ctx context.Context, job Job, transport string) (Outcome, error) {
	var step Attempt
	for _, a := range s.attempts {
		if a.Name() == transport {
			step = a
			break
		}
	}
	if step == nil {
		return Outcome{}, fmt.Errorf("transport %q not configured", transport)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job = s.prepare(job)
	ctx = logging.WithUnitID(logging.WithJobID(ctx, job.ID), job.UnitID)
	logger := logging.WithContext(ctx, s.logger)
	start := s.now()

	result, err := s.run(ctx, step, job)
	if err != nil {
		outcome := s.outcome(job, start, kindForError(err), transport, Result{}, nil)
		outcome.Reason = err.Error()
		logging.WarnWithContext(logger, "direct delivery failed", "delivery_"+string(outcome.Kind),
			logging.String(logging.FieldTransport, transport),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(transport)),
			logging.String(logging.FieldImpact, "label was not printed"),
		)
		s.report(ctx, outcome)
		return outcome, err
	}
	kind := KindDelivered
	if transport == TransportFile {
		kind = KindFellBack
	}
	outcome := s.outcome(job, start, kind, transport, result, nil)
	logger.Info("label delivered",
		logging.String(logging.FieldEventType, "delivery_"+string(kind)),
		logging.String(logging.FieldTransport, transport),
		logging.String("detail", result.Detail),
	)
	s.report(ctx, outcome)
	return outcome, nil
}

// run isolates a step so a panicking transport is treated as a failure.
func (s *Strategy) run(ctx context.Context, step Attempt, job Job) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return step.Attempt(ctx, job)
}

func (s *Strategy) prepare(job Job) Job {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	return job
}

func (s *Strategy) outcome(job Job, start time.Time, kind Kind, transport string, result Result, failures []error) Outcome {
	o := Outcome{
		JobID:     job.ID,
		UnitID:    job.UnitID,
		Kind:      kind,
		Transport: transport,
		Path:      result.Path,
		Bytes:     len(job.Payload),
		StartedAt: start.UTC(),
		Duration:  s.now().Sub(start),
	}
	if job.Target.Host != "" {
		o.Printer = job.Target.Address()
	}
	if len(failures) > 0 {
		o.Reason = flatten(errors.Join(failures...))
	}
	return o
}

func (s *Strategy) report(ctx context.Context, outcome Outcome) {
	if s.reporter == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("reporter panicked", logging.Any("panic", r))
		}
	}()
	s.reporter.Report(context.WithoutCancel(ctx), outcome)
}

func flatten(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}

func hintFor(transport string) string {
	switch transport {
	case TransportDevice:
		return "check the USB cable and that the usblp driver bound the printer"
	case TransportSocket:
		return "check the printer address and that port 9100 is reachable"
	case TransportFile:
		return "check permissions on the fallback directory"
	default:
		return "check logs for details"
	}
}
