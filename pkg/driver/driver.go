// Package driver runs the variability metrics over a set of named event
// logs and collects one outcome per log.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/logflow/logvar/internal/model"
	lverrors "github.com/logflow/logvar/pkg/errors"
	"github.com/logflow/logvar/pkg/loader"
	"github.com/logflow/logvar/pkg/source"
	"github.com/logflow/logvar/pkg/telemetry"
	"github.com/logflow/logvar/pkg/variability"
)

// LogSpec names one log to analyze.
type LogSpec struct {
	Name   string
	Path   string
	Format loader.Format
}

// ParseSpec parses a "name=path" or bare "path" argument. A bare path is
// named after its base name.
func ParseSpec(arg string) LogSpec {
	if i := strings.IndexByte(arg, '='); i > 0 && !strings.ContainsAny(arg[:i], `/\:`) {
		return LogSpec{Name: arg[:i], Path: arg[i+1:]}
	}
	return LogSpec{Name: source.BaseName(arg), Path: arg}
}

// Loader materializes an event log.
type Loader interface {
	Load(ctx context.Context, location string, format loader.Format) (*model.EventLog, error)
}

// Computer computes the metrics of one log.
type Computer interface {
	Compute(log *model.EventLog) (*variability.Result, error)
}

// ProgressComputer is a Computer that can report progress for a single call.
// *variability.Engine implements it.
type ProgressComputer interface {
	Computer
	ComputeWithProgress(log *model.EventLog, fn variability.ProgressFunc) (*variability.Result, error)
}

// ProgressFactory returns the progress callback for one log, or nil.
type ProgressFactory func(spec LogSpec) variability.ProgressFunc

// Option configures a Driver.
type Option func(*Driver)

// WithWorkers sets how many logs are processed concurrently.
func WithWorkers(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithTracer sets the tracer used for per-log spans.
func WithTracer(t trace.Tracer) Option {
	return func(d *Driver) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithProgress reports pairwise comparison progress per log. Progress is
// only reported when the computer implements ProgressComputer; other
// computers run unchanged.
func WithProgress(f ProgressFactory) Option {
	return func(d *Driver) { d.progress = f }
}

// Driver loads logs and computes their metrics.
type Driver struct {
	loader   Loader
	computer Computer
	workers  int
	logger   *slog.Logger
	tracer   trace.Tracer
	progress ProgressFactory
	now      func() time.Time
}

// New creates a Driver. A nil computer uses a default variability engine.
func New(l Loader, c Computer, opts ...Option) *Driver {
	if c == nil {
		c = variability.NewEngine()
	}
	d := &Driver{
		loader:   l,
		computer: c,
		workers:  1,
		logger:   slog.Default(),
		tracer:   telemetry.Tracer(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run processes every spec. A failing log never stops the others; the
// returned report holds outcomes in input order.
func (d *Driver) Run(ctx context.Context, specs []LogSpec) *Report {
	r := &Report{
		RunID:    uuid.NewString(),
		Started:  d.now(),
		Outcomes: make([]Outcome, len(specs)),
	}
	logger := d.logger.With("run_id", r.RunID)
	logger.Debug("run started", "logs", len(specs), "workers", d.workers)

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i, spec := range specs {
		i, spec := i, spec
		if spec.Name == "" {
			spec.Name = source.BaseName(spec.Path)
		}
		g.Go(func() error {
			r.Outcomes[i] = d.process(ctx, logger, spec)
			return nil
		})
	}
	_ = g.Wait()

	r.Duration = d.now().Sub(r.Started)
	logger.Debug("run finished", "failed", r.Failed(), "duration", r.Duration)
	return r
}

func (d *Driver) process(ctx context.Context, logger *slog.Logger, spec LogSpec) Outcome {
	start := d.now()
	out := Outcome{Spec: spec}
	logger = logger.With("log", spec.Name)

	ctx, span := d.tracer.Start(ctx, "logvar.analyze", trace.WithAttributes(
		telemetry.Attr("log.name", spec.Name),
		telemetry.Attr("log.path", spec.Path),
	))
	defer span.End()

	log, err := d.load(ctx, spec)
	if err != nil {
		out.Stage, out.Err, out.Duration = StageLoad, err, d.now().Sub(start)
		telemetry.RecordError(span, err)
		logger.Warn("skipping log", "path", spec.Path, "error", err)
		return out
	}
	out.Traces = log.Len()

	res, err := d.compute(ctx, spec, log)
	out.Duration = d.now().Sub(start)
	if err != nil {
		out.Stage, out.Err = StageCompute, err
		telemetry.RecordError(span, err)
		logger.Error("error processing log", "traces", out.Traces, "error", err)
		return out
	}
	out.Result = res
	out.Variants = res.VariantCount

	span.SetAttributes(
		telemetry.Attr("log.traces", out.Traces),
		telemetry.Attr("log.variants", out.Variants),
	)
	logger.Info("log analyzed", "traces", out.Traces, "variants", out.Variants, "duration", out.Duration)
	return out
}

func (d *Driver) load(ctx context.Context, spec LogSpec) (*model.EventLog, error) {
	ctx, span := d.tracer.Start(ctx, "load")
	defer span.End()

	if err := ctx.Err(); err != nil {
		err = lverrors.Wrap(err, lverrors.CodeContextCanceled, "run canceled").
			WithContext("path", spec.Path)
		telemetry.RecordError(span, err)
		return nil, err
	}

	log, err := d.loader.Load(ctx, spec.Path, spec.Format)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if log == nil {
		log = &model.EventLog{}
	}
	if spec.Name != "" {
		log.Name = spec.Name
	}
	span.SetAttributes(
		telemetry.Attr("log.traces", log.Len()),
		telemetry.Attr("log.events", log.EventCount()),
	)
	return log, nil
}

func (d *Driver) compute(ctx context.Context, spec LogSpec, log *model.EventLog) (*variability.Result, error) {
	_, span := d.tracer.Start(ctx, "compute")
	defer span.End()

	res, err := d.run(spec, log)
	if err != nil {
		code := lverrors.CodeComputeFailed
		if errors.Is(err, variability.ErrMissingActivity) {
			code = lverrors.CodeValidationFailed
		}
		err = lverrors.Wrap(err, code, fmt.Sprintf("error processing log %s", spec.Name)).
			WithContext("path", spec.Path)
		telemetry.RecordError(span, err)
		return nil, err
	}
	return res, nil
}

func (d *Driver) run(spec LogSpec, log *model.EventLog) (*variability.Result, error) {
	pc, ok := d.computer.(ProgressComputer)
	if !ok || d.progress == nil {
		return d.computer.Compute(log)
	}
	if fn := d.progress(spec); fn != nil {
		return pc.ComputeWithProgress(log, fn)
	}
	return d.computer.Compute(log)
}
