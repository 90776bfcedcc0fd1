// # internal/core/importer/pipeline.go
package importer

import (
	"context"
	"errors"
	"time"

	domainerrors "archimport/internal/core/errors"
	"archimport/internal/core/ports"
	"archimport/internal/engine/classfile"
	"archimport/internal/engine/graph"
	"archimport/internal/engine/importopt"
	"archimport/internal/engine/location"
	"archimport/internal/shared/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// collectFunc enumerates the locations of one request. Non-fatal problems
// go to the builder; a returned error aborts the run.
type collectFunc func(ctx context.Context, b *graph.Builder) ([]location.Location, error)

type decoded struct {
	order int
	loc   location.Location
	desc  *classfile.ClassDescriptor
	err   error
}

// run drives enumerate, filter, decode and build. On timeout or
// cancellation nothing built so far is returned.
func (imp *ClassFileImporter) run(ctx context.Context, mode string, roots []string, options importopt.Options, collect collectFunc) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()
	logger := imp.logger.With("run_id", runID, "mode", mode)

	if imp.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, imp.cfg.Timeout)
		defer cancel()
	}

	ctx, span := observability.Tracer.Start(ctx, "importer."+mode, trace.WithAttributes(
		attribute.String("archimport.run_id", runID),
		attribute.Int("archimport.roots", len(roots)),
	))
	defer span.End()

	fail := func(err error) (*Result, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = contextError(ctxErr)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("import failed", "error", err)
		return nil, err
	}

	builder := graph.NewBuilder(logger)

	_, enumSpan := observability.Tracer.Start(ctx, "importer.enumerate")
	locs, err := collect(ctx, builder)
	enumSpan.SetAttributes(attribute.Int("archimport.locations", len(locs)))
	enumSpan.End()
	if err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	kept, excluded := options.Filter(locs)
	observability.LocationsExcluded.Add(float64(excluded))
	logger.Debug("locations selected", "found", len(locs), "excluded", excluded)

	if err := imp.decodeAll(ctx, kept, builder); err != nil {
		return fail(err)
	}

	classes, err := builder.Freeze(ctx)
	if err != nil {
		return fail(err)
	}

	info := ports.RunInfo{
		ID:        runID,
		Mode:      mode,
		Roots:     append([]string(nil), roots...),
		Started:   started,
		Duration:  time.Since(started),
		Locations: len(kept),
		Excluded:  excluded,
	}
	observability.ImportDuration.WithLabelValues(mode).Observe(info.Duration.Seconds())
	observability.GraphClasses.Set(float64(classes.Len()))
	observability.GraphStubs.Set(float64(len(classes.Stubs())))
	span.SetAttributes(
		attribute.Int("archimport.classes", classes.Len()),
		attribute.Int("archimport.stubs", len(classes.Stubs())),
	)
	logger.Info("import complete",
		"classes", classes.Len(),
		"stubs", len(classes.Stubs()),
		"issues", len(classes.Issues()),
		"duration", info.Duration,
	)

	imp.publish(ctx, info, classes)
	return &Result{Classes: classes, Run: info}, nil
}

// decodeAll reads and decodes locs on a bounded worker pool. Results are
// handed to the builder by this goroutine only, tagged with their index in
// locs so that duplicates resolve the same way for any worker count.
func (imp *ClassFileImporter) decodeAll(ctx context.Context, locs []location.Location, builder *graph.Builder) error {
	ctx, span := observability.Tracer.Start(ctx, "importer.decode", trace.WithAttributes(
		attribute.Int("archimport.locations", len(locs)),
		attribute.Int("archimport.workers", imp.cfg.Workers),
	))
	defer span.End()

	opener := location.NewOpener()
	defer opener.Close()

	results := make(chan decoded, imp.cfg.Workers*2)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imp.cfg.Workers)

	var producerErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(results)
		for i, loc := range locs {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				r := imp.decodeOne(opener, i, loc)
				select {
				case results <- r:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		producerErr = g.Wait()
	}()

	for r := range results {
		if r.err != nil {
			observability.DecodeFailures.Inc()
			imp.logger.Warn("skipping undecodable class file", "location", r.loc.URI(), "error", r.err)
			builder.AddFailure(r.err)
			continue
		}
		if err := builder.Add(r.order, r.loc, r.desc); err != nil {
			builder.AddFailure(err)
		}
	}
	<-done

	if producerErr != nil {
		return producerErr
	}
	return ctx.Err()
}

func (imp *ClassFileImporter) decodeOne(opener *location.Opener, order int, loc location.Location) decoded {
	start := time.Now()
	defer func() { observability.DecodeDuration.Observe(time.Since(start).Seconds()) }()

	data, err := opener.ReadAll(loc)
	if err != nil {
		return decoded{order: order, loc: loc, err: domainerrors.Decode(loc.URI(), err)}
	}
	desc, err := imp.decoder.Decode(data)
	if err != nil {
		return decoded{order: order, loc: loc, err: domainerrors.Decode(loc.URI(), err)}
	}
	return decoded{order: order, loc: loc, desc: desc}
}

// publish hands the result to every sink. Sink failures are logged and do
// not affect the result.
func (imp *ClassFileImporter) publish(ctx context.Context, info ports.RunInfo, classes *graph.Classes) {
	for _, sink := range imp.sinks {
		if err := sink.Consume(ctx, info, classes); err != nil {
			imp.logger.Error("result sink failed", "sink", sink.Name(), "run_id", info.ID, "error", err)
		}
	}
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domainerrors.Wrap(err, domainerrors.CodeTimeout, "import timed out")
	}
	return err
}
