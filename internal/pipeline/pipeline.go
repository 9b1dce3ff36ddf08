// Package pipeline runs configured datasets from source query to written
// document, announcing each stage on an event bus.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"indicator-spec/internal"
	"indicator-spec/internal/config"
	"indicator-spec/internal/document"
	"indicator-spec/internal/infra"
	"indicator-spec/internal/source"
	"indicator-spec/specs"
)

// Options configures a Pipeline.
type Options struct {
	// Indent documents with two spaces.
	Indent bool
	// Timeout bounds each dataset's source query. Zero means no limit.
	Timeout time.Duration
}

// Pipeline extracts datasets from one source.
type Pipeline struct {
	source source.Source
	bus    *infra.Bus
	opts   Options
}

func New(src source.Source, bus *infra.Bus, opts Options) *Pipeline {
	if bus == nil {
		bus = infra.NewBus()
	}
	return &Pipeline{source: src, bus: bus, opts: opts}
}

// Run queries, groups and writes one dataset.
func (p *Pipeline) Run(ctx context.Context, ds config.DatasetConfig) (specs.GroupedSpec, error) {
	grouped, err := p.extract(ctx, ds)
	if err != nil {
		return specs.GroupedSpec{}, err
	}

	output := ds.Output
	if output == "" {
		output = document.DefaultPath
	}
	n, err := document.WriteFile(output, grouped, p.opts.Indent)
	if err != nil {
		return specs.GroupedSpec{}, p.failed(ds.Name, "write", err)
	}
	p.bus.Publish(infra.DocumentWrittenEvent{Dataset: ds.Name, Path: output, Bytes: n})
	return grouped, nil
}

func (p *Pipeline) extract(ctx context.Context, ds config.DatasetConfig) (specs.GroupedSpec, error) {
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	records, err := p.source.Records(ctx, ds.Query)
	if err != nil {
		return specs.GroupedSpec{}, p.failed(ds.Name, "query", err)
	}
	p.bus.Publish(infra.RecordsFetchedEvent{Dataset: ds.Name, Records: len(records), Elapsed: time.Since(start)})

	grouped, err := internal.Group(records)
	if err != nil {
		return specs.GroupedSpec{}, p.failed(ds.Name, "group", err)
	}
	p.bus.Publish(infra.RecordsGroupedEvent{Dataset: ds.Name, Periods: len(grouped.Periods), Pairs: grouped.RecordCount()})
	return grouped, nil
}

func (p *Pipeline) failed(dataset, stage string, err error) error {
	err = fmt.Errorf("dataset %q: %s: %w", dataset, stage, err)
	p.bus.Publish(infra.DatasetFailedEvent{Dataset: dataset, Stage: stage, Err: err})
	return err
}

// RunAll runs datasets with at most concurrency in flight. A failing dataset
// does not stop the others; the first error is returned once all finish.
func (p *Pipeline) RunAll(ctx context.Context, datasets []config.DatasetConfig, concurrency int) error {
	var eg errgroup.Group
	if concurrency > 0 {
		eg.SetLimit(concurrency)
	}
	for _, ds := range datasets {
		eg.Go(func() error {
			_, err := p.Run(ctx, ds)
			return err
		})
	}
	return eg.Wait()
}

// LogEvents subscribes a handler that logs every pipeline event.
func LogEvents(bus *infra.Bus, logger *zap.Logger) {
	bus.SubscribeAll(func(e infra.Event) {
		switch ev := e.(type) {
		case infra.RecordsFetchedEvent:
			logger.Info("records fetched",
				zap.String("dataset", ev.Dataset),
				zap.Int("records", ev.Records),
				zap.Duration("elapsed", ev.Elapsed))
		case infra.RecordsGroupedEvent:
			logger.Info("records grouped",
				zap.String("dataset", ev.Dataset),
				zap.Int("periods", ev.Periods),
				zap.Int("pairs", ev.Pairs))
		case infra.DocumentWrittenEvent:
			logger.Info("document written",
				zap.String("dataset", ev.Dataset),
				zap.String("path", ev.Path),
				zap.Int64("bytes", ev.Bytes))
		case infra.DatasetFailedEvent:
			logger.Error("dataset failed",
				zap.String("dataset", ev.Dataset),
				zap.String("stage", ev.Stage),
				zap.Error(ev.Err))
		}
	})
}
