package record

import (
	"context"
	"strconv"
	"time"

	"github.com/opentracing/opentracing-go"
	tracerLog "github.com/opentracing/opentracing-go/log"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// EasyRecorders chains a logger, a prometheus histogram named desc and a tracer recorder.
// The histogram is registered into reg when reg is not nil.
func EasyRecorders(desc string, logger *zap.Logger, reg prometheus.Registerer, factory ...Factory) Factory {
	prom := NewPromRecorderFactory(desc)
	if reg != nil {
		reg.MustRegister(prom)
	}
	fs := chainFactory{}
	fs = append(fs, NewLoggerRecorderFactory(logger, false, desc))
	fs = append(fs, prom)
	fs = append(fs, NewTracerFactory(nil))
	fs = append(fs, factory...)
	return fs
}

type PromFactory struct {
	fields []string
	hv     *prometheus.HistogramVec
}

// NewPromRecorderFactory observes durations in seconds, labelled by name, err and the given fields.
func NewPromRecorderFactory(name string, fields ...string) *PromFactory {
	fields = append(fields, "err", "name")

	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    name,
		Buckets: prometheus.ExponentialBuckets(1e-7, 4, 14),
	}, fields)

	return &PromFactory{
		fields: fields,
		hv:     hv,
	}
}

func (factory *PromFactory) Describe(ch chan<- *prometheus.Desc) {
	factory.hv.Describe(ch)
}

func (factory *PromFactory) Collect(ch chan<- prometheus.Metric) {
	factory.hv.Collect(ch)
}

func (factory *PromFactory) ActionRecorder(ctx context.Context, name string, fields ...Field) (Recorder, context.Context) {
	if factory.hv == nil {
		return skipRecorder{}, ctx
	}
	return &PromRecorder{
		fields:    fields,
		factory:   factory,
		startTime: time.Now(),
		name:      name,
	}, ctx
}

func (factory *PromFactory) buildLabel(name string, err error, fields []Field) prometheus.Labels {
	lbs := make(prometheus.Labels, len(factory.fields))
	for _, f := range factory.fields {
		lbs[f] = ""
	}
	for _, f := range fields {
		if _, ok := lbs[f.Name]; ok {
			lbs[f.Name] = f.StringValue()
		}
	}
	lbs["err"] = strconv.FormatBool(err != nil)
	lbs["name"] = name
	return lbs
}

func (factory *PromFactory) commit(startTime time.Time, labels prometheus.Labels) {
	factory.hv.With(labels).Observe(time.Since(startTime).Seconds())
}

type PromRecorder struct {
	fields    []Field
	factory   *PromFactory
	startTime time.Time
	name      string
}

func (recorder *PromRecorder) Commit(err error, fields ...Field) {
	labels := recorder.factory.buildLabel(recorder.name, err, append(recorder.fields, fields...))
	recorder.factory.commit(recorder.startTime, labels)
}

type LoggerFactory struct {
	logger      *zap.Logger
	recordNoErr bool
	desc        string
}

// NewLoggerRecorderFactory logs failed actions at Error, and successful ones at Debug when recordNoErr is set.
func NewLoggerRecorderFactory(logger *zap.Logger, recordNoErr bool, messageDesc string) *LoggerFactory {
	return &LoggerFactory{
		logger:      logger,
		recordNoErr: recordNoErr,
		desc:        messageDesc,
	}
}

func (factory *LoggerFactory) ActionRecorder(ctx context.Context, name string, fields ...Field) (Recorder, context.Context) {
	logger := factory.logger
	if logger == nil {
		logger = zap.L()
	}
	return &LoggerRecorder{
		fields:    fields,
		factory:   factory,
		logger:    logger,
		startTime: time.Now(),
		name:      name,
	}, ctx
}

type LoggerRecorder struct {
	fields    []Field
	factory   *LoggerFactory
	logger    *zap.Logger
	startTime time.Time
	name      string
}

func (recorder *LoggerRecorder) Commit(err error, fields ...Field) {
	if err == nil && !recorder.factory.recordNoErr {
		return
	}
	fields = append(recorder.fields, fields...)

	fs := make([]zap.Field, 0, len(fields)+4)
	if err != nil {
		fs = append(fs, zap.Error(err))
	}
	fs = append(fs, zap.String("name", recorder.name))
	fs = append(fs, zap.Duration("duration", time.Since(recorder.startTime)))
	fs = append(fs, zap.Time("startTime", recorder.startTime))
	for _, f := range fields {
		fs = append(fs, zap.String(f.Name, f.StringValue()))
	}

	if err == nil {
		recorder.logger.Debug(recorder.factory.desc, fs...)
	} else {
		recorder.logger.Error(recorder.factory.desc, fs...)
	}
}

type TracerFactory struct {
	tracer opentracing.Tracer
}

// NewTracerFactory uses opentracing.GlobalTracer when tracer is nil.
func NewTracerFactory(tracer opentracing.Tracer) *TracerFactory {
	return &TracerFactory{
		tracer: tracer,
	}
}

func (factory *TracerFactory) ActionRecorder(ctx context.Context, name string, fields ...Field) (Recorder, context.Context) {
	tracer := factory.tracer
	if tracer == nil {
		tracer = opentracing.GlobalTracer()
	}

	opt := tracerOption{
		startTime: time.Now(),
		fields:    fields,
	}

	span, ctx := opentracing.StartSpanFromContextWithTracer(ctx, tracer, name, opt)
	return &TracerRecorder{
		span: span,
	}, ctx
}

type TracerRecorder struct {
	span opentracing.Span
}

func (recorder *TracerRecorder) Commit(err error, fields ...Field) {
	if err != nil {
		recorder.span.SetTag("err", true)
		recorder.span.LogFields(tracerLog.Error(err))
	}
	for _, f := range fields {
		recorder.span.SetTag(f.Name, f.Value())
	}
	recorder.span.Finish()
}

type tracerOption struct {
	startTime time.Time
	fields    []Field
}

func (opt tracerOption) Apply(options *opentracing.StartSpanOptions) {
	options.StartTime = opt.startTime
	if options.Tags == nil {
		options.Tags = map[string]interface{}{}
	}
	for _, f := range opt.fields {
		options.Tags[f.Name] = f.Value()
	}
}
