package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"careercoach/internal/config"
	"careercoach/internal/errors"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Business metric types accepted by RecordBusinessMetric
const (
	MetricSessionStarted  = "session_started"
	MetricQuestionAsked   = "question_asked"
	MetricAnswerCritiqued = "answer_critiqued"
	MetricResumeUploaded  = "resume_uploaded"
	MetricResumeAnalyzed  = "resume_analyzed"
	MetricCacheHit        = "cache_hit"
	MetricRateLimitHit    = "rate_limit_hit"
	MetricCertReload      = "cert_reload"
)

// ObservabilityConfig holds configuration for observability
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
	ConsoleOutput  bool
	PrettyPrint    bool
	SampleRate     float64
	Prometheus     PrometheusConfig
}

// Metrics holds the custom instruments
type Metrics struct {
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	SessionsStarted  metric.Int64Counter
	QuestionsAsked   metric.Int64Counter
	AnswersCritiqued metric.Int64Counter
	ResumesUploaded  metric.Int64Counter
	ResumesAnalyzed  metric.Int64Counter
	CacheHits        metric.Int64Counter

	CertReloadCount metric.Int64Counter
	RateLimitHits   metric.Int64Counter
}

// ObservabilityManager manages OpenTelemetry setup
type ObservabilityManager struct {
	config         ObservabilityConfig
	fullConfig     *config.Config
	logger         *errors.Logger
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	shutdownFuncs  []func(context.Context) error
}

// NewObservabilityManager sets up tracing and metrics. A disabled config
// yields a manager whose middleware and metrics are no-ops.
func NewObservabilityManager(obsConfig ObservabilityConfig, fullConfig *config.Config, logger *errors.Logger) (*ObservabilityManager, error) {
	if logger == nil {
		logger = errors.Discard()
	}
	om := &ObservabilityManager{config: obsConfig, fullConfig: fullConfig, logger: logger}
	if !obsConfig.Enabled {
		return om, nil
	}

	res, err := om.newResource()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize resource: %w", err)
	}

	if err := om.initTracing(res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := om.initMetrics(res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return om, nil
}

func (om *ObservabilityManager) newResource() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(om.config.ServiceName),
			semconv.ServiceVersion(om.config.ServiceVersion),
			attribute.String("service.instance.id", om.serviceInstanceID()),
		),
	)
}

func (om *ObservabilityManager) initTracing(res *resource.Resource) error {
	var exporter trace.SpanExporter
	var err error

	switch {
	case om.config.ConsoleOutput:
		var opts []stdouttrace.Option
		if om.config.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	case om.otlpEnabled():
		exporter, err = om.createOTLPExporter()
	default:
		exporter = noOpSpanExporter{}
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(om.config.SampleRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)
	return nil
}

func (om *ObservabilityManager) initMetrics(res *resource.Resource) error {
	readers, err := om.setupMetricReaders()
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	mp := sdkmetric.NewMeterProvider(opts...)

	otel.SetMeterProvider(mp)
	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	return om.initCustomMetrics()
}

func (om *ObservabilityManager) setupMetricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader
	interval := om.collectionInterval()

	if om.config.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	}

	if om.otlpEnabled() {
		reader, err := om.createOTLPMetricsReader(interval)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		readers = append(readers, reader)
	}

	if om.config.Prometheus.Enabled {
		reader, mux, err := SetupPrometheusExporter(om.config.Prometheus)
		if err != nil {
			return nil, err
		}
		readers = append(readers, reader)
		om.shutdownFuncs = append(om.shutdownFuncs,
			StartPrometheusServer(mux, om.config.Prometheus.Port, om.logger))
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}
	return readers, nil
}

func (om *ObservabilityManager) initCustomMetrics() error {
	meter := om.meterProvider.Meter(om.config.ServiceName)
	m := &Metrics{}
	var err error

	if m.AIProcessingTime, err = meter.Float64Histogram(
		"careercoach_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"),
		metric.WithUnit("s"),
	); err != nil {
		return fmt.Errorf("failed to create AI processing time metric: %w", err)
	}
	if m.AITokenUsage, err = meter.Int64Histogram(
		"careercoach_ai_token_usage",
		metric.WithDescription("Token usage for AI requests (input, output, total)"),
		metric.WithUnit("tokens"),
	); err != nil {
		return fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	counters := []struct {
		target      *metric.Int64Counter
		name, descr string
	}{
		{&m.AIRequestCount, "careercoach_ai_requests_total", "Total number of AI requests"},
		{&m.AIErrorCount, "careercoach_ai_errors_total", "Total number of AI request errors"},
		{&m.SessionsStarted, "careercoach_interview_sessions_started_total", "Interview sessions created"},
		{&m.QuestionsAsked, "careercoach_interview_questions_total", "Interview questions generated"},
		{&m.AnswersCritiqued, "careercoach_interview_answers_critiqued_total", "Interview answers critiqued"},
		{&m.ResumesUploaded, "careercoach_resumes_uploaded_total", "Résumés uploaded"},
		{&m.ResumesAnalyzed, "careercoach_resumes_analyzed_total", "Résumé analyses served"},
		{&m.CacheHits, "careercoach_cache_hits_total", "Results served from the fingerprint cache"},
		{&m.CertReloadCount, "careercoach_cert_reloads_total", "Total number of certificate reloads"},
		{&m.RateLimitHits, "careercoach_rate_limit_hits_total", "Total number of rate limit hits"},
	}
	for _, c := range counters {
		if *c.target, err = meter.Int64Counter(c.name, metric.WithDescription(c.descr)); err != nil {
			return fmt.Errorf("failed to create %s metric: %w", c.name, err)
		}
	}

	om.metrics = m
	return nil
}

// GetMetrics returns the metrics instance
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om == nil || om.metrics == nil {
		return &Metrics{}
	}
	return om.metrics
}

// HTTPMiddleware returns HTTP middleware with OpenTelemetry instrumentation
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if om == nil || !om.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}

	return otelhttp.NewMiddleware(
		om.config.ServiceName,
		otelhttp.WithTracerProvider(om.tracerProvider),
		otelhttp.WithMeterProvider(om.meterProvider),
	)
}

// Tracer returns a tracer for the service
func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if om == nil || !om.config.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown flushes exporters and stops the metrics server
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	for _, shutdown := range om.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackAIOperationWithTokens runs fn inside a span and records duration,
// request, error and token metrics for it.
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult, om *ObservabilityManager) error {
	if m.AIProcessingTime == nil {
		if result := fn(ctx); result != nil {
			return result.Error
		}
		return nil
	}

	ctx, span := om.Tracer("careercoach.ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start)

	var err error
	if result != nil {
		err = result.Error
	}
	var usage *TokenUsage
	if result != nil {
		usage = result.TokenUsage
	}
	m.RecordAIOperation(ctx, operation, duration, usage, err, om)

	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.String("operation", operation), attribute.Bool("success", err == nil))
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}

	return err
}

// RecordAIOperation records the metrics of an AI call that already ran.
// Interview sessions report their calls this way after the fact.
func (m *Metrics) RecordAIOperation(ctx context.Context, operation string, duration time.Duration, usage *TokenUsage, err error, om *ObservabilityManager) {
	if m.AIProcessingTime == nil || !om.metricsEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	)
	m.AIProcessingTime.Record(ctx, duration.Seconds(), attrs)
	m.AIRequestCount.Add(ctx, 1, attrs)
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, attrs)
	}

	if usage == nil {
		return
	}
	for _, t := range []struct {
		kind  string
		value int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	} {
		m.AITokenUsage.Record(ctx, t.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("token_type", t.kind),
		))
	}
}

// RecordBusinessMetric increments the counter for metricType. Unknown types
// are ignored.
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, om *ObservabilityManager, attributes ...attribute.KeyValue) {
	if !om.metricsEnabled() {
		return
	}

	var counter metric.Int64Counter
	switch metricType {
	case MetricSessionStarted:
		counter = m.SessionsStarted
	case MetricQuestionAsked:
		counter = m.QuestionsAsked
	case MetricAnswerCritiqued:
		counter = m.AnswersCritiqued
	case MetricResumeUploaded:
		counter = m.ResumesUploaded
	case MetricResumeAnalyzed:
		counter = m.ResumesAnalyzed
	case MetricCacheHit:
		counter = m.CacheHits
	case MetricRateLimitHit:
		counter = m.RateLimitHits
	case MetricCertReload:
		counter = m.CertReloadCount
	}
	if counter == nil {
		return
	}

	attrs := append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (om *ObservabilityManager) metricsEnabled() bool {
	if om == nil || om.fullConfig == nil {
		return true
	}
	return om.fullConfig.Observability.Metrics.Enabled
}

func (om *ObservabilityManager) otlpEnabled() bool {
	return om.fullConfig != nil && om.fullConfig.Observability.OTLP.Enabled
}

type noOpSpanExporter struct{}

func (noOpSpanExporter) ExportSpans(context.Context, []trace.ReadOnlySpan) error { return nil }
func (noOpSpanExporter) Shutdown(context.Context) error                           { return nil }

func (om *ObservabilityManager) createOTLPExporter() (trace.SpanExporter, error) {
	otlp := om.fullConfig.Observability.OTLP

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(otlp.Endpoint)}
	if otlp.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlp.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlp.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

func (om *ObservabilityManager) createOTLPMetricsReader(interval time.Duration) (sdkmetric.Reader, error) {
	otlp := om.fullConfig.Observability.OTLP

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(otlp.Endpoint)}
	if otlp.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlp.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlp.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)), nil
}

func (om *ObservabilityManager) serviceInstanceID() string {
	if om.fullConfig != nil && om.fullConfig.Observability.ServiceInstance != "" {
		return om.fullConfig.Observability.ServiceInstance
	}
	return om.config.ServiceName + "-1"
}

func (om *ObservabilityManager) collectionInterval() time.Duration {
	if om.fullConfig != nil && om.fullConfig.Observability.Metrics.CollectionInterval > 0 {
		return om.fullConfig.Observability.Metrics.CollectionInterval
	}
	return 15 * time.Second
}
