package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/config"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/logger"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/telemetry"
)

// telemetryStack holds the OpenTelemetry providers owned by main
type telemetryStack struct {
	tracer   *telemetry.TracerProvider
	meter    *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
	// logger is the process logger, bridged to OTLP when log export is on
	logger *zap.Logger
}

// setupTelemetry starts tracing, metrics, log export and profiling.
// A provider that fails to start is logged and left disabled.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) *telemetryStack {
	t := &telemetryStack{logger: log}
	tc := cfg.Telemetry

	var err error
	t.tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
	}

	t.meter, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tc.Enabled && tc.MetricsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ExportInterval:    tc.MetricsInterval,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("Metrics disabled", zap.Error(err))
		t.meter, _ = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{}, log)
	}

	t.logs, err = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.Enabled && tc.LogsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("Log export disabled", zap.Error(err))
	} else {
		t.logger = t.logs.BridgeLogger(log, logger.ParseLevel(cfg.Log.Level))
	}

	t.profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         tc.ProfilingEnabled,
		ServerAddress:   tc.PyroscopeEndpoint,
		ApplicationName: tc.ServiceName,
	}, log)
	if err != nil {
		log.Warn("Profiling disabled", zap.Error(err))
	} else if tc.ProfilingEnabled && t.tracer != nil && t.tracer.IsEnabled() {
		if err := t.tracer.EnableSpanProfiles(); err != nil {
			log.Warn("Span profiles disabled", zap.Error(err))
		}
	}

	return t
}

// shutdown flushes every provider that started
func (t *telemetryStack) shutdown(log *zap.Logger) {
	ctx := context.Background()
	if t.profiler != nil {
		if err := t.profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}
	if t.logs != nil {
		_ = t.logs.Shutdown(ctx)
	}
	if t.meter != nil {
		_ = t.meter.Shutdown(ctx)
	}
	if t.tracer != nil {
		_ = t.tracer.Shutdown(ctx)
	}
}
