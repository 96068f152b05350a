package tracing

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"
)

const (
	SpanTagComponent = "component"
	SpanTagFolder    = "folder"
	SpanTagHost      = "server.host"
)

const (
	SpanTagComponentSqliteRepository = "sqliteRepository"
	SpanTagComponentService          = "service"
	SpanTagComponentCronJob          = "cronJob"
)

func StartTracerSpan(ctx context.Context, operationName string) (opentracing.Span, context.Context) {
	parent := opentracing.SpanFromContext(ctx)
	if parent != nil {
		serverSpan := opentracing.GlobalTracer().StartSpan(operationName, opentracing.ChildOf(parent.Context()))
		return serverSpan, opentracing.ContextWithSpan(ctx, serverSpan)
	}
	serverSpan := opentracing.GlobalTracer().StartSpan(operationName)
	return serverSpan, opentracing.ContextWithSpan(ctx, serverSpan)
}

func TraceErr(span opentracing.Span, err error, fields ...log.Field) {
	if span == nil || err == nil {
		return
	}
	// Log the error with the fields
	ext.LogError(span, err, fields...)
}

func TagComponentSqliteRepository(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentSqliteRepository)
}

func TagComponentService(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentService)
}

func TagComponentCronJob(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentCronJob)
}
