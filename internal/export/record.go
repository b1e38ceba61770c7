// Package export ships toasts to external systems: an OTLP log collector
// over gRPC and a Kafka topic. Every sink implements alerts.Notifier and
// never blocks the caller.
package export

import (
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"

	"github.com/nixlim/mixwatch/internal/alerts"
	"github.com/nixlim/mixwatch/internal/readings"
)

const (
	serviceName = "mixwatch"
	scopeName   = "github.com/nixlim/mixwatch/internal/export"
)

// queueSize bounds the toasts buffered per sink before new ones are dropped.
const queueSize = 256

// LogRecord converts a toast to an OTLP log record.
func LogRecord(t alerts.Toast) *logspb.LogRecord {
	severity := logspb.SeverityNumber_SEVERITY_NUMBER_WARN
	if t.Tier == readings.TierCritical {
		severity = logspb.SeverityNumber_SEVERITY_NUMBER_ERROR
	}
	ts := uint64(t.CreatedAt.UnixNano())
	return &logspb.LogRecord{
		TimeUnixNano:         ts,
		ObservedTimeUnixNano: ts,
		SeverityNumber:       severity,
		SeverityText:         t.Tier.Label(),
		Body:                 stringValue(t.Message),
		Attributes: []*commonpb.KeyValue{
			{Key: "machine_id", Value: stringValue(t.MachineID)},
			{Key: "reading_id", Value: stringValue(t.ReadingID)},
			{Key: "fingerprint", Value: stringValue(t.Fingerprint)},
			{Key: "ratio", Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_DoubleValue{DoubleValue: t.Ratio}}},
			{Key: "tier", Value: stringValue(t.Tier.Key())},
		},
	}
}

// ResourceLogs wraps records in the mixwatch resource and scope.
func ResourceLogs(records ...*logspb.LogRecord) []*logspb.ResourceLogs {
	return []*logspb.ResourceLogs{{
		Resource: &resourcepb.Resource{
			Attributes: []*commonpb.KeyValue{
				{Key: "service.name", Value: stringValue(serviceName)},
			},
		},
		ScopeLogs: []*logspb.ScopeLogs{{
			Scope:      &commonpb.InstrumentationScope{Name: scopeName},
			LogRecords: records,
		}},
	}}
}

func stringValue(s string) *commonpb.AnyValue {
	return &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: s}}
}

