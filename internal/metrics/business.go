package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome labels
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Domains
const (
	DomainAuth         = "auth"
	DomainIssuance     = "issuance"
	DomainVerification = "verification"
	DomainRevocation   = "revocation"
)

// BusinessMetrics records certificate lifecycle operations
type BusinessMetrics interface {
	// RecordOperation counts one operation. Issuance stages use the stage
	// name as operation.
	RecordOperation(ctx context.Context, domain, operation, status string)
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)
	// RecordFee adds the ether spent on a ledger write
	RecordFee(ctx context.Context, operation string, ether float64)
}

type businessMetrics struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
	feeCounter       metric.Float64Counter
}

// NewBusinessMetrics creates the instruments under namespace
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of certificate lifecycle operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of certificate lifecycle operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	feeCounter, err := meter.Float64Counter(
		fmt.Sprintf("%s_ledger_fees_eth_total", namespace),
		metric.WithDescription("Ether spent on ledger writes"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fee counter: %w", err)
	}

	return &businessMetrics{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
		feeCounter:       feeCounter,
	}, nil
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func (b *businessMetrics) RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string) {
	b.durationHisto.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func (b *businessMetrics) RecordFee(ctx context.Context, operation string, ether float64) {
	b.feeCounter.Add(ctx, ether, metric.WithAttributes(attribute.String("operation", operation)))
}

// NoOpBusinessMetrics is used when metrics are disabled
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

func (n *NoOpBusinessMetrics) RecordOperation(context.Context, string, string, string) {}

func (n *NoOpBusinessMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {}

func (n *NoOpBusinessMetrics) RecordFee(context.Context, string, float64) {}

// Status maps an error to an outcome label
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
