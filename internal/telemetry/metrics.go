package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records journey outcomes. The zero value is not usable; build one with NewMetrics.
type Metrics struct {
	started   metric.Int64Counter
	phases    metric.Int64Counter
	completed metric.Int64Counter
	dismissed metric.Int64Counter
	principal metric.Int64Histogram
	tenure    metric.Int64Histogram
}

// NewMetrics creates the journey instruments on meter. A nil meter uses the global provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter("gitlab.com/yelinaung/tripfund-bot/journey")
	}

	var m Metrics
	var err error
	if m.started, err = meter.Int64Counter("tripfund.journeys.started",
		metric.WithDescription("Journeys opened")); err != nil {
		return nil, err
	}
	if m.phases, err = meter.Int64Counter("tripfund.journeys.phase_reached",
		metric.WithDescription("Journeys entering a phase")); err != nil {
		return nil, err
	}
	if m.completed, err = meter.Int64Counter("tripfund.journeys.completed",
		metric.WithDescription("Loans disbursed")); err != nil {
		return nil, err
	}
	if m.dismissed, err = meter.Int64Counter("tripfund.journeys.dismissed",
		metric.WithDescription("Journeys dismissed before disbursement")); err != nil {
		return nil, err
	}
	if m.principal, err = meter.Int64Histogram("tripfund.loans.principal",
		metric.WithDescription("Disbursed principal"),
		metric.WithUnit("{INR}")); err != nil {
		return nil, err
	}
	if m.tenure, err = meter.Int64Histogram("tripfund.loans.tenure",
		metric.WithDescription("Disbursed tenure"),
		metric.WithUnit("mo"),
		metric.WithExplicitBucketBoundaries(6, 12, 18, 24, 36, 48, 60)); err != nil {
		return nil, err
	}
	return &m, nil
}

// JourneyStarted counts a new journey for persona.
func (m *Metrics) JourneyStarted(ctx context.Context, persona string) {
	m.started.Add(ctx, 1, metric.WithAttributes(attribute.String("persona", persona)))
}

// PhaseReached counts a journey entering phase.
func (m *Metrics) PhaseReached(ctx context.Context, phase string) {
	m.phases.Add(ctx, 1, metric.WithAttributes(attribute.String("phase", phase)))
}

// Completed records a disbursement.
func (m *Metrics) Completed(ctx context.Context, destination string, principal decimal.Decimal, tenureMonths int) {
	attrs := metric.WithAttributes(attribute.String("destination", destination))
	m.completed.Add(ctx, 1, attrs)
	m.principal.Record(ctx, principal.IntPart(), attrs)
	m.tenure.Record(ctx, int64(tenureMonths))
}

// Dismissed records a dismissal in phase; saved reports whether an offer was kept.
func (m *Metrics) Dismissed(ctx context.Context, phase string, saved bool) {
	m.dismissed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", phase),
		attribute.Bool("saved_offer", saved),
	))
}
