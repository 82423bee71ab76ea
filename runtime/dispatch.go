package runtime

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/pithecene-io/replaycast/adapter"
	"github.com/pithecene-io/replaycast/log"
	"github.com/pithecene-io/replaycast/metrics"
	"github.com/pithecene-io/replaycast/telemetry"
	"github.com/pithecene-io/replaycast/types"
)

// Dispatcher hands an artifact to each configured delivery adapter in order.
// Failures are recorded and never retried here; retry policy belongs to the
// adapter.
type Dispatcher struct {
	adapters  []adapter.Adapter
	logger    *log.Logger
	collector *metrics.Collector
}

// NewDispatcher creates a dispatcher. logger and collector may be nil.
func NewDispatcher(adapters []adapter.Adapter, logger *log.Logger, collector *metrics.Collector) *Dispatcher {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Dispatcher{
		adapters:  adapters,
		logger:    logger,
		collector: collector,
	}
}

// Channels returns the adapter names in dispatch order.
func (d *Dispatcher) Channels() []string {
	names := make([]string, len(d.adapters))
	for i, a := range d.adapters {
		names[i] = a.Name()
	}
	return names
}

// Dispatch delivers to every adapter and returns one outcome per adapter.
// A failing or panicking adapter does not prevent the others from running.
func (d *Dispatcher) Dispatch(ctx context.Context, delivery *adapter.Delivery) []types.DeliveryOutcome {
	outcomes := make([]types.DeliveryOutcome, 0, len(d.adapters))
	for _, a := range d.adapters {
		outcomes = append(outcomes, d.deliver(ctx, a, delivery))
	}
	return outcomes
}

func (d *Dispatcher) deliver(ctx context.Context, a adapter.Adapter, delivery *adapter.Delivery) types.DeliveryOutcome {
	channel := a.Name()
	ctx, span := telemetry.StartSpan(ctx, "replaycast.deliver",
		attribute.String("delivery.channel", channel),
		attribute.String("artifact.name", delivery.Artifact.Name),
	)
	defer span.End()

	err := safeDeliver(ctx, a, delivery)
	if err != nil {
		telemetry.RecordError(span, err)
		d.collector.IncDeliveryFailure(channel)
		d.logger.Error("delivery failed", map[string]any{
			"channel":  channel,
			"artifact": delivery.Artifact.Path,
			"error":    err.Error(),
		})
		return types.DeliveryOutcome{
			Channel: channel,
			Status:  types.DeliveryFailure,
			Reason:  err.Error(),
		}
	}

	d.collector.IncDeliverySuccess()
	d.logger.Info("artifact delivered", map[string]any{
		"channel":  channel,
		"artifact": delivery.Artifact.Path,
	})
	return types.DeliveryOutcome{Channel: channel, Status: types.DeliverySuccess}
}

// safeDeliver converts an adapter panic into an error.
func safeDeliver(ctx context.Context, a adapter.Adapter, delivery *adapter.Delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s adapter panicked: %v", a.Name(), r)
		}
	}()
	return a.Deliver(ctx, delivery)
}

// Close closes every adapter and joins their errors.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, a := range d.adapters {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", a.Name(), err))
		}
	}
	return errors.Join(errs...)
}
