// Package live pushes ferry position batches to connected map clients.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ferrylink/service-fleet/internal/application"
)

// PositionSource yields the current batch of ferry positions.
type PositionSource interface {
	Positions() (*application.FleetPositions, error)
}

// Sink receives every encoded batch.
type Sink interface {
	Name() string
	Send(ctx context.Context, payload []byte) error
}

// Broadcaster reads one batch per tick and fans it out to every sink.
type Broadcaster struct {
	source   PositionSource
	sinks    []Sink
	interval time.Duration
	logger   *zap.Logger
}

// NewBroadcaster creates a Broadcaster ticking every interval.
func NewBroadcaster(source PositionSource, interval time.Duration, logger *zap.Logger, sinks ...Sink) *Broadcaster {
	return &Broadcaster{
		source:   source,
		sinks:    sinks,
		interval: interval,
		logger:   logger,
	}
}

// Run broadcasts until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Broadcast(ctx)
		}
	}
}

// Broadcast sends the current batch to every sink once. A failing sink does
// not stop the others.
func (b *Broadcaster) Broadcast(ctx context.Context) {
	batch, err := b.source.Positions()
	if err != nil {
		if errors.Is(err, application.ErrFleetNotLoaded) {
			b.logger.Debug("skipping broadcast, fleet not loaded")
			return
		}
		b.logger.Error("failed to compute positions", zap.Error(err))
		return
	}

	payload, err := json.Marshal(batch)
	if err != nil {
		b.logger.Error("failed to encode positions", zap.Error(err))
		return
	}

	for _, sink := range b.sinks {
		if err := sink.Send(ctx, payload); err != nil {
			b.logger.Warn("sink send failed",
				zap.String("sink", sink.Name()),
				zap.Error(err),
			)
		}
	}
}
