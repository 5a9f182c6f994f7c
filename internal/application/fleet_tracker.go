package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ferrylink/service-fleet/internal/domain/position"
	sailingDomain "github.com/ferrylink/service-fleet/internal/domain/sailing"
)

// ErrFleetNotLoaded is returned while no refresh has succeeded yet.
var ErrFleetNotLoaded = errors.New("fleet has not been loaded")

// ActiveSailingLister loads the sailings drawn on the map.
type ActiveSailingLister interface {
	ListActive(ctx context.Context, from, to time.Time) ([]*sailingDomain.Sailing, error)
}

// TrackerConfig controls the refresh window and cadence of a FleetTracker.
type TrackerConfig struct {
	RefreshInterval time.Duration
	Lookback        time.Duration
	Lookahead       time.Duration
	TickInterval    time.Duration
}

// FerryPositionDTO is one ferry on the live map.
type FerryPositionDTO struct {
	SailingID     string  `json:"sailing_id"`
	Code          string  `json:"code"`
	VesselID      string  `json:"vessel_id"`
	Status        string  `json:"status"`
	DeparturePort string  `json:"departure_port"`
	ArrivalPort   string  `json:"arrival_port"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	Heading       float64 `json:"heading"`
	Progress      float64 `json:"progress"`
}

// FleetPositions is one batch of ferry positions.
type FleetPositions struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Ferries     []FerryPositionDTO `json:"ferries"`
}

// TrackerSnapshot reports the state of the last refresh.
type TrackerSnapshot struct {
	LastRefresh      time.Time     `json:"last_refresh"`
	RefreshDuration  time.Duration `json:"refresh_duration"`
	LastRefreshError string        `json:"last_refresh_error,omitempty"`
	FleetLoadedAt    time.Time     `json:"fleet_loaded_at"`
	Sailings         int           `json:"sailings"`
	Dropped          int           `json:"dropped"`
	Refreshes        uint64        `json:"refreshes"`
}

// fleetState pairs a fleet with the sailing details it was built from so
// readers never see one without the other.
type fleetState struct {
	fleet *position.Fleet
	meta  map[string]sailingMeta
}

type sailingMeta struct {
	code          string
	vesselID      string
	status        string
	departurePort string
	arrivalPort   string
}

// FleetTracker keeps the active-sailing snapshot fresh and serves memoized
// position batches from it.
type FleetTracker struct {
	repo   ActiveSailingLister
	clock  position.Clock
	view   *position.View
	cfg    TrackerConfig
	logger *zap.Logger

	mu       sync.RWMutex
	state    *fleetState
	snapshot TrackerSnapshot
}

// NewFleetTracker creates a FleetTracker. Nothing is loaded until Refresh runs.
func NewFleetTracker(repo ActiveSailingLister, clock position.Clock, cfg TrackerConfig, logger *zap.Logger) *FleetTracker {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &FleetTracker{
		repo:   repo,
		clock:  clock,
		view:   position.NewView(clock),
		cfg:    cfg,
		logger: logger,
	}
}

// RefreshLoop refreshes immediately and then every RefreshInterval until ctx
// is done. Failed refreshes keep the previous fleet.
func (t *FleetTracker) RefreshLoop(ctx context.Context) {
	_ = t.Refresh(ctx)

	ticker := time.NewTicker(t.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = t.Refresh(ctx)
		}
	}
}

// Refresh reloads the active sailings and publishes a new fleet snapshot.
func (t *FleetTracker) Refresh(ctx context.Context) error {
	start := time.Now()
	now := t.clock.Now()
	sailings, err := t.repo.ListActive(ctx, now.Add(-t.cfg.Lookback), now.Add(t.cfg.Lookahead))
	duration := time.Since(start)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.snapshot.LastRefresh = now
	t.snapshot.RefreshDuration = duration
	t.snapshot.Refreshes++

	if err != nil {
		t.snapshot.LastRefreshError = err.Error()
		t.logger.Error("fleet refresh failed", zap.Error(err))
		return err
	}

	tracks := make([]position.Sailing, len(sailings))
	meta := make(map[string]sailingMeta, len(sailings))
	for i, sl := range sailings {
		tracks[i] = sl.Track()
		meta[tracks[i].ID] = sailingMeta{
			code:          sl.Code(),
			vesselID:      sl.VesselID().String(),
			status:        string(sl.Status()),
			departurePort: sl.DeparturePort().Code,
			arrivalPort:   sl.ArrivalPort().Code,
		}
	}

	kept, dropped := position.WellFormed(tracks)
	for _, d := range dropped {
		t.logger.Warn("dropping malformed sailing",
			zap.String("sailing_id", d.ID),
			zap.String("code", meta[d.ID].code),
			zap.Time("departure", d.DepartureTime),
			zap.Time("arrival", d.ArrivalTime),
		)
	}

	t.state = &fleetState{fleet: position.NewFleet(kept, now), meta: meta}
	t.snapshot.LastRefreshError = ""
	t.snapshot.Dropped = len(dropped)

	t.logger.Debug("fleet refreshed",
		zap.Int("count", len(kept)),
		zap.Int("dropped", len(dropped)),
		zap.Int64("duration_ms", duration.Milliseconds()),
	)
	return nil
}

// Samples returns the current batch of samples and the tick instant it was
// computed for. Calls within the same tick on the same fleet share one batch.
func (t *FleetTracker) Samples() ([]position.Sample, time.Time, error) {
	samples, at, _, err := t.samples()
	return samples, at, err
}

func (t *FleetTracker) samples() ([]position.Sample, time.Time, *fleetState, error) {
	t.mu.RLock()
	state := t.state
	t.mu.RUnlock()

	if state == nil {
		return nil, time.Time{}, nil, ErrFleetNotLoaded
	}

	interval := int64(t.cfg.TickInterval)
	tick := t.clock.Now().UnixNano() / interval
	at := time.Unix(0, tick*interval).UTC()
	samples, err := t.view.SamplesAt(state.fleet, tick, at)
	if err != nil {
		return nil, time.Time{}, nil, err
	}
	return samples, at, state, nil
}

// Positions returns the current batch of ferry positions for the live map.
func (t *FleetTracker) Positions() (*FleetPositions, error) {
	samples, at, state, err := t.samples()
	if err != nil {
		return nil, err
	}

	ferries := make([]FerryPositionDTO, len(samples))
	for i, sm := range samples {
		m := state.meta[sm.Sailing.ID]
		ferries[i] = FerryPositionDTO{
			SailingID:     sm.Sailing.ID,
			Code:          m.code,
			VesselID:      m.vesselID,
			Status:        m.status,
			DeparturePort: m.departurePort,
			ArrivalPort:   m.arrivalPort,
			Lat:           sm.Position.Lat,
			Lng:           sm.Position.Lng,
			Heading:       sm.Heading,
			Progress:      sm.Progress,
		}
	}
	return &FleetPositions{GeneratedAt: at, Ferries: ferries}, nil
}

// Snapshot returns the state of the last refresh together with the fleet being
// served, which is older than LastRefresh when the last refresh failed.
func (t *FleetTracker) Snapshot() TrackerSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap := t.snapshot
	if t.state != nil {
		snap.FleetLoadedAt = t.state.fleet.FetchedAt()
		snap.Sailings = t.state.fleet.Len()
	}
	return snap
}

// Ready reports whether a fleet has been loaded. It satisfies health.Check.
func (t *FleetTracker) Ready(_ context.Context) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.state == nil {
		return ErrFleetNotLoaded
	}
	return nil
}
