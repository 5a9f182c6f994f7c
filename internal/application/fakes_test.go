package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	sailingDomain "github.com/ferrylink/service-fleet/internal/domain/sailing"
	vesselDomain "github.com/ferrylink/service-fleet/internal/domain/vessel"
	"github.com/ferrylink/service-fleet/internal/platform/apperror"
	"github.com/ferrylink/service-fleet/internal/platform/kafka"
	"github.com/ferrylink/service-fleet/internal/portcatalog"
)

var t0 = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fakeSailingRepo struct {
	mu       sync.Mutex
	sailings map[uuid.UUID]*sailingDomain.Sailing
	listErr  error
	lists    int
}

func newFakeSailingRepo() *fakeSailingRepo {
	return &fakeSailingRepo{sailings: map[uuid.UUID]*sailingDomain.Sailing{}}
}

func (r *fakeSailingRepo) FindByID(_ context.Context, id uuid.UUID) (*sailingDomain.Sailing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sailings[id]
	if !ok {
		return nil, apperror.NewNotFoundError("Sailing", id.String())
	}
	return s, nil
}

func (r *fakeSailingRepo) FindByCode(_ context.Context, code string) (*sailingDomain.Sailing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sailings {
		if s.Code() == code {
			return s, nil
		}
	}
	return nil, apperror.NewNotFoundError("Sailing", code)
}

func (r *fakeSailingRepo) ListActive(_ context.Context, from, to time.Time) ([]*sailingDomain.Sailing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*sailingDomain.Sailing
	for _, s := range r.sailings {
		if !s.Status().OnMap() {
			continue
		}
		if s.ScheduledDeparture().After(to) || s.ScheduledArrival().Before(from) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledDeparture().Before(out[j].ScheduledDeparture())
	})
	return out, nil
}

func (r *fakeSailingRepo) ListAll(_ context.Context, page, limit int) ([]*sailingDomain.Sailing, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sailingDomain.Sailing
	for _, s := range r.sailings {
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

func (r *fakeSailingRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int64{}
	for _, s := range r.sailings {
		counts[string(s.Status())]++
	}
	return counts, nil
}

func (r *fakeSailingRepo) Save(_ context.Context, s *sailingDomain.Sailing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sailings {
		if existing.Code() == s.Code() {
			return apperror.NewConflictError("duplicate code")
		}
	}
	r.sailings[s.ID()] = s
	return nil
}

func (r *fakeSailingRepo) Update(_ context.Context, s *sailingDomain.Sailing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sailings[s.ID()] = s
	return nil
}

func (r *fakeSailingRepo) put(s *sailingDomain.Sailing) {
	r.mu.Lock()
	r.sailings[s.ID()] = s
	r.mu.Unlock()
}

type fakeVesselRepo struct {
	mu      sync.Mutex
	vessels map[uuid.UUID]*vesselDomain.Vessel
}

func newFakeVesselRepo() *fakeVesselRepo {
	return &fakeVesselRepo{vessels: map[uuid.UUID]*vesselDomain.Vessel{}}
}

func (r *fakeVesselRepo) FindByID(_ context.Context, id uuid.UUID) (*vesselDomain.Vessel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vessels[id]
	if !ok {
		return nil, apperror.NewNotFoundError("Vessel", id.String())
	}
	return v, nil
}

func (r *fakeVesselRepo) FindByIMO(_ context.Context, imo string) (*vesselDomain.Vessel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.vessels {
		if v.IMONumber() == imo {
			return v, nil
		}
	}
	return nil, apperror.NewNotFoundError("Vessel", imo)
}

func (r *fakeVesselRepo) List(_ context.Context) ([]*vesselDomain.Vessel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*vesselDomain.Vessel
	for _, v := range r.vessels {
		out = append(out, v)
	}
	return out, nil
}

func (r *fakeVesselRepo) Save(_ context.Context, v *vesselDomain.Vessel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vessels[v.ID()] = v
	return nil
}

func (r *fakeVesselRepo) Update(ctx context.Context, v *vesselDomain.Vessel) error {
	return r.Save(ctx, v)
}

type publishedEvent struct {
	topic string
	key   string
	event kafka.CloudEvent
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	fail   bool
}

func (p *fakePublisher) PublishEventWithKey(_ context.Context, topic, key string, ce kafka.CloudEvent) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, key: key, event: ce})
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.event.Type
	}
	return out
}

const testCatalog = `
ports:
  - {code: TNTUN, name: Tunis, country: TN, lat: 36.80, lng: 10.18}
  - {code: FRMRS, name: Marseille, country: FR, lat: 43.31, lng: 5.37}
  - {code: ITGOA, name: Genoa, country: IT, lat: 44.40, lng: 8.92}
`

func newTestCatalog(t *testing.T) *portcatalog.Catalog {
	t.Helper()
	c, err := portcatalog.Parse([]byte(testCatalog))
	require.NoError(t, err)
	return c
}

type serviceFixture struct {
	svc       *SailingService
	sailings  *fakeSailingRepo
	vessels   *fakeVesselRepo
	publisher *fakePublisher
	clock     *fakeClock
	vessel    *vesselDomain.Vessel
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		sailings:  newFakeSailingRepo(),
		vessels:   newFakeVesselRepo(),
		publisher: &fakePublisher{},
		clock:     &fakeClock{now: t0},
	}
	v, err := vesselDomain.NewVessel("Carthage", "9074729", "CTN", 2200, 800)
	require.NoError(t, err)
	require.NoError(t, f.vessels.Save(context.Background(), v))
	f.vessel = v

	f.svc = NewSailingService(f.sailings, f.vessels, newTestCatalog(t), f.publisher, f.clock, zap.NewNop())
	return f
}

func (f *serviceFixture) create(t *testing.T, code string, dep time.Time, d time.Duration) *SailingDTO {
	t.Helper()
	dto, err := f.svc.CreateSailing(context.Background(), CreateSailingRequest{
		Code:               code,
		VesselID:           f.vessel.ID(),
		DeparturePort:      "TNTUN",
		ArrivalPort:        "FRMRS",
		ScheduledDeparture: dep,
		ScheduledArrival:   dep.Add(d),
	})
	require.NoError(t, err)
	return dto
}
