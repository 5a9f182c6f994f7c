//go:build integration

package main_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrylink/service-fleet/internal/domain/position"
	sailingDomain "github.com/ferrylink/service-fleet/internal/domain/sailing"
	"github.com/ferrylink/service-fleet/internal/repository"
)

// TestSailingDelayed_ReschedulesSailing verifies that a schedule.sailing_delayed
// event referencing a sailing by code moves its window in the database and is
// announced on sailing.events.
func TestSailingDelayed_ReschedulesSailing(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupFleetStack(t, infra.DB, infra.KafkaBrokers, position.SystemClock{})
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	departure := time.Now().UTC().Add(30 * time.Minute).Truncate(time.Second)
	sailing := seedSailing(t, stack, "TUN-MRS-DLY", departure, 20*time.Hour)

	// Start the consumer.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	evt := sailingDomain.ScheduleEvent{
		Code:         "TUN-MRS-DLY",
		DelayMinutes: 45,
		Reason:       "mistral",
	}
	publishTestEvent(t, infra.KafkaBrokers, sailingDomain.TopicScheduleEvents,
		"port-operations", sailingDomain.EventScheduleDelayed, evt)

	// Assert: the window moved by the delay.
	model := waitForSailing(t, infra.DB, sailing.ID, 15*time.Second, func(m repository.SailingModel) bool {
		return m.Version > sailing.Version
	})
	assert.True(t, departure.Add(45*time.Minute).Equal(model.ScheduledDeparture))
	assert.True(t, departure.Add(20*time.Hour+45*time.Minute).Equal(model.ScheduledArrival))
	assert.Equal(t, "scheduled", model.Status)

	// Assert: SailingRescheduledEvent on sailing.events.
	ce := consumeOneEvent(t, infra.KafkaBrokers, sailingDomain.TopicSailingEvents,
		sailingDomain.EventSailingRescheduled, 15*time.Second)

	var rescheduled sailingDomain.SailingRescheduledEvent
	require.NoError(t, ce.ParseData(&rescheduled))
	assert.Equal(t, sailing.ID, rescheduled.SailingID)
	assert.Equal(t, "TUN-MRS-DLY", rescheduled.Code)
	assert.True(t, departure.Add(45*time.Minute).Equal(rescheduled.ScheduledDeparture))
}

// TestSailingCancelled_LeavesLiveMap verifies that a cancellation from port
// operations is persisted and drops the ferry from the next positions batch.
func TestSailingCancelled_LeavesLiveMap(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupFleetStack(t, infra.DB, infra.KafkaBrokers, position.SystemClock{})
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	departure := time.Now().UTC().Add(-time.Hour)
	sailing := seedSailing(t, stack, "TUN-MRS-CXL", departure, 10*time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, stack.Tracker.Refresh(ctx))

	batch, err := stack.Tracker.Positions()
	require.NoError(t, err)
	require.Len(t, batch.Ferries, 1)
	assert.Equal(t, sailing.ID.String(), batch.Ferries[0].SailingID)
	assert.InDelta(t, 0.1, batch.Ferries[0].Progress, 0.01)

	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	evt := sailingDomain.ScheduleEvent{SailingID: &sailing.ID, Reason: "engine failure"}
	publishTestEvent(t, infra.KafkaBrokers, sailingDomain.TopicScheduleEvents,
		"port-operations", sailingDomain.EventScheduleCancelled, evt)

	model := waitForSailing(t, infra.DB, sailing.ID, 15*time.Second, func(m repository.SailingModel) bool {
		return m.Status == "cancelled"
	})
	assert.Equal(t, "engine failure", model.CancelNote)
	assert.NotNil(t, model.CancelledAt)

	// The write hook refreshed the tracker.
	require.Eventually(t, func() bool {
		batch, err := stack.Tracker.Positions()
		return err == nil && len(batch.Ferries) == 0
	}, 5*time.Second, 100*time.Millisecond)

	ce := consumeOneEvent(t, infra.KafkaBrokers, sailingDomain.TopicSailingEvents,
		sailingDomain.EventSailingCancelled, 15*time.Second)

	var cancelled sailingDomain.SailingStatusChangedEvent
	require.NoError(t, ce.ParseData(&cancelled))
	assert.Equal(t, sailing.ID, cancelled.SailingID)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "engine failure", cancelled.Reason)
}

// TestSailingRepository_ListActiveWindow checks the window and status filter
// against PostgreSQL.
func TestSailingRepository_ListActiveWindow(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupFleetStack(t, infra.DB, infra.KafkaBrokers, position.SystemClock{})
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	now := time.Now().UTC()
	current := seedSailing(t, stack, "CURRENT", now.Add(-time.Hour), 4*time.Hour)
	seedSailing(t, stack, "FAR-FUTURE", now.Add(48*time.Hour), 4*time.Hour)
	seedSailing(t, stack, "LONG-GONE", now.Add(-72*time.Hour), 4*time.Hour)
	cancelled := seedSailing(t, stack, "CANCELLED", now.Add(-time.Hour), 4*time.Hour)
	_, err := stack.Sailings.CancelSailing(context.Background(), cancelled.ID, "")
	require.NoError(t, err)

	repo := repository.NewGormSailingRepository(infra.DB)
	active, err := repo.ListActive(context.Background(), now.Add(-24*time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, current.ID, active[0].ID())

	// A stale copy loses the optimistic lock.
	stale, err := repo.FindByID(context.Background(), current.ID)
	require.NoError(t, err)
	_, err = stack.Sailings.DepartSailing(context.Background(), current.ID, nil)
	require.NoError(t, err)

	require.NoError(t, stale.Depart(now))
	stale.IncrementVersion()
	assert.Error(t, repo.Update(context.Background(), stale))
}
