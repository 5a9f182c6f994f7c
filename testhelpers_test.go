//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ferrylink/service-fleet/internal/application"
	"github.com/ferrylink/service-fleet/internal/domain/position"
	sailingDomain "github.com/ferrylink/service-fleet/internal/domain/sailing"
	fleetEvents "github.com/ferrylink/service-fleet/internal/events"
	"github.com/ferrylink/service-fleet/internal/platform/database"
	"github.com/ferrylink/service-fleet/internal/platform/kafka"
	"github.com/ferrylink/service-fleet/internal/portcatalog"
	"github.com/ferrylink/service-fleet/internal/repository"
)

const testCatalog = `
ports:
  - {code: TNTUN, name: Tunis, country: TN, lat: 36.80, lng: 10.18}
  - {code: FRMRS, name: Marseille, country: FR, lat: 43.31, lng: 5.37}
  - {code: ITGOA, name: Genoa, country: IT, lat: 44.41, lng: 8.93}
`

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// fleetStack holds wired-up fleet service components.
type fleetStack struct {
	Sailings        *application.SailingService
	Vessels         *application.VesselService
	Tracker         *application.FleetTracker
	Consumer        *fleetEvents.ScheduleEventConsumer
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers, applies the SQL
// migrations and returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_fleet",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dbConfig := database.PostgresConfig{
		Host:     pgHost,
		Port:     pgPort.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_fleet",
		SSLMode:  "disable",
	}

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = database.Connect(dbConfig, logger)
		return err == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(dbConfig.DatabaseURL(), "migrations", logger))

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers, sailingDomain.TopicSailingEvents, sailingDomain.TopicScheduleEvents)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupFleetStack wires up the full fleet service stack against clock.
func setupFleetStack(t *testing.T, db *gorm.DB, brokers []string, clock position.Clock) *fleetStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	catalog, err := portcatalog.Parse([]byte(testCatalog))
	require.NoError(t, err)

	sailingRepo := repository.NewGormSailingRepository(db)
	vesselRepo := repository.NewGormVesselRepository(db)
	producer := kafka.NewProducer(brokers, logger)

	sailingSvc := application.NewSailingService(sailingRepo, vesselRepo, catalog, producer, clock, logger)
	vesselSvc := application.NewVesselService(vesselRepo, logger)
	tracker := application.NewFleetTracker(sailingRepo, clock, application.TrackerConfig{
		RefreshInterval: time.Minute,
		Lookback:        24 * time.Hour,
		Lookahead:       2 * time.Hour,
		TickInterval:    time.Second,
	}, logger)
	sailingSvc.OnChange(func(ctx context.Context) { _ = tracker.Refresh(ctx) })

	groupID := fmt.Sprintf("test-fleet-%s", uuid.New().String()[:8])
	consumer := fleetEvents.NewScheduleEventConsumer(brokers, groupID, sailingSvc, logger)

	return &fleetStack{
		Sailings:        sailingSvc,
		Vessels:         vesselSvc,
		Tracker:         tracker,
		Consumer:        consumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// seedSailing registers a vessel and schedules a Tunis to Marseille crossing.
func seedSailing(t *testing.T, stack *fleetStack, code string, departure time.Time, duration time.Duration) *application.SailingDTO {
	t.Helper()
	ctx := context.Background()

	vessel, err := stack.Vessels.CreateVessel(ctx, application.CreateVesselRequest{
		Name:              "Carthage " + code,
		IMONumber:         testIMO(),
		Operator:          "CTN",
		PassengerCapacity: 2200,
		VehicleCapacity:   800,
	})
	require.NoError(t, err, "failed to seed vessel")

	sailing, err := stack.Sailings.CreateSailing(ctx, application.CreateSailingRequest{
		Code:               code,
		VesselID:           vessel.ID,
		DeparturePort:      "TNTUN",
		ArrivalPort:        "FRMRS",
		ScheduledDeparture: departure,
		ScheduledArrival:   departure.Add(duration),
	})
	require.NoError(t, err, "failed to seed sailing")
	return sailing
}

// testIMO returns a fresh IMO number with a valid check digit.
func testIMO() string {
	digits := fmt.Sprintf("%06d", time.Now().UnixNano()%1000000)
	sum := 0
	for i, r := range digits {
		sum += int(r-'0') * (7 - i)
	}
	return fmt.Sprintf("%s%d", digits, sum%10)
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEventWithKey(context.Background(), topic, ce.ID, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForSailing polls the sailings table until match accepts the row.
func waitForSailing(t *testing.T, db *gorm.DB, sailingID uuid.UUID, timeout time.Duration, match func(repository.SailingModel) bool) repository.SailingModel {
	t.Helper()
	var result repository.SailingModel
	require.Eventually(t, func() bool {
		var model repository.SailingModel
		if err := db.Where("id = ?", sailingID).First(&model).Error; err != nil {
			return false
		}
		if match(model) {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "sailing %s did not reach the expected state", sailingID)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
