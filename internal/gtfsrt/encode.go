// Package gtfsrt exports ferry positions as a GTFS-realtime VehiclePositions feed.
package gtfsrt

import (
	"fmt"
	"time"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/ferrylink/service-fleet/internal/domain/position"
)

// ContentType is the media type of an encoded feed.
const ContentType = "application/x-protobuf"

const specVersion = "2.0"

// Feed builds a FULL_DATASET feed with one VehiclePosition entity per sample,
// in sample order. Trip and entity IDs are the sailing ID.
func Feed(samples []position.Sample, ts time.Time) *gtfsrtpb.FeedMessage {
	stamp := uint64(ts.Unix())
	fm := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: proto.String(specVersion),
			Incrementality:      gtfsrtpb.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(stamp),
		},
		Entity: make([]*gtfsrtpb.FeedEntity, 0, len(samples)),
	}

	for _, s := range samples {
		status := gtfsrtpb.VehiclePosition_IN_TRANSIT_TO
		if s.Progress <= 0 || s.Progress >= 1 {
			status = gtfsrtpb.VehiclePosition_STOPPED_AT
		}
		// Headings just below 360 round up to 360 in float32.
		bearing := float32(s.Heading)
		if bearing >= 360 {
			bearing = 0
		}
		fm.Entity = append(fm.Entity, &gtfsrtpb.FeedEntity{
			Id: proto.String(s.Sailing.ID),
			Vehicle: &gtfsrtpb.VehiclePosition{
				Trip: &gtfsrtpb.TripDescriptor{
					TripId: proto.String(s.Sailing.ID),
				},
				Position: &gtfsrtpb.Position{
					Latitude:  proto.Float32(float32(s.Position.Lat)),
					Longitude: proto.Float32(float32(s.Position.Lng)),
					Bearing:   proto.Float32(bearing),
				},
				CurrentStatus: status.Enum(),
				Timestamp:     proto.Uint64(stamp),
			},
		})
	}
	return fm
}

// Encode marshals the feed for samples at ts.
func Encode(samples []position.Sample, ts time.Time) ([]byte, error) {
	b, err := proto.Marshal(Feed(samples, ts))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gtfs-rt feed: %w", err)
	}
	return b, nil
}
