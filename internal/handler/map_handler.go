package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ferrylink/service-fleet/internal/application"
	"github.com/ferrylink/service-fleet/internal/config"
	"github.com/ferrylink/service-fleet/internal/gtfsrt"
	"github.com/ferrylink/service-fleet/internal/live"
	"github.com/ferrylink/service-fleet/internal/platform/response"
	"github.com/ferrylink/service-fleet/internal/portcatalog"
)

// positionsResponse is the body of GET /api/v1/ferries/positions.
type positionsResponse struct {
	GeneratedAt time.Time                      `json:"generated_at"`
	Map         config.MapConfig               `json:"map"`
	Ferries     []application.FerryPositionDTO `json:"ferries"`
}

// MapHandler serves the public live-map endpoints.
type MapHandler struct {
	tracker *application.FleetTracker
	hub     *live.Hub
	ports   *portcatalog.Catalog
	mapCfg  config.MapConfig
}

// NewMapHandler creates a new MapHandler. The map configuration is handed to
// clients with every positions response.
func NewMapHandler(
	tracker *application.FleetTracker,
	hub *live.Hub,
	ports *portcatalog.Catalog,
	mapCfg config.MapConfig,
) *MapHandler {
	return &MapHandler{tracker: tracker, hub: hub, ports: ports, mapCfg: mapCfg}
}

// RegisterRoutes registers the public map routes.
func (h *MapHandler) RegisterRoutes(r *gin.RouterGroup) {
	ferries := r.Group("/api/v1/ferries")
	{
		ferries.GET("/positions", h.Positions)
		ferries.GET("/positions.pb", h.PositionsFeed)
		ferries.GET("/live", h.Live)
	}
	r.GET("/api/v1/ports", h.Ports)
}

// Positions handles GET /api/v1/ferries/positions.
func (h *MapHandler) Positions(c *gin.Context) {
	batch, err := h.tracker.Positions()
	if err != nil {
		h.positionsError(c, err)
		return
	}

	response.Success(c, positionsResponse{
		GeneratedAt: batch.GeneratedAt,
		Map:         h.mapCfg,
		Ferries:     batch.Ferries,
	})
}

// PositionsFeed handles GET /api/v1/ferries/positions.pb.
func (h *MapHandler) PositionsFeed(c *gin.Context) {
	samples, at, err := h.tracker.Samples()
	if err != nil {
		h.positionsError(c, err)
		return
	}

	body, err := gtfsrt.Encode(samples, at)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, gtfsrt.ContentType, body)
}

// Live handles GET /api/v1/ferries/live by upgrading to a websocket.
func (h *MapHandler) Live(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}

// Ports handles GET /api/v1/ports.
func (h *MapHandler) Ports(c *gin.Context) {
	response.Success(c, h.ports.All())
}

func (h *MapHandler) positionsError(c *gin.Context, err error) {
	if errors.Is(err, application.ErrFleetNotLoaded) {
		c.JSON(http.StatusServiceUnavailable, response.Envelope{Error: err.Error()})
		return
	}
	response.Error(c, err)
}
