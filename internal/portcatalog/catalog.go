// Package portcatalog loads the harbours ferries sail between.
//
// The catalog is a YAML file:
//
//	ports:
//	  - code: TNTUN
//	    name: Tunis La Goulette
//	    country: TN
//	    lat: 36.8185
//	    lng: 10.3050
//
// Codes are UN/LOCODEs. Coordinates are validated against WGS84 ranges here,
// because the position calculator does not range-check them.
package portcatalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ferrylink/service-fleet/internal/domain/position"
	"github.com/ferrylink/service-fleet/internal/platform/apperror"
)

// Port is a harbour served by at least one route.
type Port struct {
	Code    string  `yaml:"code" json:"code" validate:"required,len=5,alphanum"`
	Name    string  `yaml:"name" json:"name" validate:"required"`
	Country string  `yaml:"country" json:"country" validate:"required,len=2"`
	Lat     float64 `yaml:"lat" json:"lat" validate:"gte=-90,lte=90"`
	Lng     float64 `yaml:"lng" json:"lng" validate:"gte=-180,lte=180"`
}

// Coordinate returns the port's position.
func (p Port) Coordinate() position.Coordinate {
	return position.Coordinate{Lat: p.Lat, Lng: p.Lng}
}

type file struct {
	Ports []Port `yaml:"ports" validate:"required,min=1,dive"`
}

// Catalog is an immutable, code-indexed set of ports.
type Catalog struct {
	byCode map[string]Port
}

// Load reads and validates the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read port catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse port catalog: %w", err)
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("invalid port catalog: %w", err)
	}

	c := &Catalog{byCode: make(map[string]Port, len(f.Ports))}
	for _, p := range f.Ports {
		p.Code = strings.ToUpper(p.Code)
		if _, dup := c.byCode[p.Code]; dup {
			return nil, fmt.Errorf("invalid port catalog: duplicate code %s", p.Code)
		}
		c.byCode[p.Code] = p
	}
	return c, nil
}

// Lookup returns the port with code, case-insensitively.
func (c *Catalog) Lookup(code string) (Port, error) {
	p, ok := c.byCode[strings.ToUpper(code)]
	if !ok {
		return Port{}, apperror.NewNotFoundError("Port", code)
	}
	return p, nil
}

// All returns every port sorted by code.
func (c *Catalog) All() []Port {
	out := make([]Port, 0, len(c.byCode))
	for _, p := range c.byCode {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Len returns the number of ports.
func (c *Catalog) Len() int { return len(c.byCode) }
