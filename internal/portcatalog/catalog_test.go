package portcatalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferrylink/service-fleet/internal/platform/apperror"
)

const sample = `
ports:
  - code: TNTUN
    name: Tunis La Goulette
    country: TN
    lat: 36.8185
    lng: 10.3050
  - code: frmrs
    name: Marseille
    country: FR
    lat: 43.3120
    lng: 5.3660
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	p, err := c.Lookup("frMRS")
	require.NoError(t, err)
	assert.Equal(t, "FRMRS", p.Code)
	assert.Equal(t, 43.3120, p.Coordinate().Lat)

	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, "FRMRS", all[0].Code)
	assert.Equal(t, "TNTUN", all[1].Code)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "ports: [::"},
		{"no ports", "ports: []"},
		{"latitude out of range", "ports:\n  - {code: TNTUN, name: T, country: TN, lat: 96, lng: 10}\n"},
		{"short code", "ports:\n  - {code: TUN, name: T, country: TN, lat: 36, lng: 10}\n"},
		{"duplicate", "ports:\n  - {code: TNTUN, name: T, country: TN, lat: 36, lng: 10}\n  - {code: tntun, name: T, country: TN, lat: 36, lng: 10}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLookup_Unknown(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	_, err = c.Lookup("ESBCN")
	assert.True(t, apperror.IsNotFound(err))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ports.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
