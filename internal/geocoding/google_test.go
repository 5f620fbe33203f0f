package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{
  "status": "OK",
  "results": [{
    "formatted_address": "10 Downing St, London SW1A 2AA, UK",
    "geometry": {"location": {"lat": 51.5033635, "lng": -0.1276248}},
    "address_components": [
      {"long_name": "SW1A 2AA", "short_name": "SW1A 2AA", "types": ["postal_code"]},
      {"long_name": "London", "short_name": "London", "types": ["postal_town"]},
      {"long_name": "United Kingdom", "short_name": "GB", "types": ["country", "political"]}
    ]
  }]
}`

func newTestClient(t *testing.T, status int, body string) (*Client, *url.URL) {
	t.Helper()
	seen := &url.URL{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = *r.URL
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient("test-key", 100, WithBaseURL(srv.URL)), seen
}

func TestNewClientWithoutKey(t *testing.T) {
	assert.Nil(t, NewClient("  ", 5))
}

func TestGeocode(t *testing.T) {
	c, seen := newTestClient(t, http.StatusOK, okBody)

	res, err := c.Geocode(context.Background(), "10 Downing Street")
	require.NoError(t, err)

	assert.Equal(t, "/geocode/json", seen.Path)
	assert.Equal(t, "10 Downing Street", seen.Query().Get("address"))
	assert.Equal(t, "test-key", seen.Query().Get("key"))
	assert.Equal(t, "uk", seen.Query().Get("region"))

	assert.Equal(t, "SW1A 2AA", res.Postcode)
	assert.Equal(t, "London", res.City)
	assert.Equal(t, "GB", res.Country)
	assert.InDelta(t, 51.5033635, res.Lat, 1e-9)
	assert.InDelta(t, -0.1276248, res.Lng, 1e-9)
}

func TestGeocodeZeroResults(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{"status":"ZERO_RESULTS","results":[]}`)

	_, err := c.Geocode(context.Background(), "nowhere at all")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestGeocodeDenied(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{"status":"REQUEST_DENIED","error_message":"bad key","results":[]}`)

	_, err := c.Geocode(context.Background(), "London")
	assert.ErrorIs(t, err, ErrRequestDenied)
}

func TestGeocodeEmptyAddress(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, okBody)

	_, err := c.Geocode(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyAddress)
}

func TestGeocodeCancelledContext(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, okBody)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Geocode(ctx, "London")
	assert.Error(t, err)
}
