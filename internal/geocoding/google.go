package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/metrics"
)

const DefaultBaseURL = "https://maps.googleapis.com/maps/api"

var (
	ErrNoResults     = errors.New("geocoding returned no results for address")
	ErrEmptyAddress  = errors.New("address is empty")
	ErrRequestDenied = errors.New("geocoding request denied")
)

// Result holds structured data from a Google Maps geocoding response.
type Result struct {
	Postcode  string  `json:"postcode"`
	City      string  `json:"city"`
	Country   string  `json:"country"` // ISO 3166-1 alpha-2
	Formatted string  `json:"formatted"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

// Client wraps the Google Maps Geocoding API.
type Client struct {
	apiKey  string
	http    *resty.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

type Option func(*Client)

// WithBaseURL points the client at another endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.http.SetBaseURL(strings.TrimRight(u, "/")) }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a geocoding client limited to rps requests per second.
// Returns nil if apiKey is empty (graceful degradation).
func NewClient(apiKey string, rps float64, opts ...Option) *Client {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	if rps <= 0 {
		rps = 5
	}

	c := &Client{
		apiKey: apiKey,
		http: resty.New().
			SetBaseURL(DefaultBaseURL).
			SetTimeout(5 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second).
			SetHeader("Accept", "application/json"),
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type geocodeResponse struct {
	Results      []geocodeResult `json:"results"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message"`
}

type geocodeResult struct {
	AddressComponents []addressComponent `json:"address_components"`
	FormattedAddress  string             `json:"formatted_address"`
	Geometry          struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// Geocode converts a free-form address into coordinates, biased to the UK.
func (c *Client) Geocode(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrEmptyAddress
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("geocoding rate limit: %w", err)
	}

	var body geocodeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"address": address,
			"region":  "uk",
			"key":     c.apiKey,
		}).
		SetResult(&body).
		Get("/geocode/json")
	if err != nil {
		metrics.IncGeocode(metrics.ResultError)
		return nil, fmt.Errorf("geocoding request: %w", err)
	}
	if resp.StatusCode() != 200 {
		metrics.IncGeocode(metrics.ResultError)
		return nil, fmt.Errorf("geocoding API returned HTTP %d", resp.StatusCode())
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		metrics.IncGeocode("not_found")
		return nil, ErrNoResults
	case "REQUEST_DENIED":
		metrics.IncGeocode(metrics.ResultError)
		return nil, fmt.Errorf("%w: %s", ErrRequestDenied, body.ErrorMessage)
	default:
		metrics.IncGeocode(metrics.ResultError)
		return nil, fmt.Errorf("geocoding failed: status=%s", body.Status)
	}
	if len(body.Results) == 0 {
		metrics.IncGeocode("not_found")
		return nil, ErrNoResults
	}

	first := body.Results[0]
	out := &Result{
		Formatted: first.FormattedAddress,
		Lat:       first.Geometry.Location.Lat,
		Lng:       first.Geometry.Location.Lng,
	}
	for _, comp := range first.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "postal_code":
				out.Postcode = comp.LongName
			case "postal_town":
				out.City = comp.LongName
			case "locality":
				if out.City == "" {
					out.City = comp.LongName
				}
			case "country":
				out.Country = comp.ShortName
			}
		}
	}

	metrics.IncGeocode("ok")
	c.log.Debug("geocoded address", zap.String("address", address), zap.Float64("lat", out.Lat), zap.Float64("lng", out.Lng))
	return out, nil
}
