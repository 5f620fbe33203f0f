package clients

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput    = errors.New("invalid client")
	ErrNotFound        = errors.New("client not found")
	ErrUnknownLocation = errors.New("unknown location")
	ErrUnknownService  = errors.New("unknown service")
)

// Input is the editable part of a client.
type Input struct {
	BusinessName string      `json:"business_name"`
	Address      string      `json:"address"`
	Postcode     string      `json:"postcode"`
	Country      string      `json:"country"`
	Lat          *float64    `json:"lat"`
	Lng          *float64    `json:"lang"`
	LocationID   *uuid.UUID  `json:"location_id"`
	ServiceIDs   []uuid.UUID `json:"service_ids"`
}

func validLat(v float64) bool { return v >= -90 && v <= 90 }
func validLng(v float64) bool { return v >= -180 && v <= 180 }

// normalize trims text fields, checks coordinates and collapses service
// ids into a sorted set.
func (in Input) normalize() (Input, error) {
	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.Address = strings.TrimSpace(in.Address)
	in.Postcode = strings.ToUpper(strings.Join(strings.Fields(in.Postcode), " "))
	in.Country = strings.TrimSpace(in.Country)

	if in.BusinessName == "" {
		return in, fmt.Errorf("%w: business_name is required", ErrInvalidInput)
	}
	if (in.Lat == nil) != (in.Lng == nil) {
		return in, fmt.Errorf("%w: lat and lang must be given together", ErrInvalidInput)
	}
	if in.Lat != nil && !validLat(*in.Lat) {
		return in, fmt.Errorf("%w: lat %v outside [-90, 90]", ErrInvalidInput, *in.Lat)
	}
	if in.Lng != nil && !validLng(*in.Lng) {
		return in, fmt.Errorf("%w: lang %v outside [-180, 180]", ErrInvalidInput, *in.Lng)
	}
	if in.LocationID != nil && *in.LocationID == uuid.Nil {
		in.LocationID = nil
	}
	in.ServiceIDs = uniqueSorted(in.ServiceIDs)
	return in, nil
}

// uniqueSorted drops nil and repeated ids. Sorting also fixes the order
// pair locks are taken in.
func uniqueSorted(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// postcodeArea returns the leading letters of a UK postcode ("SW1A 2AA"
// gives "SW").
func postcodeArea(postcode string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(postcode)) {
		if r < 'A' || r > 'Z' || b.Len() == 2 {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

func geocodeQuery(in Input) string {
	var parts []string
	for _, p := range []string{in.Address, in.Postcode, in.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
