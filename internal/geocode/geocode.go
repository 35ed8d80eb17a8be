package geocode

import (
	"context"
	"errors"
	"strings"
)

var ErrNotFound = errors.New("place not found")

// DefaultRegion narrows free-text lookups to the state the sites are in.
const DefaultRegion = "Gujarat, India"

type Place struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name"`
	Confidence  float64 `json:"confidence"`
}

type Geocoder interface {
	Geocode(ctx context.Context, query string) (Place, error)
}

// BuildQuery appends region unless the caller already named it.
func BuildQuery(place, region string) string {
	place = strings.TrimSpace(place)
	region = strings.TrimSpace(region)
	if place == "" {
		return ""
	}
	if region == "" || strings.Contains(strings.ToLower(place), strings.ToLower(strings.SplitN(region, ",", 2)[0])) {
		return place
	}
	return place + ", " + region
}
