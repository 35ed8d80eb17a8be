package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// NominatimGeocoder resolves place names through an OSM Nominatim endpoint.
// Requests are spaced MinInterval apart and results are cached per query.
type NominatimGeocoder struct {
	BaseURL      string
	UserAgent    string
	CountryCodes string
	MinInterval  time.Duration
	Client       *http.Client

	mu        sync.Mutex
	lastReqAt time.Time
	cache     map[string]Place
}

type nominatimItem struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}

func NewNominatim(baseURL string) *NominatimGeocoder {
	return &NominatimGeocoder{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		UserAgent:    "yatra-sevak",
		CountryCodes: "in",
		MinInterval:  time.Second,
		Client:       &http.Client{Timeout: 10 * time.Second},
		cache:        map[string]Place{},
	}
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (Place, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return Place{}, ErrNotFound
	}

	g.mu.Lock()
	if cached, ok := g.cache[key]; ok {
		g.mu.Unlock()
		return cached, nil
	}
	wait := time.Until(g.lastReqAt.Add(g.MinInterval))
	g.lastReqAt = time.Now()
	if wait > 0 {
		g.lastReqAt = g.lastReqAt.Add(wait)
	}
	g.mu.Unlock()

	if wait > 0 {
		select {
		case <-ctx.Done():
			return Place{}, ctx.Err()
		case <-time.After(wait):
		}
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	if g.CountryCodes != "" {
		params.Set("countrycodes", g.CountryCodes)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return Place{}, err
	}
	req.Header.Set("User-Agent", g.UserAgent)

	resp, err := g.Client.Do(req)
	if err != nil {
		return Place{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Place{}, fmt.Errorf("nominatim http error: %s", resp.Status)
	}

	var items []nominatimItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return Place{}, err
	}
	place, err := parseNominatimItems(items)
	if err != nil {
		return Place{}, err
	}

	g.mu.Lock()
	g.cache[key] = place
	g.mu.Unlock()
	return place, nil
}

func parseNominatimItems(items []nominatimItem) (Place, error) {
	if len(items) == 0 {
		return Place{}, ErrNotFound
	}
	lat, err := strconv.ParseFloat(items[0].Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("nominatim lat: %w", err)
	}
	lon, err := strconv.ParseFloat(items[0].Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("nominatim lon: %w", err)
	}
	if lat == 0 && lon == 0 && items[0].DisplayName == "" {
		return Place{}, ErrNotFound
	}
	return Place{
		Lat:         lat,
		Lon:         lon,
		DisplayName: items[0].DisplayName,
		Confidence:  items[0].Importance,
	}, nil
}
