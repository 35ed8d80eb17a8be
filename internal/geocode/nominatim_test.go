package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		place, region, want string
	}{
		{"Junagadh", DefaultRegion, "Junagadh, Gujarat, India"},
		{"  Dakor ", DefaultRegion, "Dakor, Gujarat, India"},
		{"Rajkot, Gujarat", DefaultRegion, "Rajkot, Gujarat"},
		{"Surat", "", "Surat"},
		{"", DefaultRegion, ""},
	}
	for _, tt := range tests {
		if got := BuildQuery(tt.place, tt.region); got != tt.want {
			t.Fatalf("BuildQuery(%q, %q) = %q, want %q", tt.place, tt.region, got, tt.want)
		}
	}
}

func TestParseNominatimItems(t *testing.T) {
	items := []nominatimItem{
		{
			Lat:         "21.5222",
			Lon:         "70.4579",
			DisplayName: "Junagadh, Gujarat, India",
			Importance:  0.61,
		},
	}
	res, err := parseNominatimItems(items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Lat != 21.5222 || res.Lon != 70.4579 {
		t.Fatalf("unexpected coordinates: %+v", res)
	}
	if res.DisplayName != "Junagadh, Gujarat, India" || res.Confidence != 0.61 {
		t.Fatalf("unexpected place: %+v", res)
	}

	if _, err := parseNominatimItems(nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty result, got %v", err)
	}
	if _, err := parseNominatimItems([]nominatimItem{{Lat: "x", Lon: "1"}}); err == nil {
		t.Fatalf("expected error for bad latitude")
	}
}

func TestNominatimGeocoderCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/search" || r.URL.Query().Get("countrycodes") != "in" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing user agent")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"22.30","lon":"70.80","display_name":"Rajkot","importance":0.5}]`))
	}))
	defer srv.Close()

	g := NewNominatim(srv.URL + "/")
	g.MinInterval = time.Millisecond

	for i := 0; i < 2; i++ {
		p, err := g.Geocode(context.Background(), "Rajkot, Gujarat")
		if err != nil {
			t.Fatalf("geocode: %v", err)
		}
		if p.Lat != 22.30 || p.DisplayName != "Rajkot" {
			t.Fatalf("unexpected place %+v", p)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one upstream request, got %d", hits.Load())
	}
}

func TestNominatimGeocoderNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewNominatim(srv.URL)
	if _, err := g.Geocode(context.Background(), "Atlantis"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := g.Geocode(context.Background(), "  "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank query, got %v", err)
	}
}

func TestNominatimGeocoderUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewNominatim(srv.URL)
	_, err := g.Geocode(context.Background(), "Dwarka")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
