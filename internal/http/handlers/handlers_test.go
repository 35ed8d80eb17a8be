package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/yatra_sevak/backend/internal/calendar"
	"github.com/yatra_sevak/backend/internal/crowd"
	"github.com/yatra_sevak/backend/internal/events"
	"github.com/yatra_sevak/backend/internal/forecast"
	"github.com/yatra_sevak/backend/internal/geocode"
	"github.com/yatra_sevak/backend/internal/models"
	"github.com/yatra_sevak/backend/internal/service"
)

type stubGeocoder map[string]geocode.Place

func (g stubGeocoder) Geocode(_ context.Context, query string) (geocode.Place, error) {
	p, ok := g[query]
	if !ok {
		return geocode.Place{}, geocode.ErrNotFound
	}
	return p, nil
}

type baseForecaster struct{}

func (baseForecaster) Forecast(_ context.Context, site models.Site, start time.Time, days int) ([]models.ForecastPoint, error) {
	if days <= 0 {
		return nil, forecast.ErrInvalidHorizon
	}
	var out []models.ForecastPoint
	for _, d := range forecast.Horizon(start, days) {
		out = append(out, models.ForecastPoint{Date: d, PredictedFootfall: site.BaseFootfall})
	}
	return out, nil
}

func (baseForecaster) Model(context.Context, int) (*forecast.Model, error) {
	return nil, forecast.ErrModelNotFitted
}

func newTestHandler(t *testing.T) (*Handler, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sites, err := service.NewSiteRegistry(models.DefaultSites())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	state := service.NewAppState(0)
	clock := calendar.FixedClock{Day: time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC), Frozen: true}
	hub := events.NewHub(zerolog.Nop())

	h := &Handler{
		Queue: &service.QueueService{
			Sites:            sites,
			Forecaster:       baseForecaster{},
			Policy:           service.DefaultPolicy(),
			State:            state,
			Clock:            clock,
			Events:           hub,
			Archive:          service.NopArchive{},
			Logger:           zerolog.Nop(),
			SurgeMultiplier:  2,
			SurgeHorizonDays: 7,
		},
		Safety: &service.SafetyService{
			Sites:     sites,
			State:     state,
			Simulator: crowd.NewSimulator(1),
			Clock:     clock,
			Events:    hub,
			Archive:   service.NopArchive{},
			Logger:    zerolog.Nop(),
		},
		Hub:       hub,
		Validator: validator.New(),
		Logger:    zerolog.Nop(),
	}

	r := gin.New()
	r.GET("/api/live", h.Live)
	r.GET("/api/sites", h.SitesList)
	r.GET("/api/sites/nearest", h.SiteNearest)
	r.GET("/api/sites/:id/forecast", h.SiteForecast)
	r.GET("/api/sites/:id/queue", h.QueueStatus)
	r.POST("/api/sites/:id/queue", h.QueueJoin)
	r.POST("/api/sites/:id/sos", h.SOS)
	r.GET("/api/passes/:id", h.PassDetails)
	r.GET("/api/passes/:id/progress", h.PassProgress)
	r.GET("/api/surge", h.SurgeStatus)
	r.POST("/api/admin/passes/priority", h.PassesPriority)
	r.POST("/api/admin/passes/cancel", h.PassesCancel)
	r.POST("/api/admin/passes/:id/call", h.PassCall)
	r.PUT("/api/admin/surge", h.SurgeSet)
	r.POST("/api/admin/sites/:id/surge/evaluate", h.SurgeEvaluate)
	r.GET("/api/admin/sites/:id/importances", h.SiteImportances)
	r.GET("/api/admin/sites/:id/alerts", h.AlertsList)
	r.POST("/api/admin/sites/:id/alerts/dispatch", h.AlertsDispatch)
	r.POST("/api/admin/sites/:id/scan", h.SiteScan)
	r.GET("/api/admin/sites/:id/history", h.SiteHistory)
	r.GET("/api/admin/queue/export", h.QueueExport)
	return h, r
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, w.Code, w.Body.String())
	}
	if got := decode[errorBody](t, w).Error.Code; got != code {
		t.Fatalf("expected code %s, got %s", code, got)
	}
}

func TestJoinQueueEndpoint(t *testing.T) {
	_, r := newTestHandler(t)

	w := do(t, r, http.MethodPost, "/api/sites/somnath/queue", `{"user_id":"p1","lang":"gu"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[JoinQueueResponse](t, w)
	if resp.Pass.EstimatedWaitMinutes != 30 || resp.Pass.SlotClass != models.SlotFree || resp.Pass.Lang != "gu" {
		t.Fatalf("unexpected pass %+v", resp.Pass)
	}
	if !strings.HasPrefix(resp.Token, "Pass:somnath-Userp1|PassID:"+resp.Pass.PassID) {
		t.Fatalf("unexpected token %q", resp.Token)
	}
	if !strings.Contains(resp.Message, "30") || !strings.Contains(resp.Message, "09:30") {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	w = do(t, r, http.MethodGet, "/api/sites/somnath/queue", "")
	if w.Code != http.StatusOK || decode[map[string]any](t, w)["count"].(float64) != 1 {
		t.Fatalf("unexpected queue status %s", w.Body.String())
	}
}

func TestJoinQueueErrors(t *testing.T) {
	_, r := newTestHandler(t)
	expectError(t, do(t, r, http.MethodPost, "/api/sites/kashi/queue", `{}`), http.StatusNotFound, "UNKNOWN_SITE")
	expectError(t, do(t, r, http.MethodPost, "/api/sites/somnath/queue", `{"lang":"fr"}`), http.StatusBadRequest, "VALIDATION_ERROR")
	expectError(t, do(t, r, http.MethodPost, "/api/sites/somnath/queue", `not json`), http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestJoinQueueWithoutBody(t *testing.T) {
	_, r := newTestHandler(t)
	w := do(t, r, http.MethodPost, "/api/sites/somnath/queue", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 for bodyless join, got %d: %s", w.Code, w.Body.String())
	}
	p := decode[JoinQueueResponse](t, w).Pass
	if p.UserID != "U1" || p.Lang != "en" || p.EstimatedWaitMinutes != 30 {
		t.Fatalf("unexpected default pass %+v", p)
	}
}

func TestSiteHistoryValidatesLimit(t *testing.T) {
	_, r := newTestHandler(t)
	for _, q := range []string{"abc", "0", "5000"} {
		expectError(t, do(t, r, http.MethodGet, "/api/admin/sites/somnath/history?limit="+q, ""), http.StatusBadRequest, "VALIDATION_ERROR")
	}
	expectError(t, do(t, r, http.MethodGet, "/api/admin/sites/somnath/history?limit=10", ""), http.StatusServiceUnavailable, "ARCHIVE_DISABLED")
}

func TestForecastEndpoint(t *testing.T) {
	_, r := newTestHandler(t)

	w := do(t, r, http.MethodGet, "/api/sites/dwarka/forecast?days=3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode[struct {
		Points []models.ForecastPoint `json:"points"`
	}](t, w)
	if len(body.Points) != 3 || body.Points[0].PredictedFootfall != 25000 {
		t.Fatalf("unexpected points %+v", body.Points)
	}

	expectError(t, do(t, r, http.MethodGet, "/api/sites/dwarka/forecast?days=0", ""), http.StatusBadRequest, "VALIDATION_ERROR")
	expectError(t, do(t, r, http.MethodGet, "/api/sites/dwarka/forecast?days=abc", ""), http.StatusBadRequest, "VALIDATION_ERROR")
	expectError(t, do(t, r, http.MethodGet, "/api/sites/nowhere/forecast", ""), http.StatusNotFound, "UNKNOWN_SITE")
	expectError(t, do(t, r, http.MethodGet, "/api/admin/sites/dwarka/importances", ""), http.StatusServiceUnavailable, "FORECAST_UNAVAILABLE")
}

func TestNearestEndpoint(t *testing.T) {
	_, r := newTestHandler(t)
	w := do(t, r, http.MethodGet, "/api/sites/nearest?lat=24.3&lon=72.8", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode[service.NearestSite](t, w); got.Site.ID != "ambaji" {
		t.Fatalf("expected ambaji, got %+v", got)
	}
	expectError(t, do(t, r, http.MethodGet, "/api/sites/nearest?lat=24.3", ""), http.StatusBadRequest, "VALIDATION_ERROR")
	expectError(t, do(t, r, http.MethodGet, "/api/sites/nearest?lat=124&lon=0", ""), http.StatusBadRequest, "VALIDATION_ERROR")
	expectError(t, do(t, r, http.MethodGet, "/api/sites/nearest?q=Junagadh", ""), http.StatusServiceUnavailable, "GEOCODER_DISABLED")
}

func TestNearestByPlace(t *testing.T) {
	h, r := newTestHandler(t)
	h.Geocoder = stubGeocoder{
		"Junagadh, Gujarat, India": {Lat: 21.52, Lon: 70.46, DisplayName: "Junagadh"},
	}

	w := do(t, r, http.MethodGet, "/api/sites/nearest?q=Junagadh", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decode[struct {
		Site  models.Site   `json:"site"`
		Place geocode.Place `json:"place"`
	}](t, w)
	if body.Site.ID != "somnath" || body.Place.DisplayName != "Junagadh" {
		t.Fatalf("unexpected nearest %+v", body)
	}

	expectError(t, do(t, r, http.MethodGet, "/api/sites/nearest?q=Atlantis", ""), http.StatusNotFound, "PLACE_NOT_FOUND")
}

func TestPassLifecycleEndpoints(t *testing.T) {
	_, r := newTestHandler(t)
	a := decode[JoinQueueResponse](t, do(t, r, http.MethodPost, "/api/sites/ambaji/queue", `{}`)).Pass
	b := decode[JoinQueueResponse](t, do(t, r, http.MethodPost, "/api/sites/ambaji/queue", `{}`)).Pass

	w := do(t, r, http.MethodGet, "/api/passes/"+a.PassID+"/progress", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if p := decode[models.Progress](t, w); p.PercentComplete != 0 || p.RemainingMinutes != 30 {
		t.Fatalf("unexpected progress %+v", p)
	}
	expectError(t, do(t, r, http.MethodGet, "/api/passes/nope/progress", ""), http.StatusNotFound, "UNKNOWN_PASS")

	w = do(t, r, http.MethodPost, "/api/admin/passes/priority", `{"pass_ids":["`+a.PassID+`","ghost"]}`)
	res := decode[service.BulkResult](t, w)
	if res.Matched != 1 || len(res.Unmatched) != 1 {
		t.Fatalf("unexpected priority result %+v", res)
	}
	expectError(t, do(t, r, http.MethodPost, "/api/admin/passes/priority", `{"pass_ids":[]}`), http.StatusBadRequest, "VALIDATION_ERROR")

	w = do(t, r, http.MethodPost, "/api/admin/passes/"+a.PassID+"/call", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	expectError(t, do(t, r, http.MethodPost, "/api/admin/passes/"+a.PassID+"/call", ""), http.StatusConflict, "INVALID_STATE")

	w = do(t, r, http.MethodPost, "/api/admin/passes/cancel", `{"pass_ids":["`+b.PassID+`"]}`)
	if res := decode[service.BulkResult](t, w); res.Matched != 1 {
		t.Fatalf("unexpected cancel result %+v", res)
	}
	expectError(t, do(t, r, http.MethodGet, "/api/passes/"+b.PassID, ""), http.StatusNotFound, "UNKNOWN_PASS")

	w = do(t, r, http.MethodGet, "/api/passes/"+a.PassID, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"Called"`) {
		t.Fatalf("unexpected pass details %s", w.Body.String())
	}
}

func TestSurgeEndpoints(t *testing.T) {
	h, r := newTestHandler(t)
	defer h.Queue.State.SetSurgeActive(false)

	w := do(t, r, http.MethodGet, "/api/surge", "")
	if body := decode[map[string]any](t, w); body["active"] != false || body["message"] != nil {
		t.Fatalf("unexpected surge status %v", body)
	}

	expectError(t, do(t, r, http.MethodPut, "/api/admin/surge", `{}`), http.StatusBadRequest, "VALIDATION_ERROR")
	w = do(t, r, http.MethodPut, "/api/admin/surge", `{"active":true}`)
	if w.Code != http.StatusOK || !h.Queue.SurgeActive() {
		t.Fatalf("surge not set: %d %s", w.Code, w.Body.String())
	}

	w = do(t, r, http.MethodGet, "/api/surge?lang=en", "")
	if body := decode[map[string]any](t, w); body["message"] != "Surge Forecast: Limiting Slots" {
		t.Fatalf("unexpected surge status %v", body)
	}

	w = do(t, r, http.MethodPost, "/api/sites/somnath/queue", `{"priority":true}`)
	if p := decode[JoinQueueResponse](t, w).Pass; p.EstimatedWaitMinutes != 48 || p.SlotClass != models.SlotPaid {
		t.Fatalf("expected 48 min Paid during surge, got %+v", p)
	}

	w = do(t, r, http.MethodPost, "/api/admin/sites/somnath/surge/evaluate?apply=true", "")
	if ev := decode[service.SurgeEvaluation](t, w); ev.Surge || ev.Applied || len(ev.Points) != 7 {
		t.Fatalf("flat forecast should not surge: %+v", ev)
	}
	expectError(t, do(t, r, http.MethodPost, "/api/admin/sites/somnath/surge/evaluate?apply=maybe", ""), http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestSafetyEndpoints(t *testing.T) {
	_, r := newTestHandler(t)

	w := do(t, r, http.MethodPost, "/api/sites/pavagadh/sos", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	sos := decode[service.SOSResult](t, w)
	if sos.SOS.Kind != models.AlertSOS || sos.Dispatch.Kind != models.AlertDispatch {
		t.Fatalf("unexpected sos %+v", sos)
	}
	expectError(t, do(t, r, http.MethodPost, "/api/sites/pavagadh/sos", `{"location":"Roof"}`), http.StatusBadRequest, "VALIDATION_ERROR")

	w = do(t, r, http.MethodGet, "/api/admin/sites/pavagadh/alerts", "")
	if n := len(decode[map[string][]models.Alert](t, w)["items"]); n != 2 {
		t.Fatalf("expected 2 alerts, got %d", n)
	}

	w = do(t, r, http.MethodPost, "/api/admin/sites/pavagadh/alerts/dispatch", "")
	if d := decode[service.DispatchResult](t, w); d.Dispatched != 2 {
		t.Fatalf("unexpected dispatch %+v", d)
	}

	w = do(t, r, http.MethodPost, "/api/admin/sites/pavagadh/scan?ticks=6", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if scan := decode[service.ScanResult](t, w); len(scan.Readings) != 6 || scan.ParkingCapacity != 2 {
		t.Fatalf("unexpected scan %+v", scan)
	}
	expectError(t, do(t, r, http.MethodPost, "/api/admin/sites/pavagadh/scan?ticks=500", ""), http.StatusBadRequest, "VALIDATION_ERROR")
	expectError(t, do(t, r, http.MethodGet, "/api/admin/sites/pavagadh/history", ""), http.StatusServiceUnavailable, "ARCHIVE_DISABLED")
}

func TestQueueExportEndpoint(t *testing.T) {
	_, r := newTestHandler(t)
	do(t, r, http.MethodPost, "/api/sites/dwarka/queue", `{"user_id":"x"}`)

	w := do(t, r, http.MethodGet, "/api/admin/queue/export?site=dwarka", "")
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("unexpected export response %d %v", w.Code, w.Header())
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "pass_id,") {
		t.Fatalf("unexpected csv %q", w.Body.String())
	}
	expectError(t, do(t, r, http.MethodGet, "/api/admin/queue/export?site=kashi", ""), http.StatusNotFound, "UNKNOWN_SITE")
}

func TestLiveStreamsEvents(t *testing.T) {
	h, r := newTestHandler(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/live?site=dwarka"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello map[string]any
	if err := conn.ReadJSON(&hello); err != nil || hello["type"] != "hello" {
		t.Fatalf("expected hello, got %v %v", hello, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.Hub.Subscribers() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	body := bytes.NewBufferString(`{}`)
	resp, err := http.Post(srv.URL+"/api/sites/somnath/queue", "application/json", body)
	if err != nil {
		t.Fatalf("join somnath: %v", err)
	}
	resp.Body.Close()
	resp, err = http.Post(srv.URL+"/api/sites/dwarka/queue", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatalf("join dwarka: %v", err)
	}
	resp.Body.Close()

	var e events.Event
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if e.Type != events.PassIssued || e.SiteID != "dwarka" {
		t.Fatalf("expected dwarka pass event only, got %+v", e)
	}
}
