package handler_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/stevemurr/poi-editor-server/config"
	"github.com/stevemurr/poi-editor-server/geojson"
	"github.com/stevemurr/poi-editor-server/handler"
	"github.com/stevemurr/poi-editor-server/poi"
	"github.com/stevemurr/poi-editor-server/store"
)

const importBody = `{"type":"FeatureCollection","features":[
	{"type":"Feature","geometry":{"type":"Point","coordinates":[-75.57,6.25]},"properties":{"name":"A","category":"x"}},
	{"type":"Feature","geometry":{"type":"Point","coordinates":[200,6.25]},"properties":{"name":"B","category":"y"}}
]}`

func setupWithStore(t *testing.T, s store.Store) (*httptest.Server, *poi.Manager) {
	t.Helper()
	logger := zerolog.Nop()
	m := poi.NewManager(context.Background(), s, poi.WithLogger(logger))
	h := handler.New(m, handler.Options{Map: config.Default().Map, Logger: &logger})
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts, m
}

func setup(t *testing.T) (*httptest.Server, *poi.Manager) {
	t.Helper()
	return setupWithStore(t, store.NewMemoryStore())
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func decodeJSON(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var v map[string]any
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func decodeCollection(t *testing.T, r io.Reader) geojson.Collection {
	t.Helper()
	var c geojson.Collection
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		t.Fatal(err)
	}
	return c
}

func do(t *testing.T, method, url string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRootAndHealth(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodGet, ts.URL+"/", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeJSON(t, resp.Body)
	if body["status"] != "ok" {
		t.Fatalf("expected status=ok, got %v", body["status"])
	}

	resp = do(t, http.MethodGet, ts.URL+"/health", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, ts.URL+"/config", nil)
	cfg := decodeJSON(t, resp.Body)
	if cfg["zoom"] != 12.0 {
		t.Fatalf("expected default zoom 12, got %v", cfg["zoom"])
	}
}

func TestPOICRUD(t *testing.T) {
	ts, _ := setup(t)

	// GET /pois - empty
	resp := do(t, http.MethodGet, ts.URL+"/pois", nil)
	c := decodeCollection(t, resp.Body)
	if c.Len() != 0 {
		t.Fatalf("expected empty collection, got %d", c.Len())
	}

	// POST /pois - defaults
	resp = do(t, http.MethodPost, ts.URL+"/pois", mustJSON(t, map[string]any{"lon": -75.57, "lat": 6.25}))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var f geojson.Feature
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		t.Fatal(err)
	}
	if f.Name() != poi.DefaultName || f.Category() != poi.DefaultCategory {
		t.Fatalf("expected defaults, got %q/%q", f.Name(), f.Category())
	}
	if f.ID() == "" {
		t.Fatal("expected an id")
	}

	do(t, http.MethodPost, ts.URL+"/pois", mustJSON(t, map[string]any{"lon": 1, "lat": 2, "name": "B", "category": "c"}))

	// POST /pois - explicit empty name is kept
	resp = do(t, http.MethodPost, ts.URL+"/pois", mustJSON(t, map[string]any{"lon": 3, "lat": 4, "name": ""}))
	var unnamed geojson.Feature
	if err := json.NewDecoder(resp.Body).Decode(&unnamed); err != nil {
		t.Fatal(err)
	}
	if unnamed.Name() != "" || unnamed.Category() != poi.DefaultCategory {
		t.Fatalf("expected empty name and default category, got %q/%q", unnamed.Name(), unnamed.Category())
	}
	do(t, http.MethodDelete, ts.URL+"/pois/2", nil)

	// GET /pois/count
	resp = do(t, http.MethodGet, ts.URL+"/pois/count", nil)
	if n := decodeJSON(t, resp.Body)["count"]; n != 2.0 {
		t.Fatalf("expected count=2, got %v", n)
	}

	// PATCH /pois/0
	resp = do(t, http.MethodPatch, ts.URL+"/pois/0", mustJSON(t, map[string]any{"name": "Renamed"}))
	c = decodeCollection(t, resp.Body)
	if c.Features[0].Name() != "Renamed" || c.Features[0].Category() != poi.DefaultCategory {
		t.Fatalf("unexpected feature after update: %+v", c.Features[0].Properties)
	}

	// PATCH out of range is a no-op
	resp = do(t, http.MethodPatch, ts.URL+"/pois/9", mustJSON(t, map[string]any{"name": "x"}))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	c = decodeCollection(t, resp.Body)
	if c.Len() != 2 || c.Features[1].Name() != "B" {
		t.Fatalf("collection changed by out-of-range update: %+v", c.Features)
	}

	// PATCH /pois/id/{id}
	resp = do(t, http.MethodPatch, ts.URL+"/pois/id/"+f.ID(), mustJSON(t, map[string]any{"category": "food"}))
	c = decodeCollection(t, resp.Body)
	if c.Features[0].Category() != "food" {
		t.Fatalf("expected category=food, got %q", c.Features[0].Category())
	}

	// DELETE /pois/0
	resp = do(t, http.MethodDelete, ts.URL+"/pois/0", nil)
	c = decodeCollection(t, resp.Body)
	if c.Len() != 1 || c.Features[0].Name() != "B" {
		t.Fatalf("unexpected collection after delete: %+v", c.Features)
	}

	// DELETE /pois/id/{id} - gone
	resp = do(t, http.MethodDelete, ts.URL+"/pois/id/"+f.ID(), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	// DELETE /pois
	resp = do(t, http.MethodDelete, ts.URL+"/pois", nil)
	c = decodeCollection(t, resp.Body)
	if c.Len() != 0 {
		t.Fatalf("expected empty collection, got %d", c.Len())
	}
}

func TestAddValidation(t *testing.T) {
	ts, _ := setup(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing lat", `{"lon":1}`},
		{"out of range", `{"lon":181,"lat":0}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, ts.URL+"/pois", []byte(tc.body))
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}

	resp := do(t, http.MethodDelete, ts.URL+"/pois/abc", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a non-numeric index, got %d", resp.StatusCode)
	}
}

func TestImport(t *testing.T) {
	ts, m := setup(t)

	resp := do(t, http.MethodPost, ts.URL+"/import", []byte(importBody))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Report  geojson.Report `json:"report"`
		Summary string         `json:"summary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Report.Rejected != 1 || body.Report.Errors.InvalidCoordinates != 1 {
		t.Fatalf("unexpected report: %+v", body.Report)
	}
	if body.Summary != "Imported 1 of 2 points. Discarded 1 (1 with invalid coordinates)" {
		t.Fatalf("unexpected summary: %q", body.Summary)
	}
	if m.GetPointCount() != 1 {
		t.Fatalf("expected 1 point, got %d", m.GetPointCount())
	}
}

func TestImportMultipart(t *testing.T) {
	ts, m := setup(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "pois.geojson")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(importBody))
	mw.Close()

	resp, err := http.Post(ts.URL+"/import", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if m.GetPointCount() != 1 {
		t.Fatalf("expected 1 point, got %d", m.GetPointCount())
	}
}

func TestImportInvalidJSON(t *testing.T) {
	ts, m := setup(t)
	do(t, http.MethodPost, ts.URL+"/pois", mustJSON(t, map[string]any{"lon": 1, "lat": 1}))

	resp := do(t, http.MethodPost, ts.URL+"/import", []byte("not json"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if detail := decodeJSON(t, resp.Body)["detail"]; detail != "Invalid JSON file" {
		t.Fatalf("unexpected detail: %v", detail)
	}
	if m.GetPointCount() != 1 {
		t.Fatal("collection changed by a failed import")
	}
}

func TestImportStale(t *testing.T) {
	ts, m := setup(t)

	// an import issued after this request started supersedes it
	stale := m.BeginImport()
	m.BeginImport()
	if _, err := stale.ApplyBytes(context.Background(), []byte(importBody)); !errors.Is(err, poi.ErrStaleImport) {
		t.Fatalf("expected ErrStaleImport, got %v", err)
	}

	resp := do(t, http.MethodPost, ts.URL+"/import", []byte(importBody))
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 for the newest import, got %d", resp.StatusCode)
	}
}

func TestExport(t *testing.T) {
	ts, _ := setup(t)
	do(t, http.MethodPost, ts.URL+"/pois", mustJSON(t, map[string]any{"lon": 1, "lat": 2, "name": "A", "category": "x"}))

	resp := do(t, http.MethodGet, ts.URL+"/export", nil)
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename=pois.json` {
		t.Fatalf("unexpected Content-Disposition: %q", cd)
	}
	c := decodeCollection(t, resp.Body)
	if c.Len() != 1 || c.Features[0].Name() != "A" {
		t.Fatalf("unexpected export: %+v", c.Features)
	}

	resp = do(t, http.MethodGet, ts.URL+"/export?filename=mine.geojson", nil)
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "mine.geojson") {
		t.Fatalf("unexpected Content-Disposition: %q", cd)
	}
}

func TestBounds(t *testing.T) {
	ts, _ := setup(t)

	resp := do(t, http.MethodGet, ts.URL+"/pois/bounds", nil)
	if decodeJSON(t, resp.Body)["empty"] != true {
		t.Fatal("expected empty bounds")
	}

	do(t, http.MethodPost, ts.URL+"/pois", mustJSON(t, map[string]any{"lon": -75.6, "lat": 6.2}))
	resp = do(t, http.MethodGet, ts.URL+"/pois/bounds", nil)
	body := decodeJSON(t, resp.Body)
	if body["zoom"] != 14.0 {
		t.Fatalf("expected zoom 14 for a single point, got %v", body["zoom"])
	}

	do(t, http.MethodPost, ts.URL+"/pois", mustJSON(t, map[string]any{"lon": -75.5, "lat": 6.3}))
	resp = do(t, http.MethodGet, ts.URL+"/pois/bounds", nil)
	body = decodeJSON(t, resp.Body)
	bounds, ok := body["bounds"].([]any)
	if !ok || len(bounds) != 2 {
		t.Fatalf("expected bounds, got %v", body)
	}
	if body["maxZoom"] != 15.0 {
		t.Fatalf("expected maxZoom 15, got %v", body["maxZoom"])
	}
}

func TestResolve(t *testing.T) {
	ts, _ := setup(t)
	do(t, http.MethodPost, ts.URL+"/pois", mustJSON(t, map[string]any{"lon": -75.57, "lat": 6.25, "name": "A", "category": "x"}))

	resp := do(t, http.MethodPost, ts.URL+"/resolve", mustJSON(t, map[string]any{
		"feature": map[string]any{"coordinates": []float64{-75.570001, 6.250001}, "properties": map[string]any{"name": "A"}},
		"view":    map[string]any{"zoom": 12, "centerLatitude": 6.25},
	}))
	body := decodeJSON(t, resp.Body)
	if body["found"] != true || body["index"] != 0.0 {
		t.Fatalf("expected index 0, got %v", body)
	}

	resp = do(t, http.MethodPost, ts.URL+"/resolve", mustJSON(t, map[string]any{
		"feature": map[string]any{"coordinates": []float64{-75.56, 6.25}, "properties": map[string]any{"name": "A"}},
		"view":    map[string]any{"zoom": 12, "centerLatitude": 6.25},
	}))
	body = decodeJSON(t, resp.Body)
	if body["found"] != false || body["index"] != -1.0 {
		t.Fatalf("expected not found, got %v", body)
	}

	// an explicit zero multiplier shrinks the window below the click offset
	resp = do(t, http.MethodPost, ts.URL+"/resolve", mustJSON(t, map[string]any{
		"feature":    map[string]any{"coordinates": []float64{-75.570001, 6.250001}, "properties": map[string]any{"name": "A"}},
		"view":       map[string]any{"zoom": 12, "centerLatitude": 6.25},
		"multiplier": 0,
	}))
	body = decodeJSON(t, resp.Body)
	if body["found"] != false {
		t.Fatalf("expected not found with multiplier 0, got %v", body)
	}
}

type failingSaveStore struct {
	*store.MemoryStore
}

func (failingSaveStore) Save(context.Context, geojson.Collection) error {
	return errors.New("disk full")
}

func TestSaveFailure(t *testing.T) {
	ts, m := setupWithStore(t, failingSaveStore{store.NewMemoryStore()})

	resp := do(t, http.MethodPost, ts.URL+"/pois", mustJSON(t, map[string]any{"lon": 1, "lat": 1}))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if m.GetPointCount() != 1 {
		t.Fatalf("expected the point to be applied in memory, got %d", m.GetPointCount())
	}
}

func readEvent(t *testing.T, r *bufio.Reader) geojson.Collection {
	t.Helper()
	var data string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatal(err)
		}
		line = strings.TrimRight(line, "\n")
		if line == "" && data != "" {
			break
		}
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	var c geojson.Collection
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestEvents(t *testing.T) {
	ts, m := setup(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected Content-Type: %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	if c := readEvent(t, r); c.Len() != 0 {
		t.Fatalf("expected empty snapshot, got %d", c.Len())
	}

	if _, err := m.AddPoint(context.Background(), 1, 1, "A", "x"); err != nil {
		t.Fatal(err)
	}
	if c := readEvent(t, r); c.Len() != 1 || c.Features[0].Name() != "A" {
		t.Fatalf("unexpected event: %+v", c.Features)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := setup(t)
	do(t, http.MethodPost, ts.URL+"/pois", mustJSON(t, map[string]any{"lon": 1, "lat": 1}))

	resp := do(t, http.MethodGet, ts.URL+"/metrics", nil)
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), "poi_editor_mutations_total") {
		t.Fatal("expected poi_editor_mutations_total in metrics output")
	}
}
