package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwulff/sensorviz/internal/analysis"
	"github.com/jwulff/sensorviz/internal/cleaner"
	"github.com/jwulff/sensorviz/internal/dataset"
	"github.com/jwulff/sensorviz/internal/feed"
	"github.com/jwulff/sensorviz/internal/session"
	"github.com/jwulff/sensorviz/internal/storage/memory"
)

const ingestPayload = `{
	"schema": {"time": "datetime", "ph": "number", "turbidity": "number", "water_class": "string"},
	"clean_rows": [
		{"time": "2024-01-01 00:00:00", "ph": 7.0, "turbidity": 1, "water_class": "I"},
		{"time": "2024-01-02 00:00:00", "ph": 7.4, "turbidity": 2, "water_class": "II"},
		{"time": "2024-02-01 00:00:00", "ph": 6.8, "turbidity": 5, "water_class": "I"}
	],
	"missing_report": {"ph": 0},
	"out_of_range_report": {"turbidity": 1}
}`

type fakeCleaner struct {
	err error
}

func (f *fakeCleaner) Clean(_ context.Context, id, _ string, _ io.Reader) (*dataset.Dataset, error) {
	if f.err != nil {
		return nil, f.err
	}
	ds, err := dataset.Decode([]byte(ingestPayload), time.UTC)
	if err != nil {
		return nil, err
	}
	ds.ID = id
	return ds, nil
}

type fakeAnalyzer struct {
	prompt string
	data   any
	err    error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, prompt string, data any) (string, error) {
	f.prompt, f.data = prompt, data
	if f.err != nil {
		return "", f.err
	}
	return "looks fine", nil
}

type testEnv struct {
	handler  http.Handler
	store    *memory.Store
	session  *session.Session
	cleaner  *fakeCleaner
	analyzer *fakeAnalyzer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    memory.NewStore(),
		cleaner:  &fakeCleaner{},
		analyzer: &fakeAnalyzer{},
	}
	env.session = session.New(env.store, env.cleaner, feed.NewGenerator(1),
		session.Options{FeedInterval: 5 * time.Millisecond})
	t.Cleanup(env.session.Close)
	env.handler = New(env.store, env.session, env.analyzer, time.UTC).Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	return e.do(t, "GET", path, nil, "")
}

func (e *testEnv) postJSON(t *testing.T, path, body string) *httptest.ResponseRecorder {
	return e.do(t, "POST", path, strings.NewReader(body), "application/json")
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (e *testEnv) storeDataset(t *testing.T, id string) {
	t.Helper()
	rec := e.postJSON(t, "/api/datasets/"+id+"/clean", ingestPayload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStoreAndGetDataset(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/api/datasets/abc/clean", ingestPayload)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["ok"])

	rec = env.get(t, "/api/datasets/abc")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "abc", body["id"])
	assert.EqualValues(t, 3, body["row_count"])
	assert.Equal(t, map[string]any{"turbidity": float64(1)}, body["out_of_range"])
}

func TestGetDatasetNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/datasets/missing")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "not found")
}

func TestStoreDatasetInvalidPayload(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/api/datasets/abc/clean", "[1,2]")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDatasets(t *testing.T) {
	env := newTestEnv(t)
	env.storeDataset(t, "b")
	env.storeDataset(t, "a")

	rec := env.get(t, "/api/datasets")

	require.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec)["datasets"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].(map[string]any)["id"])
}

func TestColumns(t *testing.T) {
	env := newTestEnv(t)
	env.storeDataset(t, "abc")

	rec := env.get(t, "/api/datasets/abc/columns")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "time", body["time"])
	assert.Equal(t, []any{"ph", "turbidity"}, body["numeric"])
	assert.Equal(t, "water_class", body["categorical"])
	assert.Len(t, body["months"], 2)
}

func TestTrend(t *testing.T) {
	env := newTestEnv(t)
	env.storeDataset(t, "abc")

	rec := env.get(t, "/api/datasets/abc/trend?column=ph&granularity=monthly")

	require.Equal(t, http.StatusOK, rec.Code)
	var trend struct {
		Series []struct {
			Column  string `json:"column"`
			Buckets []struct {
				Key   string  `json:"key"`
				Value float64 `json:"value"`
			} `json:"buckets"`
		} `json:"series"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trend))
	require.Len(t, trend.Series, 1)
	require.Len(t, trend.Series[0].Buckets, 2)
	assert.Equal(t, "2024-01", trend.Series[0].Buckets[0].Key)
	assert.InDelta(t, 7.2, trend.Series[0].Buckets[0].Value, 1e-9)
}

func TestTrendAllColumns(t *testing.T) {
	env := newTestEnv(t)
	env.storeDataset(t, "abc")

	rec := env.get(t, "/api/datasets/abc/trend?column=__all__")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["series"], 2)
}

func TestTrendBadGranularity(t *testing.T) {
	env := newTestEnv(t)
	env.storeDataset(t, "abc")

	rec := env.get(t, "/api/datasets/abc/trend?granularity=hourly")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistogram(t *testing.T) {
	env := newTestEnv(t)
	env.storeDataset(t, "abc")

	rec := env.get(t, "/api/datasets/abc/histogram?column=ph&month=2024-01")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	hists := body["histograms"].([]any)
	require.Len(t, hists, 1)
	assert.EqualValues(t, 2, hists[0].(map[string]any)["total"])
}

func TestHistogramExtremeValues(t *testing.T) {
	env := newTestEnv(t)
	payload := `{
		"schema": {"time": "datetime", "ph": "number"},
		"clean_rows": [
			{"time": "2024-01-01 00:00:00", "ph": -1e308},
			{"time": "2024-01-02 00:00:00", "ph": 0},
			{"time": "2024-01-03 00:00:00", "ph": 1e308}
		]
	}`
	require.Equal(t, http.StatusOK, env.postJSON(t, "/api/datasets/wide/clean", payload).Code)

	rec := env.get(t, "/api/datasets/wide/histogram?column=ph")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	hists := decode(t, rec)["histograms"].([]any)
	require.Len(t, hists, 1)
	assert.EqualValues(t, 3, hists[0].(map[string]any)["total"])
}

func TestWriteJSONEncodingFailure(t *testing.T) {
	rec := httptest.NewRecorder()

	writeJSON(rec, http.StatusOK, map[string]float64{"v": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "failed to encode")
}

func TestScatter(t *testing.T) {
	env := newTestEnv(t)
	env.storeDataset(t, "abc")

	rec := env.get(t, "/api/datasets/abc/scatter?x=ph&y=turbidity")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["points"], 3)

	rec = env.get(t, "/api/datasets/abc/scatter?x=ph")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTable(t *testing.T) {
	env := newTestEnv(t)
	env.storeDataset(t, "abc")

	rec := env.get(t, "/api/datasets/abc/table?page=0&size=all")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["rows"], 3)
	assert.EqualValues(t, 1, body["total_pages"])
	assert.Equal(t, []any{"Time", "Ph", "Turbidity", "Water Class"}, body["headers"])
	classes := body["classes"].([]any)
	require.Len(t, classes, 2)
	assert.Equal(t, map[string]any{"name": "I", "count": float64(2)}, classes[0])
}

func TestTableBadParams(t *testing.T) {
	env := newTestEnv(t)
	env.storeDataset(t, "abc")

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/datasets/abc/table?size=zero").Code)
	assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/datasets/abc/table?page=x").Code)
}

func TestTableStalePage(t *testing.T) {
	env := newTestEnv(t)
	env.storeDataset(t, "abc")

	rec := env.get(t, "/api/datasets/abc/table?page=9&size=50")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["stale"])
	assert.Empty(t, body["rows"])
}

func multipartBody(t *testing.T, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "station.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)
	body, ct := multipartBody(t, "time,ph\n")

	rec := env.do(t, "POST", "/api/upload", body, ct)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decode(t, rec)
	id, _ := out["id"].(string)
	require.NotEmpty(t, id)
	assert.Len(t, out["clean_rows"], 3)

	rec = env.get(t, "/api/datasets/current/table")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, decode(t, rec)["row_count"])

	rec = env.get(t, "/api/datasets/"+id)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadFailureKeepsDataset(t *testing.T) {
	env := newTestEnv(t)
	body, ct := multipartBody(t, "x")
	require.Equal(t, http.StatusOK, env.do(t, "POST", "/api/upload", body, ct).Code)
	before := env.session.CurrentID()

	env.cleaner.err = errors.New("cleaner unavailable")
	body, ct = multipartBody(t, "y")
	rec := env.do(t, "POST", "/api/upload", body, ct)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "cleaner unavailable")
	assert.Equal(t, before, env.session.CurrentID())
}

func TestUploadCleanerNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	env.cleaner.err = cleaner.ErrNotConfigured
	body, ct := multipartBody(t, "x")

	rec := env.do(t, "POST", "/api/upload", body, ct)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, env.session.CurrentID())
}

func TestUploadWithoutFile(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.Close())

	rec := env.do(t, "POST", "/api/upload", &buf, w.FormDataContentType())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/api/analyze", `{"prompt": "How is the water?", "payload": {"ph": [7]}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "looks fine", decode(t, rec)["text"])
	assert.Equal(t, "How is the water?", env.analyzer.prompt)
	assert.Equal(t, json.RawMessage(`{"ph": [7]}`), env.analyzer.data)
}

func TestAnalyzeUsesLoadedDataset(t *testing.T) {
	env := newTestEnv(t)
	body, ct := multipartBody(t, "x")
	require.Equal(t, http.StatusOK, env.do(t, "POST", "/api/upload", body, ct).Code)

	rec := env.postJSON(t, "/api/analyze", `{"prompt": "Summarise"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	summary, ok := env.analyzer.data.(dataset.Summary)
	require.True(t, ok)
	assert.Equal(t, 3, summary.RowCount)
}

func TestAnalyzeFailures(t *testing.T) {
	env := newTestEnv(t)

	env.analyzer.err = analysis.ErrEmptyPrompt
	assert.Equal(t, http.StatusBadRequest, env.postJSON(t, "/api/analyze", `{"prompt": ""}`).Code)

	env.analyzer.err = errors.New("upstream timeout")
	rec := env.postJSON(t, "/api/analyze", `{"prompt": "hi"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "upstream timeout")

	assert.Equal(t, http.StatusBadRequest, env.postJSON(t, "/api/analyze", `{`).Code)
}

func TestAnalyzeNotConfigured(t *testing.T) {
	store := memory.NewStore()
	sess := session.New(store, nil, feed.NewGenerator(1), session.Options{})
	defer sess.Close()
	handler := New(store, sess, nil, time.UTC).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/analyze", strings.NewReader(`{"prompt":"x"}`)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestModeAndFeed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.postJSON(t, "/api/feed", `{"running": true}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.postJSON(t, "/api/mode", `{"mode": "realtime"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "realtime", decode(t, rec)["mode"])

	rec = env.postJSON(t, "/api/feed", `{"running": true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["feed_running"])

	require.Eventually(t, func() bool {
		return env.get(t, "/api/datasets/realtime").Code == http.StatusOK
	}, time.Second, time.Millisecond)

	rec = env.postJSON(t, "/api/feed", `{"running": false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["feed_running"])

	rec = env.get(t, "/api/session")
	assert.Equal(t, "realtime", decode(t, rec)["dataset_id"])
}

func TestModeValidation(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusBadRequest, env.postJSON(t, "/api/mode", `{"mode": "live"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.postJSON(t, "/api/feed", `{}`).Code)
}

func TestHistorical(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.postJSON(t, "/api/mode", `{"mode": "historical"}`).Code)

	rec := env.postJSON(t, "/api/historical", `{"start": "2024-01-01T00:00", "end": "2024-01-02T00:00"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode(t, rec)["clean_rows"], feed.BackfillRows)

	rec = env.get(t, "/api/datasets/current/columns")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "time", body["time"])
	assert.Len(t, body["numeric"], len(feed.Sensors))
}

func TestHistoricalValidation(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.postJSON(t, "/api/mode", `{"mode": "historical"}`).Code)

	assert.Equal(t, http.StatusBadRequest, env.postJSON(t, "/api/historical", `{"start": "soon", "end": "2024-01-02"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.postJSON(t, "/api/historical", `{"start": "2024-01-02", "end": "later"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.postJSON(t, "/api/historical", `{"start": "2024-01-02", "end": "2024-01-01"}`).Code)
}

func TestCurrentWithoutDataset(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(t, "/api/datasets/current")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPServer(t *testing.T) {
	env := newTestEnv(t)
	srv := New(env.store, env.session, nil, nil).HTTPServer(":0")

	assert.Equal(t, ":0", srv.Addr)
	assert.NotNil(t, srv.Handler)
}
