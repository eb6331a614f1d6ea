package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkyouma/myanimelist-scraper/internal/model"
)

type fakeLoader struct {
	records []model.Record
	err     error
}

func (f *fakeLoader) Load(ctx context.Context) ([]model.Record, error) {
	return f.records, f.err
}

func testRecords() []model.Record {
	at := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	return []model.Record{
		{ID: 2, Kind: model.MediaTypeManga, Name: "Berserk", Rank: 1, ScrapedAt: at},
		{ID: 9253, Kind: model.MediaTypeAnime, Name: "Steins;Gate", Rank: 3, ScrapedAt: at},
		{ID: 5114, Kind: model.MediaTypeAnime, Name: "Fullmetal Alchemist: Brotherhood", Rank: 1,
			Fields: model.Fields{"episodes": model.IntValue(64)}, ScrapedAt: at},
	}
}

func serve(t *testing.T, l Loader, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	NewRouter(NewHandler(l), nil).ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	rec := serve(t, &fakeLoader{}, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestListRecords_SortedByRank(t *testing.T) {
	rec := serve(t, &fakeLoader{records: testRecords()}, http.MethodGet, "/records")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]model.Record](t, rec)
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, 1, got[1].Rank)
	assert.Equal(t, 3, got[2].Rank)
	assert.Equal(t, int64(2), got[0].ID, "stable sort keeps load order for equal ranks")
}

func TestListRecords_FilterAndLimit(t *testing.T) {
	rec := serve(t, &fakeLoader{records: testRecords()}, http.MethodGet, "/records?kind=anime&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]model.Record](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, int64(5114), got[0].ID)
	n, ok := got[0].Fields["episodes"].Int()
	assert.True(t, ok)
	assert.Equal(t, int64(64), n)
}

func TestListRecords_Empty(t *testing.T) {
	rec := serve(t, &fakeLoader{}, http.MethodGet, "/records")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestListRecords_BadQuery(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"unknown kind", "/records?kind=novel"},
		{"negative limit", "/records?limit=-1"},
		{"non-numeric limit", "/records?limit=ten"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &fakeLoader{records: testRecords()}, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestListRecords_LoadError(t *testing.T) {
	rec := serve(t, &fakeLoader{err: errors.New("disk gone")}, http.MethodGet, "/records")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk gone")
}

func TestGetRecord(t *testing.T) {
	rec := serve(t, &fakeLoader{records: testRecords()}, http.MethodGet, "/records/9253")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Steins;Gate", decode[model.Record](t, rec).Name)
}

func TestGetRecord_SameIDAcrossKinds(t *testing.T) {
	records := []model.Record{
		{ID: 1, Kind: model.MediaTypeAnime, Name: "Cowboy Bebop", Rank: 40},
		{ID: 1, Kind: model.MediaTypeManga, Name: "Monster", Rank: 5},
	}

	rec := serve(t, &fakeLoader{records: records}, http.MethodGet, "/records/1")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(t, &fakeLoader{records: records}, http.MethodGet, "/records/1?kind=manga")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Monster", decode[model.Record](t, rec).Name)

	rec = serve(t, &fakeLoader{records: records}, http.MethodGet, "/records/1?kind=anime")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cowboy Bebop", decode[model.Record](t, rec).Name)

	rec = serve(t, &fakeLoader{records: records}, http.MethodGet, "/records/1?kind=novel")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRecord_NotFound(t *testing.T) {
	rec := serve(t, &fakeLoader{records: testRecords()}, http.MethodGet, "/records/1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRecord_BadID(t *testing.T) {
	rec := serve(t, &fakeLoader{records: testRecords()}, http.MethodGet, "/records/abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_CORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()

	NewRouter(NewHandler(&fakeLoader{}), []string{"https://example.com"}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	rec := serve(t, &fakeLoader{}, http.MethodPost, "/records")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
