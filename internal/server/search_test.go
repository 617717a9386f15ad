package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docqa/internal/models"
)

func getSearch(t *testing.T, h http.Handler, query string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, query, nil))
	return rec
}

func TestSearchReturnsScoredChunks(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()
	uploadDoc(t, h, "doc.txt", sampleDoc)

	rec := getSearch(t, h, "/search?q=ZEBRA&k=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Results []models.ScoredChunk `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Results) == 0 {
		t.Fatal("no results")
	}
	if !strings.Contains(res.Results[0].Text, "ZEBRA") {
		t.Fatalf("top result lacks the query term: %q", res.Results[0].Text)
	}
	if res.Results[0].Score <= 0 {
		t.Fatalf("score = %v", res.Results[0].Score)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := getSearch(t, api.Handler(), "/search")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSearchBadK(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()
	uploadDoc(t, h, "doc.txt", sampleDoc)
	rec := getSearch(t, h, "/search?q=breathing&k=zero")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

// A loaded document with no matching terms is an empty result set, not an
// error: distinct from the 404 of an empty slot.
func TestSearchNoMatchesIsEmptyList(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.Handler()
	uploadDoc(t, h, "doc.txt", sampleDoc)

	rec := getSearch(t, h, "/search?q=quasar")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Results []models.ScoredChunk `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	// dense always proposes candidates, so matches may still appear; the
	// invariant is a valid 200 with a well-formed list
	if res.Results == nil {
		t.Fatal("results should be an array, not null")
	}
}
