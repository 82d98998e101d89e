package serper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDiscover(t *testing.T) {
	var gotKey string
	var gotPayload map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organic":[
			{"title":"成都美食攻略","link":"https://example.com/a","snippet":"top spots"},
			{"title":"second","link":"https://example.com/b","snippet":"more"},
			{"title":"third","link":"https://example.com/c","snippet":"extra"}
		]}`))
	}))
	defer ts.Close()

	s := Search{APIKey: "test-key", Endpoint: ts.URL}
	results, err := s.Discover(context.Background(), "成都美食", 2, nil, 0)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if gotKey != "test-key" {
		t.Errorf("X-API-KEY = %q, want test-key", gotKey)
	}
	if gotPayload["q"] != "成都美食" {
		t.Errorf("q = %v", gotPayload["q"])
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "成都美食攻略" || results[0].URL != "https://example.com/a" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
}

func TestDiscoverSitesAndRecency(t *testing.T) {
	var gotPayload map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_, _ = w.Write([]byte(`{"organic":[]}`))
	}))
	defer ts.Close()

	s := Search{APIKey: "k", Endpoint: ts.URL}
	if _, err := s.Discover(context.Background(), "q", 5, []string{"a.com", "b.com"}, 7); err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if gotPayload["site"] != "a.com OR b.com" {
		t.Errorf("site = %v", gotPayload["site"])
	}
	if gotPayload["tbs"] != "qdr:7" {
		t.Errorf("tbs = %v", gotPayload["tbs"])
	}
}

func TestDiscoverBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer ts.Close()

	s := Search{APIKey: "bad", Endpoint: ts.URL}
	if _, err := s.Discover(context.Background(), "q", 3, nil, 0); err == nil {
		t.Fatal("expected error on 403")
	}
}
