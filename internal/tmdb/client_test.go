package tmdb_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"cinefetch/internal/tmdb"
)

func TestNewRequiresToken(t *testing.T) {
	if _, err := tmdb.New("  ", "https://example.com", "fr-FR"); err == nil {
		t.Fatal("expected error when token missing")
	}
	if _, err := tmdb.New("token", "", "fr-FR"); err == nil {
		t.Fatal("expected error when base url missing")
	}
}

func TestPopularSendsBearerAndLocale(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/3/movie/popular" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		q := r.URL.Query()
		if q.Get("language") != "fr-FR" || q.Get("region") != "FR" || q.Get("page") != "1" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if q.Get("api_key") != "" {
			t.Errorf("expected no api_key query parameter")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"total_pages":1,"results":[
			{"id":1,"title":"Un","original_title":"One","poster_path":"/p1.jpg","backdrop_path":null,"adult":false,"genre_ids":[1]},
			{"id":2,"title":"Deux","poster_path":null,"backdrop_path":"/b2.jpg"}
		]}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("secret", server.URL+"/3/", "fr-FR", tmdb.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	movies, err := client.Popular(context.Background(), tmdb.PopularOptions{Region: "FR", Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("Popular returned error: %v", err)
	}
	if len(movies) != 2 {
		t.Fatalf("expected 2 movies, got %d", len(movies))
	}

	data, err := json.Marshal(movies[0])
	if err != nil {
		t.Fatalf("marshal movie: %v", err)
	}
	want := `{"id":1,"title":"Un","original_title":"One","overview":"","release_date":"","popularity":0,"vote_average":0,"vote_count":0,"poster_path":"/p1.jpg","backdrop_path":null}`
	if string(data) != want {
		t.Fatalf("unexpected projection:\n%s\nwant:\n%s", data, want)
	}
}

func TestPopularPagesUntilLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		page := r.URL.Query().Get("page")
		var results []string
		for i := 0; i < 3; i++ {
			results = append(results, fmt.Sprintf(`{"id":%s%d,"title":"m"}`, page, i))
		}
		_, _ = fmt.Fprintf(w, `{"page":%s,"total_pages":5,"results":[%s]}`, page, strings.Join(results, ","))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("secret", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	movies, err := client.Popular(context.Background(), tmdb.PopularOptions{Page: 2, Limit: 5})
	if err != nil {
		t.Fatalf("Popular returned error: %v", err)
	}
	if len(movies) != 5 {
		t.Fatalf("expected 5 movies, got %d", len(movies))
	}
	if movies[0].ID != 20 || movies[4].ID != 31 {
		t.Fatalf("unexpected ids: first=%d last=%d", movies[0].ID, movies[4].ID)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", calls.Load())
	}
}

func TestPopularStopsAtLastPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"page":1,"total_pages":1,"results":[{"id":7}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("secret", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	movies, err := client.Popular(context.Background(), tmdb.PopularOptions{Limit: 10})
	if err != nil {
		t.Fatalf("Popular returned error: %v", err)
	}
	if len(movies) != 1 {
		t.Fatalf("expected 1 movie, got %d", len(movies))
	}
}

func TestPopularHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_code":7,"status_message":"Invalid API key"}`))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("bad", server.URL, "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = client.Popular(context.Background(), tmdb.PopularOptions{})
	var statusErr *tmdb.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusUnauthorized || !strings.Contains(statusErr.Body, "Invalid API key") {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}
