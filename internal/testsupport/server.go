package testsupport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// ImageServer serves fixed payloads keyed by request path and counts hits.
type ImageServer struct {
	*httptest.Server

	mu    sync.Mutex
	hits  map[string]int
	fails map[string]int
}

// NewImageServer starts a server answering every path in payloads with its
// bytes and anything else with 404. The server closes on test cleanup.
func NewImageServer(t testing.TB, payloads map[string][]byte) *ImageServer {
	t.Helper()

	s := &ImageServer{hits: map[string]int{}, fails: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		failing := s.fails[r.URL.Path] > 0
		if failing {
			s.fails[r.URL.Path]--
		}
		s.mu.Unlock()

		if failing {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		body, ok := payloads[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if strings.HasSuffix(r.URL.Path, ".png") {
			w.Header().Set("Content-Type", "image/png")
		} else {
			w.Header().Set("Content-Type", "image/jpeg")
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(s.Close)
	return s
}

// FailNext makes the next n requests for path answer 503.
func (s *ImageServer) FailNext(path string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[path] = n
}

// Hits reports how many requests reached path.
func (s *ImageServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}
