package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cinefetch/internal/catalog"
)

const sample = `[
  {"id": 1, "title": "Alpha & Omega", "poster_path": "/p1.jpg", "backdrop_path": null, "vote_average": 7.10},
  {"id": "tt-2", "title": "Beta", "backdrop_path": "/b2.png", "extra": {"nested": [1, 2]}}
]`

func TestParsePreservesFieldsAndIDs(t *testing.T) {
	records, err := catalog.Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "1" || records[1].ID != "tt-2" {
		t.Fatalf("unexpected ids: %q %q", records[0].ID, records[1].ID)
	}
	keys := make([]string, 0, len(records[0].Fields))
	for _, f := range records[0].Fields {
		keys = append(keys, f.Key)
	}
	if got := strings.Join(keys, ","); got != "id,title,poster_path,backdrop_path,vote_average" {
		t.Fatalf("unexpected key order: %s", got)
	}
	if raw, _ := records[0].Get("vote_average"); string(raw) != "7.10" {
		t.Fatalf("expected raw number literal preserved, got %s", raw)
	}
	if got := records[0].Path(catalog.KindPoster); got != "/p1.jpg" {
		t.Fatalf("unexpected poster path: %q", got)
	}
	if got := records[0].Path(catalog.KindBackdrop); got != "" {
		t.Fatalf("expected null backdrop to be absent, got %q", got)
	}
	if got := records[1].Path(catalog.KindPoster); got != "" {
		t.Fatalf("expected missing poster to be absent, got %q", got)
	}
}

func TestParseRejectsInvalidRecords(t *testing.T) {
	tests := map[string]string{
		"not array":     `{"id": 1}`,
		"not object":    `[1]`,
		"missing id":    `[{"title": "x"}]`,
		"null id":       `[{"id": null}]`,
		"bool id":       `[{"id": true}]`,
		"path id":       `[{"id": "../etc"}]`,
		"numeric path":  `[{"id": 1, "poster_path": 5}]`,
		"trailing junk": `[{"id": 1}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := catalog.Parse([]byte(input)); err == nil {
				t.Fatalf("expected error for %s", input)
			}
		})
	}
}

func TestCheckUniqueTreatsNumberAndStringAlike(t *testing.T) {
	records, err := catalog.Parse([]byte(`[{"id": 5}, {"id": 6}, {"id": "5"}]`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	err = catalog.CheckUnique(records)
	if !errors.Is(err, catalog.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if err := catalog.CheckUnique(records[:2]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEncodeAppendsURLsAfterPassthroughFields(t *testing.T) {
	records, err := catalog.Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	enriched := []catalog.Enriched{
		{Source: records[0], URLs: map[catalog.Kind]string{catalog.KindPoster: "https://img/w500/p1.jpg?a=1&b=2"}},
		{Source: records[1], URLs: map[catalog.Kind]string{catalog.KindBackdrop: "https://img/w780/b2.png"}},
	}

	data, err := catalog.Encode(enriched)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	want := `[
  {
    "id": 1,
    "title": "Alpha & Omega",
    "poster_path": "/p1.jpg",
    "backdrop_path": null,
    "vote_average": 7.10,
    "poster_url": "https://img/w500/p1.jpg?a=1&b=2",
    "backdrop_url": null
  },
  {
    "id": "tt-2",
    "title": "Beta",
    "backdrop_path": "/b2.png",
    "extra": {
      "nested": [
        1,
        2
      ]
    },
    "poster_url": null,
    "backdrop_url": "https://img/w780/b2.png"
  }
]
`
	if string(data) != want {
		t.Fatalf("unexpected encoding:\n%s\nwant:\n%s", data, want)
	}
}

func TestEncodeReplacesLocalPathsInPlace(t *testing.T) {
	records, err := catalog.Parse([]byte(`[{"id": 3, "poster_path": "/p.jpg", "poster_url": "stale", "title": "T"}]`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	enriched := []catalog.Enriched{{
		Source:     records[0],
		URLs:       map[catalog.Kind]string{catalog.KindPoster: "https://img/p.jpg"},
		LocalPaths: map[catalog.Kind]string{catalog.KindPoster: "./images/3_poster.jpg", catalog.KindBackdrop: "./images/3_backdrop.webp"},
	}}
	data, err := catalog.Encode(enriched)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	got := string(data)
	order := []string{`"id"`, `"poster_path": "./images/3_poster.jpg"`, `"poster_url": "https://img/p.jpg"`, `"title"`, `"backdrop_path": "./images/3_backdrop.webp"`, `"backdrop_url": null`}
	last := -1
	for _, fragment := range order {
		idx := strings.Index(got, fragment)
		if idx < 0 {
			t.Fatalf("missing %s in %s", fragment, got)
		}
		if idx < last {
			t.Fatalf("fragment %s out of order in %s", fragment, got)
		}
		last = idx
	}
	if strings.Contains(got, "stale") {
		t.Fatalf("expected stale url replaced: %s", got)
	}
}

func TestWriteAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "popular.json")
	if err := os.WriteFile(in, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	records, err := catalog.Load(in)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	out := filepath.Join(dir, "out", "enriched.json")
	enriched := make([]catalog.Enriched, len(records))
	for i, rec := range records {
		enriched[i] = catalog.Enriched{Source: rec}
	}
	if err := catalog.Write(out, enriched); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	reloaded, err := catalog.Load(out)
	if err != nil {
		t.Fatalf("Load enriched returned error: %v", err)
	}
	if len(reloaded) != 2 || reloaded[1].ID != "tt-2" {
		t.Fatalf("unexpected reloaded records: %+v", reloaded)
	}
	if raw, ok := reloaded[0].Get("poster_url"); !ok || string(raw) != "null" {
		t.Fatalf("expected null poster_url, got %s", raw)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := catalog.Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestEncodeEmpty(t *testing.T) {
	data, err := catalog.Encode(nil)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if string(data) != "[]\n" {
		t.Fatalf("unexpected empty encoding: %q", data)
	}
}
