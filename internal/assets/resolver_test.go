package assets_test

import (
	"path/filepath"
	"testing"

	"cinefetch/internal/assets"
	"cinefetch/internal/catalog"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		size     string
		resource string
		want     string
		ok       bool
	}{
		{name: "joins parts", base: "https://image.tmdb.org/t/p", size: "w500", resource: "/a.jpg", want: "https://image.tmdb.org/t/p/w500/a.jpg", ok: true},
		{name: "trailing slash on base", base: "https://img.example/t/p/", size: "w780", resource: "/b.png", want: "https://img.example/t/p/w780/b.png", ok: true},
		{name: "adds leading slash", base: "https://img.example", size: "original", resource: "c.webp", want: "https://img.example/original/c.webp", ok: true},
		{name: "empty is absent", base: "https://img.example", size: "w500", resource: ""},
		{name: "blank is absent", base: "https://img.example", size: "w500", resource: "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := assets.Resolve(tt.base, tt.size, tt.resource)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("Resolve() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"https://img.example/w500/a.jpg":        ".jpg",
		"https://img.example/w500/a.PNG":        ".png",
		"https://img.example/w500/a.webp?x=1":   ".webp",
		"https://img.example/w500/noext":        ".jpg",
		"https://img.example/w500/a.":           ".jpg",
		"https://img.example/w500/a.toolongext": ".jpg",
		"https://img.example/w.500/a":           ".jpg",
	}
	for in, want := range tests {
		if got := assets.Extension(in); got != want {
			t.Errorf("Extension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPlanExampleBatch(t *testing.T) {
	records := mustParse(t, `[{"id":1,"poster_path":"/a.jpg"},{"id":2,"poster_path":null,"backdrop_path":"/b.png"}]`)
	resolver := assets.NewResolver("https://img.example/t/p", "w500", "w780")
	dir := t.TempDir()

	jobs := assets.Plan(records, resolver, dir)
	want := []assets.Job{
		{RecordID: "1", Kind: catalog.KindPoster, SourceURL: "https://img.example/t/p/w500/a.jpg", Destination: filepath.Join(dir, "1_poster.jpg")},
		{RecordID: "2", Kind: catalog.KindBackdrop, SourceURL: "https://img.example/t/p/w780/b.png", Destination: filepath.Join(dir, "2_backdrop.png")},
	}
	if len(jobs) != len(want) {
		t.Fatalf("expected %d jobs, got %d: %+v", len(want), len(jobs), jobs)
	}
	for i := range want {
		if jobs[i] != want[i] {
			t.Fatalf("job %d = %+v, want %+v", i, jobs[i], want[i])
		}
	}
}

func TestPlanJobCountMatchesPresentPaths(t *testing.T) {
	records := mustParse(t, `[
		{"id":1,"poster_path":"/a.jpg","backdrop_path":"/a2.jpg"},
		{"id":2},
		{"id":3,"poster_path":"","backdrop_path":null},
		{"id":"x","backdrop_path":"/x.jpeg"},
		{"id":5,"poster_path":"  "}
	]`)
	jobs := assets.Plan(records, assets.NewResolver("https://img.example", "w500", "w780"), t.TempDir())

	present := 0
	for _, rec := range records {
		for _, kind := range catalog.Kinds {
			if rec.Path(kind) != "" {
				present++
			}
		}
	}
	if len(jobs) != present || present != 3 {
		t.Fatalf("jobs = %d, present paths = %d, want 3", len(jobs), present)
	}

	seen := map[string]bool{}
	for _, job := range jobs {
		if seen[job.Destination] {
			t.Fatalf("destination %s assigned twice", job.Destination)
		}
		seen[job.Destination] = true
	}
}

func mustParse(t *testing.T, body string) []catalog.Record {
	t.Helper()
	records, err := catalog.Parse([]byte(body))
	if err != nil {
		t.Fatalf("parse records: %v", err)
	}
	return records
}
