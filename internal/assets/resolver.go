package assets

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"cinefetch/internal/catalog"
)

const (
	defaultExtension = ".jpg"
	maxExtensionLen  = 6
)

// Resolve joins the image host base, a size token and a resource path into an
// absolute URL. It reports false when the resource path is blank.
func Resolve(base, size, resourcePath string) (string, bool) {
	resourcePath = strings.TrimSpace(resourcePath)
	if resourcePath == "" {
		return "", false
	}
	if !strings.HasPrefix(resourcePath, "/") {
		resourcePath = "/" + resourcePath
	}
	return strings.TrimRight(base, "/") + "/" + size + resourcePath, true
}

// Resolver resolves record resource paths using batch-wide size tokens.
type Resolver struct {
	BaseURL string
	Sizes   map[catalog.Kind]string
}

// NewResolver builds a resolver for the poster and backdrop size tokens.
func NewResolver(baseURL, posterSize, backdropSize string) Resolver {
	return Resolver{
		BaseURL: baseURL,
		Sizes: map[catalog.Kind]string{
			catalog.KindPoster:   posterSize,
			catalog.KindBackdrop: backdropSize,
		},
	}
}

// URL resolves the resource path of kind on rec.
func (r Resolver) URL(rec catalog.Record, kind catalog.Kind) (string, bool) {
	return Resolve(r.BaseURL, r.Sizes[kind], rec.Path(kind))
}

// Extension returns the lower-cased extension of the URL path component, or
// .jpg when there is none. Query strings and fragments are ignored.
func Extension(source string) string {
	p := source
	if u, err := url.Parse(source); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if len(ext) < 2 || len(ext) > maxExtensionLen || strings.ContainsAny(ext, `\ `) {
		return defaultExtension
	}
	return ext
}

// DestinationName is the file name of a downloaded asset.
func DestinationName(recordID string, kind catalog.Kind, ext string) string {
	return recordID + "_" + string(kind) + ext
}

// JobKey identifies a job within a batch.
type JobKey struct {
	RecordID string
	Kind     catalog.Kind
}

func (k JobKey) String() string {
	return k.RecordID + "/" + string(k.Kind)
}

// Job is one download of one resource of one record.
type Job struct {
	RecordID    string
	Kind        catalog.Kind
	SourceURL   string
	Destination string
}

// Key returns the job identity.
func (j Job) Key() JobKey {
	return JobKey{RecordID: j.RecordID, Kind: j.Kind}
}

// Plan derives download jobs in record order, poster before backdrop.
// Records without a resource path for a kind produce no job for it.
func Plan(records []catalog.Record, resolver Resolver, imagesDir string) []Job {
	jobs := make([]Job, 0, len(records)*len(catalog.Kinds))
	for _, rec := range records {
		for _, kind := range catalog.Kinds {
			source, ok := resolver.URL(rec, kind)
			if !ok {
				continue
			}
			jobs = append(jobs, Job{
				RecordID:    rec.ID,
				Kind:        kind,
				SourceURL:   source,
				Destination: filepath.Join(imagesDir, DestinationName(rec.ID, kind, Extension(source))),
			})
		}
	}
	return jobs
}
