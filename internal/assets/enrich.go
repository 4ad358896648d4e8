package assets

import (
	"cinefetch/internal/catalog"
)

// Enrich attaches resolved URLs to a copy of every record, in input order.
// The URL is recorded whenever the record has a resource path for the kind,
// whether or not its download succeeded.
func Enrich(records []catalog.Record, resolver Resolver) []catalog.Enriched {
	out := make([]catalog.Enriched, 0, len(records))
	for _, rec := range records {
		enriched := catalog.Enriched{Source: rec, URLs: make(map[catalog.Kind]string, len(catalog.Kinds))}
		for _, kind := range catalog.Kinds {
			if url, ok := resolver.URL(rec, kind); ok {
				enriched.URLs[kind] = url
			}
		}
		out = append(out, enriched)
	}
	return out
}
