// Package catalog models the movie record set consumed and produced by the
// asset pipeline.
//
// Records keep every input field, in source order, as raw JSON so untouched
// values round-trip exactly. Enriched wraps a record with resolved image URLs
// and optional local paths and controls how the extra keys are placed.
package catalog
