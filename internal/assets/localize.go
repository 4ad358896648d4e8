package assets

import (
	"path/filepath"
	"strings"

	"cinefetch/internal/catalog"
	"cinefetch/internal/fileutil"
)

// DefaultLocalPrefix is prepended to local paths relative to the output file.
const DefaultLocalPrefix = "./"

// LocalExtensions are probed in order when looking for a downloaded asset.
var LocalExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// FindLocal returns the first existing {id}_{kind}{ext} file in dir.
// Unreadable entries count as missing.
func FindLocal(dir, recordID string, kind catalog.Kind) (string, bool) {
	for _, ext := range LocalExtensions {
		candidate := filepath.Join(dir, DestinationName(recordID, kind, ext))
		if fileutil.Exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// Localize returns copies of records whose resource paths point at files
// found in imagesDir. Paths are written relative to refDir with prefix in
// front; the prefix is dropped when imagesDir lies outside refDir. Kinds
// without a local file keep the original remote resource path.
func Localize(records []catalog.Enriched, imagesDir, refDir, prefix string) []catalog.Enriched {
	return rewriteLocal(records, func(recordID string, kind catalog.Kind) (string, bool) {
		found, ok := FindLocal(imagesDir, recordID, kind)
		if !ok {
			return "", false
		}
		return localReference(found, refDir, prefix), true
	})
}

// LocalizeResults is Localize driven by a finished batch instead of the
// images directory: a kind is rewritten to the file its job wrote only when
// that job succeeded. Failed jobs keep the remote path even when an older
// file for the record exists. It must run only after all jobs are terminal.
func LocalizeResults(records []catalog.Enriched, results Results, refDir, prefix string) []catalog.Enriched {
	return rewriteLocal(records, func(recordID string, kind catalog.Kind) (string, bool) {
		key := JobKey{RecordID: recordID, Kind: kind}
		if !results.Succeeded(key) {
			return "", false
		}
		return localReference(results[key].Path, refDir, prefix), true
	})
}

func rewriteLocal(records []catalog.Enriched, lookup func(recordID string, kind catalog.Kind) (string, bool)) []catalog.Enriched {
	out := make([]catalog.Enriched, 0, len(records))
	for _, rec := range records {
		localized := rec
		localized.LocalPaths = make(map[catalog.Kind]string, len(catalog.Kinds))
		for kind, p := range rec.LocalPaths {
			localized.LocalPaths[kind] = p
		}
		for _, kind := range catalog.Kinds {
			if ref, ok := lookup(rec.Source.ID, kind); ok {
				localized.LocalPaths[kind] = ref
			}
		}
		out = append(out, localized)
	}
	return out
}

func localReference(file, refDir, prefix string) string {
	absFile, err := filepath.Abs(file)
	if err != nil {
		return filepath.ToSlash(file)
	}
	absRef, err := filepath.Abs(refDir)
	if err != nil {
		return filepath.ToSlash(absFile)
	}
	rel, err := filepath.Rel(absRef, absFile)
	if err != nil {
		return filepath.ToSlash(absFile)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return rel
	}
	return prefix + rel
}
