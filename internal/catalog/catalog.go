package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"cinefetch/internal/fileutil"
)

// ErrDuplicateID reports two records sharing an id within one batch.
var ErrDuplicateID = errors.New("duplicate record id")

// Parse decodes a JSON array of records.
func Parse(data []byte) ([]Record, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode record set: %w", err)
	}
	records := make([]Record, 0, len(raws))
	for idx, raw := range raws {
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", idx, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Load reads and parses the record set at path.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record set: %w", err)
	}
	return Parse(data)
}

// CheckUnique returns ErrDuplicateID naming the first repeated id.
func CheckUnique(records []Record) error {
	seen := make(map[string]int, len(records))
	for idx, rec := range records {
		if first, ok := seen[rec.ID]; ok {
			return fmt.Errorf("%w %q at records %d and %d", ErrDuplicateID, rec.ID, first, idx)
		}
		seen[rec.ID] = idx
	}
	return nil
}

// Enriched is a source record plus resolved URLs and, optionally, local
// paths that replace the record's resource paths.
type Enriched struct {
	Source Record
	// URLs holds resolved remote URLs; a missing kind encodes as null.
	URLs map[Kind]string
	// LocalPaths replaces {kind}_path for kinds with a local file.
	LocalPaths map[Kind]string
}

// MarshalJSON writes source fields in order, then poster_url and
// backdrop_url. Keys already present in the source are replaced in place.
func (e Enriched) MarshalJSON() ([]byte, error) {
	overrides := make(map[string]json.RawMessage, 4)
	for _, kind := range Kinds {
		if local, ok := e.LocalPaths[kind]; ok {
			raw, err := marshalString(local)
			if err != nil {
				return nil, err
			}
			overrides[kind.PathField()] = raw
		}
	}
	for _, kind := range Kinds {
		value := nullValue
		if url, ok := e.URLs[kind]; ok && url != "" {
			raw, err := marshalString(url)
			if err != nil {
				return nil, err
			}
			value = raw
		}
		overrides[kind.URLField()] = value
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	written := make(map[string]bool, len(e.Source.Fields)+4)
	writeField := func(key string, value json.RawMessage) error {
		if len(written) > 0 {
			buf.WriteByte(',')
		}
		k, err := marshalString(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(value)
		written[key] = true
		return nil
	}
	for _, f := range e.Source.Fields {
		value := f.Value
		if o, ok := overrides[f.Key]; ok {
			value = o
		}
		if err := writeField(f.Key, value); err != nil {
			return nil, err
		}
	}
	for _, kind := range Kinds {
		if local, ok := overrides[kind.PathField()]; ok && !written[kind.PathField()] {
			if err := writeField(kind.PathField(), local); err != nil {
				return nil, err
			}
		}
	}
	for _, kind := range Kinds {
		if !written[kind.URLField()] {
			if err := writeField(kind.URLField(), overrides[kind.URLField()]); err != nil {
				return nil, err
			}
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalString(value string) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Encode renders records as a two-space indented JSON array with a trailing
// newline. HTML characters are not escaped.
func Encode(records []Enriched) ([]byte, error) {
	if records == nil {
		records = []Enriched{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode record set: %w", err)
	}
	return buf.Bytes(), nil
}

// Write encodes records and replaces path atomically.
func Write(path string, records []Enriched) error {
	data, err := Encode(records)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write record set: %w", err)
	}
	return nil
}
