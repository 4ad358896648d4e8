package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind names an image resource attached to a record.
type Kind string

const (
	KindPoster   Kind = "poster"
	KindBackdrop Kind = "backdrop"
)

// Kinds lists asset kinds in planning order.
var Kinds = []Kind{KindPoster, KindBackdrop}

// PathField is the record key holding the relative resource path.
func (k Kind) PathField() string { return string(k) + "_path" }

// URLField is the enriched key holding the resolved remote URL.
func (k Kind) URLField() string { return string(k) + "_url" }

// Field is one key/value pair of a record, value kept as raw JSON.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Record is an input catalog entry. Fields are kept in source order with
// their raw JSON values so they can be written back unchanged.
type Record struct {
	// ID is the textual form of the id field: the decoded string for JSON
	// strings, the literal for JSON numbers.
	ID     string
	Fields []Field
}

var (
	errMissingID = errors.New("missing id")
	nullValue    = json.RawMessage("null")
)

// Get returns the raw value stored under key.
func (r Record) Get(key string) (json.RawMessage, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Path returns the resource path for kind, or "" when the field is missing,
// null, or blank.
func (r Record) Path(kind Kind) string {
	raw, ok := r.Get(kind.PathField())
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

// decodeRecord parses one JSON object preserving key order. A repeated key
// keeps its first position and its last value.
func decodeRecord(raw json.RawMessage) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return Record{}, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Record{}, errors.New("record is not a JSON object")
	}

	var rec Record
	positions := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Record{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Record{}, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return Record{}, fmt.Errorf("field %q: %w", key, err)
		}
		if pos, seen := positions[key]; seen {
			rec.Fields[pos].Value = value
			continue
		}
		positions[key] = len(rec.Fields)
		rec.Fields = append(rec.Fields, Field{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return Record{}, err
	}

	id, err := recordID(rec)
	if err != nil {
		return Record{}, err
	}
	rec.ID = id
	for _, kind := range Kinds {
		if err := checkPathField(rec, kind); err != nil {
			return Record{}, err
		}
	}
	return rec, nil
}

func recordID(rec Record) (string, error) {
	raw, ok := rec.Get("id")
	if !ok || bytes.Equal(bytes.TrimSpace(raw), nullValue) {
		return "", errMissingID
	}
	var id string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", fmt.Errorf("id: %w", err)
		}
		id = strings.TrimSpace(id)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		id = string(raw)
	default:
		return "", fmt.Errorf("id must be a number or string, got %s", raw)
	}
	if id == "" {
		return "", errMissingID
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("id %q cannot be used in a file name", id)
	}
	return id, nil
}

func checkPathField(rec Record, kind Kind) error {
	raw, ok := rec.Get(kind.PathField())
	if !ok {
		return nil
	}
	switch raw[0] {
	case '"', 'n':
		return nil
	default:
		return fmt.Errorf("%s must be a string or null, got %s", kind.PathField(), raw)
	}
}
