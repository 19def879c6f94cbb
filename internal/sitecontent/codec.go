package sitecontent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidContent is returned when a document fails the structural check.
var ErrInvalidContent = errors.New("invalid content payload")

type shapeKind int

const (
	shapeObject shapeKind = iota
	shapeArray
)

// requiredShapes lists every top-level key in document order.
var requiredShapes = []struct {
	key  string
	kind shapeKind
}{
	{"meta", shapeObject},
	{"hero", shapeObject},
	{"about", shapeArray},
	{"work", shapeArray},
	{"education", shapeArray},
	{"skills", shapeArray},
	{"socials", shapeArray},
	{"booking", shapeObject},
	{"projects", shapeArray},
	{"creative", shapeArray},
	{"contact", shapeObject},
}

// ShapeError names the top-level key that failed the check.
type ShapeError struct {
	Key    string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Key == "" {
		return ErrInvalidContent.Error() + ": " + e.Reason
	}
	return fmt.Sprintf("%s: %q %s", ErrInvalidContent.Error(), e.Key, e.Reason)
}

func (e *ShapeError) Unwrap() error { return ErrInvalidContent }

// CheckShape is a shallow structural check: raw must be a JSON object whose
// singleton sections are objects and whose list sections are arrays. Field
// contents inside each section are not inspected.
func CheckShape(raw []byte) error {
	var top map[string]json.RawMessage
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return &ShapeError{Reason: "document must be a JSON object"}
	}
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return &ShapeError{Reason: "malformed JSON: " + err.Error()}
	}
	for _, s := range requiredShapes {
		v, ok := top[s.key]
		if !ok {
			return &ShapeError{Key: s.key, Reason: "is missing"}
		}
		v = bytes.TrimSpace(v)
		switch s.kind {
		case shapeObject:
			if len(v) == 0 || v[0] != '{' {
				return &ShapeError{Key: s.key, Reason: "must be an object"}
			}
		case shapeArray:
			if len(v) == 0 || v[0] != '[' {
				return &ShapeError{Key: s.key, Reason: "must be an array"}
			}
		}
	}
	return nil
}

// Decode parses raw without validating it; readers trust prior writers.
// A value of the wrong type inside a section is left at its zero value
// rather than failing the whole document.
func Decode(raw []byte) (SiteContent, error) {
	var doc SiteContent
	err := json.Unmarshal(raw, &doc)
	var te *json.UnmarshalTypeError
	if err != nil && !errors.As(err, &te) {
		return SiteContent{}, fmt.Errorf("decode site content: %w", err)
	}
	return doc, nil
}

// Encode renders the persisted layout: two-space indent, trailing newline,
// no HTML escaping. Nil lists are written as [] so the output always passes
// CheckShape.
func Encode(doc SiteContent) ([]byte, error) {
	doc = doc.normalized()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode site content: %w", err)
	}
	return buf.Bytes(), nil
}

// Canonicalize checks raw, then re-indents it in the persisted layout.
// The bytes are kept as written: keys outside SiteContent, empty strings and
// empty lists all survive.
func Canonicalize(raw []byte) ([]byte, SiteContent, error) {
	if err := CheckShape(raw); err != nil {
		return nil, SiteContent{}, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(raw), "", "  "); err != nil {
		return nil, SiteContent{}, &ShapeError{Reason: "malformed JSON: " + err.Error()}
	}
	buf.WriteByte('\n')
	doc, err := Decode(raw)
	if err != nil {
		return nil, SiteContent{}, &ShapeError{Reason: err.Error()}
	}
	return buf.Bytes(), doc, nil
}

func (d SiteContent) normalized() SiteContent {
	d.About = orEmpty(d.About)
	d.Work = orEmpty(d.Work)
	d.Education = orEmpty(d.Education)
	d.Skills = orEmpty(d.Skills)
	d.Socials = orEmpty(d.Socials)
	d.Projects = orEmpty(d.Projects)
	d.Creative = orEmpty(d.Creative)
	d.Booking.Options = orEmpty(d.Booking.Options)
	if len(d.Projects) > 0 {
		ps := make([]ProjectItem, len(d.Projects))
		for i, p := range d.Projects {
			p.Technologies = orEmpty(p.Technologies)
			p.Links = orEmpty(p.Links)
			ps[i] = p
		}
		d.Projects = ps
	}
	return d
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
