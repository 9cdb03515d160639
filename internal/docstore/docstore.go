// Package docstore defines the document-gateway capability the stores are
// built on: schemaless documents keyed by collection name and document id,
// with one-shot reads and a live subscription push feed.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Document is a schemaless JSON-shaped document. Fields that are absent are
// genuinely absent; adapters must never persist explicit nulls for them.
type Document map[string]any

// Snapshot pairs a document with its id as read from a collection.
type Snapshot struct {
	ID   string
	Data Document
}

// Unsubscribe tears down a live subscription. Safe to call more than once.
type Unsubscribe func()

// ConstraintKind enumerates the supported query constraints.
type ConstraintKind int

const (
	ConstraintWhere ConstraintKind = iota
	ConstraintOrderBy
	ConstraintLimit
)

// Constraint narrows or orders a List/Subscribe query.
type Constraint struct {
	Kind  ConstraintKind
	Field string
	Value any
	Desc  bool
	N     int
}

// Where matches documents whose field equals value.
func Where(field string, value any) Constraint {
	return Constraint{Kind: ConstraintWhere, Field: field, Value: value}
}

// OrderBy sorts results by a field, descending when desc is true.
func OrderBy(field string, desc bool) Constraint {
	return Constraint{Kind: ConstraintOrderBy, Field: field, Desc: desc}
}

// Limit caps the number of results.
func Limit(n int) Constraint {
	return Constraint{Kind: ConstraintLimit, N: n}
}

// Store is the document gateway. Get returns (nil, nil) when the document
// does not exist. Delete of a missing document succeeds. Subscribe delivers
// the full matching snapshot immediately and again after every matching
// mutation.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string, constraints ...Constraint) ([]Snapshot, error)
	Add(ctx context.Context, collection string, doc Document) (string, error)
	Set(ctx context.Context, collection, id string, doc Document) error
	Update(ctx context.Context, collection, id string, partial Document) error
	Delete(ctx context.Context, collection, id string) error
	Subscribe(ctx context.Context, collection string, constraints []Constraint, cb func([]Snapshot)) (Unsubscribe, error)
	Close(ctx context.Context) error
}

// Encode converts a struct into a Document through its JSON representation.
// omitempty fields that are zero are dropped, which is what keeps optional
// story audio fields absent rather than null.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return doc, nil
}

// Decode converts a Document back into a typed struct.
func Decode(doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

// Clone deep-copies a document so callers can never alias store-owned state.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	default:
		return v
	}
}

// ApplyConstraints filters, orders, and limits snapshots in memory. Adapters
// that cannot push constraints down to their backend share this so that
// ordering semantics stay identical across drivers.
func ApplyConstraints(snaps []Snapshot, constraints []Constraint) []Snapshot {
	out := make([]Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if matchesWhere(s, constraints) {
			out = append(out, s)
		}
	}
	for _, c := range constraints {
		if c.Kind == ConstraintOrderBy {
			field, desc := c.Field, c.Desc
			sort.SliceStable(out, func(i, j int) bool {
				less := lessValues(out[i].Data[field], out[j].Data[field])
				if desc {
					return !less && !equalValues(out[i].Data[field], out[j].Data[field])
				}
				return less
			})
		}
	}
	for _, c := range constraints {
		if c.Kind == ConstraintLimit && c.N >= 0 && len(out) > c.N {
			out = out[:c.N]
		}
	}
	return out
}

func matchesWhere(s Snapshot, constraints []Constraint) bool {
	for _, c := range constraints {
		if c.Kind != ConstraintWhere {
			continue
		}
		if !equalValues(s.Data[c.Field], c.Value) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b) && (a == nil) == (b == nil)
}

// lessValues orders numbers numerically and everything else lexically.
// RFC 3339 timestamps sort correctly under the lexical branch.
func lessValues(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af < bf
		}
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
