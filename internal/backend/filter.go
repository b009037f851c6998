package backend

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Filter selects documents by their JSON body. A nil Filter matches all.
type Filter interface {
	Match(doc []byte) bool
	String() string
}

// Matches applies f, treating nil as match-all.
func Matches(f Filter, doc []byte) bool {
	return f == nil || f.Match(doc)
}

type eqFilter struct {
	path  string
	value any
}

// Eq matches documents whose field at the dotted path equals value. A nil
// value matches a missing or null field.
func Eq(path string, value any) Filter {
	return eqFilter{path: path, value: value}
}

func (f eqFilter) Match(doc []byte) bool {
	r := gjson.GetBytes(doc, f.path)
	switch v := f.value.(type) {
	case nil:
		return !r.Exists() || r.Type == gjson.Null
	case string:
		return r.Type == gjson.String && r.Str == v
	case *string:
		if v == nil {
			return !r.Exists() || r.Type == gjson.Null
		}
		return r.Type == gjson.String && r.Str == *v
	case bool:
		return (r.Type == gjson.True || r.Type == gjson.False) && r.Bool() == v
	case int:
		return r.Type == gjson.Number && r.Int() == int64(v)
	case int64:
		return r.Type == gjson.Number && r.Int() == v
	case float64:
		return r.Type == gjson.Number && r.Float() == v
	default:
		return r.Exists() && r.String() == fmt.Sprint(v)
	}
}

func (f eqFilter) String() string {
	return fmt.Sprintf("%s == %v", f.path, f.value)
}

type andFilter []Filter

// And matches documents matching every filter.
func And(fs ...Filter) Filter { return andFilter(fs) }

func (a andFilter) Match(doc []byte) bool {
	for _, f := range a {
		if !Matches(f, doc) {
			return false
		}
	}
	return true
}

func (a andFilter) String() string { return join(a, " AND ") }

type orFilter []Filter

// Or matches documents matching at least one filter.
func Or(fs ...Filter) Filter { return orFilter(fs) }

func (o orFilter) Match(doc []byte) bool {
	for _, f := range o {
		if Matches(f, doc) {
			return true
		}
	}
	return false
}

func (o orFilter) String() string { return join(o, " OR ") }

func join(fs []Filter, sep string) string {
	parts := make([]string, 0, len(fs))
	for _, f := range fs {
		if f == nil {
			parts = append(parts, "(*)")
			continue
		}
		parts = append(parts, "("+f.String()+")")
	}
	return strings.Join(parts, sep)
}
