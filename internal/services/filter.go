package services

import (
	"net/url"
	"strings"

	"fintrack/internal/core"
)

// Filter narrows a month's transactions to the visible set. Zero fields do
// not constrain; Type and Tag also accept "all".
type Filter struct {
	Type string
	Tag  string
	From core.Date
	To   core.Date
	Q    string
}

// ParseFilter reads type, tag, from, to and q from query values.
func ParseFilter(v url.Values) (Filter, error) {
	f := Filter{
		Type: strings.TrimSpace(v.Get("type")),
		Tag:  strings.TrimSpace(v.Get("tag")),
		Q:    v.Get("q"),
	}
	if s := strings.TrimSpace(v.Get("from")); s != "" {
		d, err := core.ParseDate(s)
		if err != nil {
			return Filter{}, err
		}
		f.From = d
	}
	if s := strings.TrimSpace(v.Get("to")); s != "" {
		d, err := core.ParseDate(s)
		if err != nil {
			return Filter{}, err
		}
		f.To = d
	}
	return f, nil
}

func unconstrained(s string) bool {
	return s == "" || s == "all"
}

// Match reports whether t passes every predicate.
func (f Filter) Match(t core.Transaction) bool {
	if !unconstrained(f.Type) && string(t.Type) != f.Type {
		return false
	}
	if !unconstrained(f.Tag) && string(t.Tag) != f.Tag {
		return false
	}
	if !(core.Window{From: f.From, To: f.To}).Contains(t.Date) {
		return false
	}
	if f.Q != "" {
		hay := strings.ToLower(t.Note + " " + string(t.Tag))
		if !strings.Contains(hay, strings.ToLower(f.Q)) {
			return false
		}
	}
	return true
}

// Apply returns the matching transactions in input order.
func (f Filter) Apply(txns []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txns))
	for _, t := range txns {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
