// Package reconcile compares two flat field maps extracted from the same
// document.
package reconcile

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"taxrecon/internal/domain"
)

// normalizer folds case and collapses whitespace. cases.Caser keeps state, so
// each Compare call gets its own.
type normalizer struct {
	fold cases.Caser
}

func newNormalizer() *normalizer {
	return &normalizer{fold: cases.Fold()}
}

func (n *normalizer) normalize(s string) string {
	return n.fold.String(strings.Join(strings.Fields(s), " "))
}

type entry struct {
	key      string
	value    string
	values   []string
	conflict bool
}

// index maps normalized keys to the raw entry. When several raw keys collapse
// to the same normalized key, the first in sorted order supplies the key. If
// their values disagree the entry is marked conflicting and its value lists
// every distinct raw value, joined by "; ".
func (n *normalizer) index(m map[string]string) map[string]entry {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]entry, len(m))
	for _, k := range keys {
		nk := n.normalize(k)
		e, exists := out[nk]
		if !exists {
			out[nk] = entry{key: k, value: m[k], values: []string{m[k]}}
			continue
		}
		if n.seen(e.values, m[k]) {
			continue
		}
		e.values = append(e.values, m[k])
		e.value = strings.Join(e.values, "; ")
		e.conflict = true
		out[nk] = e
	}
	return out
}

func (n *normalizer) seen(values []string, v string) bool {
	nv := n.normalize(v)
	for _, existing := range values {
		if n.normalize(existing) == nv {
			return true
		}
	}
	return false
}

// Compare buckets the union of keys of primary and secondary. Keys and values
// are compared case-insensitively with whitespace collapsed. Raw keys and
// values are reported; keys present in both use the primary's spelling. A key
// whose raw spellings carry different values on either side never matches.
func Compare(primary, secondary map[string]string) domain.ComparisonResult {
	n := newNormalizer()
	p := n.index(primary)
	s := n.index(secondary)

	res := domain.ComparisonResult{
		Matching:      make(map[string]string),
		Discrepancies: make(map[string]domain.FieldDiff),
		PrimaryOnly:   make(map[string]string),
		SecondaryOnly: make(map[string]string),
	}

	for nk, pe := range p {
		se, ok := s[nk]
		switch {
		case !ok:
			res.PrimaryOnly[pe.key] = pe.value
		case !pe.conflict && !se.conflict && n.normalize(pe.value) == n.normalize(se.value):
			res.Matching[pe.key] = pe.value
		default:
			res.Discrepancies[pe.key] = domain.FieldDiff{Primary: pe.value, Secondary: se.value}
		}
	}
	for nk, se := range s {
		if _, ok := p[nk]; !ok {
			res.SecondaryOnly[se.key] = se.value
		}
	}
	return res
}
