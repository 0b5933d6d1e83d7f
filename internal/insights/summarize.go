// Package insights rolls analyzed documents up into distribution summaries.
package insights

import (
	"fmt"
	"sort"
	"strings"

	"taxrecon/internal/domain"
)

// UnspecifiedType labels results whose bookmark carries no document type.
const UnspecifiedType = "Unspecified"

type count struct {
	name string
	n    int
}

// Summarize counts results per category and per document type (bookmark
// level 2) and describes the distribution in one or two sentences. It does not
// modify results and returns the same output for the same input.
func Summarize(results []domain.StructuredResult) domain.BatchInsights {
	out := domain.BatchInsights{
		Total:      len(results),
		ByCategory: make(map[string]int),
		ByType:     make(map[string]int),
	}
	for i := range results {
		out.ByCategory[categoryOf(&results[i])]++
		out.ByType[typeOf(&results[i])]++
	}
	out.Narrative = narrative(out)
	return out
}

func categoryOf(r *domain.StructuredResult) string {
	if c := strings.TrimSpace(r.DocumentCategory); c != "" {
		return c
	}
	return domain.CategoryUnknown
}

func typeOf(r *domain.StructuredResult) string {
	if t := strings.TrimSpace(r.Bookmark.Level2); t != "" {
		return t
	}
	return UnspecifiedType
}

// ranked orders counts by frequency, then name.
func ranked(m map[string]int) []count {
	out := make([]count, 0, len(m))
	for name, n := range m {
		out = append(out, count{name: name, n: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].name < out[j].name
	})
	return out
}

func narrative(in domain.BatchInsights) string {
	if in.Total == 0 {
		return "No documents analyzed."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyzed %d %s across %d %s.",
		in.Total, plural(in.Total, "document", "documents"),
		len(in.ByCategory), plural(len(in.ByCategory), "category", "categories"))

	types := ranked(in.ByType)
	if len(types) > 2 {
		types = types[:2]
	}
	parts := make([]string, len(types))
	for i, c := range types {
		parts[i] = fmt.Sprintf("%s (%d)", c.name, c.n)
	}
	if len(parts) == 1 {
		fmt.Fprintf(&sb, " Most frequent type: %s.", parts[0])
	} else {
		fmt.Fprintf(&sb, " Most frequent types: %s.", strings.Join(parts, " and "))
	}
	return sb.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
