// Package export renders reconciliation results as CSV or XLSX.
package export

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"taxrecon/internal/domain"
)

// Row statuses.
const (
	StatusMatch         = "match"
	StatusDiscrepancy   = "discrepancy"
	StatusPrimaryOnly   = "primary_only"
	StatusSecondaryOnly = "secondary_only"
)

// Formats accepted by BuildFilename and the compare endpoint.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var columns = []string{"Field", "Status", "Primary Value", "Secondary Value"}

// Row is one key of a comparison, flattened for tabular output.
type Row struct {
	Field     string
	Status    string
	Primary   string
	Secondary string
}

func (r Row) values() []string {
	return []string{r.Field, r.Status, r.Primary, r.Secondary}
}

// Rows lists every key of res sorted by field name. Discrepancies come with
// both values; one-sided keys leave the other column empty.
func Rows(res *domain.ComparisonResult) []Row {
	rows := make([]Row, 0, len(res.Matching)+len(res.Discrepancies)+len(res.PrimaryOnly)+len(res.SecondaryOnly))
	for k, v := range res.Matching {
		rows = append(rows, Row{Field: k, Status: StatusMatch, Primary: v, Secondary: v})
	}
	for k, d := range res.Discrepancies {
		rows = append(rows, Row{Field: k, Status: StatusDiscrepancy, Primary: d.Primary, Secondary: d.Secondary})
	}
	for k, v := range res.PrimaryOnly {
		rows = append(rows, Row{Field: k, Status: StatusPrimaryOnly, Primary: v})
	}
	for k, v := range res.SecondaryOnly {
		rows = append(rows, Row{Field: k, Status: StatusSecondaryOnly, Secondary: v})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Field != rows[j].Field {
			return rows[i].Field < rows[j].Field
		}
		return rows[i].Status < rows[j].Status
	})
	return rows
}

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	multiUnderscore = regexp.MustCompile(`_{2,}`)
)

// SanitizeFilename keeps letters, digits, '-' and '_', collapses runs of
// underscores and truncates to 100 characters.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "reconciliation"
	}
	return s
}

// BuildFilename returns "{name}_{YYYY-MM-DD}.{format}" for Content-Disposition.
func BuildFilename(documentName, format string, now time.Time) string {
	base := strings.TrimSuffix(documentName, pathExt(documentName))
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(base), now.Format("2006-01-02"), format)
}

func pathExt(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return ""
	}
	return name[i:]
}
