package export

import (
	"encoding/csv"
	"io"

	"taxrecon/internal/domain"
)

// BOM lets Excel on Windows detect UTF-8.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes comparison rows as CSV.
type CSVWriter struct {
	out io.Writer
	csv *csv.Writer
}

// NewCSVWriter creates a CSVWriter on w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{out: w, csv: csv.NewWriter(w)}
}

// WriteBOM writes the UTF-8 byte order mark. Call it before anything else.
func (w *CSVWriter) WriteBOM() error {
	_, err := w.out.Write(BOM)
	return err
}

// WriteHeader writes the column header row.
func (w *CSVWriter) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteComparison writes one row per key of res.
func (w *CSVWriter) WriteComparison(res *domain.ComparisonResult) error {
	for _, row := range Rows(res) {
		if err := w.csv.Write(row.values()); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes buffered rows and returns any write error.
func (w *CSVWriter) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}

// WriteCSV writes a complete CSV document: BOM, header and rows.
func WriteCSV(w io.Writer, res *domain.ComparisonResult) error {
	cw := NewCSVWriter(w)
	if err := cw.WriteBOM(); err != nil {
		return err
	}
	if err := cw.WriteHeader(); err != nil {
		return err
	}
	if err := cw.WriteComparison(res); err != nil {
		return err
	}
	return cw.Flush()
}
