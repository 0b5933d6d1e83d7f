package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxrecon/internal/domain"
	"taxrecon/internal/export"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCompareCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	primary := writeFile(t, dir, "primary.json", `{"Wages":"52000.00","Payer":"Acme"}`)
	secondary := writeFile(t, dir, "secondary.yaml", "wages: \"52000.00\"\nState: CA\n")

	out, err := runCLI(t, "compare", primary, secondary)
	require.NoError(t, err)

	var got struct {
		Counts      domain.ComparisonCounts `json:"counts"`
		NeedsReview bool                    `json:"needs_review"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1, got.Counts.Matching)
	assert.Equal(t, 1, got.Counts.PrimaryOnly)
	assert.Equal(t, 1, got.Counts.SecondaryOnly)
	assert.True(t, got.NeedsReview)
}

func TestCompareCommand_CSVToFile(t *testing.T) {
	dir := t.TempDir()
	primary := writeFile(t, dir, "a.json", `{"Wages":"100"}`)
	secondary := writeFile(t, dir, "b.json", `{"Wages":"200"}`)
	target := filepath.Join(dir, "out.csv")

	_, err := runCLI(t, "compare", primary, secondary, "--format", "csv", "--out", target)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte(export.BOM)))
	records, err := csv.NewReader(bytes.NewReader(data[len(export.BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Wages", export.StatusDiscrepancy, "100", "200"}, records[1])
}

func TestCompareCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", `{"a":"1"}`)
	nested := writeFile(t, dir, "nested.json", `{"a":{"b":"c"}}`)

	_, err := runCLI(t, "compare", good, nested)
	assert.ErrorIs(t, err, domain.ErrInvalidFieldMap)

	_, err = runCLI(t, "compare", good, good, "--format", "pdf")
	assert.ErrorContains(t, err, "unknown format")

	_, err = runCLI(t, "compare", good)
	assert.Error(t, err)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, domain.ContentTypePDF, contentTypeFor("w2.PDF"))
	assert.Equal(t, domain.ContentTypeJPEG, contentTypeFor("scan.jpg"))
	assert.Equal(t, domain.ContentTypeTIFF, contentTypeFor("fax.tif"))
	assert.Equal(t, domain.ContentTypePNG, contentTypeFor("receipt.png"))
	assert.Equal(t, "", contentTypeFor("noext"))
}

func TestReadDocument_TooLarge(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "big.pdf", "0123456789")

	_, err := readDocument(p, "", 5)
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	req, err := readDocument(p, "list boxes", 0)
	require.NoError(t, err)
	assert.Equal(t, "big.pdf", req.Name)
	assert.Equal(t, domain.ContentTypePDF, req.ContentType)
	assert.Equal(t, "list boxes", req.CustomInstructions)
}
