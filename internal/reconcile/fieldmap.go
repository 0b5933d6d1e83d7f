package reconcile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"taxrecon/internal/domain"
)

// ParseFieldMapJSON decodes a flat JSON object into a field map. String values
// are kept as-is; numbers and booleans keep their literal text. Nested values
// and null are rejected with domain.ErrInvalidFieldMap.
func ParseFieldMapJSON(data []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFieldMap, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected an object", domain.ErrInvalidFieldMap)
	}
	return FieldMapFromValues(raw)
}

// ParseFieldMapYAML decodes a flat YAML mapping into a field map. Scalars are
// rendered as with ParseFieldMapJSON.
func ParseFieldMapYAML(data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFieldMap, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected a mapping", domain.ErrInvalidFieldMap)
	}
	return FieldMapFromValues(raw)
}

// LoadFieldMapFile reads a field map from disk. Files ending in .yaml or .yml
// are parsed as YAML, everything else as JSON.
func LoadFieldMapFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading field map: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseFieldMapYAML(data)
	}
	return ParseFieldMapJSON(data)
}

// FieldMapFromValues converts decoded scalar values (JSON or YAML) into a
// field map.
func FieldMapFromValues(values map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(values))
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := values[k].(type) {
		case string:
			out[k] = v
		case json.Number:
			out[k] = v.String()
		case bool:
			out[k] = strconv.FormatBool(v)
		case int:
			out[k] = strconv.Itoa(v)
		case int64:
			out[k] = strconv.FormatInt(v, 10)
		case uint64:
			out[k] = strconv.FormatUint(v, 10)
		case float64:
			out[k] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return nil, fmt.Errorf("%w: value of %q is %T", domain.ErrInvalidFieldMap, k, v)
		}
	}
	return out, nil
}
