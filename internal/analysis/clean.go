package analysis

import (
	"regexp"
	"strings"
)

var (
	fenceOpenRe  = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \t]*\r?\n?")
	fenceCloseRe = regexp.MustCompile("\r?\n?[ \t]*```[ \t]*$")
)

// cleanResponse repairs the usual damage found around model JSON: code fences,
// prose before or after the object and trailing commas.
func cleanResponse(raw string) string {
	s := strings.TrimSpace(raw)
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = outerObject(s)
	s = removeTrailingCommas(s)
	return strings.TrimSpace(s)
}

// outerObject trims anything outside the first '{' and the last '}'.
func outerObject(s string) string {
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// removeTrailingCommas drops commas that directly precede a closing '}' or ']'.
// String literals are copied untouched.
func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inString:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
		case c == '"':
			inString = true
		case c == ',' && closesNext(s[i+1:]):
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// closesNext reports whether the first non-whitespace byte of s closes an
// object or array.
func closesNext(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			continue
		case '}', ']':
			return true
		default:
			return false
		}
	}
	return false
}

// stripFences removes code fences only, for text that is not expected to be JSON.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
