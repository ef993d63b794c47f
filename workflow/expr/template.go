package expr

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// maxRenderPasses bounds nested dereference: a substituted value may itself
// contain {{...}} tokens, so substitution repeats until stable or until this
// many passes have run.
const maxRenderPasses = 10

// tokenPattern matches {{name}}, {{name.field}}, {{name[index]}} and chains
// of those segments, optionally suffixed :json.
var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)((?:\.[A-Za-z0-9_]+|\[[^\[\]]+\])*)(:json)?\s*\}\}`)

// Render substitutes {{...}} tokens in text against the variable mapping.
//
// A bare name is looked up directly and stringified. A dotted or indexed
// path resolves the base name first; a string base is parsed as JSON (after
// stripping an optional surrounding fenced code block) before the remaining
// segments are walked. A [n] segment indexes an array; a non-numeric index
// is itself resolved as a variable. The :json suffix JSON-string-escapes the
// substituted value so it can be embedded inside a JSON string literal.
//
// Unresolved tokens are left verbatim; they are not errors.
func Render(text string, vars map[string]any) string {
	out := text
	for pass := 0; pass < maxRenderPasses; pass++ {
		next := renderOnce(out, vars)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func renderOnce(text string, vars map[string]any) string {
	return tokenPattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := tokenPattern.FindStringSubmatch(match)
		if sub == nil {
			return match
		}
		base, path, escape := sub[1], sub[2], sub[3] != ""

		resolved, ok := resolveToken(base, path, vars)
		if !ok {
			return match
		}
		if escape {
			return jsonEscape(resolved)
		}
		return resolved
	})
}

// resolveToken resolves a base variable plus optional path segments.
func resolveToken(base, path string, vars map[string]any) (string, bool) {
	value, ok := vars[base]
	if !ok {
		return "", false
	}
	if path == "" {
		return Stringify(value), true
	}

	current := value
	if s, isString := current.(string); isString {
		var parsed any
		if err := json.Unmarshal([]byte(StripCodeFence(s)), &parsed); err != nil {
			return "", false
		}
		current = parsed
	}

	segments, ok := splitPath(path)
	if !ok {
		return "", false
	}
	for _, seg := range segments {
		current, ok = walkSegment(current, seg, vars)
		if !ok {
			return "", false
		}
	}
	return Stringify(current), true
}

// pathSegment is one step of a {{base.field[index]}} path.
type pathSegment struct {
	field   string
	index   string
	isIndex bool
}

// splitPath splits ".field[0].other[n]" into segments.
func splitPath(path string) ([]pathSegment, bool) {
	var segments []pathSegment
	rest := path
	for rest != "" {
		switch rest[0] {
		case '.':
			end := 1
			for end < len(rest) && rest[end] != '.' && rest[end] != '[' {
				end++
			}
			if end == 1 {
				return nil, false
			}
			segments = append(segments, pathSegment{field: rest[1:end]})
			rest = rest[end:]
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 || end == 1 {
				return nil, false
			}
			segments = append(segments, pathSegment{index: rest[1:end], isIndex: true})
			rest = rest[end+1:]
		default:
			return nil, false
		}
	}
	return segments, true
}

// walkSegment applies one path segment to the current value.
func walkSegment(current any, seg pathSegment, vars map[string]any) (any, bool) {
	if seg.isIndex {
		arr, ok := current.([]any)
		if !ok {
			return nil, false
		}
		n, err := strconv.Atoi(seg.index)
		if err != nil {
			// A non-numeric index is itself a variable reference.
			v, exists := vars[seg.index]
			if !exists {
				return nil, false
			}
			n, err = strconv.Atoi(Stringify(v))
			if err != nil {
				return nil, false
			}
		}
		if n < 0 || n >= len(arr) {
			return nil, false
		}
		return arr[n], true
	}

	m, ok := current.(map[string]any)
	if !ok {
		return nil, false
	}
	value, exists := m[seg.field]
	if !exists {
		return nil, false
	}
	return value, true
}

// Stringify renders a variable value as text. Numbers render without a
// trailing fraction (5, not 5.000000); composite values render as JSON.
func Stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case json.Number:
		return value.String()
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(data)
	}
}

// StripCodeFence removes a surrounding markdown code fence (``` or
// ```json) from a value, returning the trimmed inner text. Values without a
// fence are returned trimmed.
func StripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	nl := strings.IndexByte(trimmed, '\n')
	if nl < 0 {
		return trimmed
	}
	body := strings.TrimSpace(trimmed[nl+1:])
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// ExtractPath parses raw as JSON (stripping an optional code fence) and
// walks the dotted/indexed path, e.g. "data.items[0].name". It returns the
// stringified value, or false when the path cannot be resolved.
func ExtractPath(raw, path string) (string, bool) {
	var parsed any
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), &parsed); err != nil {
		return "", false
	}
	if path == "" {
		return Stringify(parsed), true
	}
	if path[0] != '.' && path[0] != '[' {
		path = "." + path
	}
	segments, ok := splitPath(path)
	if !ok {
		return "", false
	}
	current := parsed
	for _, seg := range segments {
		current, ok = walkSegment(current, seg, nil)
		if !ok {
			return "", false
		}
	}
	return Stringify(current), true
}

// jsonEscape escapes s for embedding inside a JSON string literal.
func jsonEscape(s string) string {
	data, err := json.Marshal(s)
	if err != nil {
		return s
	}
	return string(data[1 : len(data)-1])
}
