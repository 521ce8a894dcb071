package product

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/cosmerec/internal/domain"
)

// Conditions is the canonical set of skin conditions a product targets.
// Insertion order is kept for display; membership is exact and case-sensitive.
type Conditions struct {
	names []string
}

// NewConditions builds a set from names, dropping empty strings and duplicates.
func NewConditions(names ...string) Conditions {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return Conditions{names: out}
}

// Has reports whether name is in the set.
func (c Conditions) Has(name string) bool {
	for _, n := range c.names {
		if n == name {
			return true
		}
	}
	return false
}

// Names returns the condition names in insertion order.
func (c Conditions) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of conditions.
func (c Conditions) Len() int { return len(c.names) }

// IsEmpty reports whether the set has no conditions.
func (c Conditions) IsEmpty() bool { return len(c.names) == 0 }

// String joins the names with ", ".
func (c Conditions) String() string { return strings.Join(c.names, ", ") }

// RawConditions is the associated-conditions value as it arrives from a corpus or
// storage: either a real list or a legacy string holding a serialized list.
type RawConditions struct {
	list   []string
	text   string
	isText bool
}

// ConditionsFromList wraps an already-structured list.
func ConditionsFromList(names []string) RawConditions {
	return RawConditions{list: names}
}

// ConditionsFromText wraps a legacy string-encoded list such as "['건선', '아토피']".
func ConditionsFromText(s string) RawConditions {
	return RawConditions{text: s, isText: true}
}

// ParseConditions resolves a raw value into a Conditions set.
// Lists are taken as-is. Strings are parsed as a JSON array or a Python-style list
// literal; blank strings give an empty set. Anything else gives an empty set and an
// error wrapping domain.ErrConditionsMalformed, so callers can log it and keep the product.
func ParseConditions(raw RawConditions) (Conditions, error) {
	if !raw.isText {
		return NewConditions(raw.list...), nil
	}

	s := strings.TrimSpace(raw.text)
	if s == "" {
		return Conditions{}, nil
	}

	if names, ok := parseJSONList(s); ok {
		return NewConditions(names...), nil
	}

	names, err := parseLiteralList(s)
	if err != nil {
		return Conditions{}, fmt.Errorf("%w: %q: %w", domain.ErrConditionsMalformed, raw.text, err)
	}
	return NewConditions(names...), nil
}

// MustParseConditions parses and drops the error. For callers that only need the fallback.
func MustParseConditions(raw RawConditions) Conditions {
	c, _ := ParseConditions(raw)
	return c
}

// MarshalJSON encodes the set as a JSON array of names.
func (c Conditions) MarshalJSON() ([]byte, error) {
	if c.names == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.names) //nolint:wrapcheck // plain slice encoding
}

func parseJSONList(s string) ([]string, bool) {
	var items []any
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, false
	}
	names := make([]string, 0, len(items))
	for _, it := range items {
		if str, ok := it.(string); ok {
			names = append(names, str)
		}
	}
	return names, true
}

// parseLiteralList accepts a bracketed list or tuple of quoted strings, the form a
// Python list takes when written to a spreadsheet cell. Bare scalar elements
// (numbers, None, True, False) are accepted and skipped since they cannot match a
// condition name.
func parseLiteralList(s string) ([]string, error) {
	if len(s) < 2 {
		return nil, fmt.Errorf("too short")
	}
	open, closing := s[0], s[len(s)-1]
	if !(open == '[' && closing == ']') && !(open == '(' && closing == ')') {
		return nil, fmt.Errorf("not a bracketed list")
	}

	body := []rune(s[1 : len(s)-1])
	var names []string
	expectItem := true

	for i := 0; i < len(body); {
		r := body[i]
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			i++
		case r == ',':
			if expectItem {
				return nil, fmt.Errorf("unexpected comma at %d", i)
			}
			expectItem = true
			i++
		case r == '\'' || r == '"':
			if !expectItem {
				return nil, fmt.Errorf("missing comma before element at %d", i)
			}
			str, next, err := scanQuoted(body, i)
			if err != nil {
				return nil, err
			}
			names = append(names, str)
			expectItem = false
			i = next
		default:
			if !expectItem {
				return nil, fmt.Errorf("missing comma before element at %d", i)
			}
			word, next := scanBare(body, i)
			if !isScalarLiteral(word) {
				return nil, fmt.Errorf("unsupported element %q", word)
			}
			expectItem = false
			i = next
		}
	}

	return names, nil
}

func scanQuoted(body []rune, start int) (string, int, error) {
	quote := body[start]
	var b strings.Builder
	for i := start + 1; i < len(body); i++ {
		r := body[i]
		switch r {
		case '\\':
			if i+1 >= len(body) {
				return "", 0, fmt.Errorf("dangling escape")
			}
			i++
			b.WriteRune(unescape(body[i]))
		case quote:
			return b.String(), i + 1, nil
		default:
			b.WriteRune(r)
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}

func unescape(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	default:
		return r
	}
}

func scanBare(body []rune, start int) (string, int) {
	i := start
	for i < len(body) && body[i] != ',' && body[i] != ' ' && body[i] != '\t' {
		i++
	}
	return string(body[start:i]), i
}

func isScalarLiteral(word string) bool {
	switch word {
	case "None", "True", "False":
		return true
	}
	digits := 0
	for i, r := range word {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.', i == 0 && (r == '-' || r == '+'):
		default:
			return false
		}
	}
	return digits > 0
}
