package grading

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Answers maps a question id to the selected answers, in submission order.
type Answers map[int64][]string

// Selected returns the selection for a question, never nil.
func (a Answers) Selected(questionID int64) []string {
	if s, ok := a[questionID]; ok && s != nil {
		return s
	}
	return []string{}
}

// Normalize coerces an untyped submission into Answers. It never fails:
// keys that are not integers are dropped, a nil selection becomes empty,
// every element is stringified, and a scalar selection is treated as a
// one-element list. Order and duplicates are preserved.
func Normalize(raw map[string]any) Answers {
	out := make(Answers, len(raw))
	for k, v := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil {
			continue
		}
		out[id] = stringList(v)
	}
	return out
}

// NormalizeJSON decodes a stored or submitted JSON object and normalizes it.
// Anything that is not a JSON object yields empty Answers.
func NormalizeJSON(data []byte) Answers {
	var raw map[string]any
	if len(data) == 0 || json.Unmarshal(data, &raw) != nil {
		return Answers{}
	}
	return Normalize(raw)
}

func stringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, stringify(e))
		}
		return out
	default:
		return []string{stringify(t)}
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}
