package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/securecheck/securecheck-cli/internal/schema"
)

// missingTokens are text spellings treated as an absent value.
var missingTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
	"<NA>": true,
}

// IsMissing reports whether a raw cell carries no value.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return missingTokens[strings.TrimSpace(x)]
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	default:
		return false
	}
}

func cleanCategory(v any) (any, bool) {
	if IsMissing(v) {
		return schema.UnknownCategory, true
	}
	return asText(v), false
}

func cleanText(v any) (any, bool) {
	if IsMissing(v) {
		return nil, false
	}
	if t, ok := v.(time.Time); ok {
		return t.Format("15:04:05"), false
	}
	return asText(v), false
}

func cleanInt(v any) (any, bool) {
	if IsMissing(v) {
		return schema.MissingInt, true
	}
	n, ok := toInt64(v)
	if !ok {
		return schema.MissingInt, true
	}
	return n, false
}

func cleanBool(v any) (any, bool) {
	if IsMissing(v) {
		return schema.MissingBool, true
	}
	return toBool(v), false
}

func asText(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// toInt64 converts integer-like cells. Fractional values truncate toward zero.
func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case float64:
		if math.IsInf(x, 0) {
			return 0, false
		}
		return int64(x), true
	case float32:
		return toInt64(float64(x))
	case bool:
		return 0, false
	case json.Number:
		return toInt64(x.String())
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return toInt64(f)
	default:
		return 0, false
	}
}

// toBool converts boolean-like cells. Unrecognized text is false.
func toBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case int:
		return x != 0
	case float64:
		return x != 0
	case json.Number:
		return toBool(x.String())
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "t", "yes", "y", "1":
			return true
		case "false", "f", "no", "n", "0":
			return false
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f != 0
		}
		return false
	default:
		return false
	}
}

// parseDate returns the calendar date of v at UTC midnight.
func (n *Normalizer) parseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		return dateOf(x), true
	case string:
		s := strings.TrimSpace(x)
		if missingTokens[s] {
			return time.Time{}, false
		}
		for _, layout := range n.dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return dateOf(t), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
