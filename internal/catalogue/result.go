package catalogue

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/securecheck/securecheck-cli/internal/schema"
)

// ColumnType is the engine-independent type of a result column.
type ColumnType string

const (
	TypeString ColumnType = "string"
	TypeInt    ColumnType = "integer"
	TypeFloat  ColumnType = "float"
	TypeDate   ColumnType = "date"
	TypeBool   ColumnType = "boolean"
)

// Column describes one result column.
type Column struct {
	Name string     `json:"name" yaml:"name"`
	Type ColumnType `json:"type" yaml:"type"`
}

// Result is the output of one report. Rows hold string, int64, float64,
// bool or nil cells matching Columns; dates are "YYYY-MM-DD" strings.
type Result struct {
	Report  string   `json:"report" yaml:"report"`
	Slug    string   `json:"slug" yaml:"slug"`
	Columns []Column `json:"columns" yaml:"columns"`
	Rows    [][]any  `json:"rows" yaml:"rows"`
}

// ColumnNames returns the result header.
func (r *Result) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// Records returns the rows as column-name keyed maps.
func (r *Result) Records() []map[string]any {
	out := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		m := make(map[string]any, len(r.Columns))
		for j, c := range r.Columns {
			m[c.Name] = row[j]
		}
		out[i] = m
	}
	return out
}

func typeOfKind(k schema.Kind) ColumnType {
	switch k {
	case schema.KindDate:
		return TypeDate
	case schema.KindInt:
		return TypeInt
	case schema.KindBool:
		return TypeBool
	default:
		return TypeString
	}
}

// coerce converts a raw engine value to the Go type declared for t.
func coerce(t ColumnType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch t {
	case TypeInt:
		return toInt(v)
	case TypeFloat:
		return toFloat(v)
	case TypeBool:
		return toBool(v)
	case TypeDate:
		return toDate(v)
	default:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	}
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case float32:
		return int64(x), nil
	case *big.Int:
		return x.Int64(), nil
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", x)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("unexpected integer value %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		return f, nil
	case fmt.Stringer:
		return toFloat(x.String())
	default:
		return 0, fmt.Errorf("unexpected float value %T", v)
	}
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case int32:
		return x != 0, nil
	case int:
		return x != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("not a boolean: %q", x)
		}
		return b, nil
	default:
		return false, fmt.Errorf("unexpected boolean value %T", v)
	}
}

func toDate(v any) (string, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(time.DateOnly), nil
	case string:
		if len(x) >= 10 {
			if _, err := time.Parse(time.DateOnly, x[:10]); err == nil {
				return x[:10], nil
			}
		}
		return "", fmt.Errorf("not a date: %q", x)
	default:
		return "", fmt.Errorf("unexpected date value %T", v)
	}
}
