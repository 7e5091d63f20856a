package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Generic key/value helpers shared by the FromMap parsers.
// A missing key is a data gap and parses to the zero value.

func subMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

func decimalField(m map[string]any, key string) (decimal.Decimal, error) {
	if m == nil {
		return decimal.Zero, nil
	}
	v, ok := m[key]
	if !ok || v == nil {
		return decimal.Zero, nil
	}
	d, err := toDecimal(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("field %s: %w", key, err)
	}
	return d, nil
}

func int64Field(m map[string]any, key string) (int64, error) {
	if m == nil {
		return 0, nil
	}
	v, ok := m[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("field %s: %v is not an integer", key, n)
		}
		return int64(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("field %s: %w", key, err)
		}
		return i, nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("field %s: %w", key, err)
		}
		return i, nil
	case decimal.Decimal:
		if !n.IsInteger() {
			return 0, fmt.Errorf("field %s: %s is not an integer", key, n)
		}
		return n.IntPart(), nil
	default:
		return 0, fmt.Errorf("field %s: unsupported integer type %T", key, v)
	}
}

func stringField(m map[string]any, key string) (string, error) {
	if m == nil {
		return "", nil
	}
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %s: expected string, got %T", key, v)
	}
	return s, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case string:
		if n == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(n)
	case json.Number:
		return decimal.NewFromString(n.String())
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case uint64:
		return decimal.NewFromString(strconv.FormatUint(n, 10))
	default:
		return decimal.Zero, fmt.Errorf("unsupported decimal type %T", v)
	}
}

// SafeDiv returns num/den, or zero when den is zero.
func SafeDiv(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}

func copyDetails(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		if nested, ok := v.(map[string]any); ok {
			dst[k] = copyDetails(nested)
			continue
		}
		dst[k] = v
	}
	return dst
}
