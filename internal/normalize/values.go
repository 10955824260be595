package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/gyeh/bolagsload/internal/model"
)

// NullToken is the relational-store null marker used in COPY/CSV text.
const NullToken = `\N`

// Absent reports whether a raw value is one of the missing-value spellings:
// nil, NaN, an empty or blank string, or the \N token.
func Absent(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(t)
	case float32:
		return math.IsNaN(float64(t))
	case string:
		return absentString(t)
	case []byte:
		return absentString(string(t))
	}
	return false
}

func absentString(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == NullToken
}

// Text converts a raw value to a trimmed, NFC-normalized string.
// Returns nil for absent values.
func Text(v any) *string {
	if Absent(v) {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case []byte:
		s = string(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case int32:
		s = strconv.FormatInt(int64(t), 10)
	case int:
		s = strconv.Itoa(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	case time.Time:
		s = t.Format(model.DateLayout)
	default:
		s = fmt.Sprint(t)
	}
	s = norm.NFC.String(strings.TrimSpace(s))
	return &s
}

// Int32 converts integers, whole floats and decimal strings ("3", "3.0").
func Int32(v any) (*int32, error) {
	if Absent(v) {
		return nil, nil
	}
	var n int64
	switch t := v.(type) {
	case int64:
		n = t
	case int32:
		n = int64(t)
	case int:
		n = int64(t)
	case float64:
		if t != math.Trunc(t) {
			return nil, fmt.Errorf("not a whole number: %v", t)
		}
		n = int64(t)
	case string:
		s := strings.TrimSpace(t)
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil || f != math.Trunc(f) {
				return nil, fmt.Errorf("not an integer: %q", s)
			}
			i = int64(f)
		}
		n = i
	default:
		return nil, fmt.Errorf("unsupported integer type %T", v)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, fmt.Errorf("out of range: %d", n)
	}
	i := int32(n)
	return &i, nil
}

// Bool accepts booleans, 0/1 and the usual textual spellings in Swedish and
// English.
func Bool(v any) (*bool, error) {
	if Absent(v) {
		return nil, nil
	}
	var b bool
	switch t := v.(type) {
	case bool:
		b = t
	case int64:
		if t != 0 && t != 1 {
			return nil, fmt.Errorf("not a boolean: %d", t)
		}
		b = t == 1
	case float64:
		if t != 0 && t != 1 {
			return nil, fmt.Errorf("not a boolean: %v", t)
		}
		b = t == 1
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "t", "1", "ja", "j", "yes", "y":
			b = true
		case "false", "f", "0", "nej", "n", "no":
			b = false
		default:
			return nil, fmt.Errorf("not a boolean: %q", t)
		}
	default:
		return nil, fmt.Errorf("unsupported boolean type %T", v)
	}
	return &b, nil
}

// Date accepts time.Time values and strings in any of the layouts known to
// ParseDate. The result is truncated to a UTC calendar date.
func Date(v any) (*time.Time, error) {
	if Absent(v) {
		return nil, nil
	}
	var t time.Time
	switch x := v.(type) {
	case time.Time:
		t = x
	case string:
		p, err := ParseDate(x)
		if err != nil {
			return nil, err
		}
		t = p
	default:
		return nil, fmt.Errorf("unsupported date type %T", v)
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d, nil
}
