package recquery

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/steinarvk/whizdex/lib/flatten"
	"golang.org/x/text/cases"
)

func lookup(r Record, field string) (interface{}, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// stringify renders a scalar the way it would be displayed in a table cell.
func stringify(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	case time.Time:
		return v.Format(time.RFC3339)
	case interface{ String() string }:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// asNumber coerces v to a float. NaN is rejected since it has no place in
// an ordering.
func asNumber(v interface{}) (float64, bool) {
	f, ok := rawNumber(v)
	if !ok || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func rawNumber(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func asTime(v interface{}) (time.Time, bool) {
	t, err := flatten.InterpretTimestamp(v)
	return t, err == nil
}

// folder case-folds strings. A cases.Caser is stateful, so each query run
// gets its own.
type folder struct {
	caser cases.Caser
}

func newFolder() *folder {
	return &folder{caser: cases.Fold()}
}

func (f *folder) fold(s string) string {
	return f.caser.String(s)
}
