package flatten

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	canonicaljson "github.com/gibson042/canonicaljson-go"
	"github.com/google/uuid"
)

// Records lacking an id get a name-based UUID in this namespace, so the same
// content always maps to the same id.
var recordIDNamespace = uuid.MustParse("0b7e6f0e-5a55-4c52-9f3c-2f0d1c8d7a11")

var validIDFieldNames = []string{
	"id",
	"record_id",
	"uuid",
}

const IDField = "id"

type PathElementKind int

const (
	ObjectField PathElementKind = 1
	ArrayIndex  PathElementKind = 2
)

type PathElement struct {
	Kind       PathElementKind
	FieldName  string
	ArrayIndex int
}

type Flattener struct {
	MaxSerializedLength       int
	MaxExploredObjectElements int
	MaxTotalFields            int
	MaxCapturedValueLength    int
}

func DefaultFlattener() Flattener {
	return Flattener{
		MaxSerializedLength:       1024 * 1024,
		MaxExploredObjectElements: 1000,
		MaxTotalFields:            1000,
		MaxCapturedValueLength:    4096,
	}
}

type Record struct {
	ID            string
	Hash          string
	Fields        map[string]interface{}
	FieldNames    []string
	CanonicalJSON string
}

var allowedStringFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func interpretFloatAsTimestamp(value float64) (time.Time, error) {
	multipliers := []float64{
		1.0,          // seconds
		1000.0,       // milliseconds
		1000000.0,    // microseconds
		1000000000.0, // nanoseconds
	}
	minReasonableYear := 2000
	maxReasonableYear := 2100
	for _, multiplier := range multipliers {
		scaled := value / multiplier
		seconds := math.Floor(scaled)
		nanoseconds := int64((scaled - seconds) * 1e9)
		t := time.Unix(int64(seconds), nanoseconds).UTC()
		if t.Year() >= minReasonableYear && t.Year() <= maxReasonableYear {
			return t, nil
		}
	}
	return time.Time{}, errors.New("invalid timestamp")
}

// InterpretTimestamp accepts time.Time, RFC3339 or plain-date strings, and
// unix timestamps in seconds through nanoseconds.
func InterpretTimestamp(value interface{}) (time.Time, error) {
	switch value := value.(type) {
	case time.Time:
		return value, nil
	case *time.Time:
		if value == nil {
			return time.Time{}, errors.New("invalid timestamp")
		}
		return *value, nil
	case string:
		value = strings.TrimSpace(value)
		if parsedInt, err := strconv.ParseInt(value, 10, 64); err == nil {
			return interpretFloatAsTimestamp(float64(parsedInt))
		}

		for _, format := range allowedStringFormats {
			t, err := time.Parse(format, value)
			if err == nil {
				return t, nil
			}
		}

		return time.Time{}, errors.New("invalid timestamp")
	case float64:
		return interpretFloatAsTimestamp(value)
	case int:
		return interpretFloatAsTimestamp(float64(value))
	case int64:
		return interpretFloatAsTimestamp(float64(value))
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return time.Time{}, errors.New("invalid timestamp")
		}
		return interpretFloatAsTimestamp(f)
	default:
		return time.Time{}, errors.New("invalid timestamp")
	}
}

func visitJSON(elements []PathElement, value interface{}, visit func([]PathElement, interface{}) (bool, error)) error {
	explore, err := visit(elements, value)
	if err != nil {
		return err
	}
	if !explore {
		return nil
	}

	switch value := value.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(value))
		for k := range value {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			elementsCopy := make([]PathElement, len(elements)+1)
			copy(elementsCopy, elements)
			elementsCopy[len(elements)] = PathElement{
				Kind:      ObjectField,
				FieldName: k,
			}

			if err := visitJSON(elementsCopy, value[k], visit); err != nil {
				return err
			}
		}
	case []interface{}:
		for i, v := range value {
			elementsCopy := make([]PathElement, len(elements)+1)
			copy(elementsCopy, elements)
			elementsCopy[len(elements)] = PathElement{
				Kind:       ArrayIndex,
				ArrayIndex: i,
			}

			if err := visitJSON(elementsCopy, v, visit); err != nil {
				return err
			}
		}
	}

	return nil
}

func hashData(data []byte) []byte {
	h := sha256.New()
	h.Write(data)
	return h.Sum(nil)
}

// HashJSON returns the hex sha256 of the canonical JSON form of input.
func HashJSON(input interface{}) (string, error) {
	marshalled, err := canonicaljson.Marshal(input)
	if err != nil {
		return "", err
	}

	return hexlify(hashData(marshalled)), nil
}

func hexlify(b []byte) string {
	return fmt.Sprintf("%x", b)
}

// FormatPath renders a path as a record field name: "vendor.name", "items[0].sku".
func FormatPath(elements []PathElement) string {
	var sb strings.Builder

	for i, e := range elements {
		switch e.Kind {
		case ObjectField:
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(e.FieldName)
		case ArrayIndex:
			fmt.Fprintf(&sb, "[%d]", e.ArrayIndex)
		}
	}

	return sb.String()
}

var (
	errMultiline     = errors.New("serialized record contains newline")
	errTooLong       = errors.New("serialized record too long")
	errNotObject     = errors.New("record is not a JSON object on the top-level")
	errTooManyFields = errors.New("record has too many fields")
)

type badJSONError struct {
	err error
}

func (b badJSONError) Error() string {
	return fmt.Sprintf("serialized record is invalid JSON: %s", b.err)
}

func (b badJSONError) Unwrap() error {
	return b.err
}

type canonicalizationError struct {
	err error
}

func (b canonicalizationError) Error() string {
	return fmt.Sprintf("serialized record could not be canonicalized: %s", b.err)
}

func (b canonicalizationError) Unwrap() error {
	return b.err
}

func (f *Flattener) FlattenJSON(recordData []byte) (*Record, error) {
	line := strings.TrimSpace(string(recordData))

	if strings.Count(line, "\n") > 0 {
		return nil, errMultiline
	}

	if f.MaxSerializedLength > 0 && len(line) > f.MaxSerializedLength {
		return nil, errTooLong
	}

	var unmarshalled interface{}
	if err := json.Unmarshal([]byte(line), &unmarshalled); err != nil {
		return nil, badJSONError{err}
	}

	return f.FlattenObject(unmarshalled)
}

func (f *Flattener) flattenObjectToFields(unmarshalled interface{}) (map[string]interface{}, error) {
	fields := map[string]interface{}{}

	if err := visitJSON(nil, unmarshalled, func(elements []PathElement, value interface{}) (bool, error) {
		if len(elements) == 0 {
			return true, nil
		}

		switch value := value.(type) {
		case map[string]interface{}:
			return f.MaxExploredObjectElements <= 0 || len(value) <= f.MaxExploredObjectElements, nil
		case []interface{}:
			return f.MaxExploredObjectElements <= 0 || len(value) <= f.MaxExploredObjectElements, nil
		case string:
			if f.MaxCapturedValueLength > 0 && len(value) > f.MaxCapturedValueLength {
				return false, nil
			}
		}

		fields[FormatPath(elements)] = value
		if f.MaxTotalFields > 0 && len(fields) > f.MaxTotalFields {
			return false, errTooManyFields
		}

		return false, nil
	}); err != nil {
		return nil, err
	}

	return fields, nil
}

// FlattenObject turns a decoded JSON object into a flat record whose field
// names are dotted paths and whose values are scalars (string, float64,
// bool or nil).
func (f *Flattener) FlattenObject(unmarshalled interface{}) (*Record, error) {
	canonicalForm, err := canonicaljson.Marshal(unmarshalled)
	if err != nil {
		return nil, canonicalizationError{err}
	}

	if f.MaxSerializedLength > 0 && len(canonicalForm) > f.MaxSerializedLength {
		return nil, errTooLong
	}

	unmarshalledObj, ok := unmarshalled.(map[string]interface{})
	if !ok {
		return nil, errNotObject
	}

	fields, err := f.flattenObjectToFields(unmarshalledObj)
	if err != nil {
		return nil, err
	}

	recordHash := hashData(canonicalForm)

	var recordID string
	for _, idFieldName := range validIDFieldNames {
		value, ok := unmarshalledObj[idFieldName]
		if !ok || value == nil {
			continue
		}
		switch value := value.(type) {
		case string:
			recordID = value
		case float64:
			recordID = strconv.FormatFloat(value, 'f', -1, 64)
		default:
			return nil, fmt.Errorf("invalid ID field %q: not a string or number", idFieldName)
		}
		break
	}
	if recordID == "" {
		recordID = uuid.NewSHA1(recordIDNamespace, canonicalForm).String()
	}
	fields[IDField] = recordID

	fieldNames := make([]string, 0, len(fields))
	for k := range fields {
		fieldNames = append(fieldNames, k)
	}
	sort.Strings(fieldNames)

	return &Record{
		ID:            recordID,
		Hash:          hexlify(recordHash),
		Fields:        fields,
		FieldNames:    fieldNames,
		CanonicalJSON: string(canonicalForm),
	}, nil
}
