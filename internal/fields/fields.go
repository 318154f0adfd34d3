// Package fields holds the closed set of typed values a template field or a
// version metadata entry can carry.
package fields

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Kind identifies a field value variant.
type Kind string

const (
	KindText    Kind = "text"
	KindNumber  Kind = "number"
	KindDate    Kind = "date"
	KindSelect  Kind = "select"
	KindBoolean Kind = "boolean"
)

// DateLayout is the canonical textual form of a Date value.
const DateLayout = "2006-01-02"

// Kinds lists every supported kind in declaration order.
var Kinds = []Kind{KindText, KindNumber, KindDate, KindSelect, KindBoolean}

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindNumber, KindDate, KindSelect, KindBoolean:
		return true
	}
	return false
}

// Value is implemented by Text, Number, Date, Select and Boolean only.
type Value interface {
	Kind() Kind
	// String renders the value the way it is substituted into documents.
	String() string
	isValue()
}

type (
	Text    string
	Number  float64
	Select  string
	Boolean bool
	Date    struct{ time.Time }
)

func (Text) Kind() Kind    { return KindText }
func (Number) Kind() Kind  { return KindNumber }
func (Date) Kind() Kind    { return KindDate }
func (Select) Kind() Kind  { return KindSelect }
func (Boolean) Kind() Kind { return KindBoolean }

func (v Text) String() string    { return string(v) }
func (v Number) String() string  { return strconv.FormatFloat(float64(v), 'f', -1, 64) }
func (v Date) String() string    { return v.Time.Format(DateLayout) }
func (v Select) String() string  { return string(v) }
func (v Boolean) String() string { return strconv.FormatBool(bool(v)) }

func (Text) isValue()    {}
func (Number) isValue()  {}
func (Date) isValue()    {}
func (Select) isValue()  {}
func (Boolean) isValue() {}

// NewDate truncates t to a calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Parse converts the canonical textual form back into a typed value.
func Parse(kind Kind, s string) (Value, error) {
	switch kind {
	case KindText:
		return Text(s), nil
	case KindSelect:
		return Select(s), nil
	case KindNumber:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("fields: invalid number %q", s)
		}
		return Number(f), nil
	case KindDate:
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			return nil, fmt.Errorf("fields: invalid date %q (want %s)", s, DateLayout)
		}
		return Date{t}, nil
	case KindBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("fields: invalid boolean %q", s)
		}
		return Boolean(b), nil
	}
	return nil, fmt.Errorf("fields: unknown kind %q", kind)
}

// jsonEntry is the API shape: {"kind":"number","value":3}.
type jsonEntry struct {
	Kind  Kind            `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// storedEntry is the persisted shape; the value is always canonical text.
type storedEntry struct {
	Kind  Kind   `bson:"kind" json:"kind"`
	Value string `bson:"value" json:"value"`
}

func encodeJSON(v Value) ([]byte, error) {
	var raw interface{}
	switch x := v.(type) {
	case Text:
		raw = string(x)
	case Select:
		raw = string(x)
	case Number:
		raw = float64(x)
	case Boolean:
		raw = bool(x)
	case Date:
		raw = x.String()
	default:
		return nil, fmt.Errorf("fields: unsupported value %T", v)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonEntry{Kind: v.Kind(), Value: b})
}

func decodeJSON(b []byte) (Value, error) {
	var e jsonEntry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	switch e.Kind {
	case KindText, KindSelect, KindDate:
		var s string
		if err := json.Unmarshal(e.Value, &s); err != nil {
			return nil, fmt.Errorf("fields: %s value must be a string", e.Kind)
		}
		return Parse(e.Kind, s)
	case KindNumber:
		var f float64
		if err := json.Unmarshal(e.Value, &f); err != nil {
			return nil, fmt.Errorf("fields: number value must be numeric")
		}
		return Number(f), nil
	case KindBoolean:
		var b bool
		if err := json.Unmarshal(e.Value, &b); err != nil {
			return nil, fmt.Errorf("fields: boolean value must be true or false")
		}
		return Boolean(b), nil
	}
	return nil, fmt.Errorf("fields: unknown kind %q", e.Kind)
}

// Tagged wraps a single Value so it can be embedded in encoded structs.
type Tagged struct {
	Value
}

func (t Tagged) MarshalJSON() ([]byte, error) {
	if t.Value == nil {
		return []byte("null"), nil
	}
	return encodeJSON(t.Value)
}

func (t *Tagged) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		t.Value = nil
		return nil
	}
	v, err := decodeJSON(b)
	if err != nil {
		return err
	}
	t.Value = v
	return nil
}

func (t Tagged) MarshalBSON() ([]byte, error) {
	if t.Value == nil {
		return bson.Marshal(bson.M{})
	}
	return bson.Marshal(storedEntry{Kind: t.Kind(), Value: t.String()})
}

func (t *Tagged) UnmarshalBSON(b []byte) error {
	var e storedEntry
	if err := bson.Unmarshal(b, &e); err != nil {
		return err
	}
	if e.Kind == "" {
		t.Value = nil
		return nil
	}
	v, err := Parse(e.Kind, e.Value)
	if err != nil {
		return err
	}
	t.Value = v
	return nil
}

// Map is a keyed bag of typed values (version metadata, filled template fields).
type Map map[string]Value

func (m Map) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		b, err := encodeJSON(v)
		if err != nil {
			return nil, fmt.Errorf("fields: key %q: %w", k, err)
		}
		out[k] = b
	}
	return json.Marshal(out)
}

func (m *Map) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Map, len(raw))
	for k, r := range raw {
		v, err := decodeJSON(r)
		if err != nil {
			return fmt.Errorf("fields: key %q: %w", k, err)
		}
		out[k] = v
	}
	*m = out
	return nil
}

func (m Map) stored() map[string]storedEntry {
	out := make(map[string]storedEntry, len(m))
	for k, v := range m {
		out[k] = storedEntry{Kind: v.Kind(), Value: v.String()}
	}
	return out
}

func fromStored(in map[string]storedEntry) (Map, error) {
	out := make(Map, len(in))
	for k, e := range in {
		v, err := Parse(e.Kind, e.Value)
		if err != nil {
			return nil, fmt.Errorf("fields: key %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func (m Map) MarshalBSON() ([]byte, error) {
	return bson.Marshal(m.stored())
}

func (m *Map) UnmarshalBSON(b []byte) error {
	var in map[string]storedEntry
	if err := bson.Unmarshal(b, &in); err != nil {
		return err
	}
	out, err := fromStored(in)
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// Value stores the map as JSON text in SQL columns.
func (m Map) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m.stored())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Map) Scan(src interface{}) error {
	var b []byte
	switch x := src.(type) {
	case nil:
		*m = Map{}
		return nil
	case string:
		b = []byte(x)
	case []byte:
		b = x
	default:
		return fmt.Errorf("fields: cannot scan %T into Map", src)
	}
	var in map[string]storedEntry
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out, err := fromStored(in)
	if err != nil {
		return err
	}
	*m = out
	return nil
}
