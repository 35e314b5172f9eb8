package domain

import (
	"math/big"
	"strings"
	"time"
)

// DatetimeFormat is the layout of every datetime exposed by the API, always
// rendered in UTC with microsecond precision.
const DatetimeFormat = "2006-01-02T15:04:05.000000Z"

// FormatDatetime renders t in DatetimeFormat.
func FormatDatetime(t time.Time) string {
	return t.UTC().Format(DatetimeFormat)
}

// Value is the value of a custom field for one contact. StringValue always
// holds the raw value; the typed columns are populated when the raw value
// parses as that type.
type Value struct {
	ContactID     ContactID      `json:"contact_id"`
	FieldID       ContactFieldID `json:"field_id"`
	StringValue   string         `json:"string_value"`
	DecimalValue  *string        `json:"decimal_value,omitempty"`
	DatetimeValue *time.Time     `json:"datetime_value,omitempty"`
	LocationName  *string        `json:"location_name,omitempty"`
}

var datetimeInputLayouts = []string{
	time.RFC3339Nano,
	DatetimeFormat,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006",
}

// ParseFieldValue builds the value stored for raw when set on field.
func ParseFieldValue(field *ContactField, raw string) *Value {
	v := &Value{FieldID: field.ID, StringValue: raw}
	trimmed := strings.TrimSpace(raw)

	if d, ok := parseDecimal(trimmed); ok {
		v.DecimalValue = &d
	}

	for _, layout := range datetimeInputLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			t = t.UTC()
			v.DatetimeValue = &t
			break
		}
	}

	if field.ValueType.IsLocation() && trimmed != "" {
		v.LocationName = &trimmed
	}

	return v
}

// SerializeFieldValue renders a contact's value for field according to the
// field's declared type. A nil result means no value, or no value of the
// declared type.
func SerializeFieldValue(field *ContactField, value *Value) *string {
	if value == nil {
		return nil
	}

	switch field.ValueType {
	case ValueTypeDatetime:
		if value.DatetimeValue == nil {
			return nil
		}
		s := FormatDatetime(*value.DatetimeValue)
		return &s
	case ValueTypeNumber:
		if value.DecimalValue == nil {
			return nil
		}
		s := FormatDecimal(*value.DecimalValue)
		return &s
	case ValueTypeState, ValueTypeDistrict, ValueTypeWard:
		return value.LocationName
	default:
		s := value.StringValue
		return &s
	}
}

// FormatDecimal strips insignificant trailing zeros from a decimal string,
// e.g. "1.500" becomes "1.5" and "2.000" becomes "2".
func FormatDecimal(d string) string {
	if !strings.Contains(d, ".") {
		return d
	}
	d = strings.TrimRight(d, "0")
	return strings.TrimSuffix(d, ".")
}

func parseDecimal(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	r, ok := new(big.Rat).SetString(strings.ReplaceAll(s, ",", ""))
	if !ok {
		return "", false
	}
	// reject fractions and exponents which big.Rat accepts but aren't decimals
	if strings.ContainsAny(s, "/eE") {
		return "", false
	}
	return FormatDecimal(r.FloatString(10)), true
}
