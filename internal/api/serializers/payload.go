package serializers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/temba-api/internal/domain"
)

const (
	msgNotObject   = "Request body should be a single JSON object"
	msgRequired    = "This field is required."
	msgNull        = "This field may not be null."
	msgBlank       = "This field may not be blank."
	msgNotString   = "Not a valid string."
	msgNotInteger  = "A valid integer is required."
	msgNotBoolean  = "Must be a valid boolean."
	msgNotRef      = "Must be a string or integer."
	msgInvalidURL  = "Enter a valid URL."
	msgInvalidURN  = "Invalid URN: %s"
	msgNotList     = `Expected a list of items but got type "%s".`
	msgNotDict     = `Expected a dictionary of items but got type "%s".`
	msgInvalidItem = "Invalid value."
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// report errors under the JSON name of each field
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(err)
	}
	return v
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "notblank":
		return msgBlank
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "url":
		return msgInvalidURL
	default:
		return msgInvalidItem
	}
}

// payload is a request body being validated. Decoders record their errors
// against the field they decode and return nil for absent, null or invalid
// values.
type payload struct {
	raw  map[string]json.RawMessage
	errs ValidationErrors
}

func parsePayload(body []byte) (*payload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &payload{raw: map[string]json.RawMessage{}, errs: ValidationErrors{}}, nil
	}
	if trimmed[0] != '{' {
		return nil, nonFieldError(msgNotObject)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, nonFieldError("JSON parse error - " + err.Error())
	}
	return &payload{raw: raw, errs: ValidationErrors{}}, nil
}

func (p *payload) present(name string) bool {
	_, ok := p.raw[name]
	return ok
}

// valid reports whether name was given and decoded without error.
func (p *payload) valid(name string) bool {
	return p.present(name) && !p.errs.Has(name)
}

// value returns the raw value of name. JSON null is an error unless nullable.
func (p *payload) value(name string, nullable bool) (json.RawMessage, bool) {
	raw, ok := p.raw[name]
	if !ok {
		return nil, false
	}
	if jsonType(raw) == "NoneType" {
		if !nullable {
			p.errs.Add(name, msgNull)
		}
		return nil, false
	}
	return raw, true
}

func (p *payload) str(name string, nullable bool) *string {
	raw, ok := p.value(name, nullable)
	if !ok {
		return nil
	}
	s, ok := asString(raw)
	if !ok {
		p.errs.Add(name, msgNotString)
		return nil
	}
	return &s
}

func (p *payload) integer(name string) *int {
	raw, ok := p.value(name, false)
	if !ok {
		return nil
	}
	i, ok := asInt(raw)
	if !ok {
		p.errs.Add(name, msgNotInteger)
		return nil
	}
	return &i
}

func (p *payload) boolean(name string) *bool {
	raw, ok := p.value(name, false)
	if !ok {
		return nil
	}
	b, ok := asBool(raw)
	if !ok {
		p.errs.Add(name, msgNotBoolean)
		return nil
	}
	return &b
}

func (p *payload) list(name string) ([]json.RawMessage, bool) {
	raw, ok := p.value(name, false)
	if !ok {
		return nil, false
	}
	if t := jsonType(raw); t != "list" {
		p.errs.Add(name, fmt.Sprintf(msgNotList, t))
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		p.errs.Add(name, msgInvalidItem)
		return nil, false
	}
	return items, true
}

func (p *payload) dict(name string) (map[string]json.RawMessage, bool) {
	raw, ok := p.value(name, false)
	if !ok {
		return nil, false
	}
	if t := jsonType(raw); t != "dict" {
		p.errs.Add(name, fmt.Sprintf(msgNotDict, t))
		return nil, false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		p.errs.Add(name, msgInvalidItem)
		return nil, false
	}
	return m, true
}

// any decodes an arbitrary JSON value, keeping numbers as json.Number.
func (p *payload) any(name string) any {
	raw, ok := p.value(name, true)
	if !ok {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		p.errs.Add(name, msgInvalidItem)
		return nil
	}
	return v
}

// ref decodes a single reference, which is a string or an integer.
func (p *payload) ref(name string) *string {
	raw, ok := p.value(name, false)
	if !ok {
		return nil
	}
	s, ok := asRef(raw)
	if !ok {
		p.errs.Add(name, msgNotRef)
		return nil
	}
	return &s
}

// refs decodes a list of references.
func (p *payload) refs(name string) []string {
	items, ok := p.list(name)
	if !ok {
		return nil
	}
	values := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := asRef(item)
		if !ok {
			p.errs.Add(name, msgNotRef)
			return nil
		}
		values = append(values, s)
	}
	return values
}

// urns decodes a list of URN strings, normalizing each one.
func (p *payload) urns(name string) []domain.URN {
	items, ok := p.list(name)
	if !ok {
		return nil
	}
	urns := make([]domain.URN, 0, len(items))
	for _, item := range items {
		s, ok := asString(item)
		if !ok {
			p.errs.Add(name, msgNotString)
			return nil
		}
		urn, err := domain.ParseURN(s)
		if err != nil {
			p.errs.Add(name, fmt.Sprintf(msgInvalidURN, s))
			continue
		}
		urns = append(urns, urn)
	}
	if p.errs.Has(name) {
		return nil
	}
	return urns
}

// check applies the struct tag rules of input. Fields which already failed
// decoding keep only their decoding error.
func (p *payload) check(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating %T: %w", input, err)
	}

	for _, fe := range fieldErrs {
		if name := fe.Field(); !p.errs.Has(name) {
			p.errs.Add(name, tagMessage(fe))
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stages are the steps of validating a body. input holds the decoded
// fields and carries the struct tag rules.
type stages struct {
	input   any
	decode  func(p *payload)
	resolve func(ctx context.Context, p *payload) error
	cross   func(ctx context.Context, p *payload) error
}

func runStages(ctx context.Context, body []byte, s stages) error {
	p, err := parsePayload(body)
	if err != nil {
		return err
	}

	s.decode(p)
	if s.input != nil {
		if err := p.check(s.input); err != nil {
			return err
		}
	}
	if s.resolve != nil {
		if err := s.resolve(ctx, p); err != nil {
			return err
		}
	}
	if len(p.errs) > 0 {
		return p.errs
	}

	if s.cross != nil {
		if err := s.cross(ctx, p); err != nil {
			return err
		}
	}
	if len(p.errs) > 0 {
		return p.errs
	}
	return nil
}

// jsonType names the type of a raw JSON value the way clients of this API
// have always seen it named in error messages.
func jsonType(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "NoneType"
	}
	switch raw[0] {
	case '"':
		return "str"
	case '{':
		return "dict"
	case '[':
		return "list"
	case 't', 'f':
		return "bool"
	case 'n':
		return "NoneType"
	}
	if bytes.ContainsAny(raw, ".eE") {
		return "float"
	}
	return "int"
}

func asString(raw json.RawMessage) (string, bool) {
	switch jsonType(raw) {
	case "str":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	case "int", "float":
		return string(bytes.TrimSpace(raw)), true
	}
	return "", false
}

// asFieldValue is asString which also takes booleans, as "true" or "false".
func asFieldValue(raw json.RawMessage) (string, bool) {
	if jsonType(raw) == "bool" {
		return string(bytes.TrimSpace(raw)), true
	}
	return asString(raw)
}

func asRef(raw json.RawMessage) (string, bool) {
	switch jsonType(raw) {
	case "str":
		return asString(raw)
	case "int":
		return string(bytes.TrimSpace(raw)), true
	}
	return "", false
}

func asInt(raw json.RawMessage) (int, bool) {
	switch jsonType(raw) {
	case "int":
		i, err := strconv.Atoi(string(bytes.TrimSpace(raw)))
		return i, err == nil
	case "float":
		f, err := strconv.ParseFloat(string(bytes.TrimSpace(raw)), 64)
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	case "str":
		s, _ := asString(raw)
		i, err := strconv.Atoi(s)
		return i, err == nil
	}
	return 0, false
}

var (
	trueValues  = map[string]bool{"t": true, "T": true, "y": true, "Y": true, "yes": true, "YES": true, "true": true, "True": true, "TRUE": true, "on": true, "On": true, "ON": true, "1": true}
	falseValues = map[string]bool{"f": true, "F": true, "n": true, "N": true, "no": true, "NO": true, "false": true, "False": true, "FALSE": true, "off": true, "Off": true, "OFF": true, "0": true}
)

func asBool(raw json.RawMessage) (bool, bool) {
	var s string
	switch jsonType(raw) {
	case "bool":
		var b bool
		err := json.Unmarshal(raw, &b)
		return b, err == nil
	case "int":
		s = string(bytes.TrimSpace(raw))
	case "str":
		s, _ = asString(raw)
	default:
		return false, false
	}
	switch {
	case trueValues[s]:
		return true, true
	case falseValues[s]:
		return false, true
	}
	return false, false
}
