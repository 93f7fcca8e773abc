package command

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// PropertyKind is the JSON type a payload property must have.
type PropertyKind string

const (
	KindString  PropertyKind = "string"
	KindNumber  PropertyKind = "number"
	KindInteger PropertyKind = "integer"
	KindBoolean PropertyKind = "boolean"
	KindArray   PropertyKind = "array"
	KindObject  PropertyKind = "object"
)

// Property constrains one payload field. Rules is a validator tag
// (e.g. "min=1,max=100") checked against the value once its kind matches.
type Property struct {
	Kind     PropertyKind
	Required bool
	Rules    string
}

// Schema is the shape a command payload must satisfy.
type Schema struct {
	Properties map[string]Property
}

// Validate checks payload against the schema and returns a human readable
// reason for the first violation. Properties are checked in name order.
func (s Schema) Validate(payload map[string]any) error {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop := s.Properties[name]
		value, ok := payload[name]
		if !ok || value == nil {
			if prop.Required {
				return fmt.Errorf("Missing required property: %s", name)
			}
			continue
		}
		if prop.Kind != "" && !matchesKind(prop.Kind, value) {
			return fmt.Errorf("Invalid type for property %q: expected %s", name, prop.Kind)
		}
		if prop.Rules == "" {
			continue
		}
		if err := validate.Var(value, prop.Rules); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return fmt.Errorf("Invalid value for property %q: failed rule %q", name, verrs[0].Tag())
			}
			return fmt.Errorf("Invalid value for property %q: %w", name, err)
		}
	}
	return nil
}

func matchesKind(kind PropertyKind, value any) bool {
	switch kind {
	case KindString:
		_, ok := value.(string)
		return ok
	case KindBoolean:
		_, ok := value.(bool)
		return ok
	case KindNumber:
		_, ok := number(value)
		return ok
	case KindInteger:
		f, ok := number(value)
		return ok && f == math.Trunc(f)
	case KindArray:
		rv := reflect.ValueOf(value)
		return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
	case KindObject:
		return reflect.ValueOf(value).Kind() == reflect.Map
	}
	return false
}

// number accepts both decoded JSON numbers and Go numeric values.
func number(value any) (float64, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}
