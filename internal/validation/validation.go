// Package validation checks imported and edited records. Struct rules come
// from `validate` tags (go-playground/validator); the small helpers below
// cover field checks that have no tag.
package validation

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/diewo77/bon-livraison/internal/i18n"
	"github.com/go-playground/validator/v10"
)

// Violations maps a field name to a violation code ("required", ...).
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Messages returns the violations translated into lang.
func (v Violations) Messages(lang string) map[string]string {
	out := make(map[string]string, len(v))
	for field, code := range v {
		out[field] = i18n.T(lang, code)
	}
	return out
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct runs the tag rules of s and returns the violations keyed by JSON
// field name. Required strings made only of spaces are reported too.
func Struct(s any) (Violations, error) {
	v := Violations{}
	err := instance().Struct(s)
	if err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		for _, fe := range verrs {
			v[fe.Field()] = code(fe.Tag())
		}
	}
	blankRequired(s, v)
	return v, nil
}

// Valid reports whether s passes Struct without violations.
func Valid(s any) bool {
	v, err := Struct(s)
	return err == nil && v.Empty()
}

// blankRequired reports required string fields holding only whitespace,
// which the validator accepts.
func blankRequired(s any, v Violations) {
	rv := reflect.Indirect(reflect.ValueOf(s))
	if rv.Kind() != reflect.Struct {
		return
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.Type.Kind() != reflect.String || !strings.Contains(f.Tag.Get("validate"), "required") {
			continue
		}
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = f.Name
		}
		Required(name, rv.Field(i).String(), v)
	}
}

func code(tag string) string {
	switch tag {
	case "required":
		return "required"
	case "min", "max", "gte", "lte", "gt", "lt":
		return "out_of_range"
	}
	return "invalid"
}

// Required flags value when it is empty after trimming.
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 || math.IsNaN(val) {
		v[field] = "must_be_positive"
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal || math.IsNaN(val) {
		v[field] = "out_of_range"
	}
}
