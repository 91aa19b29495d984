package common

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	validator "github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate

	indianMobile = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// Validator returns the shared validator configured to report JSON field names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
			return indianMobile.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// FieldError describes one failed constraint.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// ValidateStruct runs struct tag validation and converts failures into a ValidationError.
func ValidateStruct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationError("invalid payload", nil)
	}
	root := reflect.TypeOf(v)
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fieldPath(root, fe), Rule: fe.Tag(), Param: fe.Param()})
	}
	msg := "validation failed"
	if len(fields) > 0 {
		msg = fields[0].Field + " failed " + fields[0].Rule + " validation"
	}
	return ValidationError(msg, fields)
}

// fieldPath renders the JSON path of a failed field without the root struct
// name or the names of embedded structs, which carry no JSON key.
func fieldPath(root reflect.Type, fe validator.FieldError) string {
	names := strings.Split(fe.Namespace(), ".")
	goNames := strings.Split(fe.StructNamespace(), ".")
	if root == nil || len(names) != len(goNames) {
		return trimNamespace(fe.Namespace())
	}
	out := make([]string, 0, len(names))
	t := root
	for i := 1; i < len(names); i++ {
		t = deref(t)
		if t.Kind() != reflect.Struct {
			out = append(out, names[i:]...)
			break
		}
		goName, index := goNames[i], ""
		if j := strings.IndexByte(goName, '['); j >= 0 {
			goName, index = goName[:j], goName[j:]
		}
		f, ok := t.FieldByName(goName)
		if !ok {
			out = append(out, names[i:]...)
			break
		}
		if !f.Anonymous {
			out = append(out, names[i])
		}
		t = f.Type
		for n := strings.Count(index, "["); n > 0; n-- {
			t = deref(t)
			switch t.Kind() {
			case reflect.Slice, reflect.Array, reflect.Map:
				t = t.Elem()
			}
		}
	}
	return strings.Join(out, ".")
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func trimNamespace(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
