// Package validation turns request payloads into field-scoped errors.
//
// Struct payloads are decoded one field at a time and then checked with gin's
// validator. Loosely typed payloads (recipes) are read through a Payload. In
// both cases a type error on one field does not hide errors on another.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/mikepea/recipes/pkg/recipes/apierr"
)

// NonFieldErrors is the key for errors that do not belong to a single field
const NonFieldErrors = "non_field_errors"

const (
	MsgRequired = "This field is required."
	MsgNull     = "This field may not be null."
	MsgBlank    = "This field may not be blank."
	MsgString   = "Not a valid string."
	MsgInvalid  = "Invalid value."
)

var setupOnce sync.Once

// Validator returns gin's validator engine configured to report json field
// names and to understand the notblank tag.
func Validator() *validator.Validate {
	v := binding.Validator.Engine().(*validator.Validate)
	setupOnce.Do(func() {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(err)
		}
	})
	return v
}

func init() {
	Validator()
}

// Errors collects field errors without stopping at the first one.
type Errors struct {
	fields apierr.Fields
}

// Add records a message against a field
func (e *Errors) Add(field, message string) {
	if e.fields == nil {
		e.fields = apierr.Fields{}
	}
	e.fields[field] = append(e.fields[field], message)
}

// Has reports whether a field already has an error
func (e *Errors) Has(field string) bool {
	_, ok := e.fields[field]
	return ok
}

// Err returns an invalid error listing every field, or nil if there were none
func (e *Errors) Err() error {
	if len(e.fields) == 0 {
		return nil
	}
	return apierr.Invalid(e.fields)
}

// BindJSON decodes the request body into the struct obj points to, one field
// at a time, then runs the binding validators. A type error on one field does
// not hide value errors on the others. String fields tagged `trim:"true"` are
// trimmed before validation.
func BindJSON(c *gin.Context, obj any) error {
	payload, err := DecodePayload(c)
	if err != nil {
		return err
	}

	var errs Errors
	present := decodeFields(payload, obj, &errs)

	if err := Validator().Struct(obj); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apierr.Internal(err, "Failed to validate request")
		}
		for _, fe := range verrs {
			field := fe.Field()
			if errs.Has(field) {
				continue
			}
			msg := Message(fe.Tag(), fe.Param())
			if fe.Tag() == "required" && present[field] && fe.Kind() == reflect.String {
				msg = MsgBlank
			}
			errs.Add(field, msg)
		}
	}
	return errs.Err()
}

// decodeFields fills the exported fields of the struct obj points to from p
// and returns the set of json names that were supplied. Decoding failures are
// recorded against their field.
func decodeFields(p Payload, obj any, errs *Errors) map[string]bool {
	present := map[string]bool{}
	v := reflect.ValueOf(obj).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}

		raw, ok := p[name]
		if !ok {
			continue
		}
		present[name] = true
		if isNull(raw) {
			errs.Add(name, MsgNull)
			continue
		}

		fv := v.Field(i)
		if err := json.Unmarshal(raw, fv.Addr().Interface()); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				errs.Add(name, typeMessage(typeErr.Type.Kind()))
			} else {
				errs.Add(name, MsgInvalid)
			}
			fv.Set(reflect.Zero(fv.Type()))
			continue
		}

		if sf.Tag.Get("trim") == "true" {
			trimString(fv)
		}
	}
	return present
}

// trimString trims a string or *string value in place
func trimString(fv reflect.Value) {
	switch {
	case fv.Kind() == reflect.String:
		fv.SetString(strings.TrimSpace(fv.String()))
	case fv.Kind() == reflect.Pointer && !fv.IsNil() && fv.Elem().Kind() == reflect.String:
		fv.Elem().SetString(strings.TrimSpace(fv.Elem().String()))
	}
}

// Message renders a validator tag failure as a human readable message
func Message(tag, param string) string {
	switch tag {
	case "required":
		return MsgRequired
	case "notblank":
		return MsgBlank
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", param)
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", param)
	case "email":
		return "Enter a valid email address."
	case "url", "http_url":
		return "Enter a valid URL."
	default:
		return MsgInvalid
	}
}

func typeMessage(kind reflect.Kind) string {
	switch kind {
	case reflect.String:
		return MsgString
	case reflect.Int, reflect.Int32, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64:
		return "A valid integer is required."
	case reflect.Slice:
		return "Expected a list of items."
	default:
		return MsgInvalid
	}
}

// Var validates a single value against validator tags and returns the
// message for the first failing tag, or "" if the value is valid.
func Var(value any, tags string) string {
	err := Validator().Var(value, tags)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return Message(verrs[0].Tag(), verrs[0].Param())
	}
	return MsgInvalid
}
