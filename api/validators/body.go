package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

const maxBodyBytes = 1 << 20

var (
	validate = newValidator()

	slugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	last4Pattern = regexp.MustCompile(`^[0-9]{4}$`)
)

// fieldMessages renders validator tags. "%s" receives the tag parameter.
var fieldMessages = map[string]string{
	"required": "is required",
	"min":      "must be at least %s",
	"max":      "must be at most %s",
	"gte":      "must be greater than or equal to %s",
	"lte":      "must be less than or equal to %s",
	"gt":       "must be greater than %s",
	"len":      "must have length %s",
	"email":    "must be a valid email",
	"url":      "must be a valid url",
	"oneof":    "must be one of %s",
	"slug":     "must contain lowercase letters, digits and dashes",
	"last4":    "must be exactly four digits",
	"password": "must be at least 8 characters and include a letter and a digit",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	for tag, fn := range map[string]func(string) bool{
		"slug":     slugPattern.MatchString,
		"last4":    last4Pattern.MatchString,
		"password": strongPassword,
	} {
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool { return fn(fl.Field().String()) }); err != nil {
			panic(err)
		}
	}
	return v
}

// DecodeJSONBody reads exactly one JSON object of at most 1 MiB into dest,
// refusing unknown fields, then validates it.
func DecodeJSONBody(r *http.Request, dest any) error {
	defer io.Copy(io.Discard, r.Body)

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes+1))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return bodyError(err)
	}
	if dec.More() {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body must hold a single JSON object")
	}
	return Struct(dest)
}

func bodyError(err error) *pkgerrors.Error {
	var syntax *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	msg := err.Error()
	switch {
	case errors.Is(err, io.EOF):
		msg = "request body is required"
	case errors.Is(err, io.ErrUnexpectedEOF):
		msg = "request body is truncated or larger than 1 MiB"
	case errors.As(err, &syntax):
		msg = fmt.Sprintf("malformed JSON at offset %d", syntax.Offset)
	case errors.As(err, &typeErr):
		msg = fmt.Sprintf("field %s must be %s", typeErr.Field, typeErr.Type)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(map[string]any{"error": msg})
}

// Struct runs tag validation on an already populated value.
func Struct(value any) error {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return pkgerrors.New(pkgerrors.CodeUnprocessable, "validation failed").WithDetails(details)
}

func fieldMessage(fe validator.FieldError) string {
	format, ok := fieldMessages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.Contains(format, "%s") {
		return fmt.Sprintf(format, fe.Param())
	}
	return format
}

func strongPassword(value string) bool {
	if len(value) < 8 || len(value) > 128 {
		return false
	}
	var letter, digit bool
	for _, r := range value {
		letter = letter || unicode.IsLetter(r)
		digit = digit || unicode.IsDigit(r)
	}
	return letter && digit
}
