package validators

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jgechelper/backend/pkg/enums"
	pkgerrors "github.com/jgechelper/backend/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	for tag, fn := range domainRules {
		_ = v.RegisterValidation(tag, fn)
	}
	return v
}

// domainRules validate the catalog fields shared by admin forms.
var domainRules = map[string]validator.Func{
	"branch": func(fl validator.FieldLevel) bool {
		return enums.Branch(strings.TrimSpace(fl.Field().String())).IsValid()
	},
	"semester": func(fl validator.FieldLevel) bool {
		return enums.IsValidSemester(strings.TrimSpace(fl.Field().String()))
	},
	"resource_type": func(fl validator.FieldLevel) bool {
		return enums.ResourceType(strings.TrimSpace(fl.Field().String())).IsValid()
	},
	"notice_category": func(fl validator.FieldLevel) bool {
		raw := strings.TrimSpace(fl.Field().String())
		return raw == "" || enums.NoticeCategory(raw).IsValid()
	},
}

// DecodeJSONBody strictly decodes a JSON body into dest and runs struct
// validation, mapping failures onto CodeValidation.
func DecodeJSONBody(r *http.Request, dest any) error {
	defer func() {
		io.Copy(io.Discard, r.Body)
	}()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(map[string]any{"error": err.Error()})
	}
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) *pkgerrors.Error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = validationMessage(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid url"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "branch":
		return "must be a known branch code"
	case "semester":
		return "must be a semester label such as \"1st Semester\""
	case "resource_type":
		return "must be Question Paper, Notes or Syllabus"
	case "notice_category":
		return "must be General, Exam, Holiday or Urgent"
	}
	return "is invalid"
}
