package service

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// validateInput checks struct tags and reports failures as a Validation error.
func validateInput(op string, in any) error {
	err := getValidator().Struct(in)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return wrapError(KindValidation, op, "invalid input", err)
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		if fe.Param() != "" {
			parts = append(parts, fe.Field()+" failed on "+fe.Tag()+"="+fe.Param())
		} else {
			parts = append(parts, fe.Field()+" failed on "+fe.Tag())
		}
	}
	return newError(KindValidation, op, strings.Join(parts, "; "))
}
