package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reads the same `binding` tags gin uses, so drafts validated
// here and drafts bound by a gin route go through identical rules.
func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}

// ValidateStruct runs the shared validator over an input struct's binding
// tags and flattens the result into a single error message.
func ValidateStruct(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, strings.ToLower(fe.Field())+" is "+fe.Tag())
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return err
}
