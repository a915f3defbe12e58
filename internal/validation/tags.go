package validation

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Tag names usable in `binding:"..."` struct tags.
const (
	TagEmail          = "teknigo_email"
	TagStrongPassword = "strong_password"
	TagPersonName     = "person_name"
	TagPhone          = "phone"
)

// Register adds the custom tags to v.
func (r *Rules) Register(v *validator.Validate) error {
	tags := map[string]validator.Func{
		TagEmail: func(fl validator.FieldLevel) bool {
			return r.ValidateEmail(fl.Field().String()) == nil
		},
		TagStrongPassword: func(fl validator.FieldLevel) bool {
			return ValidatePassword(fl.Field().String()) == nil
		},
		TagPersonName: func(fl validator.FieldLevel) bool {
			return ValidateName(fl.Field().String())
		},
		TagPhone: func(fl validator.FieldLevel) bool {
			return ValidatePhone(fl.Field().String())
		},
	}
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register validation tag %s: %w", tag, err)
		}
	}
	return nil
}

// RegisterWithGin installs the custom tags on gin's default binding validator.
func (r *Rules) RegisterWithGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	return r.Register(v)
}
