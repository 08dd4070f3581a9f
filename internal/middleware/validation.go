package middleware

import (
	"fmt"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var kebabPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// RegisterValidators adds the custom binding tags to gin's validator.
//
//	kebab  lowercase words joined by single hyphens, e.g. "project-manager"
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return v.RegisterValidation("kebab", func(fl validator.FieldLevel) bool {
		return kebabPattern.MatchString(fl.Field().String())
	})
}
