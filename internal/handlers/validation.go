package handlers

import (
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const tagValueRule = "tagvalue"

var registerOnce sync.Once

// registerValidators installs the custom rules on gin's validator engine.
func registerValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation(tagValueRule, func(fl validator.FieldLevel) bool {
				return validTagValue(fl.Field().String())
			})
		}
	})
}

// validTagValue accepts non-empty strings without quotes, backslashes or
// control characters. Such values embed safely in Flux and delete predicates.
func validTagValue(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r == '"' || r == '\\' || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
