package utils

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

type RequestValidator struct {
	validate *validator.Validate
}

func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

var (
	validatorOnce sync.Once
	requestValidator *RequestValidator
)

// GetValidator returns the shared request validator.
func GetValidator() *RequestValidator {
	validatorOnce.Do(func() {
		requestValidator = &RequestValidator{validate: validator.New()}
	})
	return requestValidator
}
