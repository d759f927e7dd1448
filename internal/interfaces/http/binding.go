package http

import (
	"reflect"
	"sync"

	"github.com/gin-gonic/gin/binding"

	"github.com/garyjia/claim-lifecycle/internal/domain/apperror"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
)

// domainValidator lets gin's binding run the domain validator, so request bodies are
// checked against the same `validate` tags and custom rules the services apply.
type domainValidator struct{}

var registerValidator sync.Once

// useDomainValidator installs domainValidator as gin's binding validator.
func useDomainValidator() {
	registerValidator.Do(func() {
		binding.Validator = domainValidator{}
	})
}

// ValidateStruct checks structs and pointers to structs; anything else passes.
// Failures come back as a validation error carrying the flattened field messages.
func (domainValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	value := reflect.ValueOf(obj)
	for value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil
	}
	if err := entity.Validate(obj); err != nil {
		return apperror.Validation(0, err.Error())
	}
	return nil
}

// Engine returns the shared validator instance.
func (domainValidator) Engine() any {
	return entity.Validator()
}
