package service

import (
	"errors"
	"fmt"
	"strings"

	ordererrors "order-inventory-service/internal/errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateStruct runs the validate tags of v and reports failures as
// ErrInvalidRequest naming every offending field.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ordererrors.ErrInvalidRequest, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ordererrors.ErrInvalidRequest, strings.Join(fields, ", "))
}
