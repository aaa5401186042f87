package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/mediassist/resource-api/pkg/errors"
)

// Validator wraps go-playground struct validation and maps failures to
// the application's validation error type.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (val *Validator) Struct(obj interface{}) error {
	err := val.v.Struct(obj)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidation("invalid input", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
	}
	return apperrors.NewValidation(strings.Join(msgs, "; "), err)
}

func (val *Validator) Var(field interface{}, tag string) error {
	if err := val.v.Var(field, tag); err != nil {
		return apperrors.NewValidation(fmt.Sprintf("value failed %s validation", tag), err)
	}
	return nil
}
