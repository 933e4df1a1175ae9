package controller

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gartstein/storemanagement/internal/catalog/dto"
	e "github.com/gartstein/storemanagement/internal/catalog/errors"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
)

// Rules shared by the struct tags on the dto inputs and the per-field checks
// applied to patches.
const (
	nameRules        = "notblank,max=255"
	codeRules        = "gt=0"
	addressRules     = "omitempty,max=500"
	descriptionRules = "omitempty,max=1000"

	priceScale = 2
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateInput checks a create or full-update input against its tags.
func validateInput(in any) error {
	return invalidInput(validate.Struct(in))
}

func validateField(field string, value any, rules string) error {
	err := validate.Var(value, rules)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s fails %s", e.ErrInvalidInput, field, verrs[0].Tag())
	}
	return invalidInput(err)
}

func invalidInput(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		if f.Param() != "" {
			return fmt.Errorf("%w: %s fails %s=%s", e.ErrInvalidInput, f.Field(), f.Tag(), f.Param())
		}
		return fmt.Errorf("%w: %s fails %s", e.ErrInvalidInput, f.Field(), f.Tag())
	}
	return fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
}

func validateName(name string) error {
	return validateField("name", name, nameRules)
}

func validateCode(code int) error {
	return validateField("code", code, codeRules)
}

func validateText(field string, value *string, rules string) error {
	if value == nil {
		return nil
	}
	return validateField(field, *value, rules)
}

// Decimal scale is beyond what the tags can express.
func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", e.ErrInvalidInput)
	}
	if !price.Equal(price.Round(priceScale)) {
		return fmt.Errorf("%w: price allows at most %d fractional digits", e.ErrInvalidInput, priceScale)
	}
	return nil
}

type nonNull struct {
	name  string
	field dto.Nullable
}

// rejectNull fails when a patch sends null for a field that cannot be
// cleared.
func rejectNull(fields ...nonNull) error {
	for _, f := range fields {
		if f.field.IsNull() {
			return fmt.Errorf("%w: %s must not be null", e.ErrInvalidInput, f.name)
		}
	}
	return nil
}
