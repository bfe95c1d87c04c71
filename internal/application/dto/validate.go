package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/jhoicas/retail-pos/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// decimal.Decimal se valida como float64 (solo se comparan signos y rangos, no montos exactos).
		validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
		_ = validate.RegisterValidation("scale", validateScale)
	})
	return validate
}

// validateScale regla scale=N: el decimal no tiene más de N decimales significativos.
// Se lee el campo original del struct porque el validador ya lo convirtió a float64.
func validateScale(fl validator.FieldLevel) bool {
	scale, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	field := fl.Parent().FieldByName(fl.StructFieldName())
	for field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return true
		}
		field = field.Elem()
	}
	d, ok := field.Interface().(decimal.Decimal)
	if !ok {
		return false
	}
	return d.Equal(d.Round(int32(scale)))
}

// Validate aplica las reglas `validate` del DTO. Los errores se devuelven envueltos en domain.ErrInvalidInput.
func Validate(in any) error {
	err := instance().Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
}

// ValidateMutation valida el DTO y el usuario que origina el cambio. El usuario es opcional;
// si viene debe ser un UUID porque se guarda en columnas created_by/sold_by.
func ValidateMutation(actorID string, in any) error {
	if err := instance().Var(actorID, "omitempty,uuid"); err != nil {
		return fmt.Errorf("%w: actor %q no es un UUID", domain.ErrInvalidInput, actorID)
	}
	return Validate(in)
}
