package accountdelivery

import (
	"github.com/go-playground/validator/v10"

	"github.com/go-petr/pet-pay/internal/domain"
)

// ValidOwnerKind validates whether the owner kind is USER or MERCHANT.
var ValidOwnerKind validator.Func = func(fl validator.FieldLevel) bool {
	if k, ok := fl.Field().Interface().(string); ok {
		return domain.OwnerKind(k).Valid()
	}

	return false
}
