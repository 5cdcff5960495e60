package currencypkg

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestValidCurrency(t *testing.T) {
	v := validator.New()
	if err := v.RegisterValidation("currency", ValidCurrency); err != nil {
		t.Fatalf("v.RegisterValidation returned error: %v", err)
	}

	type request struct {
		Currency string `validate:"currency"`
	}

	for _, c := range SupportedCurrencies {
		if err := v.Struct(request{Currency: c}); err != nil {
			t.Errorf("v.Struct(%v) returned error: %v", c, err)
		}
	}

	if err := v.Struct(request{Currency: "RUB"}); err == nil {
		t.Errorf("v.Struct(RUB) returned nil error")
	}
}
