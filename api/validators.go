package api

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators adds the domain enums to gin's validator.
// Call once from main before serving.
func RegisterCustomValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	_ = v.RegisterValidation("degree", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "VIP", "I", "II", "III":
			return true
		}
		return false
	})

	_ = v.RegisterValidation("payment_type", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "advance", "investment", "refund":
			return true
		}
		return false
	})
}
