package httpserver

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/and161185/rewear/internal/model"
)

var (
	validatorsOnce sync.Once
	validatorsErr  error
)

// registerValidators installs custom binding tags on gin's validator.
func registerValidators() error {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		validatorsErr = v.RegisterValidation("listingtag", func(fl validator.FieldLevel) bool {
			return model.ValidTag(strings.ToLower(strings.TrimSpace(fl.Field().String())))
		})
	})
	return validatorsErr
}
