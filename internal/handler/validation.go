package handler

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// cardExpiryLayout is MM/YY.
const cardExpiryLayout = "01/06"

var registerValidatorsOnce sync.Once

// RegisterValidators adds the custom binding tags used by request bodies to
// gin's validator engine.
func RegisterValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := v.RegisterValidation("card_expiry", func(fl validator.FieldLevel) bool {
			return cardExpiryValid(fl.Field().String(), time.Now())
		}); err != nil {
			panic(err)
		}
	})
}

// cardExpiryValid accepts MM/YY dates whose month has not ended.
func cardExpiryValid(expiry string, now time.Time) bool {
	t, err := time.Parse(cardExpiryLayout, expiry)
	if err != nil {
		return false
	}
	return now.Before(t.AddDate(0, 1, 0))
}
