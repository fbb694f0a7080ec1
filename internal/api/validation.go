package api

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Nachitrix/Book-reader/internal/platform/password"
	"github.com/Nachitrix/Book-reader/internal/shared/apperr"
)

// ErrValidation はリクエストボディの検証に失敗した場合のエラーです。
var ErrValidation = apperr.E(apperr.ErrValidation, "VALIDATION_ERROR", "Validation error")

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators はginのバリデーターにカスタムルールを登録します。
// 複数回呼び出しても登録は一度だけ行われます。
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("unexpected validator engine")
			return
		}
		registerErr = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
			return password.Strong(fl.Field().String())
		})
	})
	return registerErr
}

// BindingError はShouldBindの失敗をフィールドごとのメッセージ付きValidationErrorに変換します。
func BindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ErrValidation.WithDetails("malformed request body")
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldMessage(fe))
	}
	return ErrValidation.WithDetails(details...)
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "please include a valid email"
	case "strongpassword":
		return password.Requirement()
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
