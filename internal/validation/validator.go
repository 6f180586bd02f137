// Package validation はgo-playground/validatorによるリクエストボディの検証を提供する。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/hackorsnooze/internal/model"
)

// Validator はvalidator.Validateをラップし、検証エラーをAPIErrorに変換する。
type Validator struct {
	v *validator.Validate
}

// New はJSONタグ名でフィールドを報告するValidatorを生成する。
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Validator{v: v}
}

// Validate はstructタグに従ってsを検証する。
// 最初に違反したフィールドだけをvalidationカテゴリのAPIErrorとして返す。
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return model.NewInvalidRequestError("リクエストを検証できません。")
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return model.NewMissingFieldError(fe.Field())
	case "max":
		return model.NewInvalidRequestError(fmt.Sprintf("%s は %s 文字以内で指定してください。", fe.Field(), fe.Param()))
	default:
		return model.NewInvalidRequestError(fmt.Sprintf("%s の値が不正です。", fe.Field()))
	}
}
