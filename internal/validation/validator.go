// Package validation はgo-playground/validatorによる入力検証を提供する。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

var (
	// clockPattern は "HH:MM" 形式の時刻。
	clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
	// phonePattern は国番号付きを含む電話番号。
	phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)
	// slugPattern は小文字英数字とハイフンのみのスラッグ。
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Validator はvalidator.Validateのラッパー。
type Validator struct {
	validate *validator.Validate
}

// New はカスタムルールを登録したValidatorを生成する。
// エラーメッセージのフィールド名にはJSONタグ名を使う。
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "clock", func(fl validator.FieldLevel) bool {
		return clockPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		s := strings.NewReplacer(" ", "", "-", "").Replace(fl.Field().String())
		return phonePattern.MatchString(s)
	})
	mustRegister(v, "slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("検証ルール %s の登録に失敗しました: %v", tag, err))
	}
}

// Validate は構造体を検証する。
// 検証エラーはフィールドごとのメッセージを連結したVALIDATION_FAILEDのAPIErrorとして返す。
func (v *Validator) Validate(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("入力検証に失敗しました: %w", err)
	}

	messages := make([]string, 0, len(verrs))
	for _, e := range verrs {
		messages = append(messages, formatFieldError(e))
	}
	return model.NewValidationError(strings.Join(messages, "; "))
}

// formatFieldError は1フィールド分のエラーメッセージを生成する。
func formatFieldError(e validator.FieldError) string {
	field := e.Field()

	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%sは必須です", field)
	case "email":
		return fmt.Sprintf("%sはメールアドレスの形式で入力してください", field)
	case "url", "http_url":
		return fmt.Sprintf("%sはURLの形式で入力してください", field)
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%sは%s文字以上で入力してください", field, e.Param())
		}
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("%sは%s件以上選択してください", field, e.Param())
		}
		return fmt.Sprintf("%sは%s以上で入力してください", field, e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%sは%s文字以内で入力してください", field, e.Param())
		}
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("%sは%s件以内で選択してください", field, e.Param())
		}
		return fmt.Sprintf("%sは%s以下で入力してください", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%sは次のいずれかを指定してください: %s", field, e.Param())
	case "clock":
		return fmt.Sprintf("%sはHH:MM形式で入力してください", field)
	case "phone":
		return fmt.Sprintf("%sは電話番号の形式で入力してください", field)
	case "slug":
		return fmt.Sprintf("%sは小文字英数字とハイフンのみで入力してください", field)
	case "datetime":
		return fmt.Sprintf("%sは%s形式で入力してください", field, e.Param())
	default:
		return fmt.Sprintf("%sの検証に失敗しました（%s）", field, e.Tag())
	}
}
