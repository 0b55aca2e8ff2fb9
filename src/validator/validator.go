package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CustomValidator は拡張バリデーション機能を提供
type CustomValidator struct {
	validator *validator.Validate
}

// ValidationError はバリデーションエラーの詳細情報
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationErrors は複数のバリデーションエラー
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (ve ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d errors", len(ve.Errors))
}

// First 最初のエラーメッセージ（画面表示用）
func (ve ValidationErrors) First() string {
	if len(ve.Errors) == 0 {
		return ""
	}
	return ve.Errors[0].Message
}

// CreateMemoForm ボードのメモ入力フォーム
// 内容の検証はAPIサーバーが行うため、空白のみの入力だけを弾く
type CreateMemoForm struct {
	Content string `form:"content" json:"content" validate:"notblank"`
}

// LoginForm ボードのログインフォーム（トークンを貼り付ける）
// トークンは不透明な文字列として扱う
type LoginForm struct {
	Token string `form:"token" json:"token" validate:"notblank"`
}

// NewCustomValidator creates a new custom validator instance
func NewCustomValidator() *CustomValidator {
	v := validator.New()
	cv := &CustomValidator{validator: v}

	// カスタムバリデーションルールを登録
	v.RegisterValidation("notblank", cv.validateNotBlank)

	return cv
}

// Validate validates a struct and returns detailed error information
func (cv *CustomValidator) Validate(s interface{}) error {
	err := cv.validator.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	var validationErrors []ValidationError
	for _, fe := range fieldErrors {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: cv.generateErrorMessage(fe),
		})
	}
	return ValidationErrors{Errors: validationErrors}
}

// カスタムバリデーション関数

// validateNotBlank 前後の空白を除いて空でないこと
func (cv *CustomValidator) validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// generateErrorMessage ボードに表示するメッセージを生成
func (cv *CustomValidator) generateErrorMessage(err validator.FieldError) string {
	field := strings.ToLower(err.Field())

	switch err.Tag() {
	case "required", "notblank":
		if field == "token" {
			return "토큰을 입력해 주세요."
		}
		return "메모 내용을 입력해 주세요."
	default:
		return fmt.Sprintf("%s 값이 올바르지 않습니다.", field)
	}
}
