package services

import "errors"

var (
	// ErrValidation は入力値が業務ルールを満たさない場合のエラーです。
	// 実際には *ValidationError として返されます。
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
)

// ValidationError はクライアントにそのまま返せるメッセージを持つ検証エラーです。
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
