package exam

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("not authorized")
	ErrUnauthorized       = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidAnswerShape = errors.New("invalid answer shape")
	ErrTestInactive       = errors.New("test is not active")
	ErrConflict           = errors.New("conflict")
)
