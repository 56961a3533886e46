package radio

import "errors"

var (
	ErrAlreadyAuthorized = errors.New("already authorized")
	ErrWrongPassword     = errors.New("wrong password")
	ErrWrongToken        = errors.New("wrong token")
	ErrEmptyPassword     = errors.New("empty password")
)
