package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrReentrant     = errors.New("reentrant call")
	ErrClosed        = errors.New("closed")
)
