package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownFolder   = errors.New("unknown folder")
	ErrInvalidArgument = errors.New("invalid argument")
)
