package entities

import "errors"

// Domain errors
var (
	ErrInvalidPersona  = errors.New("invalid persona")
	ErrDuplicatePerson = errors.New("duplicate persona id")
	ErrInvalidTarget   = errors.New("invalid analysis target")
	ErrCorruptProgress = errors.New("corrupt progress snapshot")
)
