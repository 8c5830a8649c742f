// Package apperr classifies failures so transports can tell "invalid input"
// from "out of stock" from "not found" without knowing each domain's errors.
//
// Domain packages declare their own sentinels and wrap exactly one class:
//
//	var ErrCartFull = apperr.Business("cart is full")
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation")
	ErrBusiness   = errors.New("business rule")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
)

type classified struct {
	class error
	msg   string
}

func (e *classified) Error() string { return e.msg }
func (e *classified) Unwrap() error { return e.class }

func Validation(msg string) error { return &classified{class: ErrValidation, msg: msg} }
func Business(msg string) error   { return &classified{class: ErrBusiness, msg: msg} }
func Conflict(msg string) error   { return &classified{class: ErrConflict, msg: msg} }
func NotFound(msg string) error   { return &classified{class: ErrNotFound, msg: msg} }

// Validationf builds a one-off validation error for a specific field value.
func Validationf(format string, args ...any) error {
	return Validation(fmt.Sprintf(format, args...))
}

type Class string

const (
	ClassValidation Class = "INVALID_INPUT"
	ClassBusiness   Class = "BUSINESS_RULE"
	ClassConflict   Class = "CONFLICT"
	ClassNotFound   Class = "NOT_FOUND"
	ClassInternal   Class = "INTERNAL"
)

// Classify reports which class err belongs to. Unclassified errors are internal.
func Classify(err error) Class {
	switch {
	case errors.Is(err, ErrValidation):
		return ClassValidation
	case errors.Is(err, ErrBusiness):
		return ClassBusiness
	case errors.Is(err, ErrConflict):
		return ClassConflict
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	default:
		return ClassInternal
	}
}
