// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidInput = errors.New("invalid input")
)
