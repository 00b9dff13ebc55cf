package model

import "errors"

// ErrValidation is the root of every request validation failure so callers
// can match the whole class with errors.Is.
var ErrValidation = errors.New("validation failed")
