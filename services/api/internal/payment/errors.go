package payment

import "errors"

// ErrMalformed marks a callback that authenticated but cannot be read.
var ErrMalformed = errors.New("malformed payment callback")
