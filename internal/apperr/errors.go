package apperr

import "errors"

// ErrInvalidInput is returned when the input source or a flag value fails
// validation: missing file, empty or headerless CSV, unknown format.
// Use errors.Is(err, apperr.ErrInvalidInput) to detect it uniformly.
var ErrInvalidInput = errors.New("invalid input")

// ErrRequestFailed is returned by HTTP-based lookups (DNS-over-HTTPS) when the
// request fails at the transport level or the server answers with a non-2xx
// status code.
var ErrRequestFailed = errors.New("request failed")
