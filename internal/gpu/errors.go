package gpu

import "errors"

// ErrUnavailable reports that a span cannot be compiled for the device:
// no device is attached, the fused shader does not translate, or a
// required capability is missing. Callers fall back to the nodes' CPU
// implementations.
var ErrUnavailable = errors.New("gpu unavailable")
