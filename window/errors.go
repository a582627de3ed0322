package window

import "errors"

// ErrInvalidParameter reports non-positive windowing configuration or a
// moving window wider than the available base buckets. It is fatal: no
// partial window list is produced.
var ErrInvalidParameter = errors.New("window: invalid parameter")
