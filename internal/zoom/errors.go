// SPDX-License-Identifier: MIT
package zoom

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter is returned for static configuration errors: a band
// with Start >= End, a band too wide for the sample rate (decimation factor
// below 1), or a non-positive bin count or sample rate. These are not
// transient and should not be retried.
var ErrInvalidParameter = errors.New("zoom: invalid parameter")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}
