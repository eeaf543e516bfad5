package audit

import "errors"

// ErrMissingVessel is returned when a record has no vessel ID.
var ErrMissingVessel = errors.New("audit: vessel id is required")
