package progress

import "errors"

// ErrMalformedCheckpoint is returned when the persisted checkpoint cannot be
// parsed. Scans refuse to start on top of it.
var ErrMalformedCheckpoint = errors.New("malformed checkpoint")
