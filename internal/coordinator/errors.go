package coordinator

import "errors"

// ErrAlreadyStarted is returned by Start if the coordinator's run loop is
// already running.
var ErrAlreadyStarted = errors.New("coordinator: already started")
