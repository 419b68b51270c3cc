package rpc

import "errors"

// ErrDaemonUnavailable indicates the Sterling daemon could not be reached.
var ErrDaemonUnavailable = errors.New("sterling: daemon unavailable")
