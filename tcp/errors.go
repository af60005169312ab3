package tcp

import "errors"

// errTCBNotClosed is the only sentinel this package still needs: Accept
// signals every segment-admission outcome (missing ACK, out-of-window,
// duplicate, reset) through Reaction instead, so a rejected segment is
// never an error value -- only Open's precondition is.
var errTCBNotClosed = errors.New("tcp: open requires a closed TCB")
