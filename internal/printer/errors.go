package printer

import (
	"errors"
	"fmt"
)

// ErrTimedOut reports that the send deadline elapsed before the payload was
// accepted by the operating system.
var ErrTimedOut = errors.New("printer connection timed out")

// ConnectionError carries the transport failure of a dial or write.
type ConnectionError struct {
	Op   string
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("printer %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
